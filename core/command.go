package core

import (
	"errors"
	"servoplex/protocol"
	"sync"
)

var ErrUnknownCommand = errors.New("unknown command ID")

// CommandHandler handles a command, decoding its own arguments from data
type CommandHandler func(data *[]byte) error

// Command is one entry of the dictionary. Responses (MCU → Host) have a nil
// Handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // Argument format, e.g. "oid=%c us=%hu"
	Handler CommandHandler
}

// CommandRegistry assigns IDs in registration order and builds the
// dictionary text the host retrieves with identify.
type CommandRegistry struct {
	mu        sync.RWMutex
	commands  []*Command
	byName    map[string]uint16
	constants []constant
	dict      []byte // Cached dictionary, nil when stale
}

type constant struct {
	name  string
	value string
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		byName: make(map[string]uint16),
	}
}

// RegisterCommand registers a command handler with the global registry
func RegisterCommand(name, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterConstant exposes a named value in the dictionary
func RegisterConstant(name string, value uint32) {
	globalRegistry.AddConstant(name, utoa(value))
}

// DispatchCommand dispatches through the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// Register adds a command, returning the existing ID if name is known
func (r *CommandRegistry) Register(name, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		return id
	}

	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.byName[name] = id
	r.dict = nil

	return id
}

// AddConstant adds or replaces a dictionary constant
func (r *CommandRegistry) AddConstant(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.constants {
		if r.constants[i].name == name {
			r.constants[i].value = value
			r.dict = nil
			return
		}
	}
	r.constants = append(r.constants, constant{name: name, value: value})
	r.dict = nil
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands and responses
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the handler for cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Dictionary returns the dictionary text, one entry per line:
//
//	version <version>
//	const <name> <value>
//	cmd <id> <name> [format]
//	resp <id> <name> [format]
func (r *CommandRegistry) Dictionary() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dict != nil {
		return r.dict
	}

	dict := "version " + protocol.Version + "\n"
	for _, c := range r.constants {
		dict += "const " + c.name + " " + c.value + "\n"
	}
	for _, cmd := range r.commands {
		kind := "cmd "
		if cmd.Handler == nil {
			kind = "resp "
		}
		line := kind + utoa(uint32(cmd.ID)) + " " + cmd.Name
		if cmd.Format != "" {
			line += " " + cmd.Format
		}
		dict += line + "\n"
	}

	r.dict = []byte(dict)
	return r.dict
}

// DictionaryChunk returns up to count bytes of the dictionary from offset
func (r *CommandRegistry) DictionaryChunk(offset uint32, count uint8) []byte {
	dict := r.Dictionary()
	if offset >= uint32(len(dict)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(dict)) {
		end = uint32(len(dict))
	}
	return dict[offset:end]
}
