package mcu

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Param is one argument of a message format ("oid=%c")
type Param struct {
	Name string
	Type string // %c, %hu, %u, %i or %*s
}

// Message is a command or response listed in the dictionary
type Message struct {
	ID     uint16
	Name   string
	Params []Param
}

// Dictionary is the parsed firmware dictionary
type Dictionary struct {
	Version   string
	Constants map[string]string
	Commands  map[string]*Message
	Responses map[string]*Message

	byID map[uint16]*Message
}

// ParseDictionary parses the dictionary text the firmware returns through
// identify. Unknown line kinds are skipped.
func ParseDictionary(data []byte) (*Dictionary, error) {
	d := &Dictionary{
		Constants: make(map[string]string),
		Commands:  make(map[string]*Message),
		Responses: make(map[string]*Message),
		byID:      make(map[uint16]*Message),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "version":
			if len(fields) > 1 {
				d.Version = fields[1]
			}

		case "const":
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: malformed constant", lineNo)
			}
			d.Constants[fields[1]] = fields[2]

		case "cmd", "resp":
			msg, err := parseMessage(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if fields[0] == "cmd" {
				d.Commands[msg.Name] = msg
			} else {
				d.Responses[msg.Name] = msg
			}
			d.byID[msg.ID] = msg
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if d.Version == "" {
		return nil, fmt.Errorf("dictionary has no version line")
	}
	return d, nil
}

func parseMessage(fields []string) (*Message, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("message needs an ID and a name")
	}
	id, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bad message ID %q: %w", fields[0], err)
	}

	msg := &Message{ID: uint16(id), Name: fields[1]}
	for _, f := range fields[2:] {
		name, typ, ok := strings.Cut(f, "=")
		if !ok || !strings.HasPrefix(typ, "%") {
			return nil, fmt.Errorf("%s: bad parameter %q", msg.Name, f)
		}
		msg.Params = append(msg.Params, Param{Name: name, Type: typ})
	}
	return msg, nil
}

// Lookup returns the message with the given ID
func (d *Dictionary) Lookup(id uint16) (*Message, bool) {
	msg, ok := d.byID[id]
	return msg, ok
}

// Constant returns a dictionary constant as an integer
func (d *Dictionary) Constant(name string) (int, bool) {
	v, ok := d.Constants[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format returns the message as it appears in the dictionary
func (m *Message) Format() string {
	parts := []string{m.Name}
	for _, p := range m.Params {
		parts = append(parts, p.Name+"="+p.Type)
	}
	return strings.Join(parts, " ")
}

func sortedMessages(msgs map[string]*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
