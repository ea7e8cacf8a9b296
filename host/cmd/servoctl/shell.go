package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"servoplex/core"
	"servoplex/host/config"
	"servoplex/host/mcu"
)

// controller is the part of *mcu.MCU the shell drives
type controller interface {
	ConfigServo(oid uint8) error
	Attach(oid, port, pin uint8, min, max uint16) error
	Detach(oid uint8) error
	SetMicroseconds(oid uint8, us uint16, frames uint8) error
	SetAngle(oid uint8, angle int, frames uint8) error
	Query(oid uint8) (*mcu.ServoState, error)
	GetServoConfig() (*mcu.ServoConfig, error)
	EmergencyStop() error
	PrintDictionary()
}

// sweepPoll is how often sweep checks whether a ramp has finished
var sweepPoll = 100 * time.Millisecond

type shell struct {
	board controller
	rig   *config.Rig
	out   io.Writer
}

// exec runs one command line. It reports whether the shell should exit.
func (s *shell) exec(args []string) (bool, error) {
	switch args[0] {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		s.printHelp()

	case "dict":
		s.board.PrintDictionary()

	case "config":
		cfg, err := s.board.GetServoConfig()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "capacity=%d allocated=%d groups=%d clock=%dHz prescale=%d\n",
			cfg.Capacity, cfg.Allocated, cfg.Groups, cfg.ClockHz, cfg.Prescale)

	case "setup":
		return false, setupRig(s.board, s.rig)

	case "attach":
		return false, s.attach(args[1:])

	case "detach":
		oid, _, err := s.servoArg(args, 1)
		if err != nil {
			return false, err
		}
		return false, s.board.Detach(oid)

	case "us":
		oid, sc, err := s.servoArg(args, 2)
		if err != nil {
			return false, err
		}
		us, err := parseUint(args[2], 16)
		if err != nil {
			return false, err
		}
		frames, err := s.framesArg(args, 3, sc)
		if err != nil {
			return false, err
		}
		return false, s.board.SetMicroseconds(oid, uint16(us), frames)

	case "angle":
		oid, sc, err := s.servoArg(args, 2)
		if err != nil {
			return false, err
		}
		angle, err := strconv.Atoi(args[2])
		if err != nil {
			return false, fmt.Errorf("bad angle %q", args[2])
		}
		frames, err := s.framesArg(args, 3, sc)
		if err != nil {
			return false, err
		}
		return false, s.board.SetAngle(oid, angle, frames)

	case "query":
		oid, _, err := s.servoArg(args, 1)
		if err != nil {
			return false, err
		}
		st, err := s.board.Query(oid)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "oid=%d us=%d angle=%d attached=%v moving=%v\n",
			st.OID, st.Microseconds, st.Angle, st.Attached, st.Moving)

	case "sweep":
		oid, sc, err := s.servoArg(args, 1)
		if err != nil {
			return false, err
		}
		frames, err := s.framesArg(args, 2, sc)
		if err != nil {
			return false, err
		}
		if frames == 0 {
			frames = 50
		}
		return false, sweep(s.board, oid, frames)

	case "estop":
		return false, s.board.EmergencyStop()

	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
	}
	return false, nil
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  help                          - Show this help message")
	fmt.Fprintln(s.out, "  dict                          - Print dictionary summary")
	fmt.Fprintln(s.out, "  config                        - Show the board's servo capacity and clock")
	fmt.Fprintln(s.out, "  setup                         - Configure and attach every servo in the rig")
	fmt.Fprintln(s.out, "  attach <servo>                - Attach a rig servo")
	fmt.Fprintln(s.out, "  attach <oid> <port> <pin> [min max]")
	fmt.Fprintln(s.out, "  detach <servo>                - Stop driving a servo")
	fmt.Fprintln(s.out, "  us <servo> <us> [frames]      - Set pulse width")
	fmt.Fprintln(s.out, "  angle <servo> <deg> [frames]  - Set angle")
	fmt.Fprintln(s.out, "  query <servo>                 - Show servo state")
	fmt.Fprintln(s.out, "  sweep <servo> [frames]        - Move 0 -> 180 -> 90 degrees")
	fmt.Fprintln(s.out, "  estop                         - Detach every servo")
	fmt.Fprintln(s.out, "  quit/exit/q                   - Exit the program")
	fmt.Fprintln(s.out)
}

// servoArg resolves args[1] as a rig servo name or a numeric oid. At least
// min arguments must follow the command name.
func (s *shell) servoArg(args []string, min int) (uint8, *config.ServoConfig, error) {
	if len(args) < min+1 {
		return 0, nil, fmt.Errorf("%s needs %d argument(s)", args[0], min)
	}
	if s.rig != nil {
		if sc, ok := s.rig.Find(args[1]); ok {
			return sc.OID, sc, nil
		}
	}
	oid, err := parseUint(args[1], 8)
	if err != nil {
		return 0, nil, fmt.Errorf("unknown servo %q", args[1])
	}
	return uint8(oid), nil, nil
}

// framesArg returns args[i] as a frame count, defaulting to the rig servo's
// ramp_frames
func (s *shell) framesArg(args []string, i int, sc *config.ServoConfig) (uint8, error) {
	if i < len(args) {
		v, err := parseUint(args[i], 8)
		if err != nil {
			return 0, err
		}
		return uint8(v), nil
	}
	if sc != nil {
		return sc.RampFrames, nil
	}
	return 0, nil
}

func (s *shell) attach(args []string) error {
	if len(args) == 1 && s.rig != nil {
		sc, ok := s.rig.Find(args[0])
		if !ok {
			return fmt.Errorf("unknown servo %q", args[0])
		}
		return attachServo(s.board, sc)
	}

	if len(args) != 3 && len(args) != 5 {
		return errors.New("usage: attach <oid> <port> <pin> [min max]")
	}
	var vals [5]uint64
	for i, a := range args {
		bits := 8
		if i >= 3 {
			bits = 16
		}
		v, err := parseUint(a, bits)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	oid := uint8(vals[0])
	if err := configServo(s.board, oid); err != nil {
		return err
	}
	return s.board.Attach(oid, uint8(vals[1]), uint8(vals[2]), uint16(vals[3]), uint16(vals[4]))
}

// configServo binds oid, tolerating an oid the board already knows from an
// earlier session
func configServo(c controller, oid uint8) error {
	err := c.ConfigServo(oid)
	var se *mcu.StatusError
	if errors.As(err, &se) && se.Code == core.CodeOIDInUse {
		return nil
	}
	return err
}

func attachServo(c controller, sc *config.ServoConfig) error {
	if err := configServo(c, sc.OID); err != nil {
		return fmt.Errorf("servo %s: %w", sc.Name, err)
	}
	if err := c.Attach(sc.OID, sc.Port, sc.Pin, sc.MinUS, sc.MaxUS); err != nil {
		return fmt.Errorf("servo %s: %w", sc.Name, err)
	}
	if sc.StartAngle != nil {
		if err := c.SetAngle(sc.OID, *sc.StartAngle, 0); err != nil {
			return fmt.Errorf("servo %s: %w", sc.Name, err)
		}
	}
	return nil
}

// setupRig configures and attaches every servo of the rig
func setupRig(c controller, rig *config.Rig) error {
	for i := range rig.Servos {
		if err := attachServo(c, &rig.Servos[i]); err != nil {
			return err
		}
	}
	return nil
}

// sweep ramps oid to each end and back to the middle, waiting for every ramp
// to finish
func sweep(c controller, oid uint8, frames uint8) error {
	// A ramp lasts frames * 20ms; allow twice that
	limit := time.Duration(frames) * 40 * time.Millisecond

	for _, angle := range []int{0, 180, 90} {
		if err := c.SetAngle(oid, angle, frames); err != nil {
			return err
		}
		deadline := time.Now().Add(limit)
		for {
			st, err := c.Query(oid)
			if err != nil {
				return err
			}
			if !st.Moving {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("servo %d still moving after %v", oid, limit)
			}
			time.Sleep(sweepPoll)
		}
	}
	return nil
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}
