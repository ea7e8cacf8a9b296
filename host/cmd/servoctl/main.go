package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"servoplex/host/config"
	"servoplex/host/mcu"
	"servoplex/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate (ignored for USB CDC)")
	backend = flag.String("backend", serial.BackendTarm, "Serial implementation: tarm or bugst")
	rigFile = flag.String("rig", "", "JSON rig file describing the attached servos")
	list    = flag.Bool("list", false, "List serial ports and exit")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	if *list {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	rig := config.DefaultRig(*device)
	if *rigFile != "" {
		var err error
		if rig, err = config.LoadRigFile(*rigFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	applyFlags(rig)

	fmt.Println("servoctl - servoplex servo controller")
	fmt.Println()

	port, err := serial.OpenBackend(rig.Backend, &serial.Config{
		Device:      rig.Device,
		Baud:        rig.Baud,
		ReadTimeout: 100,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}

	board := mcu.NewMCU()
	board.Verbose = *verbose
	board.ConnectPort(port)
	defer board.Close()

	fmt.Printf("Connected to %s\n", rig.Device)

	if err := board.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		board.PrintDictionary()
	}

	if *rigFile != "" {
		if err := setupRig(board, rig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	sh := &shell{board: board, rig: rig, out: os.Stdout}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := sh.exec(strings.Fields(line))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if quit {
			fmt.Println("Goodbye!")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags override the rig file
func applyFlags(rig *config.Rig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			rig.Device = *device
		case "baud":
			rig.Baud = *baud
		case "backend":
			rig.Backend = *backend
		}
	})
}
