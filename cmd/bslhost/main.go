// Command bslhost drives a TI MSP430/MSP432 target's UART bootstrap
// loader from the command line: it invokes the ROM BSL, then runs an
// interactive command loop offering mass erase, segment erase, CRC
// check, version query, load PC, and reboot. It has no command for
// writing target memory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/iOperator/msp-embedded-bootloader-host/bsl"
	"github.com/iOperator/msp-embedded-bootloader-host/transport"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	resetPin   = flag.String("reset-pin", "", "GPIO pin name driving RST (periph.io gpioreg name); required for msp430 families, ignored for msp432")
	testPin    = flag.String("test-pin", "", "GPIO pin name driving TEST")
	familyName = flag.String("family", "msp430-flash", "Target family: msp430-flash, msp430-fram, msp432")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	family, err := parseFamily(*familyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("MSP430/MSP432 BSL Host")
	fmt.Println("======================")

	fmt.Printf("Opening %s...\n", *device)
	uart, err := transport.OpenSerialUART(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open serial device: %v\n", err)
		os.Exit(1)
	}
	defer uart.Close()

	pins, err := resolvePins(family)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session := bsl.Open(family, uart, pins, transport.RealClock{}, logger)

	fmt.Printf("Invoking BSL on %s...\n", family.Name())
	if err := session.Invoke(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invoke failed: %v\n", err)
		os.Exit(1)
	}
	session.DelayBetweenCommands()

	fmt.Println("BSL invoked. Enter commands (type 'help' for available commands, 'quit' to exit):")
	runLoop(session)
}

func parseFamily(name string) (bsl.DeviceFamily, error) {
	switch name {
	case "msp430-flash":
		return bsl.MSP430Flash{}, nil
	case "msp430-fram":
		return bsl.MSP430FRAM{}, nil
	case "msp432":
		return bsl.MSP432{}, nil
	default:
		return nil, fmt.Errorf("unknown family %q (want msp430-flash, msp430-fram, or msp432)", name)
	}
}

// resolvePins wires up the RST/TEST GPIO lines for families that invoke
// via the pin sequence. MSP432 uses the sync character instead and
// needs no pins, so an unresolved pair there is not an error.
func resolvePins(family bsl.DeviceFamily) (transport.ResetTestPins, error) {
	if family.UsesSyncCharacter() {
		return transport.NoOpPins{}, nil
	}
	if *resetPin == "" || *testPin == "" {
		return nil, fmt.Errorf("family %s requires -reset-pin and -test-pin", family.Name())
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	rst := gpioreg.ByName(*resetPin)
	if rst == nil {
		return nil, fmt.Errorf("no such GPIO pin %q", *resetPin)
	}
	test := gpioreg.ByName(*testPin)
	if test == nil {
		return nil, fmt.Errorf("no such GPIO pin %q", *testPin)
	}
	return &transport.PeriphPins{Reset: rst, Test: test}, nil
}

func runLoop(s *bsl.Session) {
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
		fields := strings.Fields(line)
		if err := dispatch(s, fields[0], fields[1:]); err != nil {
			if err == errQuit {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func dispatch(s *bsl.Session, cmd string, args []string) error {
	switch cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		printHelp()
		return nil

	case "mass_erase":
		return s.MassErase()

	case "erase_segment":
		addr, err := parseHex(args, 0)
		if err != nil {
			return err
		}
		return s.EraseSegment(addr)

	case "crc_check":
		addr, err := parseHex(args, 0)
		if err != nil {
			return err
		}
		length, err := parseHex(args, 1)
		if err != nil {
			return err
		}
		crc, err := s.CRCCheck(addr, uint16(length))
		if err != nil {
			return err
		}
		fmt.Printf("CRC: 0x%04x\n", crc)
		return nil

	case "tx_bsl_version":
		ver, err := s.TxBSLVersion()
		if err != nil {
			return err
		}
		fmt.Printf("Version: % x\n", ver)
		return nil

	case "load_pc":
		addr, err := parseHex(args, 0)
		if err != nil {
			return err
		}
		return s.LoadPC(addr)

	case "reboot_reset":
		return s.RebootReset()

	default:
		fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		return nil
	}
}

func parseHex(args []string, idx int) (uint32, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("missing argument %d", idx)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(args[idx], "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q: %w", args[idx], err)
	}
	return uint32(v), nil
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  mass_erase                - Erase the entire target")
	fmt.Println("  erase_segment <addr>      - Erase one segment")
	fmt.Println("  crc_check <addr> <len>    - Compute CRC over a memory range")
	fmt.Println("  tx_bsl_version            - Read the BSL version")
	fmt.Println("  load_pc <addr>            - Start execution at addr")
	fmt.Println("  reboot_reset              - Reset and exit the BSL")
	fmt.Println("  quit/exit/q               - Exit the program")
	fmt.Println()
}
