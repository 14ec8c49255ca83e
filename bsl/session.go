// Package bsl implements the command layer and session control for the
// TI MSP430/MSP432 Bootstrap Loader UART protocol: one method per BSL
// command, the chunked rx_data_block transfer loop, the invocation pin
// sequence, and inter-command timing discipline. It composes the
// protocol package's frame codec, CRC engine, and ACK receiver against
// a transport.UART, a transport.ResetTestPins, and a transport.Clock.
package bsl

import (
	"fmt"
	"log/slog"

	"github.com/iOperator/msp-embedded-bootloader-host/transport"
)

// syncCharacter is the byte the MSP432 BSL uses to calibrate its UART
// baud rate during invocation.
const syncCharacter byte = 0xFF

// delayBetweenCommandsUs is the recommended gap between any two
// successive BSL commands against one target.
const delayBetweenCommandsUs uint32 = 1200

// Session binds one target's UART, RST/TEST pins, and delay source
// together with its DeviceFamily. It is not safe for concurrent use:
// the target's BSL is a single-entry request/response engine, and a
// Session executes one command at a time from the caller's
// perspective.
type Session struct {
	uart   transport.UART
	pins   transport.ResetTestPins
	clock  transport.Clock
	family DeviceFamily
	logger *slog.Logger
}

// Open binds a Session to the given transport, pins, clock, and
// device family. logger may be nil, in which case a discarding logger
// is used.
func Open(family DeviceFamily, uart transport.UART, pins transport.ResetTestPins, clock transport.Clock, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		uart:   uart,
		pins:   pins,
		clock:  clock,
		family: family,
		logger: logger,
	}
}

// Family returns the session's device family.
func (s *Session) Family() DeviceFamily {
	return s.family
}

// Invoke forces the target into its ROM BSL: the RST/TEST pin waveform
// for MSP430 families, or the sync-character exchange for MSP432.
func (s *Session) Invoke() error {
	if s.family.UsesSyncCharacter() {
		return s.syncCharacterInvoke()
	}
	return s.pinSequenceInvoke()
}

// pinSequenceInvoke drives the RST/TEST waveform documented in §4.5:
//
//	RST:  H ─────┐                    ┌────────
//	             └────────────────────┘
//	TEST: H ─┐       ┌──┐    ┌─────┐
//	         └───────┘  └────┘     └──────────
//	t(µs):   200 110   5 ~120 10  100 100 200
func (s *Session) pinSequenceInvoke() error {
	step := func(pin func(bool) error, high bool, delayUs uint32) error {
		if err := pin(high); err != nil {
			return fmt.Errorf("bsl: invoke sequence: %w", err)
		}
		s.clock.DelayMicroseconds(delayUs)
		return nil
	}

	if err := step(s.pins.SetReset, true, 0); err != nil {
		return err
	}
	if err := step(s.pins.SetTest, true, 200); err != nil {
		return err
	}
	if err := step(s.pins.SetTest, false, 110); err != nil {
		return err
	}
	if err := step(s.pins.SetReset, false, 5); err != nil {
		return err
	}
	if err := step(s.pins.SetTest, true, 120); err != nil {
		return err
	}
	if err := step(s.pins.SetTest, false, 10); err != nil {
		return err
	}
	if err := step(s.pins.SetTest, true, 100); err != nil {
		return err
	}
	if err := step(s.pins.SetReset, true, 100); err != nil {
		return err
	}
	if err := step(s.pins.SetTest, false, 200); err != nil {
		return err
	}

	s.logger.Debug("invoke sequence complete", "family", s.family.Name())
	return nil
}

// syncCharacterInvoke sends the MSP432's single 0xFF sync byte and
// reads one byte back, which the target uses for automatic baud-rate
// detection. The echoed byte carries no information the caller needs.
func (s *Session) syncCharacterInvoke() error {
	if err := s.uart.SendByte(syncCharacter); err != nil {
		return fmt.Errorf("bsl: sync character: %w", err)
	}
	if _, err := s.uart.RecvByte(); err != nil {
		return fmt.Errorf("bsl: sync character reply: %w", err)
	}
	s.logger.Debug("sync character exchanged", "family", s.family.Name())
	return nil
}

// DelayBetweenCommands sleeps the 1.2ms gap required between any two
// successive BSL commands. Callers must invoke this themselves between
// commands; back-to-back frames without it may be dropped by the
// target.
func (s *Session) DelayBetweenCommands() {
	s.clock.DelayMicroseconds(delayBetweenCommandsUs)
}
