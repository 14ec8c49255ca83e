package transport

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// ResetTestPins drives the two open-ended digital outputs used to
// force an MSP430 into its ROM BSL: RST and TEST. Both setters must
// honour microsecond-order timing from the caller's side -- the pin
// driver itself just needs to apply the level promptly.
type ResetTestPins interface {
	SetReset(high bool) error
	SetTest(high bool) error
}

// PeriphPins adapts two periph.io gpio.PinOut pins to ResetTestPins.
// Board setup (periph.io/x/host/v3's host.Init plus a gpioreg.ByName
// lookup) is the caller's responsibility -- this type only needs
// already-resolved pins.
type PeriphPins struct {
	Reset gpio.PinOut
	Test  gpio.PinOut
}

func level(high bool) gpio.Level {
	if high {
		return gpio.High
	}
	return gpio.Low
}

func (p *PeriphPins) SetReset(high bool) error {
	if err := p.Reset.Out(level(high)); err != nil {
		return fmt.Errorf("transport: set RST pin: %w", err)
	}
	return nil
}

func (p *PeriphPins) SetTest(high bool) error {
	if err := p.Test.Out(level(high)); err != nil {
		return fmt.Errorf("transport: set TEST pin: %w", err)
	}
	return nil
}

// NoOpPins satisfies ResetTestPins for targets that never drive RST/TEST
// -- an MSP432 invoked via the sync character, for instance. Unlike
// FakePins it is production code, not a test double: it does not
// record anything, it just discards the call.
type NoOpPins struct{}

func (NoOpPins) SetReset(bool) error { return nil }
func (NoOpPins) SetTest(bool) error  { return nil }

// FakePins records every transition for assertions in tests, instead
// of driving real hardware.
type FakePins struct {
	ResetHigh bool
	TestHigh  bool
	// Transitions records (pin, high) pairs in the order they were
	// applied; pin is "RST" or "TEST".
	Transitions []PinTransition
}

// PinTransition is one recorded SetReset/SetTest call.
type PinTransition struct {
	Pin  string
	High bool
}

func (p *FakePins) SetReset(high bool) error {
	p.ResetHigh = high
	p.Transitions = append(p.Transitions, PinTransition{Pin: "RST", High: high})
	return nil
}

func (p *FakePins) SetTest(high bool) error {
	p.TestHigh = high
	p.Transitions = append(p.Transitions, PinTransition{Pin: "TEST", High: high})
	return nil
}
