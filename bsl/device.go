package bsl

// DeviceFamily selects the per-target behaviour that varies across the
// three supported MSP430/MSP432 families: addressing width, mass-erase
// reply semantics, version response length, and invocation method.
// Implemented as a tagged-variant dispatch (one zero-size type per
// family) rather than a central switch, so a fourth family only touches
// this file.
type DeviceFamily interface {
	// AddressWidth is the number of address bytes the plain (3) or _32
	// (4) command forms expect.
	AddressWidth() int
	// MassEraseWaitsForReply reports whether mass_erase should wait for
	// an ACK and core Message. FRAM targets reboot mid-erase and answer
	// neither.
	MassEraseWaitsForReply() bool
	// VersionPayloadLen is how many data bytes tx_bsl_version copies
	// out of its core response: 4 for MSP430 families, 10 for MSP432.
	VersionPayloadLen() int
	// UsesSyncCharacter reports whether Invoke should send the MSP432
	// sync byte instead of driving the RST/TEST pin sequence.
	UsesSyncCharacter() bool
	// Name identifies the family in logs.
	Name() string
}

// MSP430Flash is a flash-memory MSP430 target: 20-bit addressing,
// mass_erase replies normally, invoked via the RST/TEST pin sequence.
type MSP430Flash struct{}

func (MSP430Flash) AddressWidth() int            { return 3 }
func (MSP430Flash) MassEraseWaitsForReply() bool { return true }
func (MSP430Flash) VersionPayloadLen() int       { return 4 }
func (MSP430Flash) UsesSyncCharacter() bool      { return false }
func (MSP430Flash) Name() string                 { return "msp430-flash" }

// MSP430FRAM is an FRAM MSP430 target. Identical to MSP430Flash except
// mass_erase reboots the target mid-operation and never answers.
type MSP430FRAM struct{}

func (MSP430FRAM) AddressWidth() int            { return 3 }
func (MSP430FRAM) MassEraseWaitsForReply() bool { return false }
func (MSP430FRAM) VersionPayloadLen() int       { return 4 }
func (MSP430FRAM) UsesSyncCharacter() bool      { return false }
func (MSP430FRAM) Name() string                 { return "msp430-fram" }

// MSP432 is a 32-bit-addressed target invoked via the sync character
// instead of the pin sequence.
type MSP432 struct{}

func (MSP432) AddressWidth() int            { return 4 }
func (MSP432) MassEraseWaitsForReply() bool { return true }
func (MSP432) VersionPayloadLen() int       { return 10 }
func (MSP432) UsesSyncCharacter() bool      { return true }
func (MSP432) Name() string                 { return "msp432" }
