package bsl

import (
	"fmt"

	"github.com/iOperator/msp-embedded-bootloader-host/protocol"
	"github.com/iOperator/msp-embedded-bootloader-host/transport"
)

// BSL command bytes, per the catalogue in §4.4.
const (
	cmdRxDataBlock       byte = 0x10
	cmdRxDataBlock32     byte = 0x20
	cmdRxPassword        byte = 0x11
	cmdRxPassword32      byte = 0x21
	cmdEraseSegment      byte = 0x12
	cmdEraseSegment32    byte = 0x22
	cmdUnlockAndLockInfo byte = 0x13
	cmdMassErase         byte = 0x15
	cmdRebootReset       byte = 0x25
	cmdCRCCheck          byte = 0x16
	cmdCRCCheck32        byte = 0x26
	cmdLoadPC            byte = 0x17
	cmdLoadPC32          byte = 0x27
	cmdTxBSLVersion      byte = 0x19
	cmdFactoryReset      byte = 0x30
	cmdChangeBaudRate    byte = 0x52
)

func addrBytes20(addr uint32) []byte {
	return []byte{byte(addr), byte(addr >> 8), byte(addr >> 16)}
}

func addrBytes32(addr uint32) []byte {
	return []byte{byte(addr), byte(addr >> 8), byte(addr >> 16), byte(addr >> 24)}
}

// sendAndAwaitMessage emits a frame, waits for the UART-layer ACK, then
// reads and interprets a Message core response, returning a *CoreError
// if the target reported anything other than OPERATION_SUCCESSFUL.
func (s *Session) sendAndAwaitMessage(cmd byte, addr, payload []byte) error {
	if err := protocol.Emit(s.uart, cmd, addr, payload); err != nil {
		return err
	}
	if ack := protocol.ReceiveAck(s.uart, s.clock); !ack.OK() {
		return ack
	}

	var buf [2]byte
	n, err := protocol.Receive(s.uart, buf[:])
	if err != nil {
		return err
	}
	resp, err := protocol.ParseCoreResponse(buf[:n])
	if err != nil {
		return err
	}
	msg, ok := resp.(protocol.Message)
	if !ok {
		return fmt.Errorf("bsl: expected Message core response to cmd 0x%02x, got %T", cmd, resp)
	}
	if !msg.Code.OK() {
		return &CoreError{Code: msg.Code}
	}
	return nil
}

// sendAndAwaitAck emits a frame and waits only for the UART-layer ACK,
// for commands that never elicit a core response (load_pc*).
func (s *Session) sendAndAwaitAck(cmd byte, addr, payload []byte) error {
	if err := protocol.Emit(s.uart, cmd, addr, payload); err != nil {
		return err
	}
	if ack := protocol.ReceiveAck(s.uart, s.clock); !ack.OK() {
		return ack
	}
	return nil
}

// sendAndAwaitData emits a frame, waits for the ACK, then reads a Data
// core response into buf. A Message response is interpreted as an
// error (the target rejected the request instead of answering).
func (s *Session) sendAndAwaitData(cmd byte, addr, payload, buf []byte) (protocol.Data, error) {
	if err := protocol.Emit(s.uart, cmd, addr, payload); err != nil {
		return protocol.Data{}, err
	}
	if ack := protocol.ReceiveAck(s.uart, s.clock); !ack.OK() {
		return protocol.Data{}, ack
	}

	n, err := protocol.Receive(s.uart, buf)
	if err != nil {
		return protocol.Data{}, err
	}
	resp, err := protocol.ParseCoreResponse(buf[:n])
	if err != nil {
		return protocol.Data{}, err
	}
	switch v := resp.(type) {
	case protocol.Data:
		return v, nil
	case protocol.Message:
		return protocol.Data{}, &CoreError{Code: v.Code}
	default:
		return protocol.Data{}, fmt.Errorf("bsl: unexpected core response %T to cmd 0x%02x", resp, cmd)
	}
}

// sendOnly emits a frame without waiting for any reply, for commands
// the target never acknowledges (reboot_reset, factory_reset).
func (s *Session) sendOnly(cmd byte, addr, payload []byte) error {
	return protocol.Emit(s.uart, cmd, addr, payload)
}

// RxDataBlock writes data to 20-bit address addr, splitting it into
// frames of at most maxPayload(3) bytes each as needed. Every chunk
// recomputes its full address from addr+offset rather than relying on
// the chunk size evenly dividing into the address's low byte, so the
// chunking stays correct even if the chunk size ever changes.
func (s *Session) RxDataBlock(addr uint32, data []byte) error {
	for i, r := range chunkRanges(len(data), maxPayload(3)) {
		chunkAddr := addr + uint32(r.offset)
		if i > 0 {
			s.DelayBetweenCommands()
		}
		if err := s.sendAndAwaitMessage(cmdRxDataBlock, addrBytes20(chunkAddr), data[r.offset:r.offset+r.length]); err != nil {
			return fmt.Errorf("bsl: rx_data_block at 0x%06x: %w", chunkAddr, err)
		}
	}
	return nil
}

// RxDataBlock32 is the 32-bit-addressed form of RxDataBlock, used on
// MSP432 targets.
func (s *Session) RxDataBlock32(addr uint32, data []byte) error {
	for i, r := range chunkRanges(len(data), maxPayload(4)) {
		chunkAddr := addr + uint32(r.offset)
		if i > 0 {
			s.DelayBetweenCommands()
		}
		if err := s.sendAndAwaitMessage(cmdRxDataBlock32, addrBytes32(chunkAddr), data[r.offset:r.offset+r.length]); err != nil {
			return fmt.Errorf("bsl: rx_data_block_32 at 0x%08x: %w", chunkAddr, err)
		}
	}
	return nil
}

// RxPassword unlocks the BSL with a 32-byte password.
func (s *Session) RxPassword(password [32]byte) error {
	return s.sendAndAwaitMessage(cmdRxPassword, nil, password[:])
}

// RxPassword32 unlocks the BSL with a 256-byte password (the AES-256
// password form used on larger devices and MSP432).
func (s *Session) RxPassword32(password [256]byte) error {
	return s.sendAndAwaitMessage(cmdRxPassword32, nil, password[:])
}

// EraseSegment erases the flash/FRAM segment at 20-bit address addr.
func (s *Session) EraseSegment(addr uint32) error {
	return s.sendAndAwaitMessage(cmdEraseSegment, addrBytes20(addr), nil)
}

// EraseSegment32 is the 32-bit-addressed form of EraseSegment.
func (s *Session) EraseSegment32(addr uint32) error {
	return s.sendAndAwaitMessage(cmdEraseSegment32, addrBytes32(addr), nil)
}

// UnlockAndLockInfo unlocks write protection of the INFO A segment.
// MSP430 flash devices only.
func (s *Session) UnlockAndLockInfo() error {
	return s.sendAndAwaitMessage(cmdUnlockAndLockInfo, nil, nil)
}

// MassErase erases the entire target. On an MSP430FRAM device this
// emits the frame and returns immediately without waiting for any
// reply: the target reboots mid-erase and answers neither the UART
// ACK nor a core Message, which is the specified behaviour rather than
// a failure.
func (s *Session) MassErase() error {
	if !s.family.MassEraseWaitsForReply() {
		return s.sendOnly(cmdMassErase, nil, nil)
	}
	return s.sendAndAwaitMessage(cmdMassErase, nil, nil)
}

// RebootReset resets the target and exits the BSL. It elicits no
// reply.
func (s *Session) RebootReset() error {
	return s.sendOnly(cmdRebootReset, nil, nil)
}

// CRCCheck computes a CRC-CCITT over length bytes starting at 20-bit
// address addr and returns the target's result.
func (s *Session) CRCCheck(addr uint32, length uint16) (uint16, error) {
	var buf [3]byte
	lenBytes := []byte{byte(length), byte(length >> 8)}
	data, err := s.sendAndAwaitData(cmdCRCCheck, addrBytes20(addr), lenBytes, buf[:])
	if err != nil {
		return 0, err
	}
	if len(data.Bytes) < 2 {
		return 0, fmt.Errorf("bsl: crc_check response too short (%d bytes)", len(data.Bytes))
	}
	return uint16(data.Bytes[0]) | uint16(data.Bytes[1])<<8, nil
}

// CRCCheck32 is the 32-bit-addressed form of CRCCheck.
func (s *Session) CRCCheck32(addr uint32, length uint16) (uint16, error) {
	var buf [3]byte
	lenBytes := []byte{byte(length), byte(length >> 8)}
	data, err := s.sendAndAwaitData(cmdCRCCheck32, addrBytes32(addr), lenBytes, buf[:])
	if err != nil {
		return 0, err
	}
	if len(data.Bytes) < 2 {
		return 0, fmt.Errorf("bsl: crc_check_32 response too short (%d bytes)", len(data.Bytes))
	}
	return uint16(data.Bytes[0]) | uint16(data.Bytes[1])<<8, nil
}

// LoadPC sets the target's program counter to 20-bit address addr and
// starts execution there. It elicits only the UART-layer ACK.
func (s *Session) LoadPC(addr uint32) error {
	return s.sendAndAwaitAck(cmdLoadPC, addrBytes20(addr), nil)
}

// LoadPC32 is the 32-bit-addressed form of LoadPC.
func (s *Session) LoadPC32(addr uint32) error {
	return s.sendAndAwaitAck(cmdLoadPC32, addrBytes32(addr), nil)
}

// TxBSLVersion queries the BSL version, returning 4 bytes for MSP430
// families or 10 bytes for MSP432 per the session's DeviceFamily.
func (s *Session) TxBSLVersion() ([]byte, error) {
	buf := make([]byte, 11)
	data, err := s.sendAndAwaitData(cmdTxBSLVersion, nil, nil, buf)
	if err != nil {
		return nil, err
	}
	n := s.family.VersionPayloadLen()
	if len(data.Bytes) < n {
		return nil, fmt.Errorf("bsl: tx_bsl_version response too short (%d < %d bytes)", len(data.Bytes), n)
	}
	return append([]byte(nil), data.Bytes[:n]...), nil
}

// FactoryReset restores factory calibration data from a 16-byte
// payload. It elicits no reply.
func (s *Session) FactoryReset(data [16]byte) error {
	return s.sendOnly(cmdFactoryReset, nil, data[:])
}

// ChangeBaudRate switches both ends to a new baud rate: it sends the
// command, waits for the ACK, then reconfigures the local UART. The
// target is specified to switch immediately after emitting its ACK, so
// the local reconfiguration and the caller's next DelayBetweenCommands
// give both sides time to settle.
func (s *Session) ChangeBaudRate(code transport.Baud) error {
	if err := protocol.Emit(s.uart, cmdChangeBaudRate, nil, []byte{byte(code)}); err != nil {
		return err
	}
	if ack := protocol.ReceiveAck(s.uart, s.clock); !ack.OK() {
		return ack
	}
	rate, err := code.Rate()
	if err != nil {
		return err
	}
	if err := s.uart.Configure(rate); err != nil {
		return fmt.Errorf("bsl: reconfigure uart after baud change: %w", err)
	}
	s.logger.Debug("baud rate changed", "rate", rate)
	return nil
}
