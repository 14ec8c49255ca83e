package bsl

import "github.com/iOperator/msp-embedded-bootloader-host/protocol"

// maxPayload returns the largest payload a single rx_data_block-family
// frame can carry for a command with an address field addrLen bytes
// wide, so that 1 (cmd) + addrLen + payload never exceeds
// protocol.MaxCorePacket -- the bound protocol.Emit enforces. A flat
// 256-byte chunk, as original_source/embedded_bootloader.c sends, does
// not fit once the address bytes are counted; 253 bytes is the largest
// chunk a 20-bit-addressed command can carry, 252 for the 32-bit form.
func maxPayload(addrLen int) int {
	return protocol.MaxCorePacket - 1 - addrLen
}

// chunkRange is one (offset, length) slice of a caller's payload to
// send as a single frame.
type chunkRange struct {
	offset, length int
}

// chunkRanges splits a payload of the given total length into frames
// of at most max bytes: full max-byte frames until at most max bytes
// remain, then one final frame carrying the remainder. For total == 0
// it still yields one empty range, matching commands whose payload may
// legitimately be zero-length.
func chunkRanges(total, max int) []chunkRange {
	var ranges []chunkRange
	offset := 0
	for total-offset > max {
		ranges = append(ranges, chunkRange{offset: offset, length: max})
		offset += max
	}
	ranges = append(ranges, chunkRange{offset: offset, length: total - offset})
	return ranges
}
