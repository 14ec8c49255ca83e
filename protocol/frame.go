package protocol

// Header is the fixed first byte of every BSL frame, host- or
// target-originated.
const Header byte = 0x80

// BufferSizeCap is the target's BSL rx buffer size in bytes, including
// the 5-byte frame envelope (header + 2-byte length + 2-byte CRC).
const BufferSizeCap = 262

// MaxCorePacket is the largest core packet (cmd + address + payload)
// that still fits under BufferSizeCap once the envelope is subtracted.
// Callers that split a transfer into multiple frames (bsl.RxDataBlock
// and friends) must size their chunks against this, not against a
// round number like 256.
const MaxCorePacket = BufferSizeCap - 5

// ByteWriter is the minimal write-side capability the frame codec
// needs from a transport: send one byte, blocking until accepted.
type ByteWriter interface {
	SendByte(b byte) error
}

// ByteReader is the minimal read-side capability the frame codec needs
// from a transport: receive one byte, blocking until available.
type ByteReader interface {
	RecvByte() (byte, error)
}

// Emit assembles and transmits a host->target (or target->host) BSL
// frame: header, little-endian length, command byte, address bytes,
// payload, and a CRC-CCITT/FALSE trailer computed over everything
// following the length field. addr must be 0, 3, or 4 bytes long.
func Emit(w ByteWriter, cmd byte, addr []byte, payload []byte) error {
	if len(addr) != 0 && len(addr) != 3 && len(addr) != 4 {
		return &FrameError{Kind: InvalidAddressWidth}
	}

	length := 1 + len(addr) + len(payload)
	if length > MaxCorePacket {
		return &FrameError{Kind: PacketTooLarge}
	}

	if err := w.SendByte(Header); err != nil {
		return err
	}
	if err := w.SendByte(byte(length)); err != nil {
		return err
	}
	if err := w.SendByte(byte(length >> 8)); err != nil {
		return err
	}

	crc := NewCRC()
	send := func(b byte) error {
		if err := w.SendByte(b); err != nil {
			return err
		}
		crc.Update(b)
		return nil
	}

	if err := send(cmd); err != nil {
		return err
	}
	for _, a := range addr {
		if err := send(a); err != nil {
			return err
		}
	}
	for _, p := range payload {
		if err := send(p); err != nil {
			return err
		}
	}

	result := crc.Result()
	if err := w.SendByte(byte(result)); err != nil {
		return err
	}
	return w.SendByte(byte(result >> 8))
}

// Receive parses one inbound BSL frame into dst, returning the number
// of core-packet bytes written. It validates the header, the length
// against len(dst), and the trailing CRC. It never imposes a timeout —
// it assumes the transport blocks until bytes arrive; callers that need
// a deadline must wrap the ByteReader or race it against a timer
// themselves (see bsl.Session, which only ever times out the ACK).
func Receive(r ByteReader, dst []byte) (int, error) {
	header, err := r.RecvByte()
	if err != nil {
		return 0, err
	}
	if header != Header {
		return 0, &FrameError{Kind: HeaderIncorrect}
	}

	lo, err := r.RecvByte()
	if err != nil {
		return 0, err
	}
	hi, err := r.RecvByte()
	if err != nil {
		return 0, err
	}
	length := int(lo) | int(hi)<<8

	if length > len(dst) {
		return 0, &FrameError{Kind: PacketSizeExceedsBuffer}
	}
	if length == 0 {
		return 0, &FrameError{Kind: EmptyPacket}
	}

	crc := NewCRC()
	for i := 0; i < length; i++ {
		b, err := r.RecvByte()
		if err != nil {
			return 0, err
		}
		dst[i] = b
		crc.Update(b)
	}

	clo, err := r.RecvByte()
	if err != nil {
		return 0, err
	}
	chi, err := r.RecvByte()
	if err != nil {
		return 0, err
	}
	frameCRC := uint16(clo) | uint16(chi)<<8

	if frameCRC != crc.Result() {
		return 0, &FrameError{Kind: ChecksumIncorrect}
	}

	return length, nil
}
