package bsl

import (
	"bytes"
	"errors"
	"testing"

	"github.com/iOperator/msp-embedded-bootloader-host/protocol"
	"github.com/iOperator/msp-embedded-bootloader-host/transport"
)

func newTestSession(family DeviceFamily) (*Session, *transport.LoopbackUART, *transport.FakeClock) {
	uart := transport.NewLoopbackUART()
	clk := &transport.FakeClock{}
	s := Open(family, uart, &transport.FakePins{}, clk, nil)
	return s, uart, clk
}

func TestEraseSegmentEmitsExpectedFrame(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	uart.QueueInbound(ackThenMessage(protocol.AckOK, protocol.CoreOperationSuccessful))

	if err := s.EraseSegment(0xF000); err != nil {
		t.Fatalf("EraseSegment: %v", err)
	}

	want := []byte{0x80, 0x04, 0x00, 0x12, 0x00, 0xF0, 0x00, 0xCE, 0x61}
	if !bytes.Equal(uart.Sent, want) {
		t.Errorf("sent % x, want % x", uart.Sent, want)
	}
}

func TestChangeBaudRateEmitsExpectedFrameAndReconfigures(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	uart.QueueInbound([]byte{byte(protocol.AckOK)})

	if err := s.ChangeBaudRate(transport.Baud115200); err != nil {
		t.Fatalf("ChangeBaudRate: %v", err)
	}

	want := []byte{0x80, 0x02, 0x00, 0x52, 0x06, 0x14, 0x15}
	if !bytes.Equal(uart.Sent, want) {
		t.Errorf("sent % x, want % x", uart.Sent, want)
	}
	if len(uart.BaudLog) != 1 || uart.BaudLog[0] != 115200 {
		t.Errorf("BaudLog = %v, want [115200]", uart.BaudLog)
	}
}

func TestRebootResetEmitsExpectedFrameAndDoesNotBlock(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})

	if err := s.RebootReset(); err != nil {
		t.Fatalf("RebootReset: %v", err)
	}

	want := []byte{0x80, 0x01, 0x00, 0x25, 0x37, 0x95}
	if !bytes.Equal(uart.Sent, want) {
		t.Errorf("sent % x, want % x", uart.Sent, want)
	}
}

func TestCRCCheckParsesDataResponse(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	uart.QueueInbound(ackThenData(protocol.AckOK, []byte{0x34, 0x12}))

	got, err := s.CRCCheck(0x8000, 0x0100)
	if err != nil {
		t.Fatalf("CRCCheck: %v", err)
	}
	if got != 0x1234 {
		t.Errorf("CRCCheck = 0x%04x, want 0x1234", got)
	}

	want := []byte{0x80, 0x06, 0x00, 0x16, 0x00, 0x80, 0x00, 0x00, 0x01}
	sent := uart.Sent[:len(want)]
	if !bytes.Equal(sent, want) {
		t.Errorf("sent % x, want prefix % x", uart.Sent, want)
	}
}

func TestTxBSLVersionReturnsFamilySizedPayload(t *testing.T) {
	cases := []struct {
		family DeviceFamily
		data   []byte
	}{
		{MSP430Flash{}, []byte{1, 2, 3, 4}},
		{MSP432{}, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	}

	for _, tc := range cases {
		s, uart, _ := newTestSession(tc.family)
		uart.QueueInbound(ackThenData(protocol.AckOK, tc.data))

		got, err := s.TxBSLVersion()
		if err != nil {
			t.Fatalf("%s: TxBSLVersion: %v", tc.family.Name(), err)
		}
		if !bytes.Equal(got, tc.data) {
			t.Errorf("%s: TxBSLVersion = % x, want % x", tc.family.Name(), got, tc.data)
		}
	}
}

func TestMassEraseOnFRAMSkipsAckAndResponse(t *testing.T) {
	s, uart, _ := newTestSession(MSP430FRAM{})
	// Intentionally queue nothing inbound: FRAM mass_erase must not
	// read anything.

	if err := s.MassErase(); err != nil {
		t.Fatalf("MassErase on FRAM: %v", err)
	}

	want := []byte{0x80, 0x01, 0x00, 0x15, 0x64, 0xA3}
	if !bytes.Equal(uart.Sent, want) {
		t.Errorf("sent % x, want % x", uart.Sent, want)
	}
	if uart.Closed() {
		t.Errorf("uart was closed")
	}
}

func TestMassEraseOnFlashWaitsForReply(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	uart.QueueInbound(ackThenMessage(protocol.AckOK, protocol.CoreOperationSuccessful))

	if err := s.MassErase(); err != nil {
		t.Fatalf("MassErase on flash: %v", err)
	}
}

func TestCommandPropagatesCoreError(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	uart.QueueInbound(ackThenMessage(protocol.AckOK, protocol.CoreBSLLocked))

	err := s.EraseSegment(0x1000)
	var coreErr *CoreError
	if !errors.As(err, &coreErr) || coreErr.Code != protocol.CoreBSLLocked {
		t.Fatalf("EraseSegment with locked core: got %v, want CoreError{BSLLocked}", err)
	}
}

func TestCommandPropagatesUartAckError(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	uart.QueueInbound([]byte{byte(protocol.AckChecksumIncorrect)})

	err := s.EraseSegment(0x1000)
	var ack protocol.UartAck
	if !errors.As(err, &ack) || ack != protocol.AckChecksumIncorrect {
		t.Fatalf("EraseSegment with bad-checksum ack: got %v, want AckChecksumIncorrect", err)
	}
}

func TestCommandTimesOutWithoutAck(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})
	_ = uart // nothing queued -- RecvByte returns io.EOF forever, Available stays 0

	err := s.EraseSegment(0x1000)
	var ack protocol.UartAck
	if !errors.As(err, &ack) || ack != protocol.AckTimeOut {
		t.Fatalf("EraseSegment with no reply: got %v, want AckTimeOut", err)
	}
}

func TestRxDataBlockChunksLargePayload(t *testing.T) {
	s, uart, _ := newTestSession(MSP430Flash{})

	const total = 600 // maxPayload(3) == 253: chunks of 253, 253, 94
	data := make([]byte, total)
	for i := range data {
		data[i] = byte(i)
	}

	for i := 0; i < 3; i++ {
		uart.QueueInbound(ackThenMessage(protocol.AckOK, protocol.CoreOperationSuccessful))
	}

	if err := s.RxDataBlock(0x1000, data); err != nil {
		t.Fatalf("RxDataBlock: %v", err)
	}

	frames := splitFrames(t, uart.Sent)
	if len(frames) != 3 {
		t.Fatalf("sent %d frames, want 3", len(frames))
	}

	wantAddrs := []uint32{0x1000, 0x1000 + 253, 0x1000 + 506}
	wantLens := []int{253, 253, 94}
	for i, f := range frames {
		gotAddr := uint32(f.addr[0]) | uint32(f.addr[1])<<8 | uint32(f.addr[2])<<16
		if gotAddr != wantAddrs[i] {
			t.Errorf("frame %d address = 0x%06x, want 0x%06x", i, gotAddr, wantAddrs[i])
		}
		if len(f.payload) != wantLens[i] {
			t.Errorf("frame %d payload length = %d, want %d", i, len(f.payload), wantLens[i])
		}
	}
}

// parsedFrame is a decoded outbound rx_data_block frame, used only by
// TestRxDataBlockChunksLargePayload to assert per-chunk addressing.
type parsedFrame struct {
	cmd     byte
	addr    [3]byte
	payload []byte
}

func splitFrames(t *testing.T, sent []byte) []parsedFrame {
	t.Helper()
	var frames []parsedFrame
	for len(sent) > 0 {
		if sent[0] != protocol.Header {
			t.Fatalf("expected frame header, got 0x%02x", sent[0])
		}
		length := int(sent[1]) | int(sent[2])<<8
		core := sent[3 : 3+length]
		frames = append(frames, parsedFrame{
			cmd:     core[0],
			addr:    [3]byte{core[1], core[2], core[3]},
			payload: core[4:],
		})
		sent = sent[3+length+2:]
	}
	return frames
}
