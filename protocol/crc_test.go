package protocol

import "testing"

func TestChecksumRegressionVector(t *testing.T) {
	got := Checksum([]byte("123456789"))
	if got != 0x29B1 {
		t.Errorf("Checksum(\"123456789\") = 0x%04X, want 0x29B1", got)
	}
}

func TestChecksumKnownFrames(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want uint16
	}{
		{"erase_segment core packet", []byte{0x12, 0x00, 0xF0, 0x00}, 0x61CE},
		{"change_baud_rate core packet", []byte{0x52, 0x06}, 0x1514},
		{"reboot_reset core packet", []byte{0x25}, 0x9537},
	}

	for _, tc := range testCases {
		if got := Checksum(tc.data); got != tc.want {
			t.Errorf("%s: Checksum(% x) = 0x%04X, want 0x%04X", tc.name, tc.data, got, tc.want)
		}
	}
}

func TestCRCIncrementalMatchesOneShot(t *testing.T) {
	data := []byte{0x16, 0x00, 0x80, 0x00, 0x00, 0x01}

	oneShot := Checksum(data)

	var crc CRC
	crc.Init()
	for _, b := range data {
		crc.Update(b)
	}
	incremental := crc.Result()

	if oneShot != incremental {
		t.Errorf("incremental CRC 0x%04X != one-shot CRC 0x%04X", incremental, oneShot)
	}
}

func TestCRCInitIsIdempotent(t *testing.T) {
	var crc CRC
	crc.Init()
	crc.Update(0xAB)
	crc.Init()
	if crc.Result() != 0xFFFF {
		t.Errorf("Init after Update did not reset accumulator, got 0x%04X", crc.Result())
	}
}

func TestCRCScopedPerFrameDoesNotLeak(t *testing.T) {
	// Two independent accumulators used interleaved must not affect
	// each other -- this is the failure mode a module-scope CRC global
	// would have.
	var a, b CRC
	a.Init()
	b.Init()

	a.Update(0x01)
	b.Update(0x02)
	a.Update(0x03)
	b.Update(0x04)

	want := Checksum([]byte{0x01, 0x03})
	if a.Result() != want {
		t.Errorf("accumulator a was corrupted by interleaved use: got 0x%04X, want 0x%04X", a.Result(), want)
	}
}
