package serialtransport

import (
	"bytes"
	"testing"
)

func TestEncodeFramePlay(t *testing.T) {
	// Play pitch 60 for 0x0102 ms on cube 2.
	got := encodeFrame(cmdPlay, 2, 60, 0x01, 0x02)

	want := []byte{sof0, sof1, 5, cmdPlay, 2, 60, 0x01, 0x02}
	cks := byte(0)
	for _, b := range want[2:] {
		cks ^= b
	}
	want = append(want, cks)

	if !bytes.Equal(got, want) {
		t.Errorf("encodeFrame = %x, want %x", got, want)
	}
}

func TestEncodeFrameStop(t *testing.T) {
	got := encodeFrame(cmdStop, 0)
	if len(got) != 6 {
		t.Fatalf("frame length = %d, want 6: %x", len(got), got)
	}
	if got[2] != 2 { // LEN covers CMD + device byte
		t.Errorf("LEN = %d, want 2", got[2])
	}

	cks := byte(0)
	for _, b := range got[2 : len(got)-1] {
		cks ^= b
	}
	if got[len(got)-1] != cks {
		t.Errorf("checksum = %#x, want %#x", got[len(got)-1], cks)
	}
}
