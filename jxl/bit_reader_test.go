package jxl

import (
	"errors"
	"math"
	"testing"
)

func TestReadBitsOrder(t *testing.T) {
	br := NewBitReader([]byte{0xB4, 0x01})
	tests := []struct {
		n    uint32
		want uint64
	}{
		{1, 0},
		{2, 2},
		{3, 6},
		{4, 6},
		{6, 0},
	}
	for _, tt := range tests {
		if got := br.ReadBits(tt.n); got != tt.want {
			t.Errorf("ReadBits(%d) = %#x, want %#x", tt.n, got, tt.want)
		}
	}
	if !br.AllReadsWithinBounds() {
		t.Errorf("reads within 16 bits reported out of bounds")
	}
}

func TestReadF16(t *testing.T) {
	tests := []struct {
		bits uint64
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1},
		{0xC000, -2},
		{0x3800, 0.5},
		{0x0001, 1.0 / (1 << 24)},
	}
	for _, tt := range tests {
		var w bitWriter
		w.write(tt.bits, 16)
		br := NewBitReader(w.detachBuffer())
		got, err := br.ReadF16()
		if err != nil {
			t.Fatalf("Failed to read f16 %#04x: %v", tt.bits, err)
		}
		if got != tt.want {
			t.Errorf("ReadF16(%#04x) = %v, want %v", tt.bits, got, tt.want)
		}
	}

	var w bitWriter
	w.write(0x7C00, 16)
	if _, err := NewBitReader(w.detachBuffer()).ReadF16(); CodeOf(err) != ExitCodeBadHeader {
		t.Errorf("ReadF16(inf) error = %v, want BadHeader", err)
	}
}

func TestJumpToByteBoundary(t *testing.T) {
	br := NewBitReader([]byte{0x01, 0xFF})
	br.ReadBits(1)
	if err := br.JumpToByteBoundary(); err != nil {
		t.Errorf("zero padding rejected: %v", err)
	}
	if br.TotalBitsConsumed() != 8 {
		t.Errorf("position = %d, want 8", br.TotalBitsConsumed())
	}
	if err := br.JumpToByteBoundary(); err != nil || br.TotalBitsConsumed() != 8 {
		t.Errorf("aligned jump moved the reader or failed: %v", err)
	}
	br.ReadBits(3)
	if err := br.JumpToByteBoundary(); CodeOf(err) != ExitCodeBadHeader {
		t.Errorf("non-zero padding error = %v, want BadHeader", err)
	}
}

func TestReadBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	br := NewBitReader(data)
	got, err := br.ReadBytes(2)
	if err != nil || string(got) != "\x01\x02" {
		t.Fatalf("ReadBytes(2) = %v, %v", got, err)
	}
	got, err = br.ReadBytes(10)
	if err != nil {
		t.Fatalf("Failed to read past end: %v", err)
	}
	if string(got) != "\x03\x04\x05" {
		t.Errorf("ReadBytes(10) = %v, want the 3 remaining bytes", got)
	}
	if br.TotalBitsConsumed() != 12*8 {
		t.Errorf("position = %d, want %d", br.TotalBitsConsumed(), 12*8)
	}
	if br.AllReadsWithinBounds() {
		t.Errorf("overrun not reported")
	}

	br = NewBitReader(data)
	br.ReadBits(1)
	if _, err := br.ReadBytes(1); CodeOf(err) != ExitCodeAssertionFailure {
		t.Errorf("unaligned ReadBytes error = %v, want AssertionFailure", err)
	}
}

func TestBitReaderClose(t *testing.T) {
	br := NewBitReader([]byte{0xFF})
	br.ReadBits(8)
	if err := br.Close(); err != nil {
		t.Errorf("Close after in-bounds reads: %v", err)
	}

	br = NewBitReader([]byte{0xFF})
	if got := br.ReadBits(16); got != 0xFF {
		t.Errorf("ReadBits past end = %#x, want zero fill %#x", got, 0xFF)
	}
	err := br.Close()
	if !errors.Is(err, ErrShortRead) {
		t.Errorf("Close error = %v, want short read", err)
	}
	if !br.Closed() {
		t.Errorf("reader not marked closed")
	}
	if err := br.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestSkipBits(t *testing.T) {
	br := NewBitReader([]byte{0x00, 0x80})
	br.SkipBits(15)
	if !br.ReadBool() {
		t.Errorf("bit 15 read as 0")
	}
	br.SkipBits(1)
	if br.AllReadsWithinBounds() {
		t.Errorf("skip past end not reported")
	}
	if br.TotalBytes() != 2 {
		t.Errorf("TotalBytes = %d, want 2", br.TotalBytes())
	}
}

func TestSkipBitsHuge(t *testing.T) {
	tests := []struct {
		name string
		skip func(br *BitReader)
	}{
		{"max", func(br *BitReader) { br.SkipBits(math.MaxUint64) }},
		{"after read", func(br *BitReader) {
			br.ReadBits(3)
			br.SkipBits(math.MaxUint64 - 1)
		}},
		{"twice", func(br *BitReader) {
			br.SkipBits(math.MaxUint64 / 2)
			br.SkipBits(math.MaxUint64 / 2)
			br.SkipBits(16)
		}},
		{"bytes", func(br *BitReader) {
			br.ReadBits(8)
			b, err := br.ReadBytes(math.MaxUint64)
			if err != nil || len(b) != 3 {
				t.Errorf("ReadBytes = %d bytes, %v; want the 3 remaining", len(b), err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := NewBitReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})
			tt.skip(br)
			if br.TotalBitsConsumed() < 32 {
				t.Errorf("position wrapped to %d", br.TotalBitsConsumed())
			}
			if br.ReadBits(8) != 0 {
				t.Errorf("read past end returned data")
			}
			if br.AllReadsWithinBounds() {
				t.Errorf("skip past end not reported")
			}
			if err := br.Close(); !errors.Is(err, ErrShortRead) {
				t.Errorf("Close error = %v, want short read", err)
			}
		})
	}
}
