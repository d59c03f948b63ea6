package jxl

import (
	"fmt"
	"math"
)

// BitReader reads a codestream least-significant bit first from an in-memory
// buffer. Reads past the end of the buffer return zero bits; the overrun is
// remembered and reported by AllReadsWithinBounds and Close.
type BitReader struct {
	data   []byte
	pos    uint64 // bits consumed
	closed bool
}

// NewBitReader creates a new BitReader over data. The buffer is not copied
// and must not be modified while the reader is in use.
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// ReadBits reads n bits (n <= 64) and returns them in the low bits of the result
func (r *BitReader) ReadBits(n uint32) uint64 {
	var v uint64
	var got uint32
	for got < n {
		byteIdx := r.pos >> 3
		shift := uint32(r.pos & 7)
		take := 8 - shift
		if take > n-got {
			take = n - got
		}
		var b uint64
		if byteIdx < uint64(len(r.data)) {
			b = uint64(r.data[byteIdx]>>shift) & ((1 << take) - 1)
		}
		v |= b << got
		got += take
		r.advance(uint64(take))
	}
	return v
}

// ReadFixedBits reads a field of a fixed width
func (r *BitReader) ReadFixedBits(n uint32) uint64 {
	return r.ReadBits(n)
}

// ReadBool reads a single bit
func (r *BitReader) ReadBool() bool {
	return r.ReadBits(1) != 0
}

// u32Dist is one of the four distributions a U32 field selects between.
// With bits == 0 the distribution is the constant offset.
type u32Dist struct {
	bits   uint32
	offset uint32
}

func val(v uint32) u32Dist {
	return u32Dist{offset: v}
}

func bitsOffset(n, offset uint32) u32Dist {
	return u32Dist{bits: n, offset: offset}
}

// u32Coder holds the four distributions of a U32 field
type u32Coder [4]u32Dist

// ReadU32 reads a 2-bit selector followed by the selected distribution
func (r *BitReader) ReadU32(c u32Coder) uint32 {
	d := c[r.ReadBits(2)]
	if d.bits == 0 {
		return d.offset
	}
	return d.offset + uint32(r.ReadBits(d.bits))
}

// ReadU64 reads a variable-length 64-bit value
func (r *BitReader) ReadU64() uint64 {
	switch r.ReadBits(2) {
	case 0:
		return 0
	case 1:
		return 1 + r.ReadBits(4)
	case 2:
		return 17 + r.ReadBits(8)
	}
	value := r.ReadBits(12)
	shift := uint32(12)
	for r.ReadBool() {
		if shift == 60 {
			value |= r.ReadBits(4) << 60
			break
		}
		value |= r.ReadBits(8) << shift
		shift += 8
	}
	return value
}

// ReadF16 reads an IEEE 754 half precision value. Infinities and NaNs are rejected.
func (r *BitReader) ReadF16() (float32, error) {
	bits := uint32(r.ReadBits(16))
	sign := bits >> 15
	exp := (bits >> 10) & 0x1F
	mant := bits & 0x3FF
	if exp == 31 {
		return 0, ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("non-finite f16 value %04x", bits))
	}
	var v float64
	if exp == 0 {
		v = float64(mant) / (1 << 24)
	} else {
		v = (1 + float64(mant)/1024) * math.Ldexp(1, int(exp)-15)
	}
	if sign != 0 {
		v = -v
	}
	return float32(v), nil
}

// JumpToByteBoundary skips to the next byte boundary. The skipped bits must be zero.
func (r *BitReader) JumpToByteBoundary() error {
	remainder := uint32((8 - r.pos&7) & 7)
	if remainder == 0 {
		return nil
	}
	if r.ReadBits(remainder) != 0 {
		return ErrExitCode(ExitCodeBadHeader, "non-zero padding bits")
	}
	return nil
}

// maxBitPos is the byte aligned position a reader saturates at
const maxBitPos = math.MaxUint64 &^ 7

// advance moves the position forward by n bits. The position saturates at
// maxBitPos and never wraps around.
func (r *BitReader) advance(n uint64) {
	if n > maxBitPos-r.pos {
		r.pos = maxBitPos
		return
	}
	r.pos += n
}

// SkipBits advances the position without reading
func (r *BitReader) SkipBits(n uint64) {
	r.advance(n)
}

// ReadBytes returns up to n bytes starting at the current, byte aligned
// position and advances by n bytes. The returned slice is shorter than n when
// the buffer ends first and aliases the input buffer.
func (r *BitReader) ReadBytes(n uint64) ([]byte, error) {
	if r.pos&7 != 0 {
		return nil, ErrExitCode(ExitCodeAssertionFailure, "ReadBytes at unaligned position")
	}
	start := r.pos >> 3
	if n > maxBitPos/8 {
		r.pos = maxBitPos
	} else {
		r.advance(n * 8)
	}
	size := uint64(len(r.data))
	if start >= size {
		return nil, nil
	}
	end := start + n
	if end > size || end < start {
		end = size
	}
	return r.data[start:end], nil
}

// TotalBitsConsumed returns the number of bits consumed, including any
// consumed beyond the end of the buffer
func (r *BitReader) TotalBitsConsumed() uint64 {
	return r.pos
}

// TotalBytes returns the size of the underlying buffer
func (r *BitReader) TotalBytes() uint64 {
	return uint64(len(r.data))
}

// AllReadsWithinBounds returns false once the position has passed the end of the buffer
func (r *BitReader) AllReadsWithinBounds() bool {
	return r.pos <= uint64(len(r.data))*8
}

// Close releases the reader. It reports ErrShortRead if any read went out of
// bounds. Only the first call reports; later calls return nil.
func (r *BitReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if !r.AllReadsWithinBounds() {
		return fmt.Errorf("%w: consumed %d bits of %d", ErrShortRead, r.pos, uint64(len(r.data))*8)
	}
	return nil
}

// Closed reports whether Close has been called
func (r *BitReader) Closed() bool {
	return r.closed
}
