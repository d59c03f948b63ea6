package jxl

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// PayloadCodec selects how a byte payload (colour profile or frame section) is stored
type PayloadCodec int

const (
	PayloadRaw PayloadCodec = iota
	PayloadZstd
	PayloadDeflate
)

func (c PayloadCodec) String() string {
	switch c {
	case PayloadRaw:
		return "raw"
	case PayloadZstd:
		return "zstd"
	case PayloadDeflate:
		return "deflate"
	default:
		return fmt.Sprintf("PayloadCodec(%d)", int(c))
	}
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

var zstdDecPool = sync.Pool{
	New: func() any {
		return mustNewZstdDecoder()
	},
}

// decodePayload expands data stored with codec. limit bounds the decoded
// size; 0 means no bound.
func decodePayload(codec PayloadCodec, data []byte, limit uint64) ([]byte, error) {
	switch codec {
	case PayloadRaw:
		return data, nil
	case PayloadZstd:
		dec := zstdDecPool.Get().(*zstd.Decoder)
		defer zstdDecPool.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if limit != 0 && uint64(len(out)) > limit {
			return nil, fmt.Errorf("zstd: decoded %d bytes, limit %d", len(out), limit)
		}
		return out, nil
	case PayloadDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		var r io.Reader = fr
		if limit != 0 {
			r = io.LimitReader(fr, int64(limit)+1)
		}
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		if limit != 0 && uint64(len(out)) > limit {
			return nil, fmt.Errorf("deflate: decoded more than %d bytes", limit)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown payload codec %d", int(codec))
	}
}

// ReadICC decodes a colour profile: its size, the payload codec, and the
// byte aligned payload. The decoded length must equal the declared size.
func ReadICC(br *BitReader) ([]byte, error) {
	size := br.ReadU64()
	if size == 0 || size > maxICCSize {
		return nil, ErrExitCode(ExitCodeICCDecodeFailure, fmt.Sprintf("invalid ICC size %d", size))
	}
	codec := PayloadCodec(br.ReadBits(2))
	encSize := size
	if codec != PayloadRaw {
		encSize = br.ReadU64()
		if encSize > maxICCSize {
			return nil, ErrExitCode(ExitCodeICCDecodeFailure, fmt.Sprintf("invalid encoded ICC size %d", encSize))
		}
	}
	if err := br.JumpToByteBoundary(); err != nil {
		return nil, err
	}
	enc, err := br.ReadBytes(encSize)
	if err != nil {
		return nil, err
	}
	if uint64(len(enc)) != encSize {
		return nil, fmt.Errorf("%w: ICC payload needs %d bytes, %d available", ErrShortRead, encSize, len(enc))
	}
	icc, err := decodePayload(codec, enc, size)
	if err != nil {
		return nil, NewJxlError(ExitCodeICCDecodeFailure, err.Error())
	}
	if uint64(len(icc)) != size {
		return nil, ErrExitCode(ExitCodeICCDecodeFailure,
			fmt.Sprintf("ICC decoded to %d bytes, header declared %d", len(icc), size))
	}
	// Detach from the input buffer: the profile outlives it.
	out := make([]byte, len(icc))
	copy(out, icc)
	return out, nil
}
