package jxl

import (
	"encoding/binary"
	"fmt"
)

// FrameResult is what the orchestrator learns from one frame decode
type FrameResult struct {
	Type FrameType

	// XSize and YSize are the dimensions of the decoded (upsampled) frame
	XSize uint64
	YSize uint64

	IsLast    bool
	Truncated bool
}

// FrameDecodeContext carries state shared by the frame decodes of one file
type FrameDecodeContext struct {
	// ColorTransform, if set, is applied to displayed XYB encoded frames
	ColorTransform ColorTransformer
}

// FrameDecoder decodes a single coded frame starting at the reader position.
// On return the reader is positioned at the start of the next frame.
type FrameDecoder interface {
	// DecodeFrame decodes the next frame into ib
	DecodeFrame(params *DecompressParams, ctx *FrameDecodeContext, pool ThreadPool,
		br *BitReader, ib *ImageBundle, metadata *CodecMetadata, isPreview bool) (FrameResult, error)

	// SkipFrame advances br past the next frame without decoding its pixels
	SkipFrame(metadata *CodecMetadata, br *BitReader, isPreview bool) error
}

// StoredFrameDecoder decodes frames whose channels are stored as one section
// each, raw or with a general purpose compressor
type StoredFrameDecoder struct{}

// frameLayout is the part of a frame that precedes the section payloads
type frameLayout struct {
	header   FrameHeader
	sections []uint64
	// outX and outY are the dimensions after upsampling and cropping to the image
	outX uint64
	outY uint64
}

func readFrameLayout(br *BitReader, metadata *CodecMetadata, isPreview bool) (*frameLayout, error) {
	if err := br.JumpToByteBoundary(); err != nil {
		return nil, err
	}
	fl := &frameLayout{}
	if err := ReadFrameHeader(br, metadata, isPreview, &fl.header); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}
	h := &fl.header
	xsize, ysize := frameSize(metadata, isPreview)
	if h.XSize == 0 || h.YSize == 0 {
		return nil, ErrExitCode(ExitCodeBadHeader, "empty frame")
	}
	if exceedsArea(h.XSize, h.YSize, xsize*ysize) {
		return nil, ErrExitCode(ExitCodeDimensionsTooLarge,
			fmt.Sprintf("frame %dx%d larger than image %dx%d", h.XSize, h.YSize, xsize, ysize))
	}
	fl.outX, fl.outY = h.XSizeUpsampled(), h.YSizeUpsampled()
	if !h.HaveCrop {
		fl.outX = min(fl.outX, xsize)
		fl.outY = min(fl.outY, ysize)
	} else if exceedsArea(fl.outX, fl.outY, xsize*ysize) {
		return nil, ErrExitCode(ExitCodeDimensionsTooLarge,
			fmt.Sprintf("upsampled frame %dx%d larger than image %dx%d", fl.outX, fl.outY, xsize, ysize))
	}

	if err := br.JumpToByteBoundary(); err != nil {
		return nil, err
	}
	fl.sections = make([]uint64, metadata.M.Channels()+len(metadata.M.ExtraChannels))
	for i := range fl.sections {
		fl.sections[i] = uint64(br.ReadU32(tocCoder))
	}
	if err := br.JumpToByteBoundary(); err != nil {
		return nil, err
	}
	return fl, nil
}

// SkipFrame reads the frame header and table of contents and skips the sections
func (StoredFrameDecoder) SkipFrame(metadata *CodecMetadata, br *BitReader, isPreview bool) error {
	fl, err := readFrameLayout(br, metadata, isPreview)
	if err != nil {
		return err
	}
	var total uint64
	for _, s := range fl.sections {
		total += s
	}
	br.SkipBits(total * BitsPerByte)
	return nil
}

// DecodeFrame decodes the frame's sections in parallel on pool
func (StoredFrameDecoder) DecodeFrame(params *DecompressParams, ctx *FrameDecodeContext, pool ThreadPool,
	br *BitReader, ib *ImageBundle, metadata *CodecMetadata, isPreview bool) (FrameResult, error) {
	m := &metadata.M
	if m.BitDepth.FloatingPointSample {
		return FrameResult{}, ErrExitCode(ExitCodeUnsupported, "floating point samples")
	}

	fl, err := readFrameLayout(br, metadata, isPreview)
	if err != nil {
		return FrameResult{}, err
	}
	h := &fl.header

	headerTruncated := !br.AllReadsWithinBounds()
	truncated := headerTruncated
	payloads := make([][]byte, len(fl.sections))
	for i, size := range fl.sections {
		data, err := br.ReadBytes(size)
		if err != nil {
			return FrameResult{}, err
		}
		if uint64(len(data)) != size {
			truncated = true
		}
		payloads[i] = data
	}
	if truncated && !params.AllowPartialFiles {
		return FrameResult{}, fmt.Errorf("%w: frame data extends past end of input", ErrShortRead)
	}

	numColor := m.Channels()
	coded := h.XSize * h.YSize
	planes := make([][]uint16, len(fl.sections))
	err = RunOnPool(pool, len(fl.sections), func(i int) error {
		depth := &m.BitDepth
		if i >= numColor {
			depth = &m.ExtraChannels[i-numColor].BitDepth
		}
		bytesPer := uint64(depth.BytesPerSample())
		want := coded * bytesPer
		complete := !headerTruncated && uint64(len(payloads[i])) == fl.sections[i]

		samples, err := decodePayload(h.Codec, payloads[i], want)
		if err != nil {
			if complete {
				return NewJxlError(ExitCodeFrameDecodeFailure, fmt.Sprintf("section %d: %v", i, err))
			}
			samples = nil
		}
		if complete && uint64(len(samples)) != want {
			return ErrExitCode(ExitCodeFrameDecodeFailure,
				fmt.Sprintf("section %d decoded to %d bytes, want %d", i, len(samples), want))
		}

		plane := make([]uint16, coded)
		if bytesPer == 1 {
			for j := 0; j < len(samples) && uint64(j) < coded; j++ {
				plane[j] = uint16(samples[j])
			}
		} else {
			for j := 0; j+1 < len(samples) && uint64(j/2) < coded; j += 2 {
				plane[j/2] = binary.LittleEndian.Uint16(samples[j:])
			}
		}
		planes[i] = upsample(plane, h.XSize, h.YSize, uint64(h.Upsampling), fl.outX, fl.outY)
		return nil
	})
	if err != nil {
		return FrameResult{}, err
	}

	ib.Header = *h
	ib.XSize, ib.YSize = fl.outX, fl.outY
	ib.Planes = planes[:numColor]
	ib.ExtraChannels = planes[numColor:]
	ib.Truncated = truncated
	if m.XYBEncoded {
		ib.ColorEncoding = ColorEncoding{ColorSpace: ColorSpaceXYB}
	} else {
		ib.ColorEncoding = m.ColorEncoding
	}

	if m.XYBEncoded && h.Type.Displayable() && ctx != nil && ctx.ColorTransform != nil {
		if err := ctx.ColorTransform.TransformTo(ib, &m.ColorEncoding, pool); err != nil {
			return FrameResult{}, fmt.Errorf("failed to transform frame colours: %w", err)
		}
	}

	return FrameResult{
		Type:      h.Type,
		XSize:     ib.XSize,
		YSize:     ib.YSize,
		IsLast:    h.IsLast,
		Truncated: truncated,
	}, nil
}

// exceedsArea reports whether w*h > area without overflowing. w must be non-zero.
func exceedsArea(w, h, area uint64) bool {
	return h > area/w
}

// upsample replicates each sample of a w x h plane factor times in both
// directions and crops the result to outW x outH
func upsample(plane []uint16, w, h, factor, outW, outH uint64) []uint16 {
	if factor == 1 && outW == w && outH == h {
		return plane
	}
	out := make([]uint16, outW*outH)
	for y := uint64(0); y < outH; y++ {
		sy := y / factor
		for x := uint64(0); x < outW; x++ {
			out[y*outW+x] = plane[sy*w+x/factor]
		}
	}
	return out
}
