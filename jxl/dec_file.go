package jxl

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DecodeStatus tells a complete decode from one that tolerated truncated input
type DecodeStatus int

const (
	// StatusComplete means every read stayed within the input
	StatusComplete DecodeStatus = iota
	// StatusTruncated means the input ended early and partial files were allowed
	StatusTruncated
)

func (s DecodeStatus) String() string {
	if s == StatusTruncated {
		return "truncated"
	}
	return "complete"
}

// jpegDataSlot hands the caller's reconstruction data to exactly one frame
type jpegDataSlot struct {
	data  *ReconstructionData
	taken bool
}

func (s *jpegDataSlot) present() bool {
	return s.data != nil
}

func (s *jpegDataSlot) take() *ReconstructionData {
	if s.taken {
		panic("jxl: reconstruction data taken twice")
	}
	s.taken = true
	data := s.data
	s.data = nil
	return data
}

// DecodePreview decodes or skips the preview frame according to
// params.Preview. It returns the decoded preview, or nil when there is none
// or it was skipped. Decoded pixels are added to decPixels.
func DecodePreview(params *DecompressParams, metadata *CodecMetadata, br *BitReader,
	pool ThreadPool, decPixels *uint64) (*ImageBundle, error) {
	if !metadata.M.HavePreview {
		if params.Preview == OverrideOn {
			return nil, ErrExitCode(ExitCodeBadHeader, "preview == on but no preview present")
		}
		return nil, nil
	}

	if err := br.JumpToByteBoundary(); err != nil {
		return nil, err
	}

	dec := params.frameDecoder()
	if params.Preview == OverrideOff {
		if err := dec.SkipFrame(metadata, br, true); err != nil {
			return nil, fmt.Errorf("failed to skip preview: %w", err)
		}
		return nil, nil
	}

	preview := NewImageBundle(&metadata.M)
	res, err := dec.DecodeFrame(params, &FrameDecodeContext{}, pool, br, preview, metadata, true)
	if err != nil {
		return nil, fmt.Errorf("failed to decode preview: %w", err)
	}
	if decPixels != nil {
		*decPixels += res.XSize * res.YSize
	}
	return preview, nil
}

// DecodeFile decodes a bare codestream held entirely in memory into io.
//
// The returned status is StatusTruncated when the input ended early and
// params.AllowPartialFiles tolerated it; io.Truncation then holds the
// suppressed error.
func DecodeFile(params *DecompressParams, file []byte, io *CodecInOut, pool ThreadPool) (status DecodeStatus, err error) {
	switch sig := SignatureCheck(file); sig {
	case SignatureCodestream:
	case SignatureContainer:
		return StatusComplete, ErrExitCode(ExitCodeBadSignature, "container must be unwrapped before decoding")
	default:
		return StatusComplete, fmt.Errorf("%w (%s)", ErrBadSignature, sig)
	}

	var jpegData jpegDataSlot
	if params.KeepDCT {
		if io.JpegData == nil {
			return StatusComplete, ErrExitCode(ExitCodeBadJpegData, "caller must set jpeg data")
		}
		jpegData.data = io.JpegData
		io.JpegData = nil
	}

	br := NewBitReader(file)
	defer func() {
		// Closing reports out-of-bounds reads unless a tolerated close already happened.
		if closeErr := br.Close(); err == nil && closeErr != nil {
			status, err = StatusComplete, closeErr
		}
	}()
	return decodeCodestream(params, file, br, io, pool, &jpegData)
}

func decodeCodestream(params *DecompressParams, file []byte, br *BitReader, io *CodecInOut,
	pool ThreadPool, jpegData *jpegDataSlot) (DecodeStatus, error) {
	log := params.logger()

	// Statistics and results of an earlier decode into the same io start over.
	io.DecPixels = 0
	io.Preview = nil
	io.Frames = nil
	io.Truncation = nil

	br.ReadFixedBits(16)

	if err := DecodeHeaders(br, &io.Metadata); err != nil {
		return StatusComplete, err
	}
	if err := io.VerifyDimensions(io.Metadata.XSize(), io.Metadata.YSize()); err != nil {
		return StatusComplete, err
	}
	m := &io.Metadata.M
	log.WithFields(logrus.Fields{
		"xsize":     io.Metadata.XSize(),
		"ysize":     io.Metadata.YSize(),
		"xyb":       m.XYBEncoded,
		"preview":   m.HavePreview,
		"animation": m.HaveAnimation,
	}).Debug("decoded headers")

	if m.ColorEncoding.WantICC() {
		icc, err := ReadICC(br)
		if err != nil {
			return StatusComplete, fmt.Errorf("failed to read ICC profile: %w", err)
		}
		if err := m.ColorEncoding.SetICC(icc); err != nil {
			return StatusComplete, fmt.Errorf("failed to set ICC profile: %w", err)
		}
		log.WithField("icc_bytes", len(icc)).Debug("decoded ICC profile")
	}
	if jpegData.present() {
		if err := jpegData.data.SpliceICC(m.ColorEncoding.ICC()); err != nil {
			return StatusComplete, err
		}
	}

	preview, err := DecodePreview(params, &io.Metadata, br, pool, &io.DecPixels)
	if err != nil {
		return StatusComplete, err
	}
	io.Preview = preview

	// Only necessary if there was neither an ICC profile nor a preview.
	if err := br.JumpToByteBoundary(); err != nil {
		return StatusComplete, err
	}
	if m.HaveAnimation && params.KeepDCT {
		return StatusComplete, ErrExitCode(ExitCodeUnsupported, "cannot decode to JPEG an animation")
	}

	ctx := &FrameDecodeContext{ColorTransform: params.ColorTransformer}
	dec := params.frameDecoder()
	partialStop := func() bool {
		return params.AllowPartialFiles && !br.AllReadsWithinBounds()
	}

	for {
		ib := NewImageBundle(m)
		if len(io.Frames) == 0 && jpegData.present() {
			ib.JpegData = jpegData.take()
		}
		io.Frames = append(io.Frames, ib)

		// Frames that are not displayed decode into the same bundle.
		var res FrameResult
		for {
			res, err = dec.DecodeFrame(params, ctx, pool, br, ib, &io.Metadata, false)
			if err != nil {
				return StatusComplete, fmt.Errorf("failed to decode frame %d: %w", len(io.Frames)-1, err)
			}
			if res.Type.Displayable() || partialStop() {
				break
			}
		}
		if res.Type.Displayable() {
			io.DecPixels += res.XSize * res.YSize
		}
		log.WithFields(logrus.Fields{
			"frame":      len(io.Frames) - 1,
			"frame_type": res.Type,
			"is_last":    res.IsLast,
			"dec_pixels": io.DecPixels,
		}).Debug("decoded frame")

		if res.IsLast || partialStop() {
			break
		}
	}

	if params.CheckDecompressedSize && !params.AllowPartialFiles && params.MaxDownsampling <= 1 {
		if br.TotalBitsConsumed() != uint64(len(file))*BitsPerByte {
			return StatusComplete, fmt.Errorf("%w: consumed %d of %d bits",
				ErrNotAtEOF, br.TotalBitsConsumed(), uint64(len(file))*BitsPerByte)
		}
	}

	status := StatusComplete
	if !br.AllReadsWithinBounds() && params.AllowPartialFiles {
		io.Truncation = br.Close()
		status = StatusTruncated
		log.WithError(io.Truncation).Warn("tolerating truncated codestream")
	}

	if err := io.CheckMetadata(); err != nil {
		return status, err
	}
	log.WithFields(logrus.Fields{
		"frames":     len(io.Frames),
		"dec_pixels": io.DecPixels,
		"status":     status,
	}).Debug("decoded file")
	return status, nil
}
