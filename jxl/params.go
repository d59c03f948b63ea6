package jxl

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Override is a tri-state preference
type Override int

const (
	OverrideDefault Override = iota
	OverrideOn
	OverrideOff
)

func (o Override) String() string {
	switch o {
	case OverrideOn:
		return "on"
	case OverrideOff:
		return "off"
	default:
		return "default"
	}
}

// ParseOverride parses "on", "off" or "default"
func ParseOverride(s string) (Override, error) {
	switch s {
	case "", "default":
		return OverrideDefault, nil
	case "on":
		return OverrideOn, nil
	case "off":
		return OverrideOff, nil
	}
	return OverrideDefault, fmt.Errorf("invalid override %q (want on, off or default)", s)
}

// DecompressParams controls a decode
type DecompressParams struct {
	// Preview decides whether the preview frame is decoded (default, on) or
	// skipped (off). On fails when the file has no preview.
	Preview Override

	// KeepDCT decodes for JPEG reconstruction. The caller must set
	// CodecInOut.JpegData.
	KeepDCT bool

	// CheckDecompressedSize requires the codestream to end exactly where the
	// last frame ends, unless partial files are allowed or output is downsampled.
	CheckDecompressedSize bool

	// AllowPartialFiles tolerates truncated input
	AllowPartialFiles bool

	// MaxDownsampling is the largest downsampling factor the caller accepts
	MaxDownsampling int

	// ColorTransformer is handed to the frame decoder for XYB encoded frames
	ColorTransformer ColorTransformer

	// FrameDecoder decodes and skips frames; nil uses StoredFrameDecoder
	FrameDecoder FrameDecoder

	// Logger receives progress entries; nil uses the logrus standard logger
	Logger logrus.FieldLogger
}

// DefaultDecompressParams returns the params of a strict, full resolution decode
func DefaultDecompressParams() DecompressParams {
	return DecompressParams{
		CheckDecompressedSize: true,
		MaxDownsampling:       1,
	}
}

func (p *DecompressParams) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

func (p *DecompressParams) frameDecoder() FrameDecoder {
	if p.FrameDecoder == nil {
		return StoredFrameDecoder{}
	}
	return p.FrameDecoder
}
