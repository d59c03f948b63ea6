package jxl

import (
	"fmt"

	"seehuhn.de/go/icc"
)

// ColorSpace is the colour model of the encoded samples
type ColorSpace int

const (
	ColorSpaceRGB ColorSpace = iota
	ColorSpaceGray
	ColorSpaceXYB
	ColorSpaceUnknown
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceRGB:
		return "RGB"
	case ColorSpaceGray:
		return "Gray"
	case ColorSpaceXYB:
		return "XYB"
	default:
		return "Unknown"
	}
}

// WhitePoint selects the white point of an enumerated encoding
type WhitePoint int

const (
	WhitePointD65 WhitePoint = iota
	WhitePointCustom
	WhitePointE
	WhitePointDCI
)

// Primaries selects the primaries of an enumerated RGB encoding
type Primaries int

const (
	PrimariesSRGB Primaries = iota
	PrimariesCustom
	Primaries2100
	PrimariesP3
)

// TransferFunction selects the transfer curve of an enumerated encoding
type TransferFunction int

const (
	TransferSRGB TransferFunction = iota
	TransferLinear
	TransferPQ
	TransferHLG
)

// RenderingIntent is the ICC rendering intent
type RenderingIntent int

const (
	RenderingIntentPerceptual RenderingIntent = iota
	RenderingIntentRelative
	RenderingIntentSaturation
	RenderingIntentAbsolute
)

// ColorEncoding describes the colour encoding of the image, either by
// enumerated fields or by an ICC profile carried in the codestream
type ColorEncoding struct {
	wantICC bool

	ColorSpace      ColorSpace
	WhitePoint      WhitePoint
	Primaries       Primaries
	Transfer        TransferFunction
	RenderingIntent RenderingIntent

	icc []byte
}

// SRGB returns the default encoding
func SRGB() ColorEncoding {
	return ColorEncoding{
		ColorSpace:      ColorSpaceRGB,
		WhitePoint:      WhitePointD65,
		Primaries:       PrimariesSRGB,
		Transfer:        TransferSRGB,
		RenderingIntent: RenderingIntentRelative,
	}
}

// LinearSRGB returns sRGB primaries with a linear transfer curve
func LinearSRGB() ColorEncoding {
	c := SRGB()
	c.Transfer = TransferLinear
	return c
}

// WantICC reports whether the codestream carries an ICC profile for this encoding
func (c *ColorEncoding) WantICC() bool {
	return c.wantICC
}

// ICC returns the attached profile, or nil
func (c *ColorEncoding) ICC() []byte {
	return c.icc
}

// SetICC attaches a profile. The profile must parse; its colour space decides
// ColorSpace.
func (c *ColorEncoding) SetICC(profile []byte) error {
	if len(profile) == 0 {
		return ErrExitCode(ExitCodeICCDecodeFailure, "empty ICC profile")
	}
	p, err := icc.Decode(profile)
	if err != nil {
		return NewJxlError(ExitCodeICCDecodeFailure, fmt.Sprintf("invalid ICC profile: %v", err))
	}
	switch p.ColorSpace {
	case icc.GraySpace:
		c.ColorSpace = ColorSpaceGray
	case icc.RGBSpace:
		c.ColorSpace = ColorSpaceRGB
	default:
		c.ColorSpace = ColorSpaceUnknown
	}
	c.wantICC = true
	c.icc = profile
	return nil
}

// Channels returns the number of colour channels
func (c *ColorEncoding) Channels() int {
	if c.ColorSpace == ColorSpaceGray {
		return 1
	}
	return 3
}

// SameColorEncoding reports whether two encodings describe the same space
func (c *ColorEncoding) SameColorEncoding(other *ColorEncoding) bool {
	if c.wantICC || other.wantICC {
		return c.wantICC == other.wantICC && string(c.icc) == string(other.icc)
	}
	if c.ColorSpace != other.ColorSpace || c.WhitePoint != other.WhitePoint || c.Transfer != other.Transfer {
		return false
	}
	return c.ColorSpace != ColorSpaceRGB || c.Primaries == other.Primaries
}

// Read decodes the colour encoding from br
func (c *ColorEncoding) Read(br *BitReader) error {
	if br.ReadBool() {
		*c = SRGB()
		return nil
	}
	*c = ColorEncoding{}
	c.wantICC = br.ReadBool()
	c.ColorSpace = ColorSpace(br.ReadBits(2))
	if c.wantICC {
		return nil
	}
	if c.ColorSpace == ColorSpaceUnknown {
		return ErrExitCode(ExitCodeBadHeader, "enumerated colour encoding with unknown colour space")
	}
	c.WhitePoint = WhitePoint(br.ReadBits(2))
	if c.ColorSpace == ColorSpaceRGB {
		c.Primaries = Primaries(br.ReadBits(2))
	}
	c.Transfer = TransferFunction(br.ReadBits(2))
	c.RenderingIntent = RenderingIntent(br.ReadBits(2))
	return nil
}
