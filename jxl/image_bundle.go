package jxl

import (
	"fmt"
	"image"
	"image/color"

	"seehuhn.de/go/xmp"
)

// ImageBundle holds one decoded frame (or the preview) together with the
// metadata it was decoded against
type ImageBundle struct {
	metadata *ImageMetadata

	// Header is the header of the frame that produced the pixels
	Header FrameHeader

	// XSize and YSize are the upsampled dimensions of the planes
	XSize uint64
	YSize uint64

	// Planes holds the colour channels, row major
	Planes [][]uint16

	// ExtraChannels holds the extra channels, in metadata order
	ExtraChannels [][]uint16

	// ColorEncoding is the encoding the samples are currently in
	ColorEncoding ColorEncoding

	// JpegData is set on the first frame when decoding for JPEG reconstruction
	JpegData *ReconstructionData

	// Truncated is set when some of the frame's data was missing from the input
	Truncated bool
}

// NewImageBundle creates an empty bundle that refers to metadata
func NewImageBundle(metadata *ImageMetadata) *ImageBundle {
	return &ImageBundle{metadata: metadata}
}

// Metadata returns the image metadata the bundle refers to
func (ib *ImageBundle) Metadata() *ImageMetadata {
	return ib.metadata
}

// HasColor reports whether any colour planes were decoded
func (ib *ImageBundle) HasColor() bool {
	return len(ib.Planes) > 0
}

// alphaChannel returns the first alpha extra channel, or nil
func (ib *ImageBundle) alphaChannel() []uint16 {
	for i, ec := range ib.metadata.ExtraChannels {
		if ec.Type == ExtraChannelAlpha && i < len(ib.ExtraChannels) {
			return ib.ExtraChannels[i]
		}
	}
	return nil
}

// scaleTo16 widens a sample of the given bit depth to 16 bits
func scaleTo16(v uint16, bitsPerSample uint32) uint16 {
	if bitsPerSample >= 16 || bitsPerSample == 0 {
		return v
	}
	maxVal := uint32(1)<<bitsPerSample - 1
	if uint32(v) > maxVal {
		return 0xFFFF
	}
	return uint16(uint32(v) * 0xFFFF / maxVal)
}

// ToImage converts the bundle to an image.Image: Gray16 for a single
// channel, NRGBA64 otherwise. Extra channels other than alpha are dropped.
func (ib *ImageBundle) ToImage() (image.Image, error) {
	if !ib.HasColor() {
		return nil, ErrExitCode(ExitCodeAssertionFailure, "bundle has no colour planes")
	}
	w, h := int(ib.XSize), int(ib.YSize)
	bps := ib.metadata.BitDepth.BitsPerSample
	rect := image.Rect(0, 0, w, h)

	if len(ib.Planes) == 1 {
		img := image.NewGray16(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, y, color.Gray16{Y: scaleTo16(ib.Planes[0][y*w+x], bps)})
			}
		}
		return img, nil
	}
	if len(ib.Planes) != 3 {
		return nil, ErrExitCode(ExitCodeUnsupported, fmt.Sprintf("%d colour planes", len(ib.Planes)))
	}

	alpha := ib.alphaChannel()
	img := image.NewNRGBA64(rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			c := color.NRGBA64{
				R: scaleTo16(ib.Planes[0][i], bps),
				G: scaleTo16(ib.Planes[1][i], bps),
				B: scaleTo16(ib.Planes[2][i], bps),
				A: 0xFFFF,
			}
			if alpha != nil {
				c.A = scaleTo16(alpha[i], bps)
			}
			img.SetNRGBA64(x, y, c)
		}
	}
	return img, nil
}

// SizeConstraints bounds the dimensions a decode accepts
type SizeConstraints struct {
	MaxXSize  uint64
	MaxYSize  uint64
	MaxPixels uint64
}

// DefaultSizeConstraints returns the limits used when none are configured
func DefaultSizeConstraints() SizeConstraints {
	return SizeConstraints{
		MaxXSize:  1 << 30,
		MaxYSize:  1 << 30,
		MaxPixels: 1 << 40,
	}
}

// Blobs holds metadata carried next to the codestream in the container
type Blobs struct {
	Exif   []byte
	RawXMP []byte
	XMP    *xmp.Packet

	// JpegReconstruction is the raw jbrd box
	JpegReconstruction []byte
}

// CodecInOut is the output of a decode: metadata, optional preview, frames
// and statistics
type CodecInOut struct {
	Metadata CodecMetadata

	Preview *ImageBundle
	Frames  []*ImageBundle

	// DecPixels counts the decoded pixels of the preview and all displayed frames
	DecPixels uint64

	// JpegData must be set by the caller before decoding with KeepDCT. The
	// decode moves it into the first frame.
	JpegData *ReconstructionData

	Blobs       Blobs
	Constraints SizeConstraints

	// Truncation holds the out-of-bounds read error that was tolerated
	// because partial files were allowed
	Truncation error
}

// NewCodecInOut creates an empty output with default size constraints
func NewCodecInOut() *CodecInOut {
	return &CodecInOut{Constraints: DefaultSizeConstraints()}
}

// Main returns the first frame, or nil before any frame was decoded
func (io *CodecInOut) Main() *ImageBundle {
	if len(io.Frames) == 0 {
		return nil
	}
	return io.Frames[0]
}

// VerifyDimensions checks xsize and ysize against the constraints
func (io *CodecInOut) VerifyDimensions(xsize, ysize uint64) error {
	if xsize == 0 || ysize == 0 {
		return ErrExitCode(ExitCodeBadHeader, "empty image")
	}
	c := io.Constraints
	if (c.MaxXSize != 0 && xsize > c.MaxXSize) || (c.MaxYSize != 0 && ysize > c.MaxYSize) {
		return ErrExitCode(ExitCodeDimensionsTooLarge,
			fmt.Sprintf("image too big: %dx%d exceeds %dx%d", xsize, ysize, c.MaxXSize, c.MaxYSize))
	}
	if c.MaxPixels != 0 && (xsize > c.MaxPixels/ysize) {
		return ErrExitCode(ExitCodeDimensionsTooLarge,
			fmt.Sprintf("image too big: %dx%d exceeds %d pixels", xsize, ysize, c.MaxPixels))
	}
	return nil
}

// CheckMetadata verifies that the preview and every frame refer to the
// decoded metadata and that the sample format is usable
func (io *CodecInOut) CheckMetadata() error {
	m := &io.Metadata.M
	if !m.BitDepth.FloatingPointSample && m.BitDepth.BitsPerSample == 0 {
		return ErrExitCode(ExitCodeAssertionFailure, "zero bits per sample")
	}
	if io.Preview != nil && io.Preview.metadata != m {
		return ErrExitCode(ExitCodeAssertionFailure, "preview does not refer to the image metadata")
	}
	for i, f := range io.Frames {
		if f.metadata != m {
			return ErrExitCode(ExitCodeAssertionFailure, fmt.Sprintf("frame %d does not refer to the image metadata", i))
		}
		if i > 0 && f.JpegData != nil {
			return ErrExitCode(ExitCodeAssertionFailure, fmt.Sprintf("frame %d carries JPEG data", i))
		}
	}
	return nil
}
