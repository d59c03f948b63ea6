package jxl

import (
	"fmt"
	"math/bits"
)

// SizeHeader holds the image dimensions
type SizeHeader struct {
	XSize uint64
	YSize uint64
}

// readSizeFields decodes a SizeHeader-shaped field group; small sizes are
// multiples of 8 coded in 5 bits
func readSizeFields(br *BitReader) (xsize, ysize uint64) {
	small := br.ReadBool()
	if small {
		ysize = 8 * (br.ReadBits(5) + 1)
	} else {
		ysize = uint64(br.ReadU32(sizeCoder))
	}
	ratio := br.ReadBits(3)
	if ratio != 0 {
		r := fixedAspectRatios[ratio]
		return ysize * r[0] / r[1], ysize
	}
	if small {
		xsize = 8 * (br.ReadBits(5) + 1)
	} else {
		xsize = uint64(br.ReadU32(sizeCoder))
	}
	return xsize, ysize
}

// ReadSizeHeader decodes the image size
func ReadSizeHeader(br *BitReader, size *SizeHeader) error {
	size.XSize, size.YSize = readSizeFields(br)
	return nil
}

// PreviewHeader holds the dimensions of the preview frame
type PreviewHeader struct {
	XSize uint64
	YSize uint64
}

func (p *PreviewHeader) read(br *BitReader) {
	div8 := br.ReadBool()
	readDim := func() uint64 {
		if div8 {
			return 8 * uint64(br.ReadU32(previewDiv8Coder))
		}
		return uint64(br.ReadU32(previewCoder))
	}
	p.YSize = readDim()
	ratio := br.ReadBits(3)
	if ratio != 0 {
		r := fixedAspectRatios[ratio]
		p.XSize = p.YSize * r[0] / r[1]
		return
	}
	p.XSize = readDim()
}

// AnimationHeader holds the animation timing parameters
type AnimationHeader struct {
	TPSNumerator   uint32
	TPSDenominator uint32
	NumLoops       uint32
	HaveTimecodes  bool
}

func (a *AnimationHeader) read(br *BitReader) {
	a.TPSNumerator = br.ReadU32(tpsNumCoder)
	a.TPSDenominator = br.ReadU32(tpsDenCoder)
	a.NumLoops = br.ReadU32(numLoopsCoder)
	a.HaveTimecodes = br.ReadBool()
}

// BitDepth describes the sample format
type BitDepth struct {
	FloatingPointSample bool
	BitsPerSample       uint32
	ExponentBits        uint32
}

func (b *BitDepth) read(br *BitReader) error {
	b.FloatingPointSample = br.ReadBool()
	if !b.FloatingPointSample {
		b.BitsPerSample = br.ReadU32(bitDepthCoder)
		b.ExponentBits = 0
		if b.BitsPerSample > 31 {
			return ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("invalid bits per sample %d", b.BitsPerSample))
		}
		return nil
	}
	b.BitsPerSample = br.ReadU32(floatDepthCoder)
	b.ExponentBits = uint32(br.ReadBits(4)) + 1
	mantissa := int(b.BitsPerSample) - int(b.ExponentBits) - 1
	if mantissa < 2 || mantissa > 23 || b.ExponentBits > 8 {
		return ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("invalid float format %d/%d", b.BitsPerSample, b.ExponentBits))
	}
	return nil
}

// BytesPerSample returns the stored width of one sample
func (b *BitDepth) BytesPerSample() int {
	if b.BitsPerSample <= 8 {
		return 1
	}
	return 2
}

// ExtraChannelType is the role of an extra channel
type ExtraChannelType int

const (
	ExtraChannelAlpha ExtraChannelType = iota
	ExtraChannelDepth
	ExtraChannelSpotColor
	ExtraChannelSelectionMask
	ExtraChannelBlack
	ExtraChannelCFA
	ExtraChannelThermal
	ExtraChannelOptional ExtraChannelType = 15
)

// ExtraChannelInfo describes one extra channel
type ExtraChannelInfo struct {
	Type     ExtraChannelType
	BitDepth BitDepth
}

func (e *ExtraChannelInfo) read(br *BitReader) error {
	if br.ReadBool() {
		*e = ExtraChannelInfo{Type: ExtraChannelAlpha, BitDepth: BitDepth{BitsPerSample: 8}}
		return nil
	}
	e.Type = ExtraChannelType(br.ReadBits(4))
	return e.BitDepth.read(br)
}

// ImageMetadata holds the image-wide metadata
type ImageMetadata struct {
	Orientation       uint32
	HaveIntrinsicSize bool
	IntrinsicSize     SizeHeader
	HavePreview       bool
	Preview           PreviewHeader
	HaveAnimation     bool
	Animation         AnimationHeader
	BitDepth          BitDepth
	Modular16Bit      bool
	ExtraChannels     []ExtraChannelInfo
	XYBEncoded        bool
	ColorEncoding     ColorEncoding
	Extensions        uint64
}

// DefaultImageMetadata returns the metadata of an all_default header
func DefaultImageMetadata() ImageMetadata {
	return ImageMetadata{
		Orientation:   1,
		BitDepth:      BitDepth{BitsPerSample: 8},
		Modular16Bit:  true,
		XYBEncoded:    true,
		ColorEncoding: SRGB(),
	}
}

// maxExtraChannels bounds the number of extra channels
const maxExtraChannels = 256

// ReadImageMetadata decodes the image metadata
func ReadImageMetadata(br *BitReader, m *ImageMetadata) error {
	*m = DefaultImageMetadata()
	if br.ReadBool() {
		return nil
	}

	if br.ReadBool() {
		m.Orientation = uint32(br.ReadBits(3)) + 1
		m.HaveIntrinsicSize = br.ReadBool()
		if m.HaveIntrinsicSize {
			m.IntrinsicSize.XSize, m.IntrinsicSize.YSize = readSizeFields(br)
		}
		m.HavePreview = br.ReadBool()
		if m.HavePreview {
			m.Preview.read(br)
		}
		m.HaveAnimation = br.ReadBool()
		if m.HaveAnimation {
			m.Animation.read(br)
		}
	}

	if err := m.BitDepth.read(br); err != nil {
		return err
	}
	m.Modular16Bit = br.ReadBool()

	numExtra := br.ReadU32(extraCountCoder)
	if numExtra > maxExtraChannels {
		return ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("too many extra channels: %d", numExtra))
	}
	m.ExtraChannels = make([]ExtraChannelInfo, numExtra)
	for i := range m.ExtraChannels {
		if err := m.ExtraChannels[i].read(br); err != nil {
			return fmt.Errorf("failed to read extra channel %d: %w", i, err)
		}
	}

	m.XYBEncoded = br.ReadBool()
	if err := m.ColorEncoding.Read(br); err != nil {
		return err
	}
	return readExtensions(br, &m.Extensions)
}

// readExtensions reads the extension mask and skips the payload of every
// extension, none of which are understood
func readExtensions(br *BitReader, extensions *uint64) error {
	*extensions = br.ReadU64()
	if *extensions == 0 {
		return nil
	}
	var total uint64
	for i := 0; i < bits.OnesCount64(*extensions); i++ {
		n := br.ReadU64()
		if total+n < total {
			return ErrExitCode(ExitCodeBadHeader, "extension sizes overflow")
		}
		total += n
	}
	br.SkipBits(total)
	return nil
}

// Channels returns the number of colour channels
func (m *ImageMetadata) Channels() int {
	return m.ColorEncoding.Channels()
}

// TransformData holds the parameters of the inverse XYB transform and the
// upsampling filters
type TransformData struct {
	// XYBEncoded is copied from ImageMetadata before decoding; it is not
	// part of the bundle itself.
	XYBEncoded bool

	CustomOpsin    bool
	OpsinInverse   [9]float32
	OpsinBiases    [3]float32
	UpsamplingMask uint32
}

// ReadTransformData decodes the transform data. td.XYBEncoded must be set
// before the call.
func ReadTransformData(br *BitReader, td *TransformData) error {
	xyb := td.XYBEncoded
	*td = TransformData{XYBEncoded: xyb}
	if br.ReadBool() {
		return nil
	}
	if td.XYBEncoded {
		td.CustomOpsin = br.ReadBool()
		if td.CustomOpsin {
			for i := range td.OpsinInverse {
				v, err := br.ReadF16()
				if err != nil {
					return fmt.Errorf("failed to read opsin matrix: %w", err)
				}
				td.OpsinInverse[i] = v
			}
			for i := range td.OpsinBiases {
				v, err := br.ReadF16()
				if err != nil {
					return fmt.Errorf("failed to read opsin biases: %w", err)
				}
				td.OpsinBiases[i] = v
			}
		}
	}
	td.UpsamplingMask = uint32(br.ReadBits(3))
	return nil
}

// CodecMetadata groups everything decoded from the codestream headers
type CodecMetadata struct {
	Size          SizeHeader
	M             ImageMetadata
	TransformData TransformData
}

// XSize returns the image width
func (c *CodecMetadata) XSize() uint64 {
	return c.Size.XSize
}

// YSize returns the image height
func (c *CodecMetadata) YSize() uint64 {
	return c.Size.YSize
}

// DecodeHeaders reads the size header, the image metadata and the transform
// data in codestream order
func DecodeHeaders(br *BitReader, metadata *CodecMetadata) error {
	if err := ReadSizeHeader(br, &metadata.Size); err != nil {
		return fmt.Errorf("failed to read size header: %w", err)
	}
	if err := ReadImageMetadata(br, &metadata.M); err != nil {
		return fmt.Errorf("failed to read image metadata: %w", err)
	}
	metadata.TransformData.XYBEncoded = metadata.M.XYBEncoded
	if err := ReadTransformData(br, &metadata.TransformData); err != nil {
		return fmt.Errorf("failed to read transform data: %w", err)
	}
	return nil
}
