package jxl

import "fmt"

// FrameType is the role of a coded frame
type FrameType int

const (
	// FrameTypeRegular is a displayed frame
	FrameTypeRegular FrameType = iota
	// FrameTypeDC holds the DC of a later frame and is not displayed
	FrameTypeDC
	// FrameTypeReferenceOnly is only stored for use by later frames
	FrameTypeReferenceOnly
	// FrameTypeSkipProgressive is displayed but may not be decoded progressively
	FrameTypeSkipProgressive
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeRegular:
		return "Regular"
	case FrameTypeDC:
		return "DC"
	case FrameTypeReferenceOnly:
		return "ReferenceOnly"
	case FrameTypeSkipProgressive:
		return "SkipProgressive"
	default:
		return fmt.Sprintf("FrameType(%d)", int(t))
	}
}

// Displayable reports whether a frame of this type ends up in the output
func (t FrameType) Displayable() bool {
	return t == FrameTypeRegular || t == FrameTypeSkipProgressive
}

// maxFrameNameLength bounds the frame name
const maxFrameNameLength = 1071

// FrameHeader holds the per-frame header fields
type FrameHeader struct {
	Type       FrameType
	Codec      PayloadCodec
	Upsampling uint32

	HaveCrop bool
	// XSize and YSize are the coded (not upsampled) dimensions
	XSize uint64
	YSize uint64

	Duration uint32
	IsLast   bool
	Name     string
}

// XSizeUpsampled returns the width after upsampling
func (h *FrameHeader) XSizeUpsampled() uint64 {
	return h.XSize * uint64(h.Upsampling)
}

// YSizeUpsampled returns the height after upsampling
func (h *FrameHeader) YSizeUpsampled() uint64 {
	return h.YSize * uint64(h.Upsampling)
}

// frameSize returns the default dimensions of a frame: the preview size for
// the preview, the image size otherwise
func frameSize(metadata *CodecMetadata, isPreview bool) (uint64, uint64) {
	if isPreview {
		return metadata.M.Preview.XSize, metadata.M.Preview.YSize
	}
	return metadata.XSize(), metadata.YSize()
}

// ReadFrameHeader decodes a frame header. The reader must be byte aligned.
func ReadFrameHeader(br *BitReader, metadata *CodecMetadata, isPreview bool, h *FrameHeader) error {
	xsize, ysize := frameSize(metadata, isPreview)
	*h = FrameHeader{
		Type:       FrameTypeRegular,
		Codec:      PayloadRaw,
		Upsampling: 1,
		IsLast:     true,
	}
	if br.ReadBool() {
		h.XSize, h.YSize = xsize, ysize
		return nil
	}

	h.Type = FrameType(br.ReadBits(2))
	h.Codec = PayloadCodec(br.ReadBits(2))
	if h.Codec > PayloadDeflate {
		return ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("invalid frame codec %d", int(h.Codec)))
	}
	h.Upsampling = 1 << br.ReadBits(2)

	h.HaveCrop = br.ReadBool()
	if h.HaveCrop {
		h.XSize = uint64(br.ReadU32(cropCoder))
		h.YSize = uint64(br.ReadU32(cropCoder))
	} else {
		up := uint64(h.Upsampling)
		h.XSize = (xsize + up - 1) / up
		h.YSize = (ysize + up - 1) / up
	}

	displayable := h.Type.Displayable()
	if metadata.M.HaveAnimation && displayable && !isPreview {
		h.Duration = br.ReadU32(durationCoder)
	}
	h.IsLast = false
	if displayable {
		h.IsLast = br.ReadBool()
	}
	if isPreview && !h.Type.Displayable() {
		return ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("preview frame of type %s", h.Type))
	}

	nameLen := br.ReadU32(nameLenCoder)
	if nameLen > maxFrameNameLength {
		return ErrExitCode(ExitCodeBadHeader, fmt.Sprintf("frame name too long: %d", nameLen))
	}
	if nameLen > 0 {
		name := make([]byte, nameLen)
		for i := range name {
			name[i] = byte(br.ReadBits(8))
		}
		h.Name = string(name)
	}
	return nil
}
