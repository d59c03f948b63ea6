package jxl

import (
	"bytes"
	"fmt"
	"io"
)

// MarkerType classifies a JPEG marker segment for reconstruction
type MarkerType int

const (
	MarkerTypeOther MarkerType = iota
	MarkerTypeICC
	MarkerTypeExif
	MarkerTypeXMP
	MarkerTypeApp
	MarkerTypeCom
)

func (t MarkerType) String() string {
	switch t {
	case MarkerTypeICC:
		return "ICC"
	case MarkerTypeExif:
		return "Exif"
	case MarkerTypeXMP:
		return "XMP"
	case MarkerTypeApp:
		return "App"
	case MarkerTypeCom:
		return "Com"
	default:
		return "Other"
	}
}

// MarkerSegment is one header segment of the legacy JPEG file
type MarkerSegment struct {
	Type MarkerType

	// Data holds the marker byte, the two big-endian length bytes and the
	// segment payload. For ICC segments the first ICCMarkerHeaderSize bytes
	// are the header and the rest is a slice of the profile.
	Data []byte
}

// ReconstructionData holds what is needed to rebuild the legacy JPEG header
// around data decoded from the codestream
type ReconstructionData struct {
	// Markers are the header segments between SOI and SOS, in file order
	Markers []MarkerSegment

	// Tail is everything from the SOS marker to the end of the file
	Tail []byte
}

// classifyMarker decides the type of the segment with the given marker and payload
func classifyMarker(marker byte, payload []byte) MarkerType {
	switch {
	case marker == MarkerAPP2 && len(payload) >= ICCMarkerHeaderSize-3 && bytes.HasPrefix(payload, ICCMarkerTag):
		return MarkerTypeICC
	case marker == MarkerAPP1 && bytes.HasPrefix(payload, ExifMarkerTag):
		return MarkerTypeExif
	case marker == MarkerAPP1 && bytes.HasPrefix(payload, XMPMarkerTag):
		return MarkerTypeXMP
	case marker >= MarkerAPP0 && marker <= MarkerAPPF:
		return MarkerTypeApp
	case marker == MarkerCOM:
		return MarkerTypeCom
	default:
		return MarkerTypeOther
	}
}

// ParseJpegHeader splits a JPEG file (or its header up to and including the
// SOS marker) into marker segments
func ParseJpegHeader(data []byte) (*ReconstructionData, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != MarkerSOI {
		return nil, NewJxlError(ExitCodeBadJpegData, "JPEG must start with 0xFF 0xD8")
	}
	pos := 2
	jd := &ReconstructionData{}

	for {
		if pos+2 > len(data) {
			return nil, ErrExitCode(ExitCodeBadJpegData, "unexpected end of JPEG header")
		}
		if data[pos] != 0xFF {
			return nil, NewJxlError(ExitCodeBadJpegData, "invalid marker")
		}
		markerType := data[pos+1]

		if markerType == MarkerEOI {
			return nil, NewJxlError(ExitCodeBadJpegData, "unexpected EOI marker")
		}
		if markerType == MarkerSOS {
			jd.Tail = append([]byte(nil), data[pos:]...)
			return jd, nil
		}

		if pos+4 > len(data) {
			return nil, ErrExitCode(ExitCodeBadJpegData, "failed to read segment length")
		}
		segmentLen := int(data[pos+2])<<8 | int(data[pos+3])
		if segmentLen < 2 {
			return nil, NewJxlError(ExitCodeBadJpegData, "segment too short")
		}
		end := pos + 2 + segmentLen
		if end > len(data) {
			return nil, ErrExitCode(ExitCodeBadJpegData,
				fmt.Sprintf("segment %02x extends past end of data", markerType))
		}

		jd.Markers = append(jd.Markers, MarkerSegment{
			Type: classifyMarker(markerType, data[pos+4:end]),
			Data: append([]byte(nil), data[pos+1:end]...),
		})
		pos = end
	}
}

// MaxICCMarkerPayload is the largest profile slice one APP2 segment can hold:
// the 16-bit segment length also covers itself, the tag, seq and count.
const MaxICCMarkerPayload = 0xFFFF - 2 - 12 - 2

// NewICCMarker returns an ICC APP2 segment with room for payloadLen profile
// bytes, all zero. seq is 1-based and at most count, which is at most 255.
func NewICCMarker(seq, count, payloadLen int) (MarkerSegment, error) {
	if payloadLen < 0 || payloadLen > MaxICCMarkerPayload {
		return MarkerSegment{}, ErrExitCode(ExitCodeBadJpegData,
			fmt.Sprintf("ICC marker payload of %d bytes, want at most %d", payloadLen, MaxICCMarkerPayload))
	}
	if count < 1 || count > 0xFF || seq < 1 || seq > count {
		return MarkerSegment{}, ErrExitCode(ExitCodeBadJpegData,
			fmt.Sprintf("invalid ICC marker sequence %d of %d", seq, count))
	}
	segmentLen := 2 + len(ICCMarkerTag) + 2 + payloadLen
	data := make([]byte, 0, ICCMarkerHeaderSize+payloadLen)
	data = append(data, MarkerAPP2, byte(segmentLen>>8), byte(segmentLen))
	data = append(data, ICCMarkerTag...)
	data = append(data, byte(seq), byte(count))
	data = append(data, make([]byte, payloadLen)...)
	return MarkerSegment{Type: MarkerTypeICC, Data: data}, nil
}

// ICCPayloadSize returns the number of profile bytes the ICC markers reserve
func (jd *ReconstructionData) ICCPayloadSize() int {
	n := 0
	for i := range jd.Markers {
		if jd.Markers[i].Type == MarkerTypeICC && len(jd.Markers[i].Data) > ICCMarkerHeaderSize {
			n += len(jd.Markers[i].Data) - ICCMarkerHeaderSize
		}
	}
	return n
}

// SpliceICC copies icc into the ICC markers in order, each marker taking as
// many bytes as it reserves. Either every profile byte is placed, or none
// are reserved at all.
func (jd *ReconstructionData) SpliceICC(icc []byte) error {
	pos := 0
	for i := range jd.Markers {
		m := &jd.Markers[i]
		if m.Type != MarkerTypeICC {
			continue
		}
		if len(m.Data) < ICCMarkerHeaderSize {
			return NewJxlError(ExitCodeBadJpegData,
				fmt.Sprintf("ICC marker %d is %d bytes, shorter than its header", i, len(m.Data)))
		}
		n := len(m.Data) - ICCMarkerHeaderSize
		if pos+n > len(icc) {
			return fmt.Errorf("%w: ICC length is less than APP markers: requested %d more bytes, %d available",
				ErrICCLengthMismatch, n, len(icc)-pos)
		}
		copy(m.Data[ICCMarkerHeaderSize:], icc[pos:pos+n])
		pos += n
	}
	if pos != len(icc) && pos != 0 {
		return fmt.Errorf("%w: ICC length is more than APP markers: %d of %d bytes placed",
			ErrICCLengthMismatch, pos, len(icc))
	}
	return nil
}

// AppendHeader appends the reconstructed JPEG (SOI, every marker segment,
// then the tail) to dst
func (jd *ReconstructionData) AppendHeader(dst []byte) []byte {
	dst = append(dst, 0xFF, MarkerSOI)
	for i := range jd.Markers {
		dst = append(dst, 0xFF)
		dst = append(dst, jd.Markers[i].Data...)
	}
	return append(dst, jd.Tail...)
}

// WriteTo writes the reconstructed JPEG to w
func (jd *ReconstructionData) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(jd.AppendHeader(nil))
	return int64(n), err
}
