package jxl

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"seehuhn.de/go/xmp"
)

// BoxType is the four character type of a container box
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

// Box types understood by the container reader
var (
	BoxSignature          = BoxType{'J', 'X', 'L', ' '}
	BoxFileType           = BoxType{'f', 't', 'y', 'p'}
	BoxCodestream         = BoxType{'j', 'x', 'l', 'c'}
	BoxPartialCodestream  = BoxType{'j', 'x', 'l', 'p'}
	BoxExif               = BoxType{'E', 'x', 'i', 'f'}
	BoxXML                = BoxType{'x', 'm', 'l', ' '}
	BoxJpegReconstruction = BoxType{'j', 'b', 'r', 'd'}
)

var fileTypeBrand = []byte("jxl ")

// Box is one top-level box of the container
type Box struct {
	Type BoxType
	Data []byte

	// Truncated is set when the box extends past the end of the input
	Truncated bool
}

// ParseBoxes splits a container into its top-level boxes. With
// allowTruncated, a final box that runs past the end keeps the bytes present.
func ParseBoxes(data []byte, allowTruncated bool) ([]Box, error) {
	var boxes []Box
	pos := uint64(0)
	size := uint64(len(data))
	for pos < size {
		if pos+8 > size {
			return nil, ErrExitCode(ExitCodeBadContainer, "box header extends past end")
		}
		boxSize := uint64(binary.BigEndian.Uint32(data[pos:]))
		var b Box
		copy(b.Type[:], data[pos+4:pos+8])
		header := uint64(8)
		switch boxSize {
		case 0:
			boxSize = size - pos
		case 1:
			if pos+16 > size {
				return nil, ErrExitCode(ExitCodeBadContainer, "large box header extends past end")
			}
			boxSize = binary.BigEndian.Uint64(data[pos+8:])
			header = 16
		}
		if boxSize < header {
			return nil, ErrExitCode(ExitCodeBadContainer,
				fmt.Sprintf("box %q has size %d smaller than its header", b.Type, boxSize))
		}
		end := pos + boxSize
		if end > size || end < pos {
			if !allowTruncated {
				return nil, ErrExitCode(ExitCodeBadContainer,
					fmt.Sprintf("box %q extends past end of file", b.Type))
			}
			end = size
			b.Truncated = true
		}
		b.Data = data[pos+header : end]
		boxes = append(boxes, b)
		pos = end
	}
	return boxes, nil
}

// ExtractCodestream returns the codestream carried by a container and the
// metadata boxes next to it
func ExtractCodestream(data []byte, allowTruncated bool) ([]byte, Blobs, error) {
	var blobs Blobs
	boxes, err := ParseBoxes(data, allowTruncated)
	if err != nil {
		return nil, blobs, err
	}
	if len(boxes) < 2 || boxes[0].Type != BoxSignature {
		return nil, blobs, ErrExitCode(ExitCodeBadContainer, "missing signature box")
	}
	if boxes[1].Type != BoxFileType || !bytes.HasPrefix(boxes[1].Data, fileTypeBrand) {
		return nil, blobs, ErrExitCode(ExitCodeBadContainer, "missing or invalid ftyp box")
	}

	var codestream []byte
	haveFull, havePartial := false, false
	for _, b := range boxes[2:] {
		switch b.Type {
		case BoxCodestream:
			if haveFull || havePartial {
				return nil, blobs, ErrExitCode(ExitCodeBadContainer, "more than one codestream box")
			}
			haveFull = true
			codestream = b.Data
		case BoxPartialCodestream:
			if haveFull {
				return nil, blobs, ErrExitCode(ExitCodeBadContainer, "jxlp box after jxlc box")
			}
			if len(b.Data) < 4 {
				return nil, blobs, ErrExitCode(ExitCodeBadContainer, "jxlp box without index")
			}
			havePartial = true
			codestream = append(codestream, b.Data[4:]...)
		case BoxExif:
			if len(b.Data) < 4 {
				return nil, blobs, ErrExitCode(ExitCodeBadContainer, "Exif box without offset")
			}
			offset := uint64(binary.BigEndian.Uint32(b.Data))
			if 4+offset > uint64(len(b.Data)) {
				return nil, blobs, ErrExitCode(ExitCodeBadContainer, "Exif offset past end of box")
			}
			blobs.Exif = b.Data[4+offset:]
		case BoxXML:
			blobs.RawXMP = b.Data
			// The packet is informational; a malformed one leaves XMP nil.
			if packet, err := xmp.Read(bytes.NewReader(b.Data)); err == nil {
				blobs.XMP = packet
			}
		case BoxJpegReconstruction:
			blobs.JpegReconstruction = b.Data
		}
	}
	if !haveFull && !havePartial {
		return nil, blobs, ErrExitCode(ExitCodeBadContainer, "no codestream box")
	}
	return codestream, blobs, nil
}

// DecodeContainer decodes either a bare codestream or a container holding
// one. Metadata boxes of a container end up in io.Blobs. With KeepDCT and no
// caller supplied JPEG data, the jbrd box (a JPEG header whose ICC payload is
// left blank) provides it.
func DecodeContainer(params *DecompressParams, data []byte, io *CodecInOut, pool ThreadPool) (DecodeStatus, error) {
	if SignatureCheck(data) != SignatureContainer {
		return DecodeFile(params, data, io, pool)
	}
	codestream, blobs, err := ExtractCodestream(data, params.AllowPartialFiles)
	if err != nil {
		return StatusComplete, fmt.Errorf("failed to unwrap container: %w", err)
	}
	io.Blobs = blobs
	if params.KeepDCT && io.JpegData == nil && len(blobs.JpegReconstruction) > 0 {
		jd, err := ParseJpegHeader(blobs.JpegReconstruction)
		if err != nil {
			return StatusComplete, fmt.Errorf("failed to parse jbrd box: %w", err)
		}
		io.JpegData = jd
	}
	return DecodeFile(params, codestream, io, pool)
}
