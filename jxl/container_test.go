package jxl

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
	"seehuhn.de/go/icc"
	"seehuhn.de/go/xmp"
)

func box(typ BoxType, payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(out, uint32(8+len(payload)))
	copy(out[4:], typ[:])
	return append(out, payload...)
}

func containerPrefix() []byte {
	out := append([]byte(nil), ContainerSignature[:]...)
	return append(out, box(BoxFileType, []byte("jxl \x00\x00\x00\x00jxl "))...)
}

func testXMP(t *testing.T) (*xmp.Packet, []byte) {
	t.Helper()
	packet := xmp.NewPacket()
	dc := &xmp.DublinCore{}
	dc.Title.Set(language.Und, "Container Test")
	if err := packet.Set(dc); err != nil {
		t.Fatalf("Failed to set properties: %v", err)
	}
	var buf bytes.Buffer
	if err := packet.Write(&buf, nil); err != nil {
		t.Fatalf("Failed to write XMP packet: %v", err)
	}
	return packet, buf.Bytes()
}

func TestDecodeContainer(t *testing.T) {
	codestream := buildCodestream(t, singleFrameImage())
	exif := []byte("II*\x00\x08\x00\x00\x00")
	packet, xmpData := testXMP(t)

	data := containerPrefix()
	data = append(data, box(BoxExif, append([]byte{0, 0, 0, 0}, exif...))...)
	data = append(data, box(BoxXML, xmpData)...)
	data = append(data, box(BoxCodestream, codestream)...)

	params := quietParams()
	io := NewCodecInOut()
	if _, err := DecodeContainer(&params, data, io, nil); err != nil {
		t.Fatalf("Failed to decode container: %v", err)
	}
	if len(io.Frames) != 1 || io.DecPixels != 16*8 {
		t.Errorf("decoded %d frames and %d pixels", len(io.Frames), io.DecPixels)
	}
	if !bytes.Equal(io.Blobs.Exif, exif) {
		t.Errorf("Exif = %q, want %q", io.Blobs.Exif, exif)
	}
	if !bytes.Equal(io.Blobs.RawXMP, xmpData) {
		t.Errorf("raw XMP not kept")
	}
	if io.Blobs.XMP == nil {
		t.Fatalf("XMP packet not parsed")
	}
	var want, got xmp.DublinCore
	packet.Get(&want)
	io.Blobs.XMP.Get(&got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("XMP mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeContainerPartialBoxes(t *testing.T) {
	codestream := buildCodestream(t, singleFrameImage())
	split := len(codestream) / 3

	data := containerPrefix()
	data = append(data, box(BoxPartialCodestream, append([]byte{0, 0, 0, 0}, codestream[:split]...))...)
	data = append(data, box(BoxPartialCodestream, append([]byte{0x80, 0, 0, 1}, codestream[split:]...))...)

	params := quietParams()
	io := NewCodecInOut()
	if _, err := DecodeContainer(&params, data, io, nil); err != nil {
		t.Fatalf("Failed to decode container: %v", err)
	}
	want := expectedPlanes(&singleFrameImage().frames[0], 3, 16, 8)
	if diff := cmp.Diff(want, io.Main().Planes); diff != "" {
		t.Errorf("planes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeContainerJpegReconstruction(t *testing.T) {
	profile := icc.SRGBv4Profile
	img := singleFrameImage()
	img.icc = profile
	jbrd := iccJpegData(t, len(profile)).AppendHeader(nil)

	data := containerPrefix()
	data = append(data, box(BoxJpegReconstruction, jbrd)...)
	data = append(data, box(BoxCodestream, buildCodestream(t, img))...)

	params := quietParams()
	params.KeepDCT = true
	io := NewCodecInOut()
	if _, err := DecodeContainer(&params, data, io, nil); err != nil {
		t.Fatalf("Failed to decode container: %v", err)
	}
	jd := io.Main().JpegData
	if jd == nil {
		t.Fatalf("jbrd box did not provide reconstruction data")
	}
	var spliced []byte
	for _, m := range jd.Markers {
		if m.Type == MarkerTypeICC {
			spliced = append(spliced, m.Data[ICCMarkerHeaderSize:]...)
		}
	}
	if !bytes.Equal(spliced, profile) {
		t.Errorf("jbrd markers hold %d profile bytes, want %d", len(spliced), len(profile))
	}
}

func TestDecodeContainerBareCodestream(t *testing.T) {
	params := quietParams()
	io := NewCodecInOut()
	if _, err := DecodeContainer(&params, buildCodestream(t, singleFrameImage()), io, nil); err != nil {
		t.Fatalf("Failed to decode codestream: %v", err)
	}
	if len(io.Frames) != 1 {
		t.Errorf("decoded %d frames, want 1", len(io.Frames))
	}
}

func TestExtractCodestreamErrors(t *testing.T) {
	cs := box(BoxCodestream, []byte{0xFF, 0x0A})
	tests := []struct {
		name string
		data []byte
	}{
		{"no ftyp", append(append([]byte(nil), ContainerSignature[:]...), cs...)},
		{"no codestream", containerPrefix()},
		{"two codestreams", append(append(containerPrefix(), cs...), cs...)},
		{"jxlp after jxlc", append(append(containerPrefix(), cs...), box(BoxPartialCodestream, []byte{0, 0, 0, 0})...)},
		{"jxlp without index", append(containerPrefix(), box(BoxPartialCodestream, []byte{0})...)},
		{"exif offset past end", append(append(containerPrefix(), box(BoxExif, []byte{0, 0, 0, 9})...), cs...)},
		{"truncated box", append(containerPrefix(), cs[:len(cs)-1]...)},
		{"box smaller than header", append(containerPrefix(), 0, 0, 0, 4, 'j', 'x', 'l', 'c')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ExtractCodestream(tt.data, false)
			if CodeOf(err) != ExitCodeBadContainer {
				t.Errorf("ExtractCodestream error = %v, want BadContainer", err)
			}
		})
	}
}

func TestParseBoxesTruncated(t *testing.T) {
	data := append(containerPrefix(), box(BoxCodestream, []byte{0xFF, 0x0A, 1, 2, 3})...)
	data = data[:len(data)-2]
	boxes, err := ParseBoxes(data, true)
	if err != nil {
		t.Fatalf("Failed to parse truncated boxes: %v", err)
	}
	last := boxes[len(boxes)-1]
	if last.Type != BoxCodestream || !last.Truncated {
		t.Errorf("last box = %s truncated %v", last.Type, last.Truncated)
	}
	if !bytes.Equal(last.Data, []byte{0xFF, 0x0A, 1}) {
		t.Errorf("truncated box data = %v", last.Data)
	}

	// A size of zero extends the box to the end of the file.
	data = append(containerPrefix(), 0, 0, 0, 0, 'j', 'x', 'l', 'c', 0xFF, 0x0A)
	boxes, err = ParseBoxes(data, false)
	if err != nil {
		t.Fatalf("Failed to parse open-ended box: %v", err)
	}
	if last := boxes[len(boxes)-1]; !bytes.Equal(last.Data, []byte{0xFF, 0x0A}) {
		t.Errorf("open-ended box data = %v", last.Data)
	}
}
