package jxl

import (
	"io"
	"math/bits"
	"testing"

	"github.com/sirupsen/logrus"
)

// testFrame describes one coded frame of a generated codestream
type testFrame struct {
	typ        FrameType
	codec      PayloadCodec
	upsampling uint32
	isLast     bool
	name       string

	// crop, when set, codes xsize x ysize explicitly
	crop         bool
	xsize, ysize uint64

	// seed varies the generated samples between frames
	seed int
}

// testImage describes a generated codestream
type testImage struct {
	xsize, ysize uint64
	gray         bool
	xyb          bool

	icc      []byte
	iccCodec PayloadCodec

	preview *testFrame
	// previewX and previewY are the preview dimensions in the metadata
	previewX, previewY uint64

	animation bool
	frames    []testFrame

	// extensionBits, when non-zero, declares one metadata extension of that
	// many bits without writing its payload
	extensionBits uint64
}

// codedSize returns the dimensions f is coded at inside a frame of fx x fy
func (f *testFrame) codedSize(fx, fy uint64) (uint64, uint64) {
	if f.crop {
		return f.xsize, f.ysize
	}
	up := uint64(f.upsampling)
	if up == 0 {
		up = 1
	}
	return (fx + up - 1) / up, (fy + up - 1) / up
}

// testSamples returns the 8-bit samples of channel c of f
func testSamples(f *testFrame, c int, w, h uint64) []byte {
	out := make([]byte, w*h)
	for y := uint64(0); y < h; y++ {
		for x := uint64(0); x < w; x++ {
			out[y*w+x] = byte(int(x)*7 + int(y)*13 + c*31 + f.seed)
		}
	}
	return out
}

// expectedPlanes returns the planes StoredFrameDecoder produces for f
func expectedPlanes(f *testFrame, channels int, fx, fy uint64) [][]uint16 {
	w, h := f.codedSize(fx, fy)
	up := uint64(f.upsampling)
	if up == 0 {
		up = 1
	}
	outX, outY := w*up, h*up
	if !f.crop {
		outX, outY = min(outX, fx), min(outY, fy)
	}
	planes := make([][]uint16, channels)
	for c := range planes {
		samples := testSamples(f, c, w, h)
		plane := make([]uint16, outX*outY)
		for y := uint64(0); y < outY; y++ {
			for x := uint64(0); x < outX; x++ {
				plane[y*outX+x] = uint16(samples[(y/up)*w+x/up])
			}
		}
		planes[c] = plane
	}
	return planes
}

func (img *testImage) channels() int {
	if img.gray {
		return 1
	}
	return 3
}

func writeTestFrame(t testing.TB, w *bitWriter, img *testImage, f *testFrame, isPreview bool) {
	t.Helper()
	fx, fy := img.xsize, img.ysize
	if isPreview {
		fx, fy = img.previewX, img.previewY
	}
	up := f.upsampling
	if up == 0 {
		up = 1
	}

	w.pad()
	w.writeBool(false)
	w.write(uint64(f.typ), 2)
	w.write(uint64(f.codec), 2)
	w.write(uint64(bits.TrailingZeros32(up)), 2)
	w.writeBool(f.crop)
	if f.crop {
		w.writeU32(t, cropCoder, uint32(f.xsize))
		w.writeU32(t, cropCoder, uint32(f.ysize))
	}
	if img.animation && f.typ.Displayable() && !isPreview {
		w.writeU32(t, durationCoder, 1)
	}
	if f.typ.Displayable() {
		w.writeBool(f.isLast)
	}
	w.writeU32(t, nameLenCoder, uint32(len(f.name)))
	for i := 0; i < len(f.name); i++ {
		w.write(uint64(f.name[i]), 8)
	}

	w.pad()
	cw, ch := f.codedSize(fx, fy)
	sections := make([][]byte, img.channels())
	for c := range sections {
		sections[c] = encodePayload(t, f.codec, testSamples(f, c, cw, ch))
		w.writeU32(t, tocCoder, uint32(len(sections[c])))
	}
	w.pad()
	for _, s := range sections {
		w.writeBytes(t, s)
	}
}

// buildCodestream writes img as a bare codestream
func buildCodestream(t testing.TB, img *testImage) []byte {
	t.Helper()
	var w bitWriter
	w.write(uint64(CodestreamSignature[0]), 8)
	w.write(uint64(CodestreamSignature[1]), 8)

	w.writeBool(false)
	w.writeU32(t, sizeCoder, uint32(img.ysize))
	w.write(0, 3)
	w.writeU32(t, sizeCoder, uint32(img.xsize))

	w.writeBool(false)
	extra := img.preview != nil || img.animation
	w.writeBool(extra)
	if extra {
		w.write(0, 3)
		w.writeBool(false)
		w.writeBool(img.preview != nil)
		if img.preview != nil {
			w.writeBool(false)
			w.writeU32(t, previewCoder, uint32(img.previewY))
			w.write(0, 3)
			w.writeU32(t, previewCoder, uint32(img.previewX))
		}
		w.writeBool(img.animation)
		if img.animation {
			w.writeU32(t, tpsNumCoder, 100)
			w.writeU32(t, tpsDenCoder, 1)
			w.writeU32(t, numLoopsCoder, 0)
			w.writeBool(false)
		}
	}
	w.writeBool(false)
	w.writeU32(t, bitDepthCoder, 8)
	w.writeBool(true)
	w.writeU32(t, extraCountCoder, 0)
	w.writeBool(img.xyb)

	switch {
	case img.icc != nil:
		w.writeBool(false)
		w.writeBool(true)
		w.write(uint64(ColorSpaceRGB), 2)
	case img.gray:
		w.writeBool(false)
		w.writeBool(false)
		w.write(uint64(ColorSpaceGray), 2)
		w.write(uint64(WhitePointD65), 2)
		w.write(uint64(TransferSRGB), 2)
		w.write(uint64(RenderingIntentRelative), 2)
	default:
		w.writeBool(true)
	}
	if img.extensionBits != 0 {
		w.writeU64(1)
		w.writeU64(img.extensionBits)
	} else {
		w.writeU64(0)
	}

	w.writeBool(true)

	if img.icc != nil {
		enc := encodePayload(t, img.iccCodec, img.icc)
		w.writeU64(uint64(len(img.icc)))
		w.write(uint64(img.iccCodec), 2)
		if img.iccCodec != PayloadRaw {
			w.writeU64(uint64(len(enc)))
		}
		w.pad()
		w.writeBytes(t, enc)
	}

	if img.preview != nil {
		writeTestFrame(t, &w, img, img.preview, true)
	}
	for i := range img.frames {
		writeTestFrame(t, &w, img, &img.frames[i], false)
	}
	return w.detachBuffer()
}

// quietParams returns default params with logging discarded
func quietParams() DecompressParams {
	p := DefaultDecompressParams()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p.Logger = logger
	return p
}

// singleFrameImage is a 16x8 RGB image with one raw frame
func singleFrameImage() *testImage {
	return &testImage{
		xsize:  16,
		ysize:  8,
		frames: []testFrame{{typ: FrameTypeRegular, isLast: true}},
	}
}
