package jxl

// CodestreamSignature is the 16-bit marker that starts a bare codestream
var CodestreamSignature = [2]byte{0xFF, 0x0A}

// ContainerSignature is the signature box that starts the ISO-BMFF container
var ContainerSignature = [12]byte{0, 0, 0, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}

// BitsPerByte is the number of bits in a byte
const BitsPerByte = 8

// ICCMarkerHeaderSize is the number of bytes an ICC APP2 marker carries before
// its slice of the profile: marker byte, two length bytes, the 12-byte
// "ICC_PROFILE\0" tag, sequence number and count.
const ICCMarkerHeaderSize = 17

// ICCMarkerTag identifies an APP2 segment holding part of an ICC profile
var ICCMarkerTag = []byte("ICC_PROFILE\x00")

// ExifMarkerTag identifies an APP1 segment holding Exif data
var ExifMarkerTag = []byte("Exif\x00\x00")

// XMPMarkerTag identifies an APP1 segment holding an XMP packet
var XMPMarkerTag = []byte("http://ns.adobe.com/xap/1.0/\x00")

// JPEG marker codes
const (
	MarkerSOI  = 0xD8 // Start Of Image
	MarkerEOI  = 0xD9 // End Of Image
	MarkerSOS  = 0xDA // Start Of Scan
	MarkerAPP0 = 0xE0 // Application Segment 0
	MarkerAPP1 = 0xE1 // Application Segment 1
	MarkerAPP2 = 0xE2 // Application Segment 2
	MarkerAPPF = 0xEF // Application Segment 15
	MarkerCOM  = 0xFE // Comment
)

// fixedAspectRatios maps the 3-bit ratio field (1..7) to xsize/ysize
var fixedAspectRatios = [8][2]uint64{
	{0, 0},
	{1, 1},
	{12, 10},
	{4, 3},
	{3, 2},
	{16, 9},
	{5, 4},
	{2, 1},
}

// Field codings shared by the headers
var (
	sizeCoder        = u32Coder{bitsOffset(9, 1), bitsOffset(13, 1), bitsOffset(18, 1), bitsOffset(30, 1)}
	previewDiv8Coder = u32Coder{val(16), val(32), bitsOffset(5, 1), bitsOffset(9, 33)}
	previewCoder     = u32Coder{bitsOffset(6, 1), bitsOffset(8, 65), bitsOffset(10, 321), bitsOffset(12, 1345)}
	bitDepthCoder    = u32Coder{val(8), val(10), val(12), bitsOffset(6, 1)}
	floatDepthCoder  = u32Coder{val(32), val(16), val(24), bitsOffset(6, 1)}
	extraCountCoder  = u32Coder{val(0), val(1), bitsOffset(4, 2), bitsOffset(12, 1)}
	tpsNumCoder      = u32Coder{val(100), val(1000), bitsOffset(10, 1), bitsOffset(30, 1)}
	tpsDenCoder      = u32Coder{val(1), val(1001), bitsOffset(8, 1), bitsOffset(10, 1)}
	numLoopsCoder    = u32Coder{val(0), bitsOffset(3, 0), bitsOffset(16, 0), bitsOffset(32, 0)}
	cropCoder        = u32Coder{bitsOffset(8, 1), bitsOffset(11, 257), bitsOffset(14, 2305), bitsOffset(30, 18689)}
	durationCoder    = u32Coder{val(0), val(1), bitsOffset(8, 0), bitsOffset(32, 0)}
	nameLenCoder     = u32Coder{val(0), bitsOffset(4, 0), bitsOffset(5, 16), bitsOffset(10, 48)}
	tocCoder         = u32Coder{bitsOffset(10, 0), bitsOffset(14, 1024), bitsOffset(22, 17408), bitsOffset(30, 4211712)}
)

// maxICCSize bounds the declared size of a colour profile
const maxICCSize = 1 << 28
