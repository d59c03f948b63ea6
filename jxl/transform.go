package jxl

// ColorTransformer converts a decoded image to another colour encoding. The
// frame decoder uses it to bring XYB encoded frames into the image's colour
// encoding; the decoder itself does no colour math.
type ColorTransformer interface {
	TransformTo(ib *ImageBundle, target *ColorEncoding, pool ThreadPool) error
}

// TransformFunc adapts a function to the ColorTransformer interface
type TransformFunc func(ib *ImageBundle, target *ColorEncoding, pool ThreadPool) error

// TransformTo calls f
func (f TransformFunc) TransformTo(ib *ImageBundle, target *ColorEncoding, pool ThreadPool) error {
	return f(ib, target, pool)
}
