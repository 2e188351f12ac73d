package rawio

import (
	"fmt"
	"io"

	"golang.org/x/image/tiff"
)

// ReadTIFF reads a grayscale TIFF into a frame.
func ReadTIFF(r io.Reader) (*Frame, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("rawio: tiff: %w", err)
	}
	return FromImage(img), nil
}

// WriteTIFF writes f as a deflate compressed 16-bit grayscale TIFF.
func WriteTIFF(w io.Writer, f *Frame) error {
	if err := f.validate(); err != nil {
		return err
	}
	return tiff.Encode(w, f.Image(), &tiff.Options{Compression: tiff.Deflate})
}
