// Package rawio reads and writes single channel raw frames as PGM or TIFF,
// optionally zstd compressed.
package rawio

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"
	"path/filepath"
	"strings"

	"github.com/jpfielding/lj92.go/pkg/compress/lj92"
)

// MaxPixels bounds the frames the readers accept, the same budget the
// decoder applies by default.
var MaxPixels = lj92.DefaultMaxPixels

// Frame is a row major grid of unsigned samples.
type Frame struct {
	Width    int
	Height   int
	MaxValue uint16
	Samples  []uint16
}

// NewFrame allocates a zeroed width x height frame.
func NewFrame(width, height int, maxValue uint16) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		MaxValue: maxValue,
		Samples:  make([]uint16, width*height),
	}
}

// Precision is the number of bits needed for MaxValue, at least 2.
func (f *Frame) Precision() int {
	return max(2, bits.Len16(f.MaxValue))
}

func (f *Frame) validate() error {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("rawio: empty frame")
	}
	if len(f.Samples) < f.Width*f.Height {
		return fmt.Errorf("rawio: %dx%d frame has %d samples", f.Width, f.Height, len(f.Samples))
	}
	return nil
}

// Image returns the frame as a Gray16 image, samples unscaled.
func (f *Frame) Image() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for i, s := range f.Samples[:f.Width*f.Height] {
		img.Pix[2*i] = byte(s >> 8)
		img.Pix[2*i+1] = byte(s)
	}
	return img
}

// FromImage copies an image into a frame. Gray and Gray16 keep their raw
// values, anything else is converted through the Gray16 model.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		f := NewFrame(b.Dx(), b.Dy(), 0xFF)
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
			for x := 0; x < b.Dx(); x++ {
				f.Samples[y*f.Width+x] = uint16(row[x])
			}
		}
		return f
	case *image.Gray16:
		f := NewFrame(b.Dx(), b.Dy(), 0)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				s := src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				f.Samples[y*f.Width+x] = s
				f.MaxValue = max(f.MaxValue, s)
			}
		}
		return f
	}
	f := NewFrame(b.Dx(), b.Dy(), 0xFFFF)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			f.Samples[y*f.Width+x] = color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
		}
	}
	return f
}

// Format is an on disk frame encoding.
type Format string

const (
	PGM  Format = "pgm"
	TIFF Format = "tiff"
)

// ParseFormat accepts pgm, tif and tiff in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "pgm":
		return PGM, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("rawio: unknown format %q", s)
}

// FormatOf infers the format from a path, ignoring a trailing .zst.
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(strings.TrimSuffix(path, ZstdExt))
	return ParseFormat(strings.TrimPrefix(ext, "."))
}
