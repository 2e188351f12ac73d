package lj92

import (
	"fmt"
	"image"
	"image/color"
	"io"
)

// Decode reads a lossless JPEG from r. Frames of 8 bits or less come back as
// *image.Gray, deeper frames as *image.Gray16. Sample values are not scaled.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	h := d.Header()
	samples := make([]uint16, h.Width*h.Height)
	if err := d.Decode(Target{Samples: samples}); err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, h.Width, h.Height)
	if h.Precision <= 8 {
		img := image.NewGray(rect)
		for i, s := range samples {
			img.Pix[i] = uint8(s)
		}
		return img, nil
	}
	img := image.NewGray16(rect)
	for i, s := range samples {
		img.Pix[2*i] = uint8(s >> 8)
		img.Pix[2*i+1] = uint8(s)
	}
	return img, nil
}

// DecodeConfig returns the dimensions and color model without decoding the scan.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	d, err := Open(data)
	if err != nil {
		return image.Config{}, err
	}
	defer d.Close()
	h := d.Header()
	cfg := image.Config{Width: h.Width, Height: h.Height, ColorModel: color.Gray16Model}
	if h.Precision <= 8 {
		cfg.ColorModel = color.GrayModel
	}
	return cfg, nil
}

// String formats the header for logs and tooling.
func (h Header) String() string {
	return fmt.Sprintf("%dx%d %d-bit predictor=%d pt=%d restart=%d components=%d",
		h.Width, h.Height, h.Precision, h.Predictor, h.PointTransform, h.RestartInterval, h.Components)
}
