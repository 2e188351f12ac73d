package lj92

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_Predictors(t *testing.T) {
	geometries := [][2]int{{1, 1}, {1, 9}, {9, 1}, {2, 2}, {17, 5}, {64, 33}}
	for _, precision := range []int{2, 8, 12, 14, 16} {
		for pred := 1; pred <= 7; pred++ {
			for _, g := range geometries {
				w, h := g[0], g[1]
				name := fmt.Sprintf("p%d/pred%d/%dx%d", precision, pred, w, h)
				t.Run(name, func(t *testing.T) {
					samples := randomSamples(uint64(precision*100+pred), w*h, precision)
					data := encodeSamples(t, samples, w, h, &Encoder{Precision: precision, Predictor: pred})
					assert.Equal(t, samples, decodeAll(t, data))
					assert.Equal(t, samples, decodeAll(t, data, WithSteppedHuffman()))
				})
			}
		}
	}
}

func TestRoundTrip_AllDepths(t *testing.T) {
	for precision := 2; precision <= 16; precision++ {
		samples := smoothSamples(40, 20, precision)
		data := encodeSamples(t, samples, 40, 20, &Encoder{Precision: precision, Predictor: 6})
		assert.Equal(t, samples, decodeAll(t, data), "precision %d", precision)
	}
}

func TestRoundTrip_PredictorZero(t *testing.T) {
	samples := randomSamples(21, 12*7, 9)
	e := &encoder{predictor: 0, precision: 9, width: 12, height: 7}
	var buf bytes.Buffer
	require.NoError(t, e.encode(&buf, samples))
	assert.Equal(t, samples, decodeAll(t, buf.Bytes()))
}

func TestRoundTrip_Extremes(t *testing.T) {
	// alternating 0 and full scale forces the widest differences
	const w, h = 16, 6
	samples := make([]uint16, w*h)
	for i := range samples {
		if (i+i/w)%2 == 1 {
			samples[i] = 0xFFFF
		}
	}
	for pred := 1; pred <= 7; pred++ {
		data := encodeSamples(t, samples, w, h, &Encoder{Predictor: pred})
		assert.Equal(t, samples, decodeAll(t, data), "predictor %d", pred)
	}

	flat := make([]uint16, w*h)
	data := encodeSamples(t, flat, w, h, nil)
	assert.Equal(t, flat, decodeAll(t, data))
}

func TestRoundTrip_RestartRows(t *testing.T) {
	const w, h = 10, 9
	samples := randomSamples(8, w*h, 14)
	for _, rows := range []int{1, 2, 4, 9} {
		data := encodeSamples(t, samples, w, h, &Encoder{Precision: 14, Predictor: 4, RestartRows: rows})
		d, err := Open(data)
		require.NoError(t, err)
		assert.Equal(t, rows*w, d.Header().RestartInterval)
		out := make([]uint16, w*h)
		require.NoError(t, d.Decode(Target{Samples: out}), "restart every %d rows", rows)
		assert.Equal(t, samples, out, "restart every %d rows", rows)
		assert.Equal(t, samples, decodeAll(t, data, WithSteppedHuffman()))
	}
}

func TestDecode_RestartSequence(t *testing.T) {
	const w, h = 6, 10
	samples := randomSamples(9, w*h, 12)
	data := encodeSamples(t, samples, w, h, &Encoder{Precision: 12, Predictor: 1, RestartRows: 1})

	// nine intervals after the first: RST0..RST7 then RST0 again
	var seen []byte
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xF8 == markerRST0 {
			seen = append(seen, data[i+1]-markerRST0)
		}
	}
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 0}, seen)
	assert.Equal(t, samples, decodeAll(t, data))

	for name, swap := range map[string][2]byte{
		"reordered": {markerRST0 + 2, markerRST0 + 3},
		"skipped":   {markerRST0 + 4, markerRST0 + 5},
	} {
		t.Run(name, func(t *testing.T) {
			bad := bytes.Clone(data)
			for i := 0; i+1 < len(bad); i++ {
				if bad[i] == 0xFF && bad[i+1] == swap[0] {
					bad[i+1] = swap[1]
					break
				}
			}
			d, err := Open(bad)
			require.NoError(t, err)
			defer d.Close()
			err = d.Decode(Target{Samples: make([]uint16, w*h)})
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestRoundTrip_PointTransform(t *testing.T) {
	const w, h, pt = 12, 6, 2
	samples := randomSamples(13, w*h, 12)
	data := encodeSamples(t, samples, w, h, &Encoder{Precision: 12, Predictor: 1, PointTransform: pt})

	d, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, pt, d.Header().PointTransform)
	out := make([]uint16, w*h)
	require.NoError(t, d.Decode(Target{Samples: out}))
	for i, s := range samples {
		assert.Equal(t, s>>pt<<pt, out[i], "sample %d", i)
	}
}

func TestRoundTrip_Comment(t *testing.T) {
	samples := randomSamples(1, 8*8, 8)
	data := encodeSamples(t, samples, 8, 8, &Encoder{Precision: 8, Comment: "magic lantern"})
	assert.True(t, bytes.Contains(data, []byte("magic lantern")))
	assert.Equal(t, samples, decodeAll(t, data))
}

// TestRoundTrip8 tests encode/decode roundtrip for 8-bit images
func TestRoundTrip8(t *testing.T) {
	width, height := 64, 64
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, nil))
	t.Logf("Encoded size: %d bytes", buf.Len())

	cfg, err := DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, width, cfg.Width)
	assert.Equal(t, color.GrayModel, cfg.ColorModel)

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray)
	require.True(t, ok, "expected *image.Gray, got %T", decoded)
	assert.Equal(t, img.Pix, gray.Pix)
}

// TestRoundTrip16 tests with a CT-like 16-bit pattern
func TestRoundTrip16(t *testing.T) {
	width, height := 312, 312
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dist := (x-width/2)*(x-width/2) + (y-height/2)*(y-height/2)
			img.SetGray16(x, y, color.Gray16{Y: uint16(16000 - dist%8000)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, &Encoder{Predictor: 6}))
	origSize := width * height * 2
	t.Logf("Original: %d bytes, Compressed: %d bytes, Ratio: %.2fx", origSize, buf.Len(), float64(origSize)/float64(buf.Len()))

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray16)
	require.True(t, ok, "expected *image.Gray16, got %T", decoded)
	assert.Equal(t, img.Pix, gray.Pix)
}

func TestEncode_SubImage(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	sub := img.SubImage(image.Rect(2, 3, 7, 8)).(*image.Gray16)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sub, nil))
	decoded, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 5, 5), decoded.Bounds())
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			assert.Equal(t, sub.Gray16At(x+2, y+3), decoded.(*image.Gray16).Gray16At(x, y))
		}
	}
}

func TestEncode_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeSamples(&buf, []uint16{1, 2}, 2, 2, nil), "too few samples")
	assert.Error(t, EncodeSamples(&buf, []uint16{256}, 1, 1, &Encoder{Precision: 8}), "sample too wide")
	assert.Error(t, EncodeSamples(&buf, []uint16{0}, 1, 1, &Encoder{Precision: 1}))
	assert.Error(t, EncodeSamples(&buf, []uint16{0}, 1, 1, &Encoder{Precision: 8, PointTransform: 8}))
	assert.Error(t, EncodeSamples(&buf, nil, 0, 0, nil))
	assert.Error(t, EncodeSamples(&buf, make([]uint16, 70000), 70000, 1, nil))
}
