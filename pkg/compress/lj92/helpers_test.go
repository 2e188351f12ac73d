package lj92

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildStream assembles a minimal container around hand written scan bytes.
func buildStream(precision, width, height, predictor int, counts []byte, symbols []byte, scan []byte) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, markerSOI})
	seg := func(m byte, payload []byte) {
		b.Write([]byte{0xFF, m, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)})
		b.Write(payload)
	}
	seg(markerSOF3, []byte{byte(precision), byte(height >> 8), byte(height), byte(width >> 8), byte(width), 1, 1, 0x11, 0})
	dht := []byte{0x00}
	c := make([]byte, 16)
	copy(c, counts)
	dht = append(dht, c...)
	seg(markerDHT, append(dht, symbols...))
	seg(markerSOS, []byte{1, 1, 0, byte(predictor), 0, 0})
	b.Write(scan)
	b.Write([]byte{0xFF, markerEOI})
	return b.Bytes()
}

func randomSamples(seed uint64, n, precision int) []uint16 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]uint16, n)
	for i := range out {
		out[i] = uint16(r.IntN(1 << precision))
	}
	return out
}

// smoothSamples is a gradient with a little noise, closer to sensor data.
func smoothSamples(width, height, precision int) []uint16 {
	r := rand.New(rand.NewPCG(7, 11))
	top := 1<<precision - 1
	out := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := (x*7 + y*13) % (top + 1)
			v += r.IntN(5) - 2
			v = min(max(v, 0), top)
			out[y*width+x] = uint16(v)
		}
	}
	return out
}

func encodeSamples(t *testing.T, samples []uint16, width, height int, opts *Encoder) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeSamples(&buf, samples, width, height, opts))
	return buf.Bytes()
}

func decodeAll(t *testing.T, data []byte, opts ...Option) []uint16 {
	t.Helper()
	d, err := Open(data, opts...)
	require.NoError(t, err)
	defer d.Close()
	h := d.Header()
	out := make([]uint16, h.Width*h.Height)
	require.NoError(t, d.Decode(Target{Samples: out}))
	return out
}
