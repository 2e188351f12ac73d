package rawio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(maxValue uint16) *Frame {
	f := NewFrame(5, 3, maxValue)
	for i := range f.Samples {
		f.Samples[i] = uint16(i * 997 % (int(maxValue) + 1))
	}
	return f
}

func TestPGM_RoundTrip(t *testing.T) {
	for _, maxValue := range []uint16{0xFF, 0x3FFF, 0xFFFF} {
		f := testFrame(maxValue)
		var buf bytes.Buffer
		require.NoError(t, WritePGM(&buf, f))

		got, err := ReadPGM(&buf)
		require.NoError(t, err)
		assert.Equal(t, f, got, "max %d", maxValue)
	}
}

func TestReadPGM_Comments(t *testing.T) {
	raw := []byte("P5\n# made by hand\n2 1\n# depth\n1023\n\x01\x02\x03\xFF")
	f, err := ReadPGM(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, 1, f.Height)
	assert.Equal(t, uint16(1023), f.MaxValue)
	assert.Equal(t, []uint16{0x0102, 0x03FF}, f.Samples)
	assert.Equal(t, 10, f.Precision())
}

func TestReadPGM_Errors(t *testing.T) {
	for name, raw := range map[string]string{
		"ascii":     "P2\n1 1\n255\n0",
		"zero":      "P5\n0 1\n255\n",
		"deep":      "P5\n1 1\n70000\n\x00\x00",
		"truncated": "P5\n2 2\n255\n\x00",
		"garbage":   "P5\nx 1\n255\n\x00",
		"huge":      "P5\n100000 100000\n65535\n\x00\x00",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPGM(bytes.NewReader([]byte(raw)))
			assert.Error(t, err)
		})
	}
}

func TestReadPGM_LyingHeader(t *testing.T) {
	// within the pixel budget but far larger than the data supplied
	_, err := ReadPGM(bytes.NewReader([]byte("P5\n16000 16000\n65535\n\x00\x01\x02")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	defer func(n int) { MaxPixels = n }(MaxPixels)
	MaxPixels = 8
	_, err = ReadPGM(bytes.NewReader([]byte("P5\n3 3\n255\n012345678")))
	assert.ErrorContains(t, err, "exceeds")
	f, err := ReadPGM(bytes.NewReader([]byte("P5\n4 2\n255\n01234567")))
	require.NoError(t, err)
	assert.Len(t, f.Samples, 8)
}

func TestTIFF_RoundTrip(t *testing.T) {
	f := testFrame(0x3FFF)
	var buf bytes.Buffer
	require.NoError(t, WriteTIFF(&buf, f))

	got, err := ReadTIFF(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Width, got.Width)
	assert.Equal(t, f.Height, got.Height)
	assert.Equal(t, f.Samples, got.Samples)
}

func TestFromImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 10)
	}
	sub := gray.SubImage(image.Rect(1, 1, 3, 3))
	f := FromImage(sub)
	assert.Equal(t, uint16(0xFF), f.MaxValue)
	assert.Equal(t, []uint16{50, 60, 90, 100}, f.Samples)

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.White)
	assert.Equal(t, []uint16{0xFFFF}, FromImage(rgba).Samples)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.pgm":      PGM,
		"a.PGM.zst":  PGM,
		"b/c.tif":    TIFF,
		"c.tiff.zst": TIFF,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("a.png")
	assert.Error(t, err)
}

func TestWriteFrame_Zstd(t *testing.T) {
	dir := t.TempDir()
	f := testFrame(0xFFF)
	for _, name := range []string{"f.pgm", "f.pgm.zst", "f.tiff.zst"} {
		path := filepath.Join(dir, name)
		format, err := FormatOf(path)
		require.NoError(t, err)
		require.NoError(t, WriteFrame(path, format, f))

		got, err := ReadFrame(context.Background(), path)
		require.NoError(t, err, name)
		assert.Equal(t, f.Samples, got.Samples, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "f.pgm.zst"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, raw[:4])
}

func TestCompress(t *testing.T) {
	data := bytes.Repeat([]byte{0xFF, 0xD8, 0x00}, 100)
	packed, err := Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(data))

	plain, err := Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, data, plain)

	same, err := Decompress(data)
	require.NoError(t, err)
	assert.Equal(t, data, same)
}

func TestReadURI_HTTP(t *testing.T) {
	body := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/frame.lj92" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	got, err := ReadURI(context.Background(), srv.URL+"/frame.lj92")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = ReadURI(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestReadURI_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.lj92")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	got, err := ReadURI(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, err = ReadURI(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
