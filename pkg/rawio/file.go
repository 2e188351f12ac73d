package rawio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ZstdExt marks paths whose content is zstd compressed.
const ZstdExt = ".zst"

// Create opens path for writing, compressing when it ends in .zst.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ZstdExt) {
		return f, nil
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &zstdFile{Encoder: enc, f: f}, nil
}

type zstdFile struct {
	*zstd.Encoder
	f *os.File
}

func (z *zstdFile) Close() error {
	if err := z.Encoder.Close(); err != nil {
		z.f.Close()
		return err
	}
	return z.f.Close()
}

// Decompress inflates data when it starts with the zstd frame magic and
// returns it unchanged otherwise.
func Decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte{0x28, 0xB5, 0x2F, 0xFD}) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// Compress zstd compresses data in one shot.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// ReadURI loads a whole input: "-" is stdin, http(s) URLs are fetched, file://
// and anything else is a local path. zstd content is inflated.
func ReadURI(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimPrefix(uri, "file://")
	var in io.Reader
	switch {
	case uri == "-":
		in = os.Stdin
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download %s: %s", uri, resp.Status)
		}
		in = resp.Body
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "rawio: read input", "uri", uri, "bytes", len(data))
	return Decompress(data)
}

// ReadFrame reads a PGM or TIFF frame, the format taken from the path.
func ReadFrame(ctx context.Context, path string) (*Frame, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := ReadURI(ctx, path)
	if err != nil {
		return nil, err
	}
	if format == TIFF {
		return ReadTIFF(bytes.NewReader(data))
	}
	return ReadPGM(bytes.NewReader(data))
}

// WriteFrame writes f to path in format, zstd compressed for .zst paths.
func WriteFrame(path string, format Format, f *Frame) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	switch format {
	case TIFF:
		err = WriteTIFF(w, f)
	default:
		err = WritePGM(w, f)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
