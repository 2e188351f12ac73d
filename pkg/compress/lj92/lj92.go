// Package lj92 implements the lossless JPEG (ITU-T T.81 process 14, SOF3)
// profile used for raw camera sensor data: one Huffman table, one scan,
// predictors 0-7 and 2 to 16 bits per sample.
//
// A Decoder borrows the caller's input for its whole lifetime and writes
// samples only into caller supplied buffers. Decoders are independent, so
// frames can be decoded on separate goroutines, but a single Decoder must not
// be used concurrently.
package lj92

import (
	"fmt"
	"log/slog"
)

// DefaultMaxPixels bounds the frame size a Decoder will accept.
const DefaultMaxPixels = 1 << 28

// Header is the frame and scan geometry found by Open.
type Header struct {
	Width           int
	Height          int
	Precision       int // bits per sample, 2..16
	Components      int // as declared by the frame header, not interpreted
	Predictor       int // 0..7
	PointTransform  int
	RestartInterval int // samples per restart interval, 0 if none
}

// Target describes where Decode writes samples. Sample i of the frame (in
// raster order) lands at Samples[i + (i/WriteLength)*SkipLength], which lets a
// frame be written into a wider or interleaved destination.
type Target struct {
	Samples []uint16
	// WriteLength is the number of samples written before skipping.
	// Zero means the frame width.
	WriteLength int
	// SkipLength is the number of destination samples skipped after each
	// WriteLength run.
	SkipLength int
	// Linearize, when non-empty, maps every decoded sample before it is
	// stored. Samples past the end of the table use its last entry.
	Linearize []uint16
	// FillDeadPixels replaces decoded zeros with the previous stored sample.
	FillDeadPixels bool
}

// Option configures Open.
type Option func(*config)

type config struct {
	tableKind tableKind
	maxPixels int
}

// WithSteppedHuffman decodes codes bit by bit with the min/max code tables
// instead of the direct lookup table.
func WithSteppedHuffman() Option {
	return func(c *config) { c.tableKind = steppedDecode }
}

// WithMaxPixels sets the largest Width*Height Open accepts.
func WithMaxPixels(n int) Option {
	return func(c *config) { c.maxPixels = n }
}

// Decoder is an open lossless JPEG stream.
type Decoder struct {
	data      []byte
	header    Header
	table     symbolDecoder
	scanStart int
	hasScan   bool
	rows      [2][]uint16
	br        bitReader
	closed    bool
}

// Open parses the header segments of data up to the first scan, builds the
// Huffman table and allocates the decoder's working rows. data must stay
// unmodified until the Decoder is closed.
func Open(data []byte, opts ...Option) (*Decoder, error) {
	cfg := config{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &parser{data: data}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if !p.frame {
		return nil, corruptf("no frame header before end of image")
	}
	h := p.header
	if pixels := h.Width * h.Height; pixels > cfg.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoMemory, h.Width, h.Height)
	}

	d := &Decoder{
		data:      data,
		header:    h,
		scanStart: p.scanStart,
		hasScan:   p.state == scanFound,
	}
	if d.hasScan {
		table, err := buildDecoder(p.table, cfg.tableKind)
		if err != nil {
			return nil, err
		}
		d.table = table
		if h.RestartInterval%h.Width != 0 {
			return nil, corruptf("restart interval %d is not a multiple of width %d", h.RestartInterval, h.Width)
		}
	} else {
		slog.Debug("lj92: end of image before scan", slog.Int("width", h.Width), slog.Int("height", h.Height))
	}
	d.rows[0] = make([]uint16, h.Width)
	d.rows[1] = make([]uint16, h.Width)
	return d, nil
}

// Header returns the parsed geometry.
func (d *Decoder) Header() Header {
	if d == nil {
		return Header{}
	}
	return d.header
}

// Decode decodes the scan into t. It can be called repeatedly; every call
// starts again from the beginning of the scan. On error the contents of
// t.Samples are unspecified.
func (d *Decoder) Decode(t Target) error {
	if d == nil || d.closed {
		return ErrBadHandle
	}
	if !d.hasScan {
		return corruptf("no scan in stream")
	}
	writeLen := t.WriteLength
	if writeLen == 0 {
		writeLen = d.header.Width
	}
	if writeLen < 0 || t.SkipLength < 0 {
		return fmt.Errorf("lj92: invalid stride %d/%d", t.WriteLength, t.SkipLength)
	}
	pixels := d.header.Width * d.header.Height
	need := pixels + (pixels-1)/writeLen*t.SkipLength
	if len(t.Samples) < need {
		return fmt.Errorf("%w: need %d samples, have %d", ErrShortTarget, need, len(t.Samples))
	}
	return d.decodeScan(&t, writeLen)
}

// Close releases the table and working rows. Closing a nil or already
// closed Decoder does nothing.
func (d *Decoder) Close() error {
	if d == nil || d.closed {
		return nil
	}
	d.closed = true
	d.data = nil
	d.table = nil
	d.rows = [2][]uint16{}
	d.br = bitReader{}
	return nil
}
