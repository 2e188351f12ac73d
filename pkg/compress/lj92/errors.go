package lj92

import (
	"errors"
	"fmt"
	"io"
)

// Error kinds returned by Open and Decode. Callers match them with errors.Is;
// returned errors carry additional context around one of these.
var (
	// ErrCorrupt covers malformed marker sequences, truncated segments,
	// inconsistent Huffman tables, bitstreams that run out before the last
	// sample and out-of-range geometry.
	ErrCorrupt = errors.New("lj92: corrupt data")
	// ErrCorruptTable is a Huffman table that cannot be built. It is also an ErrCorrupt.
	ErrCorruptTable = fmt.Errorf("%w: bad huffman table", ErrCorrupt)
	// ErrNoMemory means the frame exceeds the decoder's allocation budget.
	ErrNoMemory = errors.New("lj92: frame exceeds allocation budget")
	// ErrBadHandle is returned when a nil or closed Decoder is used.
	ErrBadHandle = errors.New("lj92: bad handle")
	// ErrUnsupportedPredictor is a scan predictor selector outside 0-7.
	ErrUnsupportedPredictor = errors.New("lj92: unsupported predictor")
	// ErrShortTarget means the output buffer cannot hold the strided frame.
	ErrShortTarget = fmt.Errorf("lj92: target too small: %w", io.ErrShortBuffer)
)

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...)
}
