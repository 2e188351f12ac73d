package rawio

import (
	"bufio"
	"fmt"
	"io"
)

// ReadPGM reads a binary (P5) graymap. Max values above 255 use two big
// endian bytes per sample.
func ReadPGM(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	magic, err := pgmToken(br)
	if err != nil {
		return nil, err
	}
	if magic != "P5" {
		return nil, fmt.Errorf("rawio: not a binary pgm: %q", magic)
	}
	var dims [3]int
	for i := range dims {
		tok, err := pgmToken(br)
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Sscanf(tok, "%d", &dims[i]); err != nil {
			return nil, fmt.Errorf("rawio: bad pgm header field %q: %w", tok, err)
		}
	}
	width, height, maxValue := dims[0], dims[1], dims[2]
	if width <= 0 || height <= 0 || maxValue <= 0 || maxValue > 0xFFFF {
		return nil, fmt.Errorf("rawio: bad pgm header %dx%d max %d", width, height, maxValue)
	}

	if width > MaxPixels/height {
		return nil, fmt.Errorf("rawio: pgm %dx%d exceeds %d pixels", width, height, MaxPixels)
	}

	// samples grow with the rows actually read
	f := &Frame{Width: width, Height: height, MaxValue: uint16(maxValue)}
	f.Samples = make([]uint16, 0, min(width*height, 1<<20))
	size := 1
	if maxValue > 0xFF {
		size = 2
	}
	row := make([]byte, width*size)
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("rawio: pgm pixel data row %d: %w", y, err)
		}
		for x := 0; x < width; x++ {
			if size == 2 {
				f.Samples = append(f.Samples, uint16(row[2*x])<<8|uint16(row[2*x+1]))
			} else {
				f.Samples = append(f.Samples, uint16(row[x]))
			}
		}
	}
	return f, nil
}

// pgmToken returns the next header token, skipping comments, and consumes
// the single whitespace byte that ends it.
func pgmToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", fmt.Errorf("rawio: pgm header: %w", err)
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", fmt.Errorf("rawio: pgm comment: %w", err)
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

// WritePGM writes f as a binary graymap. A zero MaxValue writes 65535.
func WritePGM(w io.Writer, f *Frame) error {
	if err := f.validate(); err != nil {
		return err
	}
	maxValue := f.MaxValue
	if maxValue == 0 {
		maxValue = 0xFFFF
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P5\n%d %d\n%d\n", f.Width, f.Height, maxValue)
	for _, s := range f.Samples[:f.Width*f.Height] {
		if maxValue > 0xFF {
			bw.WriteByte(byte(s >> 8))
		}
		bw.WriteByte(byte(s))
	}
	return bw.Flush()
}
