package lj92

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
)

// Encoder holds encoding options. A nil *Encoder uses the defaults.
type Encoder struct {
	// Predictor selection (1-7, default 1)
	Predictor int
	// Point transform (0 for lossless)
	PointTransform int
	// Precision in bits per sample (2-16). Zero means 8 for *image.Gray
	// and 16 for everything else.
	Precision int
	// RestartRows inserts a restart marker every RestartRows rows (0 for none).
	RestartRows int
	// Comment is written as a COM segment when set.
	Comment string
}

// Encode writes img to w as a single component lossless JPEG.
func Encode(w io.Writer, img image.Image, opts *Encoder) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	precision := 16
	if _, ok := img.(*image.Gray); ok {
		precision = 8
	}
	if opts != nil && opts.Precision != 0 {
		precision = opts.Precision
	}

	samples := make([]uint16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			samples[y*width+x] = pixel(img, bounds.Min.X+x, bounds.Min.Y+y, precision)
		}
	}
	o := Encoder{}
	if opts != nil {
		o = *opts
	}
	o.Precision = precision
	return EncodeSamples(w, samples, width, height, &o)
}

func pixel(img image.Image, x, y, precision int) uint16 {
	switch g := img.(type) {
	case *image.Gray16:
		return g.Gray16At(x, y).Y
	case *image.Gray:
		return uint16(g.GrayAt(x, y).Y)
	default:
		r, _, _, _ := img.At(x, y).RGBA()
		return uint16(r >> (16 - precision))
	}
}

// EncodeSamples writes width*height samples in raster order to w.
func EncodeSamples(w io.Writer, samples []uint16, width, height int, opts *Encoder) error {
	e := &encoder{predictor: 1, precision: 16, width: width, height: height}
	if opts != nil {
		if opts.Predictor >= 1 && opts.Predictor <= 7 {
			e.predictor = opts.Predictor
		}
		if opts.Precision != 0 {
			e.precision = opts.Precision
		}
		e.pointTrans = opts.PointTransform
		e.restartRows = opts.RestartRows
		e.comment = opts.Comment
	}
	return e.encode(w, samples)
}

type encoder struct {
	predictor   int
	pointTrans  int
	precision   int
	width       int
	height      int
	restartRows int
	comment     string
}

// residual is one coded difference: its category and additional bits.
type residual struct {
	ssss uint8
	bits uint16
}

func (e *encoder) validate(samples []uint16) error {
	switch {
	case e.width < 1 || e.width > 0xFFFF || e.height < 1 || e.height > 0xFFFF:
		return fmt.Errorf("lj92: cannot encode %dx%d", e.width, e.height)
	case e.precision < 2 || e.precision > 16:
		return fmt.Errorf("lj92: precision %d out of range", e.precision)
	case e.pointTrans < 0 || e.pointTrans >= e.precision:
		return fmt.Errorf("lj92: point transform %d for precision %d", e.pointTrans, e.precision)
	case e.predictor < 0 || e.predictor > 7:
		return fmt.Errorf("%w: %d", ErrUnsupportedPredictor, e.predictor)
	case e.restartRows < 0 || e.restartRows*e.width > 0xFFFF:
		return fmt.Errorf("lj92: restart interval of %d rows too large", e.restartRows)
	case len(samples) < e.width*e.height:
		return fmt.Errorf("lj92: %d samples for %dx%d", len(samples), e.width, e.height)
	}
	for i, s := range samples[:e.width*e.height] {
		if int(s)>>e.precision != 0 {
			return fmt.Errorf("lj92: sample %d value %d exceeds %d bits", i, s, e.precision)
		}
	}
	return nil
}

func (e *encoder) encode(w io.Writer, samples []uint16) error {
	if err := e.validate(samples); err != nil {
		return err
	}
	residuals, freq := e.residuals(samples)
	spec := optimalTable(freq)
	codes, sizes, err := canonicalCodes(spec)
	if err != nil {
		return err
	}
	var ehufco [maxSSSS + 1]uint16
	var ehufsi [maxSSSS + 1]uint8
	for k, sym := range spec.symbols {
		ehufco[sym] = codes[k]
		ehufsi[sym] = sizes[k]
	}

	bw := &bitWriter{w: bufio.NewWriter(w)}
	bw.marker(markerSOI)
	if e.comment != "" {
		bw.segment(markerCOM, []byte(e.comment))
	}
	bw.segment(markerSOF3, []byte{
		byte(e.precision),
		byte(e.height >> 8), byte(e.height),
		byte(e.width >> 8), byte(e.width),
		1,          // components
		1, 0x11, 0, // id, sampling, unused quantization table
	})
	dht := []byte{0x00} // class 0, id 0
	for l := 1; l <= maxCodeLength; l++ {
		dht = append(dht, byte(spec.counts[l]))
	}
	bw.segment(markerDHT, append(dht, spec.symbols...))
	if e.restartRows > 0 {
		interval := e.restartRows * e.width
		bw.segment(markerDRI, []byte{byte(interval >> 8), byte(interval)})
	}
	bw.segment(markerSOS, []byte{
		1,    // components
		1, 0, // id, table 0
		byte(e.predictor),
		0, // Se
		byte(e.pointTrans),
	})

	for i, r := range residuals {
		if e.restartRows > 0 && i > 0 && i%(e.restartRows*e.width) == 0 {
			bw.flush()
			bw.marker(markerRST0 + byte(i/(e.restartRows*e.width)-1)%8)
		}
		bw.writeBits(int(ehufco[r.ssss]), int(ehufsi[r.ssss]))
		bw.writeBits(int(r.bits), int(r.ssss))
	}
	bw.flush()
	bw.marker(markerEOI)
	if bw.err != nil {
		return bw.err
	}
	return bw.w.Flush()
}

// residuals predicts every sample the way the decoder will and returns the
// coded differences and the frequency of each category.
func (e *encoder) residuals(samples []uint16) ([]residual, [maxSSSS + 1]int) {
	var freq [maxSSSS + 1]int
	w := e.width
	out := make([]residual, 0, w*e.height)
	pt := uint(e.pointTrans)
	val := func(i int) int { return int(samples[i] >> pt) }
	seed := 1 << (e.precision - e.pointTrans - 1)

	for row := 0; row < e.height; row++ {
		first := row == 0 || (e.restartRows > 0 && row%e.restartRows == 0)
		for col := 0; col < w; col++ {
			i := row*w + col
			var px int
			switch {
			case first && col == 0:
				px = seed
			case first:
				px = val(i - 1)
			case col == 0:
				px = val(i - w)
			default:
				px = predict(e.predictor, val(i-1), val(i-w), val(i-w-1))
			}
			diff := int(int16(uint16(val(i) - px)))
			ssss := category(diff)
			if diff < 0 {
				diff += 1<<ssss - 1
			}
			freq[ssss]++
			out = append(out, residual{ssss: uint8(ssss), bits: uint16(diff)})
		}
	}
	return out, freq
}

// optimalTable builds a Huffman table for the category frequencies following
// T.81 Annex K.2: code sizes from the merge procedure, limited to 16 bits,
// with one extra symbol reserved so no code is all ones.
func optimalTable(freq [maxSSSS + 1]int) *huffmanSpec {
	const reserved = maxSSSS + 1
	var f [reserved + 1]int
	copy(f[:], freq[:])
	f[reserved] = 1

	var codesize, others [reserved + 1]int
	for i := range others {
		others[i] = -1
	}
	for {
		v1, v2 := -1, -1
		for i := range f {
			if f[i] > 0 && (v1 < 0 || f[i] <= f[v1]) {
				v1 = i
			}
		}
		for i := range f {
			if i != v1 && f[i] > 0 && (v2 < 0 || f[i] <= f[v2]) {
				v2 = i
			}
		}
		if v2 < 0 {
			break
		}
		f[v1] += f[v2]
		f[v2] = 0
		codesize[v1]++
		for others[v1] >= 0 {
			v1 = others[v1]
			codesize[v1]++
		}
		others[v1] = v2
		codesize[v2]++
		for others[v2] >= 0 {
			v2 = others[v2]
			codesize[v2]++
		}
	}

	var bits [2*maxCodeLength + 1]int
	for _, size := range codesize {
		if size > 0 {
			bits[size]++
		}
	}
	for i := len(bits) - 1; i > maxCodeLength; i-- {
		for bits[i] > 0 {
			j := i - 2
			for bits[j] == 0 {
				j--
			}
			bits[i] -= 2
			bits[i-1]++
			bits[j+1] += 2
			bits[j]--
		}
	}
	i := maxCodeLength
	for bits[i] == 0 {
		i--
	}
	bits[i]-- // the reserved code

	spec := &huffmanSpec{}
	copy(spec.counts[1:], bits[1:maxCodeLength+1])
	for size := 1; size < len(bits); size++ {
		for sym := 0; sym <= maxSSSS; sym++ {
			if codesize[sym] == size {
				spec.symbols = append(spec.symbols, byte(sym))
			}
		}
	}
	return spec
}

// bitWriter writes entropy coded data with byte stuffing. The first write
// error sticks and turns later writes into no-ops.
type bitWriter struct {
	w   *bufio.Writer
	acc uint32
	n   int
	err error
}

func (b *bitWriter) writeByte(c byte) {
	if b.err == nil {
		b.err = b.w.WriteByte(c)
	}
}

func (b *bitWriter) writeBits(v, n int) {
	if n == 0 {
		return
	}
	b.acc = b.acc<<n | uint32(v)&(1<<n-1)
	b.n += n
	for b.n >= 8 {
		b.n -= 8
		c := byte(b.acc >> b.n)
		b.writeByte(c)
		if c == 0xFF {
			b.writeByte(0x00)
		}
	}
	b.acc &= 1<<b.n - 1
}

// flush pads the last partial byte with ones.
func (b *bitWriter) flush() {
	if b.n > 0 {
		b.writeBits(1<<(8-b.n)-1, 8-b.n)
	}
}

func (b *bitWriter) marker(m byte) {
	b.writeByte(0xFF)
	b.writeByte(m)
}

func (b *bitWriter) segment(m byte, payload []byte) {
	if len(payload)+2 > 0xFFFF {
		if b.err == nil {
			b.err = errors.New("lj92: segment too long")
		}
		return
	}
	b.marker(m)
	length := len(payload) + 2
	b.writeByte(byte(length >> 8))
	b.writeByte(byte(length))
	if b.err == nil {
		_, b.err = b.w.Write(payload)
	}
}
