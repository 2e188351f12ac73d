package lj92

// bitReader pulls bits MSB first from the entropy coded part of a scan.
// 0xFF 0x00 yields one 0xFF data byte. 0xFF followed by anything else, or a
// trailing 0xFF, ends the data: nothing at or after it is ever read.
type bitReader struct {
	data []byte
	pos  int // next byte to ingest

	acc  uint64 // low n bits are valid
	n    int
	done bool // marker or end of input reached
}

func newBitReader(data []byte, pos int) *bitReader {
	return &bitReader{data: data, pos: pos}
}

// reset rewinds the reader to pos and drops any buffered bits.
func (b *bitReader) reset(pos int) {
	b.pos = pos
	b.acc = 0
	b.n = 0
	b.done = false
}

// fill ingests bytes until at least want bits are buffered or the data ends.
func (b *bitReader) fill(want int) {
	for b.n < want && b.n <= 56 && !b.done {
		if b.pos >= len(b.data) {
			b.done = true
			return
		}
		c := b.data[b.pos]
		if c == 0xFF {
			if b.pos+1 >= len(b.data) || b.data[b.pos+1] != 0x00 {
				// marker, leave pos on the 0xFF
				b.done = true
				return
			}
			b.pos++ // stuffed zero
		}
		b.pos++
		b.acc = b.acc<<8 | uint64(c)
		b.n += 8
	}
}

// peek returns the next k bits without consuming them. Bits past the end of
// the data read as zero.
func (b *bitReader) peek(k int) int {
	if b.n < k {
		b.fill(k)
	}
	if b.n >= k {
		return int(b.acc>>(b.n-k)) & (1<<k - 1)
	}
	return int(b.acc<<(k-b.n)) & (1<<k - 1)
}

// consume drops k bits. Dropping bits that were never delivered means the
// scan is truncated.
func (b *bitReader) consume(k int) error {
	if b.n < k {
		b.fill(k)
		if b.n < k {
			return corruptf("bitstream exhausted at byte %d", b.pos)
		}
	}
	b.n -= k
	b.acc &= 1<<b.n - 1
	return nil
}

// readBits consumes and returns the next k bits, k <= 16.
func (b *bitReader) readBits(k int) (int, error) {
	if k == 0 {
		return 0, nil
	}
	v := b.peek(k)
	if err := b.consume(k); err != nil {
		return 0, err
	}
	return v, nil
}

// align drops the bits left in the current byte.
func (b *bitReader) align() {
	b.n -= b.n % 8
	b.acc &= 1<<b.n - 1
}

// restart expects RSTn, n = index%8, at the current position and resumes
// after it.
func (b *bitReader) restart(index int) error {
	b.align()
	if b.n != 0 {
		return corruptf("restart marker expected at byte %d, %d bits pending", b.pos, b.n)
	}
	if b.pos+1 >= len(b.data) || b.data[b.pos] != 0xFF || b.data[b.pos+1]&0xF8 != markerRST0 {
		return corruptf("restart marker missing at byte %d", b.pos)
	}
	if got, want := b.data[b.pos+1], markerRST0+byte(index%8); got != want {
		return corruptf("restart marker RST%d out of sequence at byte %d, want RST%d", got-markerRST0, b.pos, want-markerRST0)
	}
	b.pos += 2
	b.done = false
	return nil
}
