package lj92

import "fmt"

// maxCodeLength is the longest Huffman code the format allows.
const maxCodeLength = 16

// maxSSSS is the largest difference magnitude category.
const maxSSSS = 16

// symbolDecoder decodes the next SSSS symbol from the bitstream.
type symbolDecoder interface {
	decodeSymbol(br *bitReader) (int, error)
}

// huffmanSpec is one table definition as carried by a DHT segment:
// counts[l] codes of length l (1..16) and the symbols in code order.
type huffmanSpec struct {
	counts  [maxCodeLength + 1]int
	symbols []byte
}

// canonicalCodes assigns codes to the symbols of spec in canonical order,
// shortest codes first and consecutive within a length.
func canonicalCodes(spec *huffmanSpec) (codes []uint16, sizes []uint8, err error) {
	total := 0
	for l := 1; l <= maxCodeLength; l++ {
		total += spec.counts[l]
	}
	if total == 0 {
		return nil, nil, fmt.Errorf("%w: no symbols", ErrCorruptTable)
	}
	if total != len(spec.symbols) {
		return nil, nil, fmt.Errorf("%w: %d symbols for %d codes", ErrCorruptTable, len(spec.symbols), total)
	}
	codes = make([]uint16, 0, total)
	sizes = make([]uint8, 0, total)
	code := 0
	for l := 1; l <= maxCodeLength; l++ {
		for i := 0; i < spec.counts[l]; i++ {
			if code >= 1<<l {
				return nil, nil, fmt.Errorf("%w: codes of length %d overflow", ErrCorruptTable, l)
			}
			codes = append(codes, uint16(code))
			sizes = append(sizes, uint8(l))
			code++
		}
		code <<= 1
	}
	for _, s := range spec.symbols {
		if s > maxSSSS {
			return nil, nil, fmt.Errorf("%w: symbol %d is not a difference category", ErrCorruptTable, s)
		}
	}
	return codes, sizes, nil
}

// lutEntry is one direct lookup slot. length 0 marks a slot no code reaches.
type lutEntry struct {
	symbol uint8
	length uint8
}

// lutTable decodes by reading maxLen bits at once and indexing a table of
// 2^maxLen entries. Codes shorter than maxLen occupy every slot sharing their
// prefix, so the unused low bits are simply left in the stream.
type lutTable struct {
	maxLen int
	lut    []lutEntry
}

func newLUTTable(spec *huffmanSpec) (*lutTable, error) {
	codes, sizes, err := canonicalCodes(spec)
	if err != nil {
		return nil, err
	}
	maxLen := 0
	for l := maxCodeLength; l > 0; l-- {
		if spec.counts[l] > 0 {
			maxLen = l
			break
		}
	}
	t := &lutTable{maxLen: maxLen, lut: make([]lutEntry, 1<<maxLen)}
	for k, code := range codes {
		shift := maxLen - int(sizes[k])
		start := int(code) << shift
		e := lutEntry{symbol: spec.symbols[k], length: sizes[k]}
		for i := 0; i < 1<<shift; i++ {
			t.lut[start+i] = e
		}
	}
	return t, nil
}

func (t *lutTable) decodeSymbol(br *bitReader) (int, error) {
	e := t.lut[br.peek(t.maxLen)]
	if e.length == 0 {
		return 0, corruptf("invalid huffman code at byte %d", br.pos)
	}
	if err := br.consume(int(e.length)); err != nil {
		return 0, err
	}
	return int(e.symbol), nil
}

// steppedTable is the classical length by length decode (T.81 F.2.2.3):
// one bit at a time until the code falls inside the range of its length.
type steppedTable struct {
	minCode [maxCodeLength + 1]int
	maxCode [maxCodeLength + 1]int // -1 if no codes have this length
	valPtr  [maxCodeLength + 1]int
	symbols []byte
}

func newSteppedTable(spec *huffmanSpec) (*steppedTable, error) {
	codes, _, err := canonicalCodes(spec)
	if err != nil {
		return nil, err
	}
	t := &steppedTable{symbols: spec.symbols}
	j := 0
	for l := 1; l <= maxCodeLength; l++ {
		if spec.counts[l] == 0 {
			t.maxCode[l] = -1
			continue
		}
		t.valPtr[l] = j
		t.minCode[l] = int(codes[j])
		j += spec.counts[l]
		t.maxCode[l] = int(codes[j-1])
	}
	return t, nil
}

func (t *steppedTable) decodeSymbol(br *bitReader) (int, error) {
	code := 0
	for l := 1; l <= maxCodeLength; l++ {
		bit, err := br.readBits(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | bit
		if code <= t.maxCode[l] {
			return int(t.symbols[t.valPtr[l]+code-t.minCode[l]]), nil
		}
	}
	return 0, corruptf("invalid huffman code at byte %d", br.pos)
}

// tableKind selects the decode representation built from a table definition.
type tableKind int

const (
	lookupTable tableKind = iota
	steppedDecode
)

func buildDecoder(spec *huffmanSpec, kind tableKind) (symbolDecoder, error) {
	if kind == steppedDecode {
		return newSteppedTable(spec)
	}
	return newLUTTable(spec)
}
