package lj92

import (
	"fmt"
	"log/slog"
)

// JPEG marker codes (second byte after 0xFF)
const (
	markerSOF0  = 0xC0 // Baseline
	markerSOF3  = 0xC3 // Lossless (Huffman)
	markerDHT   = 0xC4 // Define Huffman Table
	markerJPG   = 0xC8 // Reserved
	markerSOF15 = 0xCF
	markerDAC   = 0xCC // Define Arithmetic Coding
	markerRST0  = 0xD0
	markerRST7  = 0xD7
	markerSOI   = 0xD8 // Start of Image
	markerEOI   = 0xD9 // End of Image
	markerSOS   = 0xDA // Start of Scan
	markerDRI   = 0xDD // Define Restart Interval
	markerAPP0  = 0xE0
	markerCOM   = 0xFE // Comment
	markerTEM   = 0x01
)

// parseState is the position of the header parser in the container.
type parseState int

const (
	seekStartOfImage parseState = iota
	parsingSegments
	scanFound
	endOfImage
)

// segment is a marker and the payload following its length field.
type segment struct {
	marker  byte
	payload []byte
}

// parser walks the marker segments ahead of the first scan.
type parser struct {
	data  []byte
	ix    int
	state parseState

	frame     bool
	header    Header
	tables    [4]*huffmanSpec
	table     *huffmanSpec // selected by the scan
	scanStart int
}

// nextMarker scans forward for 0xFF followed by a marker code. Fill bytes
// (0xFF 0xFF) and stuffed zeros are skipped.
func (p *parser) nextMarker() (byte, error) {
	for ix := p.ix; ix+1 < len(p.data); ix++ {
		if p.data[ix] != 0xFF {
			continue
		}
		c := p.data[ix+1]
		if c == 0x00 || c == 0xFF {
			continue
		}
		p.ix = ix + 2
		return c, nil
	}
	p.ix = len(p.data)
	return 0, corruptf("no marker found before end of data")
}

// readSegment returns the payload of a length-prefixed segment at the cursor
// and advances past it.
func (p *parser) readSegment(marker byte) (segment, error) {
	if p.ix+2 > len(p.data) {
		return segment{}, corruptf("marker 0x%02X: truncated length at %d", marker, p.ix)
	}
	length := int(p.data[p.ix])<<8 | int(p.data[p.ix+1])
	if length < 2 {
		return segment{}, corruptf("marker 0x%02X: bad length %d", marker, length)
	}
	if p.ix+length > len(p.data) {
		return segment{}, corruptf("marker 0x%02X: length %d runs past end of data", marker, length)
	}
	seg := segment{marker: marker, payload: p.data[p.ix+2 : p.ix+length]}
	p.ix += length
	return seg, nil
}

// parse runs until a scan header or EOI is found.
func (p *parser) parse() error {
	for {
		marker, err := p.nextMarker()
		if err != nil {
			return err
		}
		if p.state == seekStartOfImage {
			if marker != markerSOI {
				return corruptf("expected SOI, got 0x%02X", marker)
			}
			p.state = parsingSegments
			continue
		}

		switch {
		case marker == markerEOI:
			p.state = endOfImage
			return nil
		case marker == markerSOI, marker == markerTEM, marker >= markerRST0 && marker <= markerRST7:
			// standalone, no payload
			continue
		}

		seg, err := p.readSegment(marker)
		if err != nil {
			return err
		}
		switch {
		case marker == markerDHT:
			err = p.parseDHT(seg.payload)
		case marker == markerSOF3:
			err = p.parseSOF3(seg.payload)
		case marker == markerDRI:
			err = p.parseDRI(seg.payload)
		case marker == markerSOS:
			if err = p.parseSOS(seg.payload); err == nil {
				p.scanStart = p.ix
				p.state = scanFound
				return nil
			}
		case marker >= markerSOF0 && marker <= markerSOF15 && marker != markerJPG && marker != markerDAC:
			err = corruptf("unsupported frame type SOF%d", marker-markerSOF0)
		default:
			// COM, APPn and anything else with a length
			slog.Debug("lj92: skipped segment", slog.Int("marker", int(marker)), slog.Int("length", len(seg.payload)))
		}
		if err != nil {
			return err
		}
	}
}

func (p *parser) parseDHT(data []byte) error {
	offset := 0
	for offset < len(data) {
		if offset+17 > len(data) {
			return fmt.Errorf("%w: truncated DHT header", ErrCorruptTable)
		}
		tableClass := int(data[offset] >> 4)
		tableID := int(data[offset] & 0x0F)
		offset++

		spec := &huffmanSpec{}
		total := 0
		for i := 0; i < maxCodeLength; i++ {
			spec.counts[i+1] = int(data[offset+i])
			total += spec.counts[i+1]
		}
		offset += maxCodeLength
		if offset+total > len(data) {
			return fmt.Errorf("%w: %d symbols declared, %d bytes left", ErrCorruptTable, total, len(data)-offset)
		}
		spec.symbols = data[offset : offset+total]
		offset += total

		if tableClass != 0 {
			// lossless only uses DC tables
			continue
		}
		if tableID >= len(p.tables) {
			return fmt.Errorf("%w: table id %d", ErrCorruptTable, tableID)
		}
		if _, _, err := canonicalCodes(spec); err != nil {
			return fmt.Errorf("table %d: %w", tableID, err)
		}
		p.tables[tableID] = spec

		slog.Debug("lj92: DHT parsed",
			slog.Int("tableID", tableID),
			slog.Int("totalCodes", total),
			slog.Any("bits", spec.counts[1:]))
	}
	return nil
}

func (p *parser) parseSOF3(data []byte) error {
	if len(data) < 6 {
		return corruptf("SOF3 too short: %d bytes", len(data))
	}
	h := &p.header
	h.Precision = int(data[0])
	h.Height = int(data[1])<<8 | int(data[2])
	h.Width = int(data[3])<<8 | int(data[4])
	h.Components = int(data[5])
	if len(data) < 6+3*h.Components {
		return corruptf("SOF3 declares %d components in %d bytes", h.Components, len(data))
	}
	if h.Precision < 2 || h.Precision > 16 {
		return corruptf("precision %d out of range", h.Precision)
	}
	if h.Width == 0 || h.Height == 0 {
		return corruptf("bad geometry %dx%d", h.Width, h.Height)
	}
	p.frame = true

	slog.Debug("lj92: SOF3 parsed",
		slog.Int("precision", h.Precision),
		slog.Int("width", h.Width),
		slog.Int("height", h.Height),
		slog.Int("components", h.Components))
	return nil
}

func (p *parser) parseDRI(data []byte) error {
	if len(data) < 2 {
		return corruptf("DRI too short: %d bytes", len(data))
	}
	p.header.RestartInterval = int(data[0])<<8 | int(data[1])
	return nil
}

func (p *parser) parseSOS(data []byte) error {
	if !p.frame {
		return corruptf("scan before frame header")
	}
	if len(data) < 1 {
		return corruptf("SOS too short")
	}
	ns := int(data[0])
	if ns == 0 || len(data) < 1+2*ns+3 {
		return corruptf("SOS declares %d components in %d bytes", ns, len(data))
	}
	tableID := int(data[2] >> 4)
	if tableID >= len(p.tables) || p.tables[tableID] == nil {
		return fmt.Errorf("%w: scan references missing table %d", ErrCorruptTable, tableID)
	}
	p.table = p.tables[tableID]

	offset := 1 + 2*ns
	h := &p.header
	h.Predictor = int(data[offset])
	h.PointTransform = int(data[offset+2] & 0x0F)
	if h.Predictor > 7 {
		return fmt.Errorf("%w: %d", ErrUnsupportedPredictor, h.Predictor)
	}
	if h.PointTransform >= h.Precision {
		return corruptf("point transform %d for precision %d", h.PointTransform, h.Precision)
	}

	slog.Debug("lj92: SOS parsed",
		slog.Int("predictor", h.Predictor),
		slog.Int("pointTrans", h.PointTransform),
		slog.Int("numComponents", ns))
	return nil
}
