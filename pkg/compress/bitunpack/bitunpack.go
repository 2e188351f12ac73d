// Package bitunpack expands bit packed raw sensor samples to 16 bits.
//
// Packed data is a stream of little endian 16-bit words read most significant
// bit first, the layout Magic Lantern uses for 10, 12 and 14-bit raw frames.
package bitunpack

import (
	"fmt"
)

// Stats are the smallest and largest sample seen while unpacking.
type Stats struct {
	Min uint16
	Max uint16
}

// Count returns the number of bits-wide samples held by n packed bytes. A
// trailing odd byte is half a word and carries no complete sample bits.
func Count(n, bits int) int {
	return n / 2 * 16 / bits
}

// Unpack14 unpacks 14-bit samples from src into dst.
func Unpack14(dst []uint16, src []byte) (int, Stats, error) {
	return Unpack(dst, src, 14)
}

// Unpack12 unpacks 12-bit samples from src into dst.
func Unpack12(dst []uint16, src []byte) (int, Stats, error) {
	return Unpack(dst, src, 12)
}

// Unpack unpacks bits-wide samples (1..16) from src into dst and returns how
// many were written. dst must hold Count(len(src), bits) samples.
func Unpack(dst []uint16, src []byte, bits int) (int, Stats, error) {
	if bits < 1 || bits > 16 {
		return 0, Stats{}, fmt.Errorf("bitunpack: unsupported sample width %d", bits)
	}
	count := Count(len(src), bits)
	if len(dst) < count {
		return 0, Stats{}, fmt.Errorf("bitunpack: need %d samples, have %d", count, len(dst))
	}

	stats := Stats{Min: 0xFFFF}
	mask := uint32(1)<<bits - 1
	var acc uint32
	n, out := 0, 0
	for i := 0; i+1 < len(src) && out < count; i += 2 {
		acc = acc<<16 | uint32(src[i]) | uint32(src[i+1])<<8
		n += 16
		for n >= bits && out < count {
			n -= bits
			s := uint16(acc >> n & mask)
			dst[out] = s
			out++
			stats.Min = min(stats.Min, s)
			stats.Max = max(stats.Max, s)
		}
		acc &= 1<<n - 1
	}
	if out == 0 {
		stats.Min = 0
	}
	return out, stats, nil
}

// Pack is the inverse of Unpack: it packs the low bits of every sample into
// little endian 16-bit words, zero padding the final word.
func Pack(samples []uint16, bits int) ([]byte, error) {
	if bits < 1 || bits > 16 {
		return nil, fmt.Errorf("bitunpack: unsupported sample width %d", bits)
	}
	total := len(samples) * bits
	out := make([]byte, 0, (total+15)/16*2)
	mask := uint32(1)<<bits - 1
	var acc uint32
	n := 0
	for _, s := range samples {
		acc = acc<<bits | uint32(s)&mask
		n += bits
		for n >= 16 {
			n -= 16
			w := uint16(acc >> n)
			out = append(out, byte(w), byte(w>>8))
		}
		acc &= 1<<n - 1
	}
	if n > 0 {
		w := uint16(acc << (16 - n))
		out = append(out, byte(w), byte(w>>8))
	}
	return out, nil
}
