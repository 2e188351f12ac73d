package lj92

// predict returns Px for the given selector from the reconstructed left (Ra),
// above (Rb) and above-left (Rc) samples. Row and column edges are handled
// by the caller.
func predict(selector, ra, rb, rc int) int {
	switch selector {
	case 1:
		return ra
	case 2:
		return rb
	case 3:
		return rc
	case 4:
		return ra + rb - rc
	case 5:
		return ra + (rb-rc)>>1
	case 6:
		return rb + (ra-rc)>>1
	case 7:
		return (ra + rb) >> 1
	default:
		return 0
	}
}

// extend converts t additional bits v into a signed difference (T.81 F.2.2.1).
func extend(v, t int) int {
	if t == 0 {
		return 0
	}
	if v < 1<<(t-1) {
		return v + (-1 << t) + 1
	}
	return v
}

// category returns the SSSS magnitude category of a difference.
func category(diff int) int {
	if diff < 0 {
		diff = -diff
	}
	ssss := 0
	for diff > 0 {
		diff >>= 1
		ssss++
	}
	return ssss
}
