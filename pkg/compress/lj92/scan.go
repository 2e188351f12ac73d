package lj92

// decodeScan reconstructs every sample of the frame into t.
func (d *Decoder) decodeScan(t *Target, writeLen int) error {
	h := d.header
	br := &d.br
	br.data = d.data
	br.reset(d.scanStart)

	seed := 1 << (h.Precision - h.PointTransform - 1)
	restartRows := h.RestartInterval / h.Width
	pt := uint(h.PointTransform)
	cur, prev := d.rows[0], d.rows[1]

	out, run := 0, 0
	var last uint16
	for row := 0; row < h.Height; row++ {
		first := row == 0
		if restartRows > 0 && row > 0 && row%restartRows == 0 {
			if err := br.restart(row/restartRows - 1); err != nil {
				return err
			}
			first = true
		}
		for col := 0; col < h.Width; col++ {
			ssss, err := d.table.decodeSymbol(br)
			if err != nil {
				return err
			}
			bits, err := br.readBits(ssss)
			if err != nil {
				return err
			}

			var px int
			switch {
			case first && col == 0:
				px = seed
			case first:
				px = int(cur[col-1])
			case col == 0:
				px = int(prev[0])
			default:
				px = predict(h.Predictor, int(cur[col-1]), int(prev[col]), int(prev[col-1]))
			}
			v := uint16(px + extend(bits, ssss))
			cur[col] = v

			s := v << pt
			if t.FillDeadPixels {
				if s == 0 {
					s = last
				}
				last = s
			}
			if n := len(t.Linearize); n > 0 {
				if int(s) < n {
					s = t.Linearize[s]
				} else {
					s = t.Linearize[n-1]
				}
			}
			t.Samples[out] = s
			out++
			if run++; run == writeLen {
				out += t.SkipLength
				run = 0
			}
		}
		cur, prev = prev, cur
	}
	return nil
}
