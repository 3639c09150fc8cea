package img2ascii

import "math"

// Normalize maps an intensity grid onto [0, 1] using the grid's own
// minimum and maximum. A constant grid has no range; its denominator is
// taken as 1 so every cell becomes 0.
func Normalize(gray [][]uint8) [][]float64 {
	lo, hi := uint8(255), uint8(0)
	empty := true
	for _, row := range gray {
		for _, v := range row {
			empty = false
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	out := make([][]float64, len(gray))
	if empty {
		for y, row := range gray {
			out[y] = make([]float64, len(row))
		}
		return out
	}

	den := float64(hi) - float64(lo)
	if den == 0 {
		den = 1
	}
	for y, row := range gray {
		out[y] = make([]float64, len(row))
		for x, v := range row {
			n := (float64(v) - float64(lo)) / den
			out[y][x] = math.Min(math.Max(n, 0), 1)
		}
	}
	return out
}

// Quantize maps normalized values onto ramp indices in [0, levels-1]:
// each value is scaled by levels-1, rounded to the nearest integer and
// clamped. The clamp is always applied, so NaN or values outside [0, 1]
// still yield a valid index. levels below 1 are treated as 1.
func Quantize(norm [][]float64, levels int) [][]int {
	if levels < 1 {
		levels = 1
	}
	top := levels - 1

	out := make([][]int, len(norm))
	for y, row := range norm {
		out[y] = make([]int, len(row))
		for x, v := range row {
			out[y][x] = quantizeValue(v, top)
		}
	}
	return out
}

func quantizeValue(v float64, top int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return top
	}
	i := int(math.Round(v * float64(top)))
	if i < 0 {
		return 0
	}
	if i > top {
		return top
	}
	return i
}
