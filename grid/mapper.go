package grid

import "math"

// maxRatio is 1 - 2^-52, one machine epsilon below 1, so a ratio on the
// max edge floors into the last cell
const maxRatio = 1 - 0x1p-52

// saturate clamps a bounds-relative ratio into [0, maxRatio]. NaN maps to 0.
func saturate(r float64) float64 {
	if !(r > 0) {
		return 0
	}
	if r > maxRatio {
		return maxRatio
	}
	return r
}

func cellIndex(ratio float64, cells int) int {
	i := int(math.Floor(saturate(ratio) * float64(cells)))
	if i >= cells {
		i = cells - 1
	}
	return i
}

// nonNegative maps negative and NaN sizes to zero
func nonNegative(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return v
}

// IndexRectFor returns the inclusive cell rectangle covered by a box centered
// on pos with the given full extents. Boxes on or beyond the bounds clamp onto
// the border cells, so the result is always a non-empty rectangle inside the
// grid. Negative extents are treated as zero.
func IndexRectFor(b Bounds, d Dimensions, pos Vec2, ext Extents) IndexRect {
	width, height := nonNegative(ext.Width), nonNegative(ext.Height)
	minX := pos.X - width/2 - b.XMin
	minY := pos.Y - height/2 - b.YMin
	maxX := minX + width
	maxY := minY + height
	w, h := b.Width(), b.Height()
	return IndexRect{
		XMin: cellIndex(minX/w, d.CellsX),
		YMin: cellIndex(minY/h, d.CellsY),
		XMax: cellIndex(maxX/w, d.CellsX),
		YMax: cellIndex(maxY/h, d.CellsY),
	}
}
