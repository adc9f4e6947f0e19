package mask

import (
	"math"
	"sort"

	"github.com/mapwright/roomcarve/internal/geometry"
)

// RasterizePolygon fills a closed polygon into a new mask of the given
// size using even-odd scanline filling.
//
// The polygon is given in normalized world coordinates; bounds defines the
// rectangle the pixel grid maps onto. Each pixel is classified by testing
// its center against the polygon, so sub-pixel slivers may drop out.
//
// Polygons with fewer than 3 points produce an empty (all-zero) mask;
// this happens constantly mid-gesture and is not an error.
func RasterizePolygon(poly []geometry.Point, width, height int, bounds geometry.Bounds) *RoomMask {
	m := New(width, height, bounds)
	if len(poly) < 3 || width == 0 || height == 0 {
		return m
	}
	bw, bh := m.Bounds.Width(), m.Bounds.Height()
	if bw <= 0 || bh <= 0 {
		return m
	}

	xs := make([]float64, 0, 8)
	for y := 0; y < height; y++ {
		wy := m.Bounds.MinY + (float64(y)+0.5)/float64(height)*bh

		// Collect X crossings of the scanline with every polygon edge.
		xs = xs[:0]
		for i := range poly {
			a := poly[i]
			b := poly[(i+1)%len(poly)]
			if (a.Y <= wy) == (b.Y <= wy) {
				continue
			}
			t := (wy - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+t*(b.X-a.X))
		}
		if len(xs) < 2 {
			continue
		}
		sort.Float64s(xs)

		// Even-odd: fill pixels whose centers fall between alternating
		// crossing pairs.
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil((xs[i]-m.Bounds.MinX)/bw*float64(width) - 0.5))
			x1 := int(math.Floor((xs[i+1]-m.Bounds.MinX)/bw*float64(width) - 0.5))
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= width {
				x1 = width - 1
			}
			for x := x0; x <= x1; x++ {
				m.Data[y*width+x] = 255
			}
		}
	}
	return m
}
