package mask

import (
	"math"

	"github.com/mapwright/roomcarve/internal/geometry"
)

// SignedDistanceField holds per-pixel distances to the nearest region
// boundary, in pixel units. Values are negative inside the region and
// positive outside.
type SignedDistanceField struct {
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Bounds geometry.Bounds `json:"bounds"`
	Values []float64       `json:"-"`
}

// BuildSignedDistanceField computes a signed distance field from the
// mask's binary view with a two-pass chamfer transform (weights 1 and √2,
// accurate to a few percent, enough for proximity tests and falloff).
func BuildSignedDistanceField(m *RoomMask) *SignedDistanceField {
	sdf := &SignedDistanceField{
		Width:  m.Width,
		Height: m.Height,
		Bounds: m.Bounds,
		Values: make([]float64, len(m.Data)),
	}
	if m.Width == 0 || m.Height == 0 {
		return sdf
	}

	inside := make([]bool, len(m.Data))
	for i, v := range m.Data {
		inside[i] = v >= coverageThreshold
	}

	distIn := chamfer(inside, m.Width, m.Height, false)
	distOut := chamfer(inside, m.Width, m.Height, true)
	for i := range sdf.Values {
		if inside[i] {
			sdf.Values[i] = -distIn[i]
		} else {
			sdf.Values[i] = distOut[i]
		}
	}
	return sdf
}

// chamfer returns per-pixel distance to the nearest pixel whose inside
// flag equals target. Two raster sweeps with weights 1 (axis) and √2
// (diagonal).
func chamfer(inside []bool, w, h int, target bool) []float64 {
	const inf = math.MaxFloat64 / 4
	d := make([]float64, len(inside))
	for i := range d {
		if inside[i] == target {
			d[i] = 0
		} else {
			d[i] = inf
		}
	}
	at := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return inf
		}
		return d[y*w+x]
	}
	sqrt2 := math.Sqrt2

	// Forward pass: top-left neighbors.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := d[y*w+x]
			v = math.Min(v, at(x-1, y)+1)
			v = math.Min(v, at(x, y-1)+1)
			v = math.Min(v, at(x-1, y-1)+sqrt2)
			v = math.Min(v, at(x+1, y-1)+sqrt2)
			d[y*w+x] = v
		}
	}
	// Backward pass: bottom-right neighbors.
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			v := d[y*w+x]
			v = math.Min(v, at(x+1, y)+1)
			v = math.Min(v, at(x, y+1)+1)
			v = math.Min(v, at(x+1, y+1)+sqrt2)
			v = math.Min(v, at(x-1, y+1)+sqrt2)
			d[y*w+x] = v
		}
	}
	return d
}
