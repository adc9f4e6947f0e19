package livewire

import "math"

// DefaultPyramidDepth is the number of levels built when callers pass a
// non-positive depth. Five levels take a 1024-wide grid down to 64, where
// a full Dijkstra is trivial.
const DefaultPyramidDepth = 5

// Level is one resolution of the cost pyramid. Scale is the number of
// base-grid pixels one cell spans along each axis (1, 2, 4, ...).
type Level struct {
	Width  int
	Height int
	Data   []float64
	Scale  int
}

// CostPyramid is an ordered list of cost grids, finest first. Each level
// is a 2×2 box-downsample of the previous one.
type CostPyramid struct {
	Levels []Level
}

// BuildCostPyramid derives a movement-cost pyramid from a grayscale grid
// (values in [0,1]).
//
// The base cost is the local gradient magnitude: strong intensity
// transitions (drawn walls, furniture outlines) are expensive to cross,
// so traced paths stay inside low-gradient corridors. Gradient comes
// from a central finite difference, lightly smoothed with a 3×3 box so
// single-pixel speckle cannot raise a phantom wall. Every coarser level
// is a 2×2 box-downsample of the one below, doubling Scale; levels stop
// early once a dimension drops under 8.
func BuildCostPyramid(gray []float64, w, h, depth int) *CostPyramid {
	if depth <= 0 {
		depth = DefaultPyramidDepth
	}
	base := baseCost(gray, w, h)
	p := &CostPyramid{}
	data, cw, ch, scale := base, w, h, 1
	for level := 0; level < depth; level++ {
		p.Levels = append(p.Levels, Level{Width: cw, Height: ch, Data: data, Scale: scale})
		if cw < 8 || ch < 8 || level == depth-1 {
			break
		}
		data, cw, ch = downsample2(data, cw, ch)
		scale *= 2
	}
	return p
}

// FromCostGrid wraps an existing base cost grid (already in "lower is
// better" form, e.g. derived from an EdgeMap) into a pyramid.
func FromCostGrid(cost []float64, w, h, depth int) *CostPyramid {
	if depth <= 0 {
		depth = DefaultPyramidDepth
	}
	p := &CostPyramid{}
	data, cw, ch, scale := cost, w, h, 1
	for level := 0; level < depth; level++ {
		p.Levels = append(p.Levels, Level{Width: cw, Height: ch, Data: data, Scale: scale})
		if cw < 8 || ch < 8 || level == depth-1 {
			break
		}
		data, cw, ch = downsample2(data, cw, ch)
		scale *= 2
	}
	return p
}

// baseCost converts intensity to movement cost: the normalized, smoothed
// gradient magnitude plus a small constant floor so every step has
// nonzero cost and path length still matters on uniform regions.
func baseCost(gray []float64, w, h int) []float64 {
	grad := make([]float64, w*h)
	maxGrad := 0.0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := sample(gray, w, h, x+1, y) - sample(gray, w, h, x-1, y)
			gy := sample(gray, w, h, x, y+1) - sample(gray, w, h, x, y-1)
			g := math.Hypot(gx, gy)
			grad[y*w+x] = g
			if g > maxGrad {
				maxGrad = g
			}
		}
	}
	smoothed := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += sample(grad, w, h, x+kx, y+ky)
				}
			}
			smoothed[y*w+x] = sum / 9
		}
	}

	cost := make([]float64, w*h)
	for i, g := range smoothed {
		c := 0.01
		if maxGrad > 0 {
			c += g / maxGrad
		}
		cost[i] = c
	}
	return cost
}

func downsample2(src []float64, w, h int) ([]float64, int, int) {
	nw, nh := w/2, h/2
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	out := make([]float64, nw*nh)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			x0, y0 := x*2, y*2
			x1, y1 := x0+1, y0+1
			if x1 >= w {
				x1 = w - 1
			}
			if y1 >= h {
				y1 = h - 1
			}
			out[y*nw+x] = (src[y0*w+x0] + src[y0*w+x1] + src[y1*w+x0] + src[y1*w+x1]) / 4
		}
	}
	return out, nw, nh
}

func sample(grid []float64, w, h, x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return grid[y*w+x]
}
