package livewire

import (
	"image"
	"math"
	"testing"
)

// corridorGrid builds a cost grid with a cheap horizontal corridor
// through expensive walls. Corridor rows span [y0,y1).
func corridorGrid(w, h, y0, y1 int) []float64 {
	cost := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y >= y0 && y < y1 {
				cost[y*w+x] = 0.01
			} else {
				cost[y*w+x] = 1000
			}
		}
	}
	return cost
}

func TestBuildCostPyramid(t *testing.T) {
	w, h := 128, 96
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= 64 {
				gray[y*w+x] = 1
			}
		}
	}
	p := BuildCostPyramid(gray, w, h, 0)
	if len(p.Levels) != DefaultPyramidDepth {
		t.Fatalf("levels = %d, want %d", len(p.Levels), DefaultPyramidDepth)
	}
	for i, lv := range p.Levels {
		wantScale := 1 << i
		if lv.Scale != wantScale {
			t.Errorf("level %d scale = %d, want %d", i, lv.Scale, wantScale)
		}
		if i > 0 {
			prev := p.Levels[i-1]
			if lv.Width != prev.Width/2 || lv.Height != prev.Height/2 {
				t.Errorf("level %d is %dx%d, prev %dx%d", i, lv.Width, lv.Height, prev.Width, prev.Height)
			}
		}
	}
	// The intensity step must be expensive at every level.
	base := p.Levels[0]
	if base.Data[48*base.Width+64] <= base.Data[48*base.Width+10] {
		t.Errorf("edge pixel not more expensive than flat pixel")
	}
}

func TestTraceStaysInCorridor(t *testing.T) {
	w, h := 64, 64
	cost := corridorGrid(w, h, 28, 36)
	p := FromCostGrid(cost, w, h, 4)

	start := image.Point{X: 4, Y: 30}
	end := image.Point{X: 60, Y: 33}
	for _, diag := range []bool{false, true} {
		path := Trace(p, start, end, diag)
		if len(path) == 0 {
			t.Fatalf("diag=%v: empty path", diag)
		}
		if path[0] != start || path[len(path)-1] != end {
			t.Errorf("diag=%v: endpoints %v..%v, want %v..%v", diag, path[0], path[len(path)-1], start, end)
		}
		for _, pt := range path {
			if pt.Y < 28 || pt.Y >= 36 {
				t.Errorf("diag=%v: path visits wall cell %v", diag, pt)
			}
		}
	}
}

func TestTraceFollowsBentCorridor(t *testing.T) {
	// L-shaped corridor: across the top, then down the right side. The
	// straight line between the endpoints crosses walls, so only a real
	// search finds the cheap route.
	w, h := 64, 64
	cost := make([]float64, w*h)
	for i := range cost {
		cost[i] = 1000
	}
	for x := 4; x < 60; x++ {
		for y := 4; y < 10; y++ {
			cost[y*w+x] = 0.01
		}
	}
	for y := 4; y < 60; y++ {
		for x := 54; x < 60; x++ {
			cost[y*w+x] = 0.01
		}
	}
	p := FromCostGrid(cost, w, h, 4)
	path := Trace(p, image.Point{X: 5, Y: 6}, image.Point{X: 57, Y: 58}, true)
	for _, pt := range path {
		if cost[pt.Y*w+pt.X] > 1 {
			t.Fatalf("path crosses wall at %v", pt)
		}
	}
}

func TestTraceNoDiagonalsIsAtLeastAsDeviant(t *testing.T) {
	// Disabling diagonals can only keep or worsen the maximum deviation
	// from the ideal diagonal; it must never shrink it.
	w, h := 48, 48
	cost := make([]float64, w*h)
	for i := range cost {
		cost[i] = 0.5
	}
	p := FromCostGrid(cost, w, h, 3)
	start := image.Point{X: 4, Y: 4}
	end := image.Point{X: 43, Y: 43}

	devWith := maxDiagDeviation(Trace(p, start, end, true), start, end)
	devWithout := maxDiagDeviation(Trace(p, start, end, false), start, end)
	if devWithout < devWith {
		t.Errorf("4-connected deviation %v < 8-connected %v", devWithout, devWith)
	}
}

// maxDiagDeviation measures the largest perpendicular distance of any
// path vertex from the straight start-end segment.
func maxDiagDeviation(path []image.Point, start, end image.Point) float64 {
	ex, ey := float64(end.X-start.X), float64(end.Y-start.Y)
	length := math.Hypot(ex, ey)
	maxDev := 0.0
	for _, p := range path {
		px, py := float64(p.X-start.X), float64(p.Y-start.Y)
		dev := math.Abs(px*ey-py*ex) / length
		if dev > maxDev {
			maxDev = dev
		}
	}
	return maxDev
}

func TestTraceUnreachableFallsBackToLine(t *testing.T) {
	// An impassable wall of +Inf cost splits the grid; the trace must
	// degrade to a straight line with pinned endpoints.
	w, h := 32, 32
	cost := make([]float64, w*h)
	for i := range cost {
		cost[i] = 0.1
	}
	for y := 0; y < h; y++ {
		cost[y*w+16] = math.Inf(1)
	}
	p := FromCostGrid(cost, w, h, 3)
	start := image.Point{X: 2, Y: 16}
	end := image.Point{X: 30, Y: 16}
	path := Trace(p, start, end, true)
	if path[0] != start || path[len(path)-1] != end {
		t.Fatalf("fallback endpoints %v..%v", path[0], path[len(path)-1])
	}
	// Straight horizontal line.
	for _, pt := range path {
		if pt.Y != 16 {
			t.Errorf("fallback line bent at %v", pt)
		}
	}
}

func TestTraceDegenerate(t *testing.T) {
	p := FromCostGrid(make([]float64, 16*16), 16, 16, 2)
	same := image.Point{X: 5, Y: 5}
	if path := Trace(p, same, same, true); len(path) != 1 || path[0] != same {
		t.Errorf("same-point trace = %v", path)
	}
	// Out-of-grid requests are clamped, not rejected.
	path := Trace(p, image.Point{X: -5, Y: -5}, image.Point{X: 100, Y: 100}, true)
	if path[0] != (image.Point{X: 0, Y: 0}) || path[len(path)-1] != (image.Point{X: 15, Y: 15}) {
		t.Errorf("clamped endpoints %v..%v", path[0], path[len(path)-1])
	}
	if got := Trace(nil, image.Point{}, image.Point{X: 3, Y: 0}, false); len(got) != 4 {
		t.Errorf("nil pyramid line length = %d, want 4", len(got))
	}
}
