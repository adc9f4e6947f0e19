package livewire

import (
	"container/heap"
	"image"
	"math"
)

// Trace finds a minimum-cost path between two base-grid pixels.
//
// Parameters:
//   - p: The cost pyramid to search; level 0 is the base resolution.
//   - start, end: Base-grid pixel coordinates, clamped into the grid.
//   - allowDiagonals: Permit 8-connected moves; false keeps the search
//     strictly 4-connected.
//
// Returns:
//   - []image.Point: The path from the clamped start pixel to the
//     clamped end pixel, inclusive. If the target is unreachable inside
//     the band the path degrades to a straight line, never an error,
//     since this is called on every pointer move.
//
// # Algorithm
//
// The search runs coarse-to-fine:
//
//  1. Full-grid Dijkstra at the pyramid's coarsest level.
//
//  2. At each finer level, a banded Dijkstra restricted to a bounding
//     box around the previous level's path projected down, with the
//     margin growing at coarser levels to absorb projection error.
//
//  3. Edge weight is the average of the two endpoint costs times the
//     step length (1 for axis moves, √2 for diagonals).
func Trace(p *CostPyramid, start, end image.Point, allowDiagonals bool) []image.Point {
	if p == nil || len(p.Levels) == 0 {
		return straightLine(start, end)
	}
	base := p.Levels[0]
	start = clampPoint(start, base.Width, base.Height)
	end = clampPoint(end, base.Width, base.Height)
	if start == end {
		return []image.Point{start}
	}

	coarsest := len(p.Levels) - 1
	var path []image.Point
	for li := coarsest; li >= 0; li-- {
		lv := p.Levels[li]
		s := image.Point{X: start.X / lv.Scale, Y: start.Y / lv.Scale}
		e := image.Point{X: end.X / lv.Scale, Y: end.Y / lv.Scale}
		s = clampPoint(s, lv.Width, lv.Height)
		e = clampPoint(e, lv.Width, lv.Height)

		var band *image.Rectangle
		if path != nil {
			// Project the coarser path into this level and search only a
			// corridor around it. Wider margins at coarser levels: their
			// geometry is less trustworthy.
			r := pathBounds(path, 2) // coarse cells
			r.Min.X *= 2
			r.Min.Y *= 2
			r.Max.X = r.Max.X*2 + 1
			r.Max.Y = r.Max.Y*2 + 1
			margin := 2 + li*2
			r.Min.X -= margin
			r.Min.Y -= margin
			r.Max.X += margin
			r.Max.Y += margin
			r = r.Intersect(image.Rect(0, 0, lv.Width, lv.Height))
			band = &r
		}

		next := dijkstra(lv, s, e, band, allowDiagonals)
		if next == nil {
			// Unreachable inside the band; fall back and stop refining.
			return straightLine(start, end)
		}
		path = next
	}

	// Pin the exact requested endpoints (level-0 search already runs at
	// base resolution, so this only guards the degenerate cases).
	path[0] = start
	path[len(path)-1] = end
	return path
}

// dijkstra runs a shortest-path search on one pyramid level, optionally
// restricted to the band rectangle. Returns nil if end is unreachable.
func dijkstra(lv Level, start, end image.Point, band *image.Rectangle, allowDiagonals bool) []image.Point {
	inBand := func(x, y int) bool {
		if x < 0 || y < 0 || x >= lv.Width || y >= lv.Height {
			return false
		}
		if band != nil && !(image.Point{X: x, Y: y}).In(*band) {
			return false
		}
		return true
	}
	if !inBand(start.X, start.Y) || !inBand(end.X, end.Y) {
		return nil
	}

	n := lv.Width * lv.Height
	distance := make([]float64, n)
	for i := range distance {
		distance[i] = math.Inf(1)
	}
	prev := make([]int32, n)
	for i := range prev {
		prev[i] = -1
	}

	startIdx := start.Y*lv.Width + start.X
	endIdx := end.Y*lv.Width + end.X
	distance[startIdx] = 0

	pq := &nodeQueue{{index: startIdx, priority: 0}}
	steps := neighborSteps(allowDiagonals)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(node)
		if cur.priority > distance[cur.index] {
			continue // stale queue entry
		}
		if cur.index == endIdx {
			break
		}
		cx, cy := cur.index%lv.Width, cur.index/lv.Width
		for _, st := range steps {
			nx, ny := cx+st.dx, cy+st.dy
			if !inBand(nx, ny) {
				continue
			}
			ni := ny*lv.Width + nx
			w := (lv.Data[cur.index] + lv.Data[ni]) / 2 * st.weight
			if d := cur.priority + w; d < distance[ni] {
				distance[ni] = d
				prev[ni] = int32(cur.index)
				heap.Push(pq, node{index: ni, priority: d})
			}
		}
	}

	if math.IsInf(distance[endIdx], 1) {
		return nil
	}
	var path []image.Point
	for i := endIdx; i != -1; i = int(prev[i]) {
		path = append(path, image.Point{X: i % lv.Width, Y: i / lv.Width})
		if i == startIdx {
			break
		}
	}
	// Reverse into start→end order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type step struct {
	dx, dy int
	weight float64
}

func neighborSteps(allowDiagonals bool) []step {
	steps := []step{
		{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	}
	if allowDiagonals {
		steps = append(steps,
			step{1, 1, math.Sqrt2}, step{1, -1, math.Sqrt2},
			step{-1, 1, math.Sqrt2}, step{-1, -1, math.Sqrt2})
	}
	return steps
}

// pathBounds returns the bounding rectangle of a path plus a margin,
// without clamping.
func pathBounds(path []image.Point, margin int) image.Rectangle {
	r := image.Rectangle{Min: path[0], Max: path[0]}
	for _, p := range path[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	r.Min.X -= margin
	r.Min.Y -= margin
	r.Max.X += margin
	r.Max.Y += margin
	return r
}

// straightLine rasterizes the segment start→end with Bresenham, the
// fallback when no path exists through the cost field.
func straightLine(start, end image.Point) []image.Point {
	dx := abs(end.X - start.X)
	dy := -abs(end.Y - start.Y)
	sx, sy := 1, 1
	if start.X > end.X {
		sx = -1
	}
	if start.Y > end.Y {
		sy = -1
	}
	err := dx + dy
	path := []image.Point{start}
	x, y := start.X, start.Y
	for x != end.X || y != end.Y {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		path = append(path, image.Point{X: x, Y: y})
	}
	return path
}

func clampPoint(p image.Point, w, h int) image.Point {
	if p.X < 0 {
		p.X = 0
	} else if p.X >= w {
		p.X = w - 1
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y >= h {
		p.Y = h - 1
	}
	return p
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// node is a priority-queue entry; stale entries (superseded distance) are
// skipped on pop instead of being removed eagerly.
type node struct {
	index    int
	priority float64
}

type nodeQueue []node

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].priority < q[j].priority }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(node)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
