package mask

import (
	"github.com/mapwright/roomcarve/internal/geometry"
)

// DefaultSimplifyTolerance is the Douglas-Peucker tolerance (in normalized
// units) applied by ExtractPolygon. Small enough to preserve room corners,
// large enough to drop marching-squares staircase jitter.
const DefaultSimplifyTolerance = 0.002

// ExtractPolygon traces the boundary of the mask's covered region and
// returns it as a closed polygon in normalized world coordinates.
//
// Parameters:
//   - m: The mask to trace. Coverage at or above the binary threshold
//     counts as inside.
//   - tolerance: Douglas-Peucker simplification tolerance in normalized
//     units; DefaultSimplifyTolerance suits interactive use.
//
// Returns:
//   - []geometry.Point: The largest boundary loop, counter-clockwise,
//     clamped to [0,1]. Empty for a nil or empty mask.
//
// # Algorithm
//
//  1. Marching squares: every 2×2 cell is classified into one of the
//     16 boundary configurations; the two saddle cases each emit two
//     segments. Segment endpoints live on a half-step integer grid so
//     matching is exact.
//
//  2. Loop stitching: segments are chained by endpoint adjacency into
//     closed loops.
//
//  3. Selection: the loop with the largest absolute area is kept.
//     Disjoint regions therefore lose all but their largest loop;
//     callers needing the others can split the mask first.
//
//  4. Cleanup: counter-clockwise orientation, Douglas-Peucker
//     simplification with tolerance, dedupe, clamp.
func ExtractPolygon(m *RoomMask, tolerance float64) []geometry.Point {
	if m == nil || m.Width == 0 || m.Height == 0 {
		return nil
	}
	segs := marchCells(m)
	if len(segs) == 0 {
		return nil
	}
	loops := stitchLoops(segs)
	if len(loops) == 0 {
		return nil
	}

	best, bestArea := loops[0], loopArea(loops[0])
	for _, l := range loops[1:] {
		if a := loopArea(l); a > bestArea {
			best, bestArea = l, a
		}
	}

	// Convert half-step grid coordinates to normalized world space.
	poly := make([]geometry.Point, len(best))
	for i, gp := range best {
		poly[i] = geometry.Point{
			X: m.Bounds.MinX + (float64(gp.x)/2+0.5)/float64(m.Width)*m.Bounds.Width(),
			Y: m.Bounds.MinY + (float64(gp.y)/2+0.5)/float64(m.Height)*m.Bounds.Height(),
		}
	}
	poly = geometry.EnsureCounterClockwise(poly)
	if tolerance > 0 {
		poly = geometry.Simplify(poly, tolerance)
	}
	poly = geometry.DedupePoints(poly, 1e-4)
	if len(poly) < 3 {
		return nil
	}
	return geometry.ClampPolygon(poly)
}

// gridPoint is a marching-squares vertex in half-step units: edge
// midpoints land on odd coordinates, pixel samples on even ones. Integer
// keys make endpoint matching exact.
type gridPoint struct{ x, y int }

type segment struct{ a, b gridPoint }

// marchCells classifies every 2×2 cell and emits boundary segments. Cells
// straddling the grid border treat outside samples as zero, so regions
// touching the edge still produce closed contours.
func marchCells(m *RoomMask) []segment {
	inside := func(x, y int) bool { return m.At(x, y) >= coverageThreshold }

	var segs []segment
	for cy := -1; cy < m.Height; cy++ {
		for cx := -1; cx < m.Width; cx++ {
			idx := 0
			if inside(cx, cy) {
				idx |= 1 // top-left
			}
			if inside(cx+1, cy) {
				idx |= 2 // top-right
			}
			if inside(cx+1, cy+1) {
				idx |= 4 // bottom-right
			}
			if inside(cx, cy+1) {
				idx |= 8 // bottom-left
			}
			if idx == 0 || idx == 15 {
				continue
			}

			top := gridPoint{2*cx + 1, 2 * cy}
			right := gridPoint{2*cx + 2, 2*cy + 1}
			bottom := gridPoint{2*cx + 1, 2*cy + 2}
			left := gridPoint{2 * cx, 2*cy + 1}

			switch idx {
			case 1, 14:
				segs = append(segs, segment{left, top})
			case 2, 13:
				segs = append(segs, segment{top, right})
			case 3, 12:
				segs = append(segs, segment{left, right})
			case 4, 11:
				segs = append(segs, segment{right, bottom})
			case 6, 9:
				segs = append(segs, segment{top, bottom})
			case 7, 8:
				segs = append(segs, segment{left, bottom})
			case 5: // saddle: opposite corners inside, split into two segments
				segs = append(segs, segment{left, top}, segment{right, bottom})
			case 10: // the other saddle
				segs = append(segs, segment{top, right}, segment{bottom, left})
			}
		}
	}
	return segs
}

// stitchLoops chains segments into closed loops by matching endpoints.
// Each loop walk picks an arbitrary unused segment and follows shared
// endpoints until it returns to its start; open chains (which only occur
// on malformed input) are discarded.
func stitchLoops(segs []segment) [][]gridPoint {
	adjacency := make(map[gridPoint][]int, len(segs)*2)
	for i, s := range segs {
		adjacency[s.a] = append(adjacency[s.a], i)
		adjacency[s.b] = append(adjacency[s.b], i)
	}
	used := make([]bool, len(segs))

	var loops [][]gridPoint
	for start := range segs {
		if used[start] {
			continue
		}
		used[start] = true
		loop := []gridPoint{segs[start].a, segs[start].b}
		cur := segs[start].b

		closed := false
		for {
			next := -1
			for _, i := range adjacency[cur] {
				if !used[i] {
					next = i
					break
				}
			}
			if next == -1 {
				break
			}
			used[next] = true
			if segs[next].a == cur {
				cur = segs[next].b
			} else {
				cur = segs[next].a
			}
			if cur == loop[0] {
				closed = true
				break
			}
			loop = append(loop, cur)
		}
		if closed && len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops
}

// loopArea returns the absolute shoelace area of a loop in half-step grid
// units; only relative magnitude matters for largest-loop selection.
func loopArea(loop []gridPoint) float64 {
	area := 0.0
	for i := range loop {
		j := (i + 1) % len(loop)
		area += float64(loop[i].x)*float64(loop[j].y) - float64(loop[j].x)*float64(loop[i].y)
	}
	if area < 0 {
		area = -area
	}
	return area / 2
}
