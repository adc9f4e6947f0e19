package geometry

import "math"

// Point represents a 2D coordinate normalized to the [0,1] range.
//
// The origin is the top-left corner: X grows rightward, Y grows downward.
type Point struct {
	X float64 `json:"x"` // Horizontal position (0 = left edge, 1 = right edge)
	Y float64 `json:"y"` // Vertical position (0 = top edge, 1 = bottom edge)
}

// Bounds represents an axis-aligned rectangle in normalized coordinates.
//
// Invariants: MinX <= MaxX and MinY <= MaxY, all components in [0,1].
// Use Normalize to repair a rectangle built from unordered corners.
type Bounds struct {
	MinX float64 `json:"minX"` // Left edge
	MinY float64 `json:"minY"` // Top edge
	MaxX float64 `json:"maxX"` // Right edge
	MaxY float64 `json:"maxY"` // Bottom edge
}

// Normalize returns a copy with min/max swapped where necessary and all
// components clamped to [0,1].
func (b Bounds) Normalize() Bounds {
	if b.MinX > b.MaxX {
		b.MinX, b.MaxX = b.MaxX, b.MinX
	}
	if b.MinY > b.MaxY {
		b.MinY, b.MaxY = b.MaxY, b.MinY
	}
	return Bounds{
		MinX: clamp01(b.MinX),
		MinY: clamp01(b.MinY),
		MaxX: clamp01(b.MaxX),
		MaxY: clamp01(b.MaxY),
	}
}

// Width returns MaxX - MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Union returns the smallest rectangle covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Expand grows the rectangle by margin on every side, clamped to [0,1].
func (b Bounds) Expand(margin float64) Bounds {
	return Bounds{
		MinX: clamp01(b.MinX - margin),
		MinY: clamp01(b.MinY - margin),
		MaxX: clamp01(b.MaxX + margin),
		MaxY: clamp01(b.MaxY + margin),
	}
}

// BoundsOfPolygon returns the bounding rectangle of a polygon.
// An empty polygon yields the zero Bounds.
func BoundsOfPolygon(poly []Point) Bounds {
	if len(poly) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: poly[0].X, MinY: poly[0].Y, MaxX: poly[0].X, MaxY: poly[0].Y}
	for _, p := range poly[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// PolygonArea returns the signed area of a closed polygon via the shoelace
// formula. Positive area means counter-clockwise winding in this coordinate
// system (Y down). Polygons with fewer than 3 points have zero area.
func PolygonArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	area := 0.0
	for i := range poly {
		j := (i + 1) % len(poly)
		area += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return area / 2
}

// PolygonCentroid returns the area-weighted centroid of a closed polygon.
// Degenerate polygons (area ~ 0) fall back to the vertex average.
func PolygonCentroid(poly []Point) Point {
	if len(poly) == 0 {
		return Point{}
	}
	area := PolygonArea(poly)
	if math.Abs(area) < 1e-12 {
		var sx, sy float64
		for _, p := range poly {
			sx += p.X
			sy += p.Y
		}
		n := float64(len(poly))
		return Point{X: sx / n, Y: sy / n}
	}
	var cx, cy float64
	for i := range poly {
		j := (i + 1) % len(poly)
		cross := poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
		cx += (poly[i].X + poly[j].X) * cross
		cy += (poly[i].Y + poly[j].Y) * cross
	}
	f := 1 / (6 * area)
	return Point{X: cx * f, Y: cy * f}
}

// EnsureCounterClockwise flips the polygon's vertex order in place if its
// signed area is negative, so every extracted contour winds consistently.
func EnsureCounterClockwise(poly []Point) []Point {
	if PolygonArea(poly) < 0 {
		for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
			poly[i], poly[j] = poly[j], poly[i]
		}
	}
	return poly
}

// ClampPolygon clamps every vertex to the [0,1] square, in place.
func ClampPolygon(poly []Point) []Point {
	for i := range poly {
		poly[i].X = clamp01(poly[i].X)
		poly[i].Y = clamp01(poly[i].Y)
	}
	return poly
}

// DedupePoints removes consecutive vertices closer than minDist, including
// the closing pair (last vs first). Order is preserved.
func DedupePoints(poly []Point, minDist float64) []Point {
	if len(poly) < 2 {
		return poly
	}
	out := poly[:1]
	for _, p := range poly[1:] {
		if dist(out[len(out)-1], p) >= minDist {
			out = append(out, p)
		}
	}
	if len(out) > 2 && dist(out[len(out)-1], out[0]) < minDist {
		out = out[:len(out)-1]
	}
	return out
}

// SmoothPolygon applies iterations rounds of neighbor averaging: each vertex
// moves halfway toward the midpoint of its two neighbors. Results are clamped
// to [0,1]. Polygons with fewer than 3 points are returned unchanged.
func SmoothPolygon(poly []Point, iterations int) []Point {
	if len(poly) < 3 || iterations <= 0 {
		return poly
	}
	cur := make([]Point, len(poly))
	copy(cur, poly)
	next := make([]Point, len(poly))
	for it := 0; it < iterations; it++ {
		for i := range cur {
			prev := cur[(i+len(cur)-1)%len(cur)]
			nxt := cur[(i+1)%len(cur)]
			mx := (prev.X + nxt.X) / 2
			my := (prev.Y + nxt.Y) / 2
			next[i] = Point{
				X: clamp01((cur[i].X + mx) / 2),
				Y: clamp01((cur[i].Y + my) / 2),
			}
		}
		cur, next = next, cur
	}
	return cur
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm: points
// whose perpendicular distance from the local baseline is below tolerance
// are dropped. The endpoints always survive.
//
// The implementation uses an explicit work stack instead of recursion so
// very large contours cannot exhaust the goroutine stack.
func Simplify(poly []Point, tolerance float64) []Point {
	if len(poly) < 3 || tolerance <= 0 {
		return poly
	}
	keep := make([]bool, len(poly))
	keep[0], keep[len(poly)-1] = true, true

	type span struct{ first, last int }
	stack := []span{{0, len(poly) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.last-s.first < 2 {
			continue
		}
		maxDist, maxIdx := 0.0, -1
		for i := s.first + 1; i < s.last; i++ {
			d := perpendicularDistance(poly[i], poly[s.first], poly[s.last])
			if d > maxDist {
				maxDist, maxIdx = d, i
			}
		}
		if maxDist > tolerance {
			keep[maxIdx] = true
			stack = append(stack, span{s.first, maxIdx}, span{maxIdx, s.last})
		}
	}

	out := make([]Point, 0, len(poly))
	for i, k := range keep {
		if k {
			out = append(out, poly[i])
		}
	}
	return out
}

// perpendicularDistance returns the distance from p to the segment a-b,
// falling back to point distance when a and b coincide.
func perpendicularDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-18 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	px, py := a.X+t*dx, a.Y+t*dy
	return math.Hypot(p.X-px, p.Y-py)
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
