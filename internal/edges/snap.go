package edges

import (
	"math"

	"github.com/mapwright/roomcarve/internal/geometry"
)

// snapAcceptGain is the minimum score improvement, as a fraction of the
// edge map's maximum magnitude, a candidate position must offer before a
// vertex moves. Below that the vertex stays put: a weak response is more
// likely texture noise than the wall the user is tracing.
const snapAcceptGain = 0.05

// SnapPolygonToEdges pulls each polygon vertex toward the strongest
// nearby image edge.
//
// For every vertex the outward normal is derived from the incoming and
// outgoing edge directions, and candidate positions are sampled along
// both normal directions within radius (normalized units, step ≈
// radius/24). Each candidate is scored as
//
//	magnitude − distancePenalty − orientationPenalty
//
// where the distance penalty grows linearly with displacement and the
// orientation penalty discourages snapping onto an edge running parallel
// to the search ray instead of across it. strength in [0,1] scales how
// far an accepted vertex moves toward its best candidate. Vertices whose
// best candidate fails the acceptance gain stay unmoved.
func SnapPolygonToEdges(poly []geometry.Point, em *EdgeMap, radius, strength float64) []geometry.Point {
	if len(poly) < 3 || em == nil || em.MaxMagnitude <= 0 || radius <= 0 || strength <= 0 {
		return poly
	}
	if strength > 1 {
		strength = 1
	}
	step := radius / 24
	out := make([]geometry.Point, len(poly))

	for i, v := range poly {
		prev := poly[(i+len(poly)-1)%len(poly)]
		next := poly[(i+1)%len(poly)]

		// Vertex normal: average of the two adjacent edge normals.
		nx, ny := vertexNormal(prev, v, next)
		if nx == 0 && ny == 0 {
			out[i] = v
			continue
		}

		bestScore := em.sampleScore(v, v, nx, ny) + snapAcceptGain*em.MaxMagnitude
		bestPos := v
		found := false
		for dir := -1.0; dir <= 1.0; dir += 2 {
			for d := step; d <= radius; d += step {
				cand := geometry.Point{X: v.X + dir*d*nx, Y: v.Y + dir*d*ny}
				if cand.X < 0 || cand.X > 1 || cand.Y < 0 || cand.Y > 1 {
					break
				}
				if score := em.sampleScore(cand, v, nx, ny); score > bestScore {
					bestScore = score
					bestPos = cand
					found = true
				}
			}
		}
		if !found {
			out[i] = v
			continue
		}
		out[i] = geometry.Point{
			X: v.X + (bestPos.X-v.X)*strength,
			Y: v.Y + (bestPos.Y-v.Y)*strength,
		}
	}
	return out
}

// sampleScore evaluates a snap candidate: edge magnitude at the sample,
// minus a distance penalty from the original vertex, minus an orientation
// penalty when the local gradient is perpendicular to the search ray
// (gradient perpendicular to the ray means the edge itself runs along the
// ray; snapping there would slide the vertex along the edge rather than
// onto it).
func (e *EdgeMap) sampleScore(cand, origin geometry.Point, nx, ny float64) float64 {
	px := clamp(int(cand.X*float64(e.Width)), 0, e.Width-1)
	py := clamp(int(cand.Y*float64(e.Height)), 0, e.Height-1)
	i := py*e.Width + px
	mag := e.Magnitudes[i]
	if mag <= 0 {
		return 0
	}

	dist := math.Hypot(cand.X-origin.X, cand.Y-origin.Y)
	distPenalty := dist * e.MaxMagnitude * 2

	// Alignment of the gradient with the search direction: 1 when the
	// edge crosses the ray, 0 when it runs parallel to it.
	gx, gy := e.GradientX[i]/mag, e.GradientY[i]/mag
	align := math.Abs(gx*nx + gy*ny)
	orientPenalty := (1 - align) * mag * 0.5

	return mag - distPenalty - orientPenalty
}

// vertexNormal returns the unit normal at vertex v, averaging the normals
// of the segments prev→v and v→next. Degenerate geometry yields (0,0).
func vertexNormal(prev, v, next geometry.Point) (float64, float64) {
	d1x, d1y := v.X-prev.X, v.Y-prev.Y
	d2x, d2y := next.X-v.X, next.Y-v.Y
	if l := math.Hypot(d1x, d1y); l > 1e-12 {
		d1x, d1y = d1x/l, d1y/l
	}
	if l := math.Hypot(d2x, d2y); l > 1e-12 {
		d2x, d2y = d2x/l, d2y/l
	}
	// Normal of direction (dx,dy) is (-dy,dx); average both edges.
	nx, ny := -(d1y+d2y)/2, (d1x+d2x)/2
	l := math.Hypot(nx, ny)
	if l < 1e-12 {
		return 0, 0
	}
	return nx / l, ny / l
}
