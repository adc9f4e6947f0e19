package tools

import (
	"image"
	"math"

	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/livewire"
	"github.com/mapwright/roomcarve/internal/selection"
)

const (
	// smartCloseRadius is how close (normalized) a release must land to
	// the first anchor to close the loop.
	smartCloseRadius = 0.012

	// smartPreviewSpacing throttles preview traces: the pointer must
	// move at least this far before a new trace is computed.
	smartPreviewSpacing = 0.004

	// refineThreshold is the relative edge energy above which the
	// boundary refinement pass freezes growth.
	refineThreshold = 0.35

	// refineScales is the number of octaves in the refinement energy
	// field. Coarse octaves keep the barrier steady across wide soft
	// transitions a single-scale gradient misses.
	refineScales = 3
)

// SmartLasso traces selection boundaries along low-cost paths between
// user-placed anchors. Each pointer down drops an anchor and appends the
// traced segment from the previous one; moves update a throttled
// preview trace from the last anchor to the cursor; releasing near the
// first anchor closes the loop, which is then rasterized, refined
// against the edge field, and committed.
type SmartLasso struct {
	env      *Env
	anchors  []geometry.Point
	segments [][]geometry.Point
	preview  []geometry.Point
	lastPrev geometry.Point
}

// NewSmartLasso creates a smart lasso bound to env.
func NewSmartLasso(env *Env) *SmartLasso {
	return &SmartLasso{env: env}
}

// Anchors returns the placed anchor points (shared slice, do not mutate).
func (t *SmartLasso) Anchors() []geometry.Point { return t.anchors }

// Preview returns the current cursor trace for rendering.
func (t *SmartLasso) Preview() []geometry.Point { return t.preview }

func (t *SmartLasso) OnPointerDown(ev PointerEvent) {
	if len(t.anchors) == 0 {
		t.env.Store.SetActiveTool(selection.ToolSmartLasso)
	} else {
		prev := t.anchors[len(t.anchors)-1]
		t.segments = append(t.segments, t.traceWorld(prev, ev.Pos))
	}
	t.anchors = append(t.anchors, ev.Pos)
	t.preview = nil
}

func (t *SmartLasso) OnPointerMove(ev PointerEvent) {
	if len(t.anchors) == 0 {
		return
	}
	dx := ev.Pos.X - t.lastPrev.X
	dy := ev.Pos.Y - t.lastPrev.Y
	if t.preview != nil && dx*dx+dy*dy < smartPreviewSpacing*smartPreviewSpacing {
		return
	}
	t.lastPrev = ev.Pos
	t.preview = t.traceWorld(t.anchors[len(t.anchors)-1], ev.Pos)
}

func (t *SmartLasso) OnPointerUp(ev PointerEvent) {
	if len(t.anchors) < 2 {
		return
	}
	first := t.anchors[0]
	if math.Hypot(ev.Pos.X-first.X, ev.Pos.Y-first.Y) > smartCloseRadius {
		return
	}
	// Close the loop back to the first anchor and flatten the segments
	// into one polygon.
	last := t.anchors[len(t.anchors)-1]
	t.segments = append(t.segments, t.traceWorld(last, first))
	var poly []geometry.Point
	for _, seg := range t.segments {
		poly = append(poly, seg...)
	}
	poly = geometry.DedupePoints(poly, 1e-4)
	t.reset()
	if len(poly) < 3 {
		return
	}

	sel := t.env.Provider.RasterizeFreehandPath(poly, t.env.Width, t.env.Height, t.env.Bounds)
	t.env.Provider.FillMaskInterior(sel)
	if a := t.env.Artifacts; a != nil && a.Width > 0 && len(a.Enhanced) == a.Width*a.Height {
		tn := t.env.Store.Snapshot().Tunables
		energy := t.env.Provider.EdgeEnergyMultiScale(a.Enhanced, a.Width, a.Height, refineScales)
		if maxE := maxOf(energy); maxE > 0 {
			inv := 1 / maxE
			for i := range energy {
				energy[i] *= inv
			}
			sel = t.env.Provider.RefineBoundaryToEdges(sel, energy, refineThreshold, tn.EdgeBandWidth)
		}
	}

	merged := t.env.baseMask()
	t.env.Provider.CompositeMax(merged, sel)
	t.env.Store.Commit(merged)
}

func (t *SmartLasso) OnCancel() { t.reset() }

func maxOf(vals []float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func (t *SmartLasso) reset() {
	t.anchors = nil
	t.segments = nil
	t.preview = nil
}

// traceWorld runs a live-wire trace between two world points and maps
// the pixel path back to world coordinates. Without preprocessed
// artifacts the segment degrades to the straight line between the
// endpoints.
func (t *SmartLasso) traceWorld(from, to geometry.Point) []geometry.Point {
	a := t.env.Artifacts
	if a == nil || a.Pyramid == nil {
		return []geometry.Point{from, to}
	}
	fx, fy := t.env.toPixel(from)
	tx, ty := t.env.toPixel(to)
	path := livewire.Trace(a.Pyramid, image.Pt(int(fx), int(fy)), image.Pt(int(tx), int(ty)), true)
	if len(path) == 0 {
		return []geometry.Point{from, to}
	}
	out := make([]geometry.Point, 0, len(path))
	for _, p := range path {
		out = append(out, geometry.Point{
			X: t.env.Bounds.MinX + (float64(p.X)+0.5)/float64(t.env.Width)*t.env.Bounds.Width(),
			Y: t.env.Bounds.MinY + (float64(p.Y)+0.5)/float64(t.env.Height)*t.env.Bounds.Height(),
		})
	}
	// Pin the endpoints to the exact anchor positions so consecutive
	// segments meet.
	out[0] = from
	out[len(out)-1] = to
	return out
}
