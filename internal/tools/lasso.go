package tools

import (
	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/selection"
)

// minLassoSpacing is the minimum normalized distance between recorded
// freehand points; pointer samples closer than this are dropped so fast
// devices do not flood the path.
const minLassoSpacing = 0.002

// Lasso is the freehand selection tool. Points accumulate while the
// pointer is down; on release the path is closed, optionally snapped to
// nearby edges, rasterized, filled, feathered, and composited onto the
// committed mask.
type Lasso struct {
	env    *Env
	path   []geometry.Point
	active bool
}

// NewLasso creates a lasso bound to env.
func NewLasso(env *Env) *Lasso {
	return &Lasso{env: env}
}

// Preview returns the in-flight path for rendering. The slice is shared;
// callers must not mutate it.
func (t *Lasso) Preview() []geometry.Point { return t.path }

func (t *Lasso) OnPointerDown(ev PointerEvent) {
	t.active = true
	t.path = t.path[:0]
	t.path = append(t.path, ev.Pos)
	t.env.Store.SetActiveTool(selection.ToolLasso)
}

func (t *Lasso) OnPointerMove(ev PointerEvent) {
	if !t.active {
		return
	}
	last := t.path[len(t.path)-1]
	dx := ev.Pos.X - last.X
	dy := ev.Pos.Y - last.Y
	if dx*dx+dy*dy < minLassoSpacing*minLassoSpacing {
		return
	}
	t.path = append(t.path, ev.Pos)
}

func (t *Lasso) OnPointerUp(ev PointerEvent) {
	if !t.active {
		return
	}
	t.OnPointerMove(ev)
	t.active = false
	path := geometry.DedupePoints(t.path, minLassoSpacing/4)
	t.path = nil
	// A degenerate path (click without drag) selects nothing.
	if len(path) < 3 {
		return
	}

	tn := t.env.Store.Snapshot().Tunables
	if t.env.Artifacts != nil && t.env.Artifacts.Edges != nil && tn.SnapStrength > 0 {
		path = edges.SnapPolygonToEdges(path, t.env.Artifacts.Edges, snapSearchRadius(t.env), tn.SnapStrength)
	}

	sel := t.env.Provider.RasterizeFreehandPath(path, t.env.Width, t.env.Height, t.env.Bounds)
	t.env.Provider.FillMaskInterior(sel)
	if tn.DilateEnabled {
		t.env.Provider.DilateMask(sel, tn.BrushRadius*0.5)
	}
	if tn.FeatherAmount > 0 {
		t.env.Provider.FeatherMask(sel, tn.FeatherAmount)
	}

	merged := t.env.baseMask()
	t.env.Provider.CompositeMax(merged, sel)
	t.env.Store.Commit(merged)
}

func (t *Lasso) OnCancel() {
	t.active = false
	t.path = nil
}

// snapSearchRadius derives the edge-snap search distance from the mask
// raster: a few pixels in normalized units.
func snapSearchRadius(env *Env) float64 {
	if env.Width <= 0 {
		return 0.01
	}
	return 4 * env.Bounds.Width() / float64(env.Width)
}
