package tools

import (
	"image"
	"math"
	"sync/atomic"

	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
	"github.com/mapwright/roomcarve/internal/selection"
	"github.com/mapwright/roomcarve/internal/wand"
)

// fallbackRadius is the normalized radius of the circular mask produced
// when a wand request fails: the user still gets a selection to adjust
// rather than nothing.
const fallbackRadius = 0.03

// Wand is the click-to-select tool. Every click issues an asynchronous
// segmentation request through the provider; results are composited onto
// the committed mask only if no newer click has superseded them. A
// rapid second click cancels and replaces the first request.
type Wand struct {
	env   *Env
	token requestToken
	busy  atomic.Bool

	// done, when non-nil, is closed after a request fully resolves
	// (applied, failed, or dropped as stale). Tests use it to wait.
	done chan struct{}
}

// NewWand creates a wand bound to env.
func NewWand(env *Env) *Wand {
	return &Wand{env: env}
}

// Busy reports whether a request is in flight.
func (t *Wand) Busy() bool { return t.busy.Load() }

func (t *Wand) OnPointerDown(ev PointerEvent) {
	t.env.Store.SetActiveTool(selection.ToolWand)
	ctx, id := t.token.begin()
	t.busy.Store(true)
	t.env.Store.SetStatus("selecting…")

	tn := t.env.Store.Snapshot().Tunables
	px, py := t.env.toPixel(ev.Pos)
	seed := image.Pt(int(px), int(py))
	opts := wand.Options{
		Tolerance:    tn.WandTolerance,
		Connectivity: wand.Connectivity(tn.Connectivity),
		Contiguous:   true,
		AntiAlias:    true,
		MinArea:      8,
		Bounds:       t.env.Bounds,
	}
	var em *edges.EdgeMap
	if t.env.Artifacts != nil {
		em = t.env.Artifacts.Edges
	}

	done := make(chan struct{})
	t.done = done
	go func() {
		defer close(done)
		res, err := t.env.Provider.MagicWandSelect(ctx, t.env.Layers, seed, opts, em, t.env.Zones)
		if !t.token.isCurrent(id) {
			return
		}
		t.busy.Store(false)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.applyFallback(ev.Pos)
			return
		}
		sel := res.Mask
		locked, lockID := res.EntranceLocked, res.LockedEntranceID
		if !locked && len(t.env.Zones) > 0 {
			// The grown region may only graze a doorway once its contour
			// is extracted and snapped; re-test the finished boundary.
			contour := mask.ExtractPolygon(sel, mask.DefaultSimplifyTolerance)
			if em != nil && tn.SnapStrength > 0 {
				contour = edges.SnapPolygonToEdges(contour, em, snapSearchRadius(t.env), tn.SnapStrength)
			}
			if id, hit := wand.CheckContourEntrances(contour, t.env.Zones); hit {
				locked, lockID = true, id
			}
		}
		if tn.FeatherAmount > 0 {
			t.env.Provider.FeatherMask(sel, tn.FeatherAmount)
		}
		merged := t.env.baseMask()
		t.env.Provider.CompositeMax(merged, sel)
		t.env.Store.Commit(merged)
		t.env.Store.SetEntranceLock(locked, lockID)
		t.env.Store.SetStatus("")
	}()
}

func (t *Wand) OnPointerMove(PointerEvent) {}

func (t *Wand) OnPointerUp(PointerEvent) {}

func (t *Wand) OnCancel() {
	t.token.cancelAll()
	t.busy.Store(false)
	t.env.Store.SetStatus("")
}

// Wait blocks until the most recent request resolves. Intended for
// tests and batch callers; interactive callers rely on store listeners.
func (t *Wand) Wait() {
	if t.done != nil {
		<-t.done
	}
}

// applyFallback commits a small circular selection around the click so a
// failed request still gives visible feedback.
func (t *Wand) applyFallback(center geometry.Point) {
	merged := t.env.baseMask()
	cx, cy := t.env.toPixel(center)
	bw := t.env.Bounds.Width()
	if bw <= 0 {
		bw = 1
	}
	pr := fallbackRadius / bw * float64(t.env.Width)
	r := int(math.Ceil(pr))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) > pr*pr {
				continue
			}
			merged.Set(int(cx)+dx, int(cy)+dy, 255)
		}
	}
	t.env.Store.Commit(merged)
	t.env.Store.SetStatus("selection failed; placed fallback region")
}
