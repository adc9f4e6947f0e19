package tools

import (
	"context"
	"image"
	"sync"

	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
	"github.com/mapwright/roomcarve/internal/roi"
	"github.com/mapwright/roomcarve/internal/selection"
	"github.com/mapwright/roomcarve/internal/wand"
)

// PointerEvent is one pointer sample in normalized world coordinates.
type PointerEvent struct {
	Pos      geometry.Point
	Pressure float64 // 0..1; mouse input reports 1
}

// Tool is a pointer-driven editing gesture. Events arrive in
// down → move* → up order; OnCancel may arrive at any time and must
// leave the committed selection untouched.
type Tool interface {
	OnPointerDown(ev PointerEvent)
	OnPointerMove(ev PointerEvent)
	OnPointerUp(ev PointerEvent)
	OnCancel()
}

// Env is the shared context a tool operates in: the session store to
// commit into, the segmentation provider, the source layers, and the
// mask raster geometry. Artifacts, when present, carry the preprocessed
// edge map and cost pyramid for the current region of interest.
type Env struct {
	Store    *selection.Store
	Provider Provider

	Layers        []image.Image
	Width, Height int
	Bounds        geometry.Bounds

	Zones     []wand.EntranceZone
	Artifacts *roi.Artifacts
}

// baseMask returns a private copy of the committed mask to edit, or a
// blank mask when nothing is committed yet.
func (e *Env) baseMask() *mask.RoomMask {
	if snap := e.Store.Snapshot(); snap.Mask != nil {
		return snap.Mask.Clone()
	}
	return mask.New(e.Width, e.Height, e.Bounds)
}

// toPixel maps a world point into mask pixel coordinates.
func (e *Env) toPixel(p geometry.Point) (float64, float64) {
	w := e.Bounds.Width()
	h := e.Bounds.Height()
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	px := (p.X - e.Bounds.MinX) / w * float64(e.Width)
	py := (p.Y - e.Bounds.MinY) / h * float64(e.Height)
	return px, py
}

// requestToken serializes async requests: each begin invalidates every
// earlier request and cancels its context, so only the latest result is
// ever applied.
type requestToken struct {
	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
}

// begin starts a new request, cancelling any in-flight one. The
// returned id stays current until the next begin or cancelAll.
func (t *requestToken) begin() (context.Context, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.current++
	return ctx, t.current
}

// isCurrent reports whether id is still the latest request.
func (t *requestToken) isCurrent(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return id == t.current
}

// cancelAll invalidates every outstanding request.
func (t *requestToken) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.current++
}
