package tools

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
	"github.com/mapwright/roomcarve/internal/roi"
	"github.com/mapwright/roomcarve/internal/selection"
	"github.com/mapwright/roomcarve/internal/wand"
)

func testEnv(w, h int) *Env {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	dark := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	light := color.RGBA{R: 220, G: 220, B: 220, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, dark)
			} else {
				img.SetRGBA(x, y, light)
			}
		}
	}
	return &Env{
		Store:    selection.NewStore(),
		Provider: &LocalProvider{},
		Layers:   []image.Image{img},
		Width:    w,
		Height:   h,
		Bounds:   geometry.Bounds{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
	}
}

func TestLassoCommitsFilledRegion(t *testing.T) {
	env := testEnv(64, 64)
	lasso := NewLasso(env)

	lasso.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.2, Y: 0.2}, Pressure: 1})
	for _, p := range []geometry.Point{
		{X: 0.8, Y: 0.2}, {X: 0.8, Y: 0.8}, {X: 0.2, Y: 0.8},
	} {
		lasso.OnPointerMove(PointerEvent{Pos: p, Pressure: 1})
	}
	lasso.OnPointerUp(PointerEvent{Pos: geometry.Point{X: 0.2, Y: 0.21}, Pressure: 1})

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("no mask committed")
	}
	got := snap.Mask.CoverageRatio()
	if math.Abs(got-0.36) > 0.06 {
		t.Fatalf("coverage = %.3f, want ≈0.36", got)
	}
	if lasso.Preview() != nil {
		t.Fatal("preview not cleared after commit")
	}
}

func TestLassoClickWithoutDragSelectsNothing(t *testing.T) {
	env := testEnv(32, 32)
	lasso := NewLasso(env)
	lasso.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}})
	lasso.OnPointerUp(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}})
	if env.Store.Snapshot().Mask != nil {
		t.Fatal("degenerate lasso committed a mask")
	}
}

func TestLassoCancelKeepsCommitted(t *testing.T) {
	env := testEnv(32, 32)
	lasso := NewLasso(env)
	lasso.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.1, Y: 0.1}})
	lasso.OnPointerMove(PointerEvent{Pos: geometry.Point{X: 0.9, Y: 0.9}})
	before := env.Store.Snapshot().Version
	lasso.OnCancel()
	if env.Store.Snapshot().Version != before {
		t.Fatal("cancel mutated the store")
	}
	if lasso.Preview() != nil {
		t.Fatal("cancel left a preview")
	}
}

func TestSmartLassoClosesLoopFromAnchors(t *testing.T) {
	env := testEnv(64, 64)
	sl := NewSmartLasso(env)

	corners := []geometry.Point{
		{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.2}, {X: 0.8, Y: 0.8}, {X: 0.2, Y: 0.8},
	}
	for _, c := range corners {
		sl.OnPointerDown(PointerEvent{Pos: c})
		sl.OnPointerUp(PointerEvent{Pos: c})
	}
	if env.Store.Snapshot().Mask != nil {
		t.Fatal("loop committed before closing click")
	}
	closing := geometry.Point{X: 0.202, Y: 0.2}
	sl.OnPointerDown(PointerEvent{Pos: closing})
	sl.OnPointerUp(PointerEvent{Pos: closing})

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("closing click did not commit")
	}
	got := snap.Mask.CoverageRatio()
	if math.Abs(got-0.36) > 0.06 {
		t.Fatalf("coverage = %.3f, want ≈0.36", got)
	}
	if sl.Anchors() != nil || sl.Preview() != nil {
		t.Fatal("state not reset after commit")
	}
}

// refineRecorder watches how the smart lasso drives the provider seam.
type refineRecorder struct {
	LocalProvider
	multiScaleCalls int
	energyMax       float64
}

func (p *refineRecorder) EdgeEnergyMultiScale(gray []float64, w, h, scales int) []float64 {
	p.multiScaleCalls++
	return p.LocalProvider.EdgeEnergyMultiScale(gray, w, h, scales)
}

func (p *refineRecorder) RefineBoundaryToEdges(m *mask.RoomMask, energy []float64, threshold float64, bandRadius int) *mask.RoomMask {
	for _, e := range energy {
		if e > p.energyMax {
			p.energyMax = e
		}
	}
	return p.LocalProvider.RefineBoundaryToEdges(m, energy, threshold, bandRadius)
}

func TestSmartLassoRefinesWithMultiScaleEnergy(t *testing.T) {
	env := testEnv(64, 64)
	rec := &refineRecorder{}
	env.Provider = rec

	// Enhanced grid: flat except a bright wall column at x=42. The
	// refinement band reaches past it on the right; the left side is
	// open, so growth there runs to the band limit.
	enhanced := make([]float64, 64*64)
	for i := range enhanced {
		enhanced[i] = 0.2
	}
	for y := 0; y < 64; y++ {
		enhanced[y*64+42] = 1.0
	}
	env.Artifacts = &roi.Artifacts{Width: 64, Height: 64, Enhanced: enhanced}

	sl := NewSmartLasso(env)
	corners := []geometry.Point{
		{X: 0.3, Y: 0.3}, {X: 0.6, Y: 0.3}, {X: 0.6, Y: 0.6}, {X: 0.3, Y: 0.6},
	}
	for _, c := range corners {
		sl.OnPointerDown(PointerEvent{Pos: c})
		sl.OnPointerUp(PointerEvent{Pos: c})
	}
	closing := geometry.Point{X: 0.302, Y: 0.3}
	sl.OnPointerDown(PointerEvent{Pos: closing})
	sl.OnPointerUp(PointerEvent{Pos: closing})

	if rec.multiScaleCalls == 0 {
		t.Fatal("refinement bypassed the multi-scale energy operation")
	}
	if math.Abs(rec.energyMax-1) > 1e-9 {
		t.Fatalf("refinement energy max = %g, want normalized to 1", rec.energyMax)
	}

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("no mask committed")
	}
	// Open left side: growth crosses the original loop edge (x≈19) out
	// to the band. Walled right side: never past the energy column.
	if snap.Mask.At(14, 32) < 128 {
		t.Fatal("refinement did not grow into the open band")
	}
	if snap.Mask.At(44, 32) >= 128 {
		t.Fatal("refinement crossed the wall column")
	}
}

func TestSmartLassoPreviewThrottled(t *testing.T) {
	env := testEnv(64, 64)
	sl := NewSmartLasso(env)
	sl.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}})

	sl.OnPointerMove(PointerEvent{Pos: geometry.Point{X: 0.6, Y: 0.5}})
	first := sl.Preview()
	if first == nil {
		t.Fatal("no preview after move")
	}
	// A sub-threshold wiggle must not retrace.
	sl.OnPointerMove(PointerEvent{Pos: geometry.Point{X: 0.6005, Y: 0.5}})
	if &sl.Preview()[0] != &first[0] {
		t.Fatal("preview recomputed below movement threshold")
	}
	sl.OnCancel()
	if sl.Preview() != nil || sl.Anchors() != nil {
		t.Fatal("cancel did not clear state")
	}
}

func TestWandCommitsSelection(t *testing.T) {
	env := testEnv(64, 64)
	w := NewWand(env)
	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.25, Y: 0.5}})
	w.Wait()

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("no mask committed")
	}
	if got := snap.Mask.CoverageRatio(); math.Abs(got-0.5) > 0.05 {
		t.Fatalf("coverage = %.3f, want ≈0.5", got)
	}
	if w.Busy() {
		t.Fatal("still busy after completion")
	}
	if snap.Status != "" {
		t.Fatalf("status = %q, want empty", snap.Status)
	}
}

func TestWandLocksEntranceGrazedByContour(t *testing.T) {
	env := testEnv(64, 64)
	// The flood selects the dark left half and never crosses either
	// zone; only the extracted contour, running along x=0.5 and the
	// image border, comes within reach of the near one.
	env.Zones = []wand.EntranceZone{
		{ID: "door-far", Center: geometry.Point{X: 0.9, Y: 0.9}, Radius: 0.04},
		{ID: "door-near", Center: geometry.Point{X: 0.52, Y: 0.03}, Radius: 0.04},
	}
	w := NewWand(env)
	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.25, Y: 0.5}})
	w.Wait()

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("no mask committed")
	}
	if !snap.EntranceLocked {
		t.Fatal("contour grazing a zone did not set the lock")
	}
	if snap.EntranceID != "door-near" {
		t.Fatalf("locked entrance = %q, want door-near", snap.EntranceID)
	}
}

func TestWandNoLockAwayFromZones(t *testing.T) {
	env := testEnv(64, 64)
	env.Zones = []wand.EntranceZone{
		{ID: "door-far", Center: geometry.Point{X: 0.9, Y: 0.9}, Radius: 0.02},
	}
	w := NewWand(env)
	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.25, Y: 0.5}})
	w.Wait()

	snap := env.Store.Snapshot()
	if snap.EntranceLocked {
		t.Fatalf("lock set with no zone near the contour (id %q)", snap.EntranceID)
	}
}

// blockingProvider gates MagicWandSelect on a channel so tests can hold
// a request in flight.
type blockingProvider struct {
	LocalProvider
	gate chan struct{}
}

func (p *blockingProvider) MagicWandSelect(ctx context.Context, layers []image.Image, seed image.Point, opts wand.Options, em *edges.EdgeMap, zones []wand.EntranceZone) (*wand.Result, error) {
	select {
	case <-p.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.LocalProvider.MagicWandSelect(ctx, layers, seed, opts, em, zones)
}

func TestWandStaleResultDropped(t *testing.T) {
	env := testEnv(64, 64)
	bp := &blockingProvider{gate: make(chan struct{})}
	env.Provider = bp
	w := NewWand(env)

	// First click stalls; second click supersedes it.
	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.25, Y: 0.5}})
	firstDone := w.done
	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.75, Y: 0.5}})
	close(bp.gate)
	<-firstDone
	w.Wait()

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("no mask committed")
	}
	// The right half is light; the surviving selection must be there.
	x := int(0.75 * 64)
	if snap.Mask.At(x, 32) < 128 {
		t.Fatal("second click's selection missing")
	}
	if snap.Mask.At(4, 32) >= 128 {
		t.Fatal("stale first selection applied")
	}
}

func TestWandCancelLeavesStoreUntouched(t *testing.T) {
	env := testEnv(64, 64)
	bp := &blockingProvider{gate: make(chan struct{})}
	env.Provider = bp
	w := NewWand(env)

	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.25, Y: 0.5}})
	w.OnCancel()
	close(bp.gate)
	w.Wait()

	if env.Store.Snapshot().Mask != nil {
		t.Fatal("cancelled request committed a mask")
	}
	if w.Busy() {
		t.Fatal("busy after cancel")
	}
}

// failingProvider rejects every wand request.
type failingProvider struct {
	LocalProvider
}

func (p *failingProvider) MagicWandSelect(ctx context.Context, layers []image.Image, seed image.Point, opts wand.Options, em *edges.EdgeMap, zones []wand.EntranceZone) (*wand.Result, error) {
	return nil, errNoResult
}

func TestWandFallbackOnFailure(t *testing.T) {
	env := testEnv(64, 64)
	env.Provider = &failingProvider{}
	w := NewWand(env)
	w.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}})
	w.Wait()

	snap := env.Store.Snapshot()
	if snap.Mask == nil {
		t.Fatal("fallback did not commit")
	}
	if snap.Mask.At(32, 32) != 255 {
		t.Fatal("fallback disc missing at click point")
	}
	if snap.Mask.CoverageRatio() > 0.05 {
		t.Fatalf("fallback too large: %.3f", snap.Mask.CoverageRatio())
	}
	if !strings.Contains(snap.Status, "fallback") {
		t.Fatalf("status = %q, want fallback notice", snap.Status)
	}
}

func TestPaintbrushPaintsAndCommitsLive(t *testing.T) {
	env := testEnv(64, 64)
	b := NewPaintbrush(env)

	b.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.3, Y: 0.5}, Pressure: 1})
	if env.Store.Snapshot().Mask == nil {
		t.Fatal("down did not commit a preview")
	}
	b.OnPointerMove(PointerEvent{Pos: geometry.Point{X: 0.7, Y: 0.5}, Pressure: 1})
	b.OnPointerUp(PointerEvent{Pos: geometry.Point{X: 0.7, Y: 0.5}, Pressure: 1})

	snap := env.Store.Snapshot()
	for _, x := range []int{20, 32, 44} {
		if snap.Mask.At(x, 32) < 128 {
			t.Fatalf("stroke gap at x=%d", x)
		}
	}
	if snap.Mask.At(32, 4) != 0 {
		t.Fatal("paint far from stroke")
	}
}

func TestPaintbrushErase(t *testing.T) {
	env := testEnv(64, 64)
	b := NewPaintbrush(env)
	b.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}, Pressure: 1})
	b.OnPointerUp(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}, Pressure: 1})
	if env.Store.Snapshot().Mask.At(32, 32) < 128 {
		t.Fatal("paint missing before erase")
	}

	b.Erase = true
	b.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}, Pressure: 1})
	b.OnPointerUp(PointerEvent{Pos: geometry.Point{X: 0.5, Y: 0.5}, Pressure: 1})
	if got := env.Store.Snapshot().Mask.At(32, 32); got != 0 {
		t.Fatalf("center coverage after erase = %d, want 0", got)
	}
}

func TestPaintbrushCancelRestores(t *testing.T) {
	env := testEnv(64, 64)
	b := NewPaintbrush(env)
	b.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.2, Y: 0.2}, Pressure: 1})
	b.OnPointerUp(PointerEvent{Pos: geometry.Point{X: 0.2, Y: 0.2}, Pressure: 1})
	committed := env.Store.Snapshot().Mask

	b.OnPointerDown(PointerEvent{Pos: geometry.Point{X: 0.8, Y: 0.8}, Pressure: 1})
	b.OnPointerMove(PointerEvent{Pos: geometry.Point{X: 0.9, Y: 0.8}, Pressure: 1})
	b.OnCancel()

	snap := env.Store.Snapshot()
	if snap.Mask.At(51, 51) != 0 {
		t.Fatal("cancelled stroke survived")
	}
	size := float64(64)
	if snap.Mask.At(int(0.2*size), int(0.2*size)) != committed.At(int(0.2*size), int(0.2*size)) {
		t.Fatal("earlier commit lost on cancel")
	}
}

func TestRequestTokenSupersedes(t *testing.T) {
	var tok requestToken
	ctx1, id1 := tok.begin()
	_, id2 := tok.begin()
	if ctx1.Err() == nil {
		t.Fatal("first context not cancelled by second begin")
	}
	if tok.isCurrent(id1) {
		t.Fatal("superseded id still current")
	}
	if !tok.isCurrent(id2) {
		t.Fatal("latest id not current")
	}
	tok.cancelAll()
	if tok.isCurrent(id2) {
		t.Fatal("cancelAll left id current")
	}
}
