package tools

import (
	"github.com/mapwright/roomcarve/internal/mask"
	"github.com/mapwright/roomcarve/internal/selection"
)

// Paintbrush paints coverage directly. A gesture clones the committed
// mask (or starts blank), stamps on the down point, strokes between
// consecutive move points, and commits after every event so the stroke
// is visible while it is being drawn.
type Paintbrush struct {
	env     *Env
	working *mask.RoomMask
	before  *mask.RoomMask
	last    PointerEvent
	active  bool

	// Erase switches the brush to removing coverage instead of adding.
	Erase bool
}

// NewPaintbrush creates a brush bound to env.
func NewPaintbrush(env *Env) *Paintbrush {
	return &Paintbrush{env: env}
}

func (t *Paintbrush) OnPointerDown(ev PointerEvent) {
	t.env.Store.SetActiveTool(selection.ToolPaintbrush)
	t.before = t.env.Store.Snapshot().Mask
	t.working = t.env.baseMask()
	t.active = true
	t.last = ev
	t.stamp(ev)
	t.env.Store.Commit(t.working)
}

func (t *Paintbrush) OnPointerMove(ev PointerEvent) {
	if !t.active {
		return
	}
	t.stroke(t.last, ev)
	t.last = ev
	t.env.Store.Commit(t.working)
}

func (t *Paintbrush) OnPointerUp(ev PointerEvent) {
	if !t.active {
		return
	}
	t.stroke(t.last, ev)
	t.active = false
	t.env.Store.Commit(t.working)
	t.working = nil
	t.before = nil
}

// OnCancel abandons the stroke and restores the pre-gesture mask. The
// store saw intermediate commits for live preview, so the restore is
// itself a commit of the state captured on pointer down.
func (t *Paintbrush) OnCancel() {
	if !t.active {
		return
	}
	t.active = false
	t.working = nil
	t.env.Store.Commit(t.before)
	t.before = nil
}

func (t *Paintbrush) stamp(ev PointerEvent) {
	t.stroke(ev, ev)
}

func (t *Paintbrush) stroke(from, to PointerEvent) {
	tn := t.env.Store.Snapshot().Tunables
	target := t.paintTarget()
	mask.PaintStroke(target, from.Pos, to.Pos, tn.BrushRadius, tn.BrushHardness, pressureOf(from), pressureOf(to))
	t.applyPaint(target)
}

// paintTarget returns the mask the stroke paints into: the working mask
// when adding, a scratch coverage mask when erasing.
func (t *Paintbrush) paintTarget() *mask.RoomMask {
	if !t.Erase {
		return t.working
	}
	return mask.New(t.working.Width, t.working.Height, t.working.Bounds)
}

func (t *Paintbrush) applyPaint(target *mask.RoomMask) {
	if t.Erase {
		mask.EraseCoverage(t.working, target)
	}
}

func pressureOf(ev PointerEvent) float64 {
	if ev.Pressure <= 0 {
		return 1
	}
	return ev.Pressure
}
