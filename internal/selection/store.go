package selection

import (
	"sync"

	"github.com/mapwright/roomcarve/internal/mask"
)

// ToolID identifies which editing tool is active.
type ToolID string

const (
	ToolNone       ToolID = ""
	ToolLasso      ToolID = "lasso"
	ToolSmartLasso ToolID = "smart-lasso"
	ToolWand       ToolID = "wand"
	ToolPaintbrush ToolID = "paintbrush"
)

// Tunables is the user-adjustable parameter panel shared by the tools.
type Tunables struct {
	BrushRadius   float64 `json:"brushRadius"`   // normalized units
	BrushHardness float64 `json:"brushHardness"` // 0..1
	WandTolerance float64 `json:"wandTolerance"` // Lab distance, 0..100 scale
	Connectivity  int     `json:"connectivity"`  // 4 or 8
	SnapStrength  float64 `json:"snapStrength"`  // 0..1
	FeatherAmount float64 `json:"featherAmount"` // normalized units
	EdgeBandWidth int     `json:"edgeBandWidth"` // refinement band, pixels
	DilateEnabled bool    `json:"dilateEnabled"`
}

// DefaultTunables are sensible interactive starting values.
func DefaultTunables() Tunables {
	return Tunables{
		BrushRadius:   0.02,
		BrushHardness: 0.7,
		WandTolerance: 18,
		Connectivity:  4,
		SnapStrength:  0.8,
		FeatherAmount: 0.004,
		EdgeBandWidth: 8,
	}
}

// Snapshot is an immutable view of the store for readers. Mask is the
// committed mask (shared, must not be mutated; clone before editing).
type Snapshot struct {
	Version        uint64
	ActiveTool     ToolID
	Mask           *mask.RoomMask
	Tunables       Tunables
	Status         string
	EntranceLocked bool
	EntranceID     string
	CacheKey       string
}

// Listener receives a snapshot after every store mutation. Called
// synchronously, outside the store lock; a slow listener delays the
// committing tool, not other readers.
type Listener func(Snapshot)

// Store holds one editing session's selection state.
type Store struct {
	mu        sync.Mutex
	version   uint64
	tool      ToolID
	committed *mask.RoomMask
	tunables  Tunables
	status    string
	locked    bool
	lockID    string
	cacheKey  string

	nextSub   int
	listeners map[int]Listener
}

// NewStore creates an empty session store with default tunables.
func NewStore() *Store {
	return &Store{
		tunables:  DefaultTunables(),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns an unsubscribe handle.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:        s.version,
		ActiveTool:     s.tool,
		Mask:           s.committed,
		Tunables:       s.tunables,
		Status:         s.status,
		EntranceLocked: s.locked,
		EntranceID:     s.lockID,
		CacheKey:       s.cacheKey,
	}
}

// mutate applies fn under the lock, bumps the version, and notifies
// listeners with the resulting snapshot.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	snap := s.snapshotLocked()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()
	for _, l := range ls {
		l(snap)
	}
}

// Commit atomically replaces the committed mask. The mask is cloned so
// the caller's working buffer is never aliased; nil clears the
// selection.
func (s *Store) Commit(m *mask.RoomMask) {
	var c *mask.RoomMask
	if m != nil {
		c = m.Clone()
	}
	s.mutate(func() { s.committed = c })
}

// ClearMask drops the committed selection.
func (s *Store) ClearMask() { s.Commit(nil) }

// SetActiveTool switches tools and resets transient status.
func (s *Store) SetActiveTool(t ToolID) {
	s.mutate(func() {
		s.tool = t
		s.status = ""
	})
}

// SetTunables replaces the parameter panel.
func (s *Store) SetTunables(tn Tunables) {
	s.mutate(func() { s.tunables = tn })
}

// SetStatus publishes a busy/error string for the UI.
func (s *Store) SetStatus(status string) {
	s.mutate(func() { s.status = status })
}

// SetEntranceLock records the wand's entrance-lock result.
func (s *Store) SetEntranceLock(locked bool, id string) {
	s.mutate(func() {
		s.locked = locked
		s.lockID = id
	})
}

// SetCacheKey records which preprocessing-cache entry the current
// gesture is working against.
func (s *Store) SetCacheKey(key string) {
	s.mutate(func() { s.cacheKey = key })
}
