package roi

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// DefaultCapacity bounds the cache when the caller passes a non-positive
// capacity. At ~1MB of artifacts per typical ROI this keeps worst-case
// memory in the tens of megabytes.
const DefaultCapacity = 32

// Stats is a snapshot of cache behavior since creation (or the last
// Clear).
type Stats struct {
	Entries   int            `json:"entries"`
	Hits      int64          `json:"hits"`
	Misses    int64          `json:"misses"`
	Evictions int64          `json:"evictions"`
	PerEntry  map[string]int `json:"per_entry"` // key → times served
}

// Cache memoizes preprocessing artifacts per key.
//
// Build-then-publish: the artifacts for a key are computed outside the
// cache lock and installed atomically, so a concurrent reader of the
// same key either waits on the in-flight build or sees the finished
// entry, never a partially initialized one. Least-recently-used entries
// are evicted once capacity is exceeded.
type Cache struct {
	mu       sync.Mutex
	capacity int
	depth    int // pyramid depth passed to the pipeline
	entries  map[string]*entry
	order    *list.List // front = most recently used

	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	key       string
	artifacts *Artifacts
	ready     chan struct{} // closed when artifacts is set
	uses      int
	elem      *list.Element
}

// NewCache creates a cache holding at most capacity entries
// (DefaultCapacity if capacity <= 0). pyramidDepth is forwarded to the
// cost-pyramid builder; 0 selects its default.
func NewCache(capacity, pyramidDepth int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		depth:    pyramidDepth,
		entries:  make(map[string]*entry),
		order:    list.New(),
	}
}

// Get returns the artifacts for key, building them from img on first
// use. Concurrent Gets for the same key perform one build; the others
// block until it is published.
func (c *Cache) Get(key string, img image.Image) *Artifacts {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.hits++
		e.uses++
		c.order.MoveToFront(e.elem)
		c.mu.Unlock()
		<-e.ready
		return e.artifacts
	}

	e := &entry{key: key, ready: make(chan struct{}), uses: 1}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
	c.misses++
	c.evictLocked()
	c.mu.Unlock()

	// Build outside the lock; publish by closing ready.
	e.artifacts = buildArtifacts(img, c.depth)
	close(e.ready)
	return e.artifacts
}

// Lookup returns the artifacts for key if present and fully built, with
// no side effects on LRU order. Useful for debug surfaces.
func (c *Cache) Lookup(key string) (*Artifacts, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.ready:
		return e.artifacts, true
	default:
		return nil, false
	}
}

// evictLocked trims the LRU tail down to capacity. Callers hold mu.
func (c *Cache) evictLocked() {
	for len(c.entries) > c.capacity {
		tail := c.order.Back()
		if tail == nil {
			return
		}
		e := tail.Value.(*entry)
		c.order.Remove(tail)
		delete(c.entries, e.key)
		c.evictions++
	}
}

// Stats snapshots usage counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	per := make(map[string]int, len(c.entries))
	for k, e := range c.entries {
		per[k] = e.uses
	}
	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		PerEntry:  per,
	}
}

// Clear drops every entry and resets the counters. The only staleness
// recovery: the cache cannot detect that an image changed under a key.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// contentSample is the side length of the coarse grid sampled by
// ContentKey.
const contentSample = 8

// ContentKey derives an approximate content hash for an ROI: the region
// is box-downsampled to an 8×8 grid and folded through FNV-1a together
// with the region rectangle. Two visually different regions may in
// principle collide; a collision costs a wrong cache hit on
// close-to-identical content, not corruption. Not a cryptographic
// digest.
func ContentKey(img image.Image, region image.Rectangle) string {
	region = region.Intersect(img.Bounds())
	h := fnv.New64a()
	fmt.Fprintf(h, "%d,%d,%d,%d;", region.Min.X, region.Min.Y, region.Max.X, region.Max.Y)
	if !region.Empty() {
		cropped := imaging.Crop(img, region)
		coarse := imaging.Resize(cropped, contentSample, contentSample, imaging.Box)
		h.Write(coarse.Pix)
	}
	return fmt.Sprintf("roi-%016x", h.Sum64())
}
