package roi

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
)

// gradientImage builds a test image with a soft horizontal ramp and a
// hard vertical boundary, so both the contrast enhancer and the edge
// detector have something to find.
func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(40 + x*100/w)
			if y > h/2 {
				v += 100
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestCacheBuildsOnceAndHits(t *testing.T) {
	c := NewCache(4, 3)
	img := gradientImage(64, 64)

	a1 := c.Get("room-1", img)
	a2 := c.Get("room-1", img)
	if a1 != a2 {
		t.Errorf("second Get rebuilt the artifacts")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss / 1 entry", st)
	}
	if st.PerEntry["room-1"] != 2 {
		t.Errorf("per-entry uses = %d, want 2", st.PerEntry["room-1"])
	}
}

func TestCacheArtifactsComplete(t *testing.T) {
	c := NewCache(4, 4)
	a := c.Get("k", gradientImage(96, 80))
	if a.Width != 96 || a.Height != 80 {
		t.Fatalf("dimensions %dx%d", a.Width, a.Height)
	}
	if len(a.Gray) != 96*80 || len(a.Enhanced) != 96*80 || len(a.Cost) != 96*80 {
		t.Fatalf("grid lengths wrong")
	}
	if a.Edges == nil || a.Edges.MaxMagnitude <= 0 {
		t.Errorf("edge map missing or empty")
	}
	if a.Pyramid == nil || len(a.Pyramid.Levels) < 2 {
		t.Errorf("pyramid missing levels")
	}
	// Normalized enhancement spans [0,1].
	lo, hi := a.Enhanced[0], a.Enhanced[0]
	for _, v := range a.Enhanced {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo < 0 || hi > 1 || hi-lo < 0.9 {
		t.Errorf("enhanced range [%v,%v], want ~[0,1]", lo, hi)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := NewCache(2, 2)
	img := gradientImage(16, 16)
	c.Get("a", img)
	c.Get("b", img)
	c.Get("a", img) // refresh a
	c.Get("c", img) // evicts b

	if _, ok := c.Lookup("b"); ok {
		t.Errorf("least recently used entry survived")
	}
	if _, ok := c.Lookup("a"); !ok {
		t.Errorf("recently used entry evicted")
	}
	if st := c.Stats(); st.Evictions != 1 || st.Entries != 2 {
		t.Errorf("stats = %+v, want 1 eviction / 2 entries", st)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(4, 2)
	c.Get("a", gradientImage(16, 16))
	c.Clear()
	st := c.Stats()
	if st.Entries != 0 || st.Hits != 0 || st.Misses != 0 {
		t.Errorf("stats after clear = %+v", st)
	}
	if _, ok := c.Lookup("a"); ok {
		t.Errorf("entry survived clear")
	}
}

func TestCacheConcurrentSameKey(t *testing.T) {
	c := NewCache(8, 2)
	img := gradientImage(48, 48)

	const n = 16
	results := make([]*Artifacts, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get("shared", img)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d saw a different artifacts pointer", i)
		}
	}
	if results[0] == nil || len(results[0].Enhanced) != 48*48 {
		t.Fatalf("shared entry incomplete")
	}
	if st := c.Stats(); st.Misses != 1 {
		t.Errorf("misses = %d, want 1 (single build)", st.Misses)
	}
}

func TestCacheConcurrentDistinctKeys(t *testing.T) {
	c := NewCache(64, 2)
	img := gradientImage(24, 24)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := c.Get(fmt.Sprintf("k%d", i), img)
			if a == nil || len(a.Gray) != 24*24 {
				t.Errorf("key k%d: incomplete artifacts", i)
			}
		}(i)
	}
	wg.Wait()
}

func TestContentKey(t *testing.T) {
	img1 := gradientImage(64, 64)
	img2 := gradientImage(64, 64)
	r := image.Rect(8, 8, 56, 56)

	if ContentKey(img1, r) != ContentKey(img2, r) {
		t.Errorf("identical content produced different keys")
	}
	// Different region → different key.
	if ContentKey(img1, r) == ContentKey(img1, image.Rect(0, 0, 32, 32)) {
		t.Errorf("different regions share a key")
	}
	// Materially different content → different key.
	img3 := gradientImage(64, 64)
	for y := 16; y < 48; y++ {
		for x := 16; x < 48; x++ {
			img3.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	if ContentKey(img1, r) == ContentKey(img3, r) {
		t.Errorf("different content shares a key")
	}
	// Degenerate region still yields a stable key, not a panic.
	empty := ContentKey(img1, image.Rect(100, 100, 120, 120))
	if empty == "" {
		t.Errorf("empty region key is empty")
	}
}
