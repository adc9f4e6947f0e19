package mask

import (
	"github.com/mapwright/roomcarve/internal/geometry"
)

// RoomMask is a fixed-resolution coverage grid representing an arbitrary
// 2D region, anchored to a normalized bounding rectangle.
//
// Data holds Width*Height coverage values in row-major order. 0 means the
// pixel is outside the region, 255 fully inside; intermediate values carry
// feathered or anti-aliased partial coverage.
type RoomMask struct {
	Width  int             `json:"width"`  // Grid width in pixels
	Height int             `json:"height"` // Grid height in pixels
	Bounds geometry.Bounds `json:"bounds"` // Normalized rectangle the grid maps onto
	Data   []uint8         `json:"-"`      // Row-major coverage values, len == Width*Height
}

// New returns an all-zero mask of the given size anchored to bounds.
func New(width, height int, bounds geometry.Bounds) *RoomMask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &RoomMask{
		Width:  width,
		Height: height,
		Bounds: bounds.Normalize(),
		Data:   make([]uint8, width*height),
	}
}

// Clone returns a deep copy. Tools clone the committed mask before
// mutating so the store never aliases a working buffer.
func (m *RoomMask) Clone() *RoomMask {
	c := &RoomMask{Width: m.Width, Height: m.Height, Bounds: m.Bounds}
	c.Data = make([]uint8, len(m.Data))
	copy(c.Data, m.Data)
	return c
}

// At returns the coverage at (x,y), or 0 outside the grid.
func (m *RoomMask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Data[y*m.Width+x]
}

// Set writes coverage at (x,y); out-of-grid writes are ignored.
func (m *RoomMask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Data[y*m.Width+x] = v
}

// IsEmpty reports whether no pixel reaches the coverage threshold.
func (m *RoomMask) IsEmpty() bool {
	for _, v := range m.Data {
		if v >= coverageThreshold {
			return false
		}
	}
	return true
}

// CoverageRatio returns the fraction of pixels at or above the coverage
// threshold, in [0,1]. An empty grid reports 0.
func (m *RoomMask) CoverageRatio() float64 {
	if len(m.Data) == 0 {
		return 0
	}
	n := 0
	for _, v := range m.Data {
		if v >= coverageThreshold {
			n++
		}
	}
	return float64(n) / float64(len(m.Data))
}

// coverageThreshold separates "inside" from "outside" wherever an
// operation needs a binary view of the grid.
const coverageThreshold = 128

// PixelCenter returns the normalized world coordinate of the center of
// pixel (x,y) under the mask's bounds.
func (m *RoomMask) PixelCenter(x, y int) geometry.Point {
	return geometry.Point{
		X: m.Bounds.MinX + (float64(x)+0.5)/float64(m.Width)*m.Bounds.Width(),
		Y: m.Bounds.MinY + (float64(y)+0.5)/float64(m.Height)*m.Bounds.Height(),
	}
}

// WorldToPixel maps a normalized world point to (possibly out-of-grid)
// pixel coordinates under the mask's bounds.
func (m *RoomMask) WorldToPixel(p geometry.Point) (float64, float64) {
	bw, bh := m.Bounds.Width(), m.Bounds.Height()
	if bw <= 0 || bh <= 0 {
		return -1, -1
	}
	px := (p.X - m.Bounds.MinX) / bw * float64(m.Width)
	py := (p.Y - m.Bounds.MinY) / bh * float64(m.Height)
	return px - 0.5, py - 0.5
}

// CompositeMax merges src into dst taking the per-pixel maximum. The two
// masks must share dimensions; mismatched masks leave dst untouched.
func CompositeMax(dst, src *RoomMask) {
	if dst.Width != src.Width || dst.Height != src.Height {
		return
	}
	for i, v := range src.Data {
		if v > dst.Data[i] {
			dst.Data[i] = v
		}
	}
}

// EraseCoverage attenuates dst by the coverage grid: each destination
// pixel becomes old*(255-coverage)/255, so full-coverage erasure clears
// the pixel and partial coverage fades it. Dimension mismatch is a no-op.
func EraseCoverage(dst, coverage *RoomMask) {
	if dst.Width != coverage.Width || dst.Height != coverage.Height {
		return
	}
	for i, c := range coverage.Data {
		dst.Data[i] = uint8(uint16(dst.Data[i]) * uint16(255-c) / 255)
	}
}
