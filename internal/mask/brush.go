package mask

import (
	"math"

	"github.com/mapwright/roomcarve/internal/geometry"
)

// StampDisc writes one brush stamp centered at pixel coordinates (cx,cy)
// into the mask, combining with existing coverage via max.
//
// hardness in [0,1] controls the falloff: coverage is full inside
// radius*hardness and fades linearly to zero at radius. pressure in
// (0,1] scales the peak coverage.
func StampDisc(m *RoomMask, cx, cy, radius, hardness, pressure float64) {
	if radius <= 0 || pressure <= 0 {
		return
	}
	if hardness < 0 {
		hardness = 0
	} else if hardness > 1 {
		hardness = 1
	}
	if pressure > 1 {
		pressure = 1
	}
	peak := 255 * pressure
	hardRadius := radius * hardness

	x0 := int(math.Floor(cx - radius))
	x1 := int(math.Ceil(cx + radius))
	y0 := int(math.Floor(cy - radius))
	y1 := int(math.Ceil(cy + radius))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
				continue
			}
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if d > radius {
				continue
			}
			cov := peak
			if d > hardRadius && radius > hardRadius {
				cov = peak * (radius - d) / (radius - hardRadius)
			}
			i := y*m.Width + x
			if v := uint8(cov + 0.5); v > m.Data[i] {
				m.Data[i] = v
			}
		}
	}
}

// PaintStroke rasterizes one stroke segment from a to b (normalized world
// coordinates) as interpolated disc stamps, spaced at half the brush
// radius so dragging fast leaves no gaps. Pressure is interpolated
// linearly between the endpoint pressures.
//
// worldRadius is the brush radius in normalized units; it is converted to
// pixels at the mask's resolution.
func PaintStroke(m *RoomMask, a, b geometry.Point, worldRadius, hardness, pressureA, pressureB float64) {
	if m.Width == 0 || m.Height == 0 || m.Bounds.Width() <= 0 {
		return
	}
	radius := worldRadius / m.Bounds.Width() * float64(m.Width)
	if radius < 0.5 {
		radius = 0.5
	}

	ax, ay := m.WorldToPixel(a)
	bx, by := m.WorldToPixel(b)
	length := math.Hypot(bx-ax, by-ay)
	steps := int(length/(radius/2)) + 1
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		StampDisc(m,
			ax+t*(bx-ax),
			ay+t*(by-ay),
			radius, hardness,
			pressureA+t*(pressureB-pressureA))
	}
}
