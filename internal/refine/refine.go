package refine

import (
	"github.com/mapwright/roomcarve/internal/mask"
)

// BoundaryToEdges re-fits a mask boundary to an energy field (typically
// multi-scale edge magnitude over the same grid).
//
// The input mask's interior is filled, then eroded by one pixel so the
// growth seeds sit safely inside the region rather than on its noisy
// rim. From those seeds a breadth-first expansion runs, constrained to a
// band: the original mask dilated by bandRadius pixels. A pixel whose
// energy meets or exceeds threshold freezes and is never crossed, so
// the regrown boundary clings to the inside of surrounding edges.
// Interior holes left by frozen speckle are filled at the end.
//
// The original mask is not modified. energy must be a Width×Height grid
// matching the mask; a size mismatch returns an untouched clone.
func BoundaryToEdges(m *mask.RoomMask, energy []float64, threshold float64, bandRadius int) *mask.RoomMask {
	if m == nil {
		return nil
	}
	if len(energy) != m.Width*m.Height || m.Width == 0 || m.Height == 0 {
		return m.Clone()
	}
	if bandRadius < 1 {
		bandRadius = 1
	}

	// Seeds: filled interior, eroded one pixel.
	seeds := m.Clone()
	mask.FillInterior(seeds)
	mask.Erode(seeds, 1)

	// Band: the original coverage dilated by the band radius.
	band := m.Clone()
	mask.FillInterior(band)
	mask.Dilate(band, bandRadius)

	w, h := m.Width, m.Height
	out := mask.New(w, h, m.Bounds)
	queue := make([]int32, 0, 1024)
	visited := make([]bool, w*h)

	for i, v := range seeds.Data {
		if v >= 128 {
			out.Data[i] = 255
			visited[i] = true
			queue = append(queue, int32(i))
		}
	}
	if len(queue) == 0 {
		// Nothing survived the erosion (a sliver mask); fall back to the
		// original coverage.
		return m.Clone()
	}

	for head := 0; head < len(queue); head++ {
		i := int(queue[head])
		x, y := i%w, i/w
		for _, o := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+o[0], y+o[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			ni := ny*w + nx
			if visited[ni] {
				continue
			}
			visited[ni] = true
			if band.Data[ni] < 128 {
				continue // outside the allowed band
			}
			if energy[ni] >= threshold {
				continue // frozen: an edge lives here
			}
			out.Data[ni] = 255
			queue = append(queue, int32(ni))
		}
	}

	mask.FillInterior(out)
	return out
}
