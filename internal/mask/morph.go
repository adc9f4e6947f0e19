package mask

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// FillInterior fills every hole enclosed by covered pixels: background is
// flood-filled inward from the grid border, and any uncovered pixel the
// flood never reaches is inside the region and becomes fully covered.
func FillInterior(m *RoomMask) {
	if m.Width == 0 || m.Height == 0 {
		return
	}
	outside := make([]bool, len(m.Data))
	queue := make([]int, 0, 2*(m.Width+m.Height))

	push := func(x, y int) {
		if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
			return
		}
		i := y*m.Width + x
		if outside[i] || m.Data[i] >= coverageThreshold {
			return
		}
		outside[i] = true
		queue = append(queue, i)
	}

	for x := 0; x < m.Width; x++ {
		push(x, 0)
		push(x, m.Height-1)
	}
	for y := 0; y < m.Height; y++ {
		push(0, y)
		push(m.Width-1, y)
	}
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%m.Width, i/m.Width
		push(x-1, y)
		push(x+1, y)
		push(x, y-1)
		push(x, y+1)
	}

	for i := range m.Data {
		if !outside[i] && m.Data[i] < coverageThreshold {
			m.Data[i] = 255
		}
	}
}

// Erode shrinks the covered region by the given pixel radius using a disc
// structuring element: a pixel survives only if every covered-region test
// within the disc passes.
func Erode(m *RoomMask, radius int) {
	morph(m, radius, true)
}

// Dilate grows the covered region by the given pixel radius using a disc
// structuring element.
func Dilate(m *RoomMask, radius int) {
	morph(m, radius, false)
}

// DilateByWorldRadius dilates by a radius expressed in normalized world
// units, converted to pixels at the mask's local resolution. The pixel
// radius is at least 1 whenever the world radius is positive, so the
// operation is never silently lost on coarse grids.
func DilateByWorldRadius(m *RoomMask, worldRadius float64) {
	if worldRadius <= 0 || m.Bounds.Width() <= 0 {
		return
	}
	r := int(math.Round(worldRadius / m.Bounds.Width() * float64(m.Width)))
	if r < 1 {
		r = 1
	}
	Dilate(m, r)
}

// morph applies a disc erosion or dilation in one pass over a snapshot of
// the binary view of the grid.
func morph(m *RoomMask, radius int, erode bool) {
	if radius <= 0 || m.Width == 0 || m.Height == 0 {
		return
	}
	src := make([]bool, len(m.Data))
	for i, v := range m.Data {
		src[i] = v >= coverageThreshold
	}
	offsets := discOffsets(radius)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			hit := false
			for _, o := range offsets {
				nx, ny := x+o[0], y+o[1]
				inGrid := nx >= 0 && ny >= 0 && nx < m.Width && ny < m.Height
				covered := inGrid && src[ny*m.Width+nx]
				if erode {
					if !covered {
						hit = true
						break
					}
				} else if covered {
					hit = true
					break
				}
			}
			i := y*m.Width + x
			if erode {
				if hit {
					m.Data[i] = 0
				} else if src[i] {
					m.Data[i] = 255
				}
			} else {
				if hit {
					m.Data[i] = 255
				}
			}
		}
	}
}

// discOffsets enumerates the integer offsets within a disc of the given
// radius, the structuring element shared by Erode and Dilate.
func discOffsets(radius int) [][2]int {
	offsets := make([][2]int, 0, (2*radius+1)*(2*radius+1))
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				offsets = append(offsets, [2]int{dx, dy})
			}
		}
	}
	return offsets
}

// Feather softens the mask boundary with a Gaussian blur whose radius is
// proportional to amount (in normalized world units, converted to pixels
// at the mask resolution). amount <= 0 is a no-op.
func Feather(m *RoomMask, amount float64) {
	if amount <= 0 || m.Width == 0 || m.Height == 0 || m.Bounds.Width() <= 0 {
		return
	}
	radius := amount / m.Bounds.Width() * float64(m.Width)
	if radius < 0.5 {
		return
	}

	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(img.Pix, m.Data)
	blurred := blur.Gaussian(img, radius)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r, _, _, _ := blurred.At(x, y).RGBA()
			m.Data[y*m.Width+x] = uint8(r >> 8)
		}
	}
}
