package wand

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// labGrid holds the precomputed L*a*b* components of an image, one
// float64 triple per pixel, so the flood fill compares colors without
// re-running the sRGB→linear→XYZ→Lab chain per visit.
type labGrid struct {
	w, h    int
	l, a, b []float64
}

// makeLabGrid converts an image to Lab. Conversion goes through
// go-colorful, which performs the sRGB linearization and XYZ transform
// with D65 white.
func makeLabGrid(img image.Image) *labGrid {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := &labGrid{
		w: w, h: h,
		l: make([]float64, w*h),
		a: make([]float64, w*h),
		b: make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, bl, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			c := colorful.Color{
				R: float64(r>>8) / 255,
				G: float64(gr>>8) / 255,
				B: float64(bl>>8) / 255,
			}
			l, a, b := c.Lab()
			i := y*w + x
			g.l[i], g.a[i], g.b[i] = l, a, b
		}
	}
	return g
}

// distanceTo returns the Euclidean Lab distance between pixel i and the
// reference triple, scaled by 100 so tolerances are expressed on the
// familiar 0–100 L* range rather than colorful's 0–1 convention.
func (g *labGrid) distanceTo(i int, l, a, b float64) float64 {
	dl := (g.l[i] - l) * 100
	da := (g.a[i] - a) * 100
	db := (g.b[i] - b) * 100
	return math.Sqrt(dl*dl + da*da + db*db)
}
