package edges

import (
	"image"
	"math"
)

// EdgeMap holds the gradient field of an image.
//
// Magnitudes, GradientX and GradientY are row-major Width×Height grids.
// MaxMagnitude is the largest value in Magnitudes and is the reference
// for every relative threshold (snap acceptance, wand edge stops).
type EdgeMap struct {
	Width        int
	Height       int
	Magnitudes   []float64
	GradientX    []float64
	GradientY    []float64
	MaxMagnitude float64
}

// MagnitudeAt returns the gradient magnitude at (x,y), or 0 outside the
// grid.
func (e *EdgeMap) MagnitudeAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= e.Width || y >= e.Height {
		return 0
	}
	return e.Magnitudes[y*e.Width+x]
}

// BuildEdgeMap computes the gradient field of an image.
//
// Pipeline: luminance conversion (ITU-R BT.601 weights) → 3×3 box blur to
// knock down single-pixel noise → Sobel X/Y → magnitude. Border handling
// clamps sample coordinates, matching the convolution convention used
// everywhere else in this module.
func BuildEdgeMap(img image.Image) *EdgeMap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			rf := float64(r>>8) / 255.0
			gf := float64(g>>8) / 255.0
			bf := float64(bl>>8) / 255.0
			gray[y*w+x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}
	return BuildEdgeMapFromGray(gray, w, h)
}

// BuildEdgeMapFromGray computes the gradient field from an existing
// grayscale grid (values in [0,1]). The ROI preprocessing pipeline enters
// here after contrast enhancement and denoising.
func BuildEdgeMapFromGray(gray []float64, w, h int) *EdgeMap {
	e := &EdgeMap{
		Width:      w,
		Height:     h,
		Magnitudes: make([]float64, w*h),
		GradientX:  make([]float64, w*h),
		GradientY:  make([]float64, w*h),
	}
	if w == 0 || h == 0 {
		return e
	}

	blurred := boxBlur3(gray, w, h)

	sobelX := [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY := [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := blurred[clamp(y+ky, 0, h-1)*w+clamp(x+kx, 0, w-1)]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*w + x
			e.GradientX[i] = gx
			e.GradientY[i] = gy
			mag := math.Sqrt(gx*gx + gy*gy)
			e.Magnitudes[i] = mag
			if mag > e.MaxMagnitude {
				e.MaxMagnitude = mag
			}
		}
	}
	return e
}

// boxBlur3 applies a 3×3 box blur with clamped borders.
func boxBlur3(src []float64, w, h int) []float64 {
	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sum += src[clamp(y+ky, 0, h-1)*w+clamp(x+kx, 0, w-1)]
				}
			}
			out[y*w+x] = sum / 9
		}
	}
	return out
}

// EdgeEnergyMultiScale averages gradient magnitude across octaves: the
// grid is box-downsampled by 2 per scale, each octave's Sobel magnitude
// is upsampled back and accumulated. Coarse octaves respond to wide soft
// transitions a single-scale Sobel misses, so the combined field makes a
// steadier refinement barrier.
func EdgeEnergyMultiScale(gray []float64, w, h, scales int) []float64 {
	if scales < 1 {
		scales = 1
	}
	energy := make([]float64, w*h)
	cur, cw, ch := gray, w, h
	used := 0
	for s := 0; s < scales && cw >= 4 && ch >= 4; s++ {
		em := BuildEdgeMapFromGray(cur, cw, ch)
		factor := 1 << s
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sx := clamp(x/factor, 0, cw-1)
				sy := clamp(y/factor, 0, ch-1)
				energy[y*w+x] += em.Magnitudes[sy*cw+sx]
			}
		}
		used++
		cur, cw, ch = downsample2(cur, cw, ch)
	}
	if used > 1 {
		inv := 1 / float64(used)
		for i := range energy {
			energy[i] *= inv
		}
	}
	return energy
}

// downsample2 halves a grid with 2×2 box averaging.
func downsample2(src []float64, w, h int) ([]float64, int, int) {
	nw, nh := w/2, h/2
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	out := make([]float64, nw*nh)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			x0, y0 := x*2, y*2
			x1, y1 := clamp(x0+1, 0, w-1), clamp(y0+1, 0, h-1)
			out[y*nw+x] = (src[y0*w+x0] + src[y0*w+x1] + src[y1*w+x0] + src[y1*w+x1]) / 4
		}
	}
	return out, nw, nh
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
