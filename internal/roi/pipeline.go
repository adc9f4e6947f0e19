package roi

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/livewire"
)

// Artifacts is everything the preprocessing pipeline derives from one
// region of interest. All grids are row-major Width×Height, values in
// [0,1]. Immutable once returned.
type Artifacts struct {
	Width    int
	Height   int
	Gray     []float64 // raw luminance
	Enhanced []float64 // after tile contrast enhancement + denoise + normalize
	Edges    *edges.EdgeMap
	Cost     []float64 // live-wire base cost grid
	Pyramid  *livewire.CostPyramid
}

// clahe tiling parameters: 8×8 tiles with the histogram clipped at 3×
// the mean bin height before equalization.
const (
	claheTiles     = 8
	claheClipRatio = 3.0
	claheBins      = 64
)

// buildArtifacts runs the full pipeline on an ROI image:
// grayscale → tile-based contrast enhancement → Gaussian denoise →
// normalize → edge map → cost grid → cost pyramid.
func buildArtifacts(img image.Image, pyramidDepth int) *Artifacts {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	a := &Artifacts{Width: w, Height: h}
	if w == 0 || h == 0 {
		return a
	}

	// Grayscale via bild, then denoise while still an image.
	grayImg := effect.Grayscale(img)
	denoised := blur.Gaussian(grayImg, 1.2)

	a.Gray = make([]float64, w*h)
	work := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := grayImg.At(x, y).RGBA()
			a.Gray[y*w+x] = float64(r>>8) / 255
			dr, _, _, _ := denoised.At(x, y).RGBA()
			work[y*w+x] = float64(dr>>8) / 255
		}
	}

	a.Enhanced = normalize(claheEnhance(work, w, h))
	a.Edges = edges.BuildEdgeMapFromGray(a.Enhanced, w, h)
	a.Pyramid = livewire.BuildCostPyramid(a.Enhanced, w, h, pyramidDepth)
	a.Cost = a.Pyramid.Levels[0].Data
	return a
}

// claheEnhance applies contrast-limited adaptive histogram equalization:
// the grid is cut into claheTiles×claheTiles tiles, each tile's
// histogram is clipped and equalized, and every pixel blends the
// transfer functions of its four surrounding tile centers bilinearly to
// avoid visible tile seams.
func claheEnhance(src []float64, w, h int) []float64 {
	tw := (w + claheTiles - 1) / claheTiles
	th := (h + claheTiles - 1) / claheTiles
	if tw < 1 || th < 1 {
		return src
	}
	tilesX := (w + tw - 1) / tw
	tilesY := (h + th - 1) / th

	// Per-tile transfer functions (clipped-equalized CDFs).
	transfer := make([][]float64, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			transfer[ty*tilesX+tx] = tileTransfer(src, w, x0, y0, x1, y1)
		}
	}

	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Position relative to tile centers, for bilinear blending.
			fx := (float64(x)-float64(tw)/2)/float64(tw)
			fy := (float64(y)-float64(th)/2)/float64(th)
			tx0 := clampInt(int(fx), 0, tilesX-1)
			ty0 := clampInt(int(fy), 0, tilesY-1)
			tx1 := clampInt(tx0+1, 0, tilesX-1)
			ty1 := clampInt(ty0+1, 0, tilesY-1)
			wx := fx - float64(tx0)
			wy := fy - float64(ty0)
			if wx < 0 {
				wx = 0
			} else if wx > 1 {
				wx = 1
			}
			if wy < 0 {
				wy = 0
			} else if wy > 1 {
				wy = 1
			}

			v := src[y*w+x]
			bin := clampInt(int(v*float64(claheBins-1)+0.5), 0, claheBins-1)
			v00 := transfer[ty0*tilesX+tx0][bin]
			v10 := transfer[ty0*tilesX+tx1][bin]
			v01 := transfer[ty1*tilesX+tx0][bin]
			v11 := transfer[ty1*tilesX+tx1][bin]
			out[y*w+x] = (v00*(1-wx)+v10*wx)*(1-wy) + (v01*(1-wx)+v11*wx)*wy
		}
	}
	return out
}

// tileTransfer builds the clipped-equalized transfer function of one
// tile: histogram, clip at claheClipRatio× the mean bin, redistribute
// the excess uniformly, then cumulative-normalize.
func tileTransfer(src []float64, stride, x0, y0, x1, y1 int) []float64 {
	var hist [claheBins]float64
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			bin := clampInt(int(src[y*stride+x]*float64(claheBins-1)+0.5), 0, claheBins-1)
			hist[bin]++
			n++
		}
	}
	if n == 0 {
		out := make([]float64, claheBins)
		for i := range out {
			out[i] = float64(i) / float64(claheBins-1)
		}
		return out
	}

	clip := claheClipRatio * float64(n) / claheBins
	excess := 0.0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	redist := excess / claheBins
	for i := range hist {
		hist[i] += redist
	}

	out := make([]float64, claheBins)
	cum := 0.0
	for i := range hist {
		cum += hist[i]
		out[i] = cum / float64(n)
	}
	return out
}

// normalize stretches a grid to span [0,1]; a constant grid maps to 0.
func normalize(src []float64) []float64 {
	lo, hi := src[0], src[0]
	for _, v := range src {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo < 1e-12 {
		out := make([]float64, len(src))
		return out
	}
	out := make([]float64, len(src))
	inv := 1 / (hi - lo)
	for i, v := range src {
		out[i] = (v - lo) * inv
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
