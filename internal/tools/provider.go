package tools

import (
	"context"
	"errors"
	"image"

	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
	"github.com/mapwright/roomcarve/internal/refine"
	"github.com/mapwright/roomcarve/internal/wand"
)

// Provider is the segmentation capability seam the tools run against.
// The synchronous LocalProvider below is the reference implementation;
// an offloaded implementation (worker pool, separate process) can be
// substituted as long as it honors context cancellation.
type Provider interface {
	// MagicWandSelect grows a selection from seed. Honors ctx: a
	// cancelled context returns ctx.Err() with no result.
	MagicWandSelect(ctx context.Context, layers []image.Image, seed image.Point, opts wand.Options, em *edges.EdgeMap, zones []wand.EntranceZone) (*wand.Result, error)

	// RefineBoundaryToEdges re-fits a mask boundary to an energy field.
	RefineBoundaryToEdges(m *mask.RoomMask, energy []float64, threshold float64, bandRadius int) *mask.RoomMask

	// EdgeEnergyMultiScale computes averaged multi-octave edge energy.
	EdgeEnergyMultiScale(gray []float64, w, h, scales int) []float64

	// RasterizeFreehandPath fills a closed normalized-space path.
	RasterizeFreehandPath(path []geometry.Point, w, h int, bounds geometry.Bounds) *mask.RoomMask

	// FillMaskInterior closes holes enclosed by coverage, in place.
	FillMaskInterior(m *mask.RoomMask)

	// DilateMask grows coverage by a world-space radius, in place.
	DilateMask(m *mask.RoomMask, worldRadius float64)

	// FeatherMask softens the boundary by a world-space amount, in place.
	FeatherMask(m *mask.RoomMask, amount float64)

	// CompositeMax merges src into dst via per-pixel max.
	CompositeMax(dst, src *mask.RoomMask)
}

// LocalProvider runs every operation synchronously on the calling
// goroutine, backed by the in-process algorithm packages.
type LocalProvider struct {
	// EdgeStop is the wand's blocking threshold as a fraction of max
	// edge magnitude; zero uses the wand default.
	EdgeStop float64
}

var errNoResult = errors.New("tools: segmentation produced no result")

func (p *LocalProvider) MagicWandSelect(ctx context.Context, layers []image.Image, seed image.Point, opts wand.Options, em *edges.EdgeMap, zones []wand.EntranceZone) (*wand.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var res *wand.Result
	if em != nil {
		res = wand.SelectWithEdges(layers, seed, opts, em, zones, p.EdgeStop)
	} else {
		res = wand.Select(layers, seed, opts)
	}
	// The flood itself is not interruptible; re-check before returning so
	// a cancel during the computation is still honored.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errNoResult
	}
	return res, nil
}

func (p *LocalProvider) RefineBoundaryToEdges(m *mask.RoomMask, energy []float64, threshold float64, bandRadius int) *mask.RoomMask {
	return refine.BoundaryToEdges(m, energy, threshold, bandRadius)
}

func (p *LocalProvider) EdgeEnergyMultiScale(gray []float64, w, h, scales int) []float64 {
	return edges.EdgeEnergyMultiScale(gray, w, h, scales)
}

func (p *LocalProvider) RasterizeFreehandPath(path []geometry.Point, w, h int, bounds geometry.Bounds) *mask.RoomMask {
	return mask.RasterizePolygon(path, w, h, bounds)
}

func (p *LocalProvider) FillMaskInterior(m *mask.RoomMask) { mask.FillInterior(m) }

func (p *LocalProvider) DilateMask(m *mask.RoomMask, worldRadius float64) {
	mask.DilateByWorldRadius(m, worldRadius)
}

func (p *LocalProvider) FeatherMask(m *mask.RoomMask, amount float64) { mask.Feather(m, amount) }

func (p *LocalProvider) CompositeMax(dst, src *mask.RoomMask) { mask.CompositeMax(dst, src) }
