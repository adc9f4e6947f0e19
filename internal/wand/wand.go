package wand

import (
	"image"
	"math"
	"math/rand"

	"github.com/mapwright/roomcarve/internal/edges"
	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
)

// Connectivity selects the neighborhood used by contiguous growth.
type Connectivity int

const (
	Connect4 Connectivity = 4
	Connect8 Connectivity = 8
)

// Options tunes a wand selection.
type Options struct {
	// Tolerance is the maximum perceptual (Lab) distance from the seed
	// color, on the 0–100 scale. Typical interactive values are 8–30.
	Tolerance float64

	// Connectivity is Connect4 or Connect8; anything else falls back to
	// Connect4.
	Connectivity Connectivity

	// Contiguous floods from the seed when true; when false every pixel
	// within tolerance is selected regardless of adjacency.
	Contiguous bool

	// AntiAlias adds a soft falloff ring at the selection boundary:
	// pixels just over tolerance get partial coverage instead of a hard
	// cut.
	AntiAlias bool

	// MinArea is the minimum accepted pixel count. A flood that comes in
	// below it (a misclick on a thin line, say) is discarded in favor of
	// the single seed pixel.
	MinArea int

	// Bounds anchors the produced mask; the zero value means the full
	// [0,1] square.
	Bounds geometry.Bounds
}

// Result is a completed wand selection.
type Result struct {
	Mask          *mask.RoomMask
	AcceptedCount int

	// EntranceLocked is set when growth crossed a strong edge through a
	// registered entrance zone, or when the final contour grazes one.
	EntranceLocked   bool
	LockedEntranceID string
}

// EntranceZone is a doorway: a circular region through which a selection
// may cross an otherwise blocking edge.
type EntranceZone struct {
	ID     string         `json:"id"`
	Center geometry.Point `json:"center"`
	Radius float64        `json:"radius"` // normalized units
}

// Select grows a selection from seed through perceptually similar
// colors.
//
// Parameters:
//   - layers: One or more source images of equal size. With multiple
//     layers (e.g. background and detail layers of a map) distance is
//     the average of the per-layer distances, so a region must match on
//     all layers to be accepted.
//   - seed: The starting pixel, in image coordinates.
//   - opts: Tolerance, connectivity, contiguity, anti-aliasing and the
//     minimum-area safeguard; see Options.
//
// Returns:
//   - *Result: The selection mask plus the accepted pixel count. Nil
//     for a nil/empty layer list or an out-of-image seed.
//
// # Algorithm
//
//  1. Every layer is converted to CIE L*a*b* once (sRGB → linear →
//     XYZ → Lab); distances are Euclidean in that space, on the 0-100
//     lightness scale.
//
//  2. Contiguous mode runs a breadth-first flood from the seed through
//     4- or 8-connected neighbors whose distance to the seed color
//     stays within tolerance. Non-contiguous mode thresholds every
//     pixel in the image instead.
//
//  3. With AntiAlias set, pixels just over tolerance receive partial
//     coverage, producing a soft ring at the boundary instead of a
//     hard cut.
//
//  4. A flood that accepts fewer than MinArea pixels is discarded in
//     favor of the single seed pixel.
func Select(layers []image.Image, seed image.Point, opts Options) *Result {
	grids := makeGrids(layers)
	if len(grids) == 0 {
		return nil
	}
	w, h := grids[0].w, grids[0].h
	if seed.X < 0 || seed.Y < 0 || seed.X >= w || seed.Y >= h {
		return nil
	}
	return selectFromGrids(grids, seed, opts, nil, nil, nil)
}

// SelectWithEdges is the preprocessing-aware variant: an edge-magnitude
// field acts as a hard growth barrier, except inside registered entrance
// zones, and frontier expansion is randomized with a deterministic
// seeded deferral so repeated identical gestures reproduce identical
// masks without axis-order bias.
//
// edgeStop is the blocking threshold as a fraction of em.MaxMagnitude;
// values ≤0 default to 0.3.
func SelectWithEdges(layers []image.Image, seed image.Point, opts Options, em *edges.EdgeMap, zones []EntranceZone, edgeStop float64) *Result {
	grids := makeGrids(layers)
	if len(grids) == 0 {
		return nil
	}
	w, h := grids[0].w, grids[0].h
	if seed.X < 0 || seed.Y < 0 || seed.X >= w || seed.Y >= h {
		return nil
	}
	if edgeStop <= 0 {
		edgeStop = 0.3
	}
	var blocked func(x, y int) bool
	if em != nil && em.MaxMagnitude > 0 {
		threshold := edgeStop * em.MaxMagnitude
		blocked = func(x, y int) bool {
			return em.MagnitudeAt(x, y) >= threshold
		}
	}
	rng := rand.New(rand.NewSource(int64(seed.Y)<<32 | int64(seed.X)))
	return selectFromGrids(grids, seed, opts, blocked, zones, rng)
}

func makeGrids(layers []image.Image) []*labGrid {
	grids := make([]*labGrid, 0, len(layers))
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		g := makeLabGrid(layer)
		if len(grids) > 0 && (g.w != grids[0].w || g.h != grids[0].h) {
			continue // mismatched layers contribute nothing
		}
		grids = append(grids, g)
	}
	return grids
}

// deferralChance is the probability a frontier neighbor is pushed back
// to the end of the queue instead of being expanded immediately. The
// shuffle removes the axis bias a plain BFS order imprints on the
// anti-aliased rim.
const deferralChance = 0.10

func selectFromGrids(grids []*labGrid, seed image.Point, opts Options, blocked func(x, y int) bool, zones []EntranceZone, rng *rand.Rand) *Result {
	w, h := grids[0].w, grids[0].h
	bounds := opts.Bounds
	if bounds == (geometry.Bounds{}) {
		bounds = geometry.Bounds{MaxX: 1, MaxY: 1}
	}
	m := mask.New(w, h, bounds)

	seedIdx := seed.Y*w + seed.X
	seedL := make([]float64, len(grids))
	seedA := make([]float64, len(grids))
	seedB := make([]float64, len(grids))
	for gi, g := range grids {
		seedL[gi], seedA[gi], seedB[gi] = g.l[seedIdx], g.a[seedIdx], g.b[seedIdx]
	}
	distance := func(i int) float64 {
		sum := 0.0
		for gi, g := range grids {
			sum += g.distanceTo(i, seedL[gi], seedA[gi], seedB[gi])
		}
		return sum / float64(len(grids))
	}

	res := &Result{Mask: m}
	inZone := func(x, y int) (string, bool) {
		px := (float64(x) + 0.5) / float64(w)
		py := (float64(y) + 0.5) / float64(h)
		for _, z := range zones {
			if math.Hypot(px-z.Center.X, py-z.Center.Y) <= z.Radius {
				return z.ID, true
			}
		}
		return "", false
	}

	if !opts.Contiguous {
		for i := 0; i < w*h; i++ {
			coverage := coverageFor(distance(i), opts)
			if coverage > 0 {
				m.Data[i] = coverage
				if coverage == 255 {
					res.AcceptedCount++
				}
			}
		}
	} else {
		res.AcceptedCount = flood(m, seed, opts, distance, blocked, inZone, rng, res)
	}

	// Minimum-area safeguard: a degenerate flood collapses to the seed.
	if res.AcceptedCount < opts.MinArea {
		for i := range m.Data {
			m.Data[i] = 0
		}
		m.Data[seedIdx] = 255
		res.AcceptedCount = 1
		res.EntranceLocked = false
		res.LockedEntranceID = ""
	}
	return res
}

// coverageFor maps a perceptual distance to mask coverage: full inside
// tolerance, and with AntiAlias a linear falloff over an extra 25% ring.
func coverageFor(d float64, opts Options) uint8 {
	if d <= opts.Tolerance {
		return 255
	}
	if !opts.AntiAlias {
		return 0
	}
	ring := opts.Tolerance * 0.25
	if ring <= 0 || d > opts.Tolerance+ring {
		return 0
	}
	return uint8(255 * (1 - (d-opts.Tolerance)/ring))
}

func flood(m *mask.RoomMask, seed image.Point, opts Options, distance func(int) float64, blocked func(x, y int) bool, inZone func(x, y int) (string, bool), rng *rand.Rand, res *Result) int {
	w, h := m.Width, m.Height
	visited := make([]bool, w*h)
	queue := make([]int32, 0, 1024)
	seedIdx := seed.Y*w + seed.X
	if distance(seedIdx) > opts.Tolerance {
		// Seed over tolerance can only happen with multi-layer averaging;
		// accept just the seed.
		m.Data[seedIdx] = 255
		return 1
	}
	visited[seedIdx] = true
	queue = append(queue, int32(seedIdx))
	m.Data[seedIdx] = 255
	accepted := 1

	var offsets [][2]int
	if opts.Connectivity == Connect8 {
		offsets = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	} else {
		offsets = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	}

	for head := 0; head < len(queue); head++ {
		i := int(queue[head])
		x, y := i%w, i/w
		for _, o := range offsets {
			nx, ny := x+o[0], y+o[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			ni := ny*w + nx
			if visited[ni] {
				continue
			}

			// Deterministic deferral: occasionally push the parent back
			// and revisit this neighbor later, scrambling expansion order.
			if rng != nil && rng.Float64() < deferralChance {
				queue = append(queue, int32(i))
				continue
			}
			visited[ni] = true

			if blocked != nil && blocked(nx, ny) {
				if id, ok := inZone(nx, ny); ok {
					res.EntranceLocked = true
					res.LockedEntranceID = id
				} else {
					// Hard edge: the boundary pixel may still get an
					// anti-aliased rim but growth stops here.
					if c := coverageFor(distance(ni), opts); c > 0 && c < 255 {
						m.Data[ni] = c
					}
					continue
				}
			}

			d := distance(ni)
			if d <= opts.Tolerance {
				m.Data[ni] = 255
				accepted++
				queue = append(queue, int32(ni))
			} else if c := coverageFor(d, opts); c > 0 {
				m.Data[ni] = c
			}
		}
	}
	return accepted
}

// CheckContourEntrances re-tests a finished (possibly snapped) contour
// against the entrance zones: a vertex within radius×1.5 of a zone
// counts as a lock even if the flood itself never crossed the zone.
// Snapping can drag the boundary onto a doorway the growth only grazed.
func CheckContourEntrances(contour []geometry.Point, zones []EntranceZone) (string, bool) {
	for _, z := range zones {
		reach := z.Radius * 1.5
		for _, p := range contour {
			if math.Hypot(p.X-z.Center.X, p.Y-z.Center.Y) <= reach {
				return z.ID, true
			}
		}
	}
	return "", false
}
