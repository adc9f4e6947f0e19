// Package livewire implements interactive minimum-cost path tracing
// through an image-derived cost field.
//
// The search runs coarse-to-fine over a CostPyramid: a full-grid
// shortest path at the coarsest level seeds a banded search at each
// finer level, restricted to a corridor around the previous level's
// path. This keeps per-query cost low enough to recompute the path on
// every pointer move.
package livewire
