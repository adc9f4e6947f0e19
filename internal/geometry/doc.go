// Package geometry provides the normalized coordinate types and polygon
// math shared by the masking engine.
//
// All coordinates are normalized to the [0,1] range with origin at the
// top-left corner, matching the convention used for persisted masks and
// for everything handed to the rendering layer. Pixel-space conversion
// happens at the raster boundary (package mask), never here.
//
// The package is pure math: no allocation beyond result slices, no
// dependencies, and every operation is safe to call with degenerate
// input (empty polygons, zero-area bounds): degenerate input produces
// a degenerate-but-valid result rather than a panic.
package geometry
