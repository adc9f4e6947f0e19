// Package edges builds gradient maps from images and uses them to snap
// vector boundaries onto nearby image edges.
//
// An EdgeMap holds the Sobel gradient of a blurred grayscale copy of the
// source: per-pixel magnitude, the raw X/Y gradient components (needed by
// the snapper's orientation penalty) and the global maximum magnitude.
// The map is the shared substrate for edge snapping, live-wire cost
// fields, wand growth barriers and boundary refinement.
package edges
