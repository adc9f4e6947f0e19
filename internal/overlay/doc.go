// Package overlay renders selection state as an SVG document for
// debugging and export: the committed mask outline, the live preview
// polyline, smart-lasso anchors and the active region-of-interest
// rectangle, all drawn over a transparent canvas sized to the source
// image.
package overlay
