package overlay

import (
	"image"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/mapwright/roomcarve/internal/geometry"
	"github.com/mapwright/roomcarve/internal/mask"
)

// Doc describes one overlay frame.
type Doc struct {
	// Width and Height are the canvas size in pixels; world coordinates
	// are scaled onto this canvas.
	Width, Height int

	// Committed, when non-nil, is outlined as a closed polygon.
	Committed *mask.RoomMask

	// Preview is an open polyline (an in-flight lasso path or live-wire
	// trace).
	Preview []geometry.Point

	// Anchors are drawn as small circles.
	Anchors []geometry.Point

	// ROI, when non-empty, marks the preprocessed region.
	ROI image.Rectangle
}

const (
	committedStyle = "fill:#2e7d3280;stroke:#2e7d32;stroke-width:2"
	previewStyle   = "fill:none;stroke:#1565c0;stroke-width:1.5;stroke-dasharray:6,3"
	anchorStyle    = "fill:#1565c0;stroke:#ffffff;stroke-width:1"
	roiStyle       = "fill:none;stroke:#ef6c00;stroke-width:1;stroke-dasharray:2,2"
	anchorRadius   = 4
)

// WriteSVG renders d to w.
func WriteSVG(w io.Writer, d Doc) error {
	if d.Width <= 0 || d.Height <= 0 {
		return nil
	}
	canvas := svg.New(w)
	canvas.Start(d.Width, d.Height)

	if d.Committed != nil && !d.Committed.IsEmpty() {
		if poly := mask.ExtractPolygon(d.Committed, mask.DefaultSimplifyTolerance); len(poly) >= 3 {
			xs, ys := scalePoints(poly, d.Width, d.Height)
			canvas.Polygon(xs, ys, committedStyle)
		}
	}
	if len(d.Preview) >= 2 {
		xs, ys := scalePoints(d.Preview, d.Width, d.Height)
		canvas.Polyline(xs, ys, previewStyle)
	}
	for _, a := range d.Anchors {
		canvas.Circle(int(a.X*float64(d.Width)), int(a.Y*float64(d.Height)), anchorRadius, anchorStyle)
	}
	if !d.ROI.Empty() {
		canvas.Rect(d.ROI.Min.X, d.ROI.Min.Y, d.ROI.Dx(), d.ROI.Dy(), roiStyle)
	}

	canvas.End()
	return nil
}

func scalePoints(pts []geometry.Point, w, h int) (xs, ys []int) {
	xs = make([]int, len(pts))
	ys = make([]int, len(pts))
	for i, p := range pts {
		xs[i] = int(p.X * float64(w))
		ys[i] = int(p.Y * float64(h))
	}
	return xs, ys
}
