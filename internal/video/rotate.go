package video

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns frame clockwise by deg, which must be a multiple of 90. The
// result is always a new image anchored at the origin, except for 0 where
// frame itself is returned.
func Rotate(frame *image.RGBA, deg int) *image.RGBA {
	b := frame.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	var m f64.Aff3
	var size image.Point
	switch NormalizeRotation(deg) {
	case 90:
		m = f64.Aff3{0, -1, h, 1, 0, 0}
		size = image.Point{X: b.Dy(), Y: b.Dx()}
	case 180:
		m = f64.Aff3{-1, 0, w, 0, -1, h}
		size = b.Size()
	case 270:
		m = f64.Aff3{0, 1, 0, -1, 0, w}
		size = image.Point{X: b.Dy(), Y: b.Dx()}
	default:
		return frame
	}
	// The matrix works on frame-relative coordinates.
	m[2] += float64(b.Min.X)*-m[0] + float64(b.Min.Y)*-m[1]
	m[5] += float64(b.Min.X)*-m[3] + float64(b.Min.Y)*-m[4]
	out := image.NewRGBA(image.Rectangle{Max: size})
	draw.NearestNeighbor.Transform(out, m, frame, b, draw.Src, nil)
	return out
}
