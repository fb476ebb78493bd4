package video

import (
	"fmt"
	"image"
	"time"

	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/spatial/r2"
)

// planRenderer adapts a compositor plan.
type planRenderer struct{ plan *compositor.Plan }

func (r planRenderer) Size() image.Point { return r.plan.Size() }

func (r planRenderer) Render(frame *image.RGBA, _ time.Duration) *image.RGBA {
	return r.plan.Compose(frame)
}

// Effects places each frame on a styled canvas.
type Effects struct {
	FX compositor.VisualEffects
}

func (e Effects) Name() string { return "effects" }

func (e Effects) Prepare(src image.Point) (FrameRenderer, error) {
	if src.X <= 0 || src.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", src)
	}
	return planRenderer{compositor.NewPlan(src, e.FX)}, nil
}

// Device places each frame inside a device mockup.
type Device struct {
	Frame compositor.DeviceFrame
}

func (d Device) Name() string { return "device:" + d.Frame.Device.String() }

func (d Device) Prepare(src image.Point) (FrameRenderer, error) {
	if src.X <= 0 || src.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", src)
	}
	return planRenderer{compositor.NewDevicePlan(src, d.Frame)}, nil
}

// Passthrough re-encodes frames unchanged.
type Passthrough struct{}

func (Passthrough) Name() string { return "passthrough" }

func (Passthrough) Prepare(src image.Point) (FrameRenderer, error) {
	return identity{src}, nil
}

type identity struct{ size image.Point }

func (i identity) Size() image.Point { return i.size }

func (identity) Render(frame *image.RGBA, _ time.Duration) *image.RGBA {
	out := image.NewRGBA(image.Rectangle{Max: frame.Bounds().Size()})
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)
	return out
}

// ZoomBurnIn crops each frame to the viewport of a recorded zoom track and
// scales it back to full size before handing it to Next. Track coordinates
// are screen points and are mapped onto the frame proportionally.
type ZoomBurnIn struct {
	Track zoom.Track
	Next  Effect
}

func (z ZoomBurnIn) Name() string {
	if z.Next == nil {
		return "zoom"
	}
	return "zoom+" + z.Next.Name()
}

func (z ZoomBurnIn) Prepare(src image.Point) (FrameRenderer, error) {
	next := z.Next
	if next == nil {
		next = Passthrough{}
	}
	inner, err := next.Prepare(src)
	if err != nil {
		return nil, err
	}
	screen := z.Track.Screen
	if screen.X <= 0 || screen.Y <= 0 {
		screen = r2.Vec{X: float64(src.X), Y: float64(src.Y)}
	}
	return &zoomRenderer{
		track:  z.Track,
		next:   inner,
		src:    src,
		screen: screen,
		scale:  r2.Vec{X: float64(src.X) / screen.X, Y: float64(src.Y) / screen.Y},
	}, nil
}

type zoomRenderer struct {
	track  zoom.Track
	next   FrameRenderer
	src    image.Point
	screen r2.Vec
	scale  r2.Vec
}

func (r *zoomRenderer) Size() image.Point { return r.next.Size() }

func (r *zoomRenderer) Render(frame *image.RGBA, t time.Duration) *image.RGBA {
	s := r.track.Sample(t)
	if s.Zoom <= 1.001 {
		return r.next.Render(frame, t)
	}
	return r.next.Render(r.crop(frame, s.Zoom, s.Center), t)
}

// crop magnifies frame by level around center (in screen points).
func (r *zoomRenderer) crop(frame *image.RGBA, level float64, center r2.Vec) *image.RGBA {
	c := zoom.ClampCenter(center, r.screen, level)
	cx, cy := c.X*r.scale.X, c.Y*r.scale.Y
	ox := cx - float64(r.src.X)/level/2
	oy := cy - float64(r.src.Y)/level/2

	b := frame.Bounds()
	ox += float64(b.Min.X)
	oy += float64(b.Min.Y)
	m := f64.Aff3{level, 0, -level * ox, 0, level, -level * oy}
	out := image.NewRGBA(image.Rectangle{Max: r.src})
	draw.BiLinear.Transform(out, m, frame, b, draw.Src, nil)
	return out
}
