package video

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/easing"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gonum.org/v1/gonum/spatial/r2"
)

// halfFrame is black on the left half and white on the right.
func halfFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if x >= w/2 {
				v = 0xff
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	return img
}

func TestZoomBurnIn(t *testing.T) {
	track := zoom.Track{
		Version: 1,
		// Screen points are half the frame's pixels.
		Screen: r2.Vec{X: 50, Y: 50},
		Keyframes: []zoom.Keyframe{
			{Time: time.Second, Zoom: 2, CenterX: 37.5, CenterY: 25, Interpolation: easing.Linear},
		},
	}
	r, err := ZoomBurnIn{Track: track}.Prepare(image.Point{X: 100, Y: 100})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if r.Size() != (image.Point{X: 100, Y: 100}) {
		t.Fatalf("burn-in must keep the frame size, got %v", r.Size())
	}

	frame := halfFrame(100, 100)
	before := r.Render(frame, 0)
	if !bytes.Equal(before.Pix, frame.Pix) {
		t.Fatalf("expected an unzoomed frame before the first keyframe")
	}

	zoomed := r.Render(frame, 2*time.Second)
	if got := zoomed.RGBAAt(10, 50); got.R != 0xff {
		t.Fatalf("expected the right half magnified into view, got %v", got)
	}
	if got := zoomed.RGBAAt(90, 50); got.R != 0xff {
		t.Fatalf("expected white at the right edge, got %v", got)
	}
}

func TestZoomBurnInClampsToFrame(t *testing.T) {
	track := zoom.Track{
		Screen: r2.Vec{X: 100, Y: 100},
		Keyframes: []zoom.Keyframe{
			{Time: 0, Zoom: 2, CenterX: 100, CenterY: 50, Interpolation: easing.Linear},
		},
	}
	r, err := ZoomBurnIn{Track: track}.Prepare(image.Point{X: 100, Y: 100})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// A centre on the right edge is pulled in so the viewport stays inside
	// the frame: nothing outside the source can appear.
	out := r.Render(halfFrame(100, 100), time.Second)
	if got := out.RGBAAt(99, 50); got.A != 0xff || got.R != 0xff {
		t.Fatalf("expected opaque white at the right edge, got %v", got)
	}
}

func TestZoomBurnInComposesNext(t *testing.T) {
	fx := compositor.DefaultVisualEffects()
	fx.Padding = compositor.UniformPadding(10)
	z := ZoomBurnIn{Track: zoom.Track{}, Next: Effects{FX: fx}}
	if z.Name() != "zoom+effects" {
		t.Fatalf("unexpected name %q", z.Name())
	}
	r, err := z.Prepare(image.Point{X: 64, Y: 48})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if r.Size() != (image.Point{X: 84, Y: 68}) {
		t.Fatalf("expected the styled canvas size, got %v", r.Size())
	}
}

func TestDeviceEffect(t *testing.T) {
	df := compositor.DeviceFrame{Device: compositor.DeviceGeneric, Bezel: 0.03, Padding: 0.1}
	r, err := Device{Frame: df}.Prepare(image.Point{X: 1920, Y: 1080})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if r.Size() != compositor.CalculateFrameSize(image.Point{X: 1920, Y: 1080}, df) {
		t.Fatalf("unexpected device canvas %v", r.Size())
	}
	if _, err := (Device{Frame: df}).Prepare(image.Point{}); err == nil {
		t.Fatalf("expected an error for an empty frame")
	}
}
