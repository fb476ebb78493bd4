package zoom

import (
	"math"

	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"gonum.org/v1/gonum/spatial/r2"
)

// SelectLevel picks the magnification for a trigger on el. A nil element,
// or content-aware zoom being off, yields the default level.
func SelectLevel(cfg Config, el *uiprobe.Element) float64 {
	if el == nil || !cfg.ContentAware {
		return cfg.DefaultZoomLevel
	}

	switch el.Role {
	case uiprobe.TextField:
		return cfg.TextFieldZoomLevel
	case uiprobe.Menu, uiprobe.MenuItem:
		return cfg.MenuZoomLevel
	case uiprobe.Dialog, uiprobe.Popover:
		return cfg.DialogZoomLevel
	case uiprobe.Button:
		size := el.Size()
		extent := math.Max(size.X, size.Y)
		switch {
		case extent < 30:
			return cfg.ButtonZoomLevel * 1.2
		case extent <= 60:
			return cfg.ButtonZoomLevel
		default:
			return cfg.ButtonZoomLevel * 0.8
		}
	case uiprobe.Checkbox, uiprobe.Slider:
		return cfg.ButtonZoomLevel * 0.9
	case uiprobe.Link:
		return cfg.ButtonZoomLevel
	}
	return cfg.DefaultZoomLevel
}

// SelectCenter picks the point to zoom on. Text fields are offset to the
// right; every other element is centred on; without an element the raw
// trigger point is used.
func SelectCenter(cfg Config, el *uiprobe.Element, pt r2.Vec) r2.Vec {
	if el == nil {
		return pt
	}
	center := el.Center()
	if el.Role == uiprobe.TextField {
		center.X += cfg.TextFieldOffset
	}
	return center
}

// ClampCenter keeps the zoomed viewport inside the screen.
func ClampCenter(center, screen r2.Vec, level float64) r2.Vec {
	if level <= 1 {
		return r2.Scale(0.5, screen)
	}
	halfW := screen.X / level / 2
	halfH := screen.Y / level / 2
	return r2.Vec{
		X: math.Min(math.Max(center.X, halfW), screen.X-halfW),
		Y: math.Min(math.Max(center.Y, halfH), screen.Y-halfH),
	}
}
