// Package compositor renders a decoded frame onto a styled canvas: a
// background, a drop shadow, rounded corners, a border, an inset bevel and a
// reflection, or alternatively a device mockup. Rendering keeps no state
// between frames and is safe from any goroutine.
package compositor

import (
	"fmt"
	"image"
	"math"
)

type BackgroundKind int

const (
	BackgroundSolid BackgroundKind = iota
	BackgroundGradient
	BackgroundImage
	BackgroundBlur
	BackgroundTransparent
)

var backgroundNames = [...]string{
	BackgroundSolid:       "solid",
	BackgroundGradient:    "gradient",
	BackgroundImage:       "image",
	BackgroundBlur:        "blur",
	BackgroundTransparent: "transparent",
}

func (k BackgroundKind) String() string {
	if k < 0 || int(k) >= len(backgroundNames) {
		return fmt.Sprintf("background(%d)", int(k))
	}
	return backgroundNames[k]
}

func (k BackgroundKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *BackgroundKind) UnmarshalText(b []byte) error {
	for i, name := range backgroundNames {
		if name == string(b) {
			*k = BackgroundKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown background kind %q", b)
}

type BorderStyle int

const (
	BorderSolid BorderStyle = iota
	BorderDashed
	BorderDotted
)

var borderNames = [...]string{
	BorderSolid:  "solid",
	BorderDashed: "dashed",
	BorderDotted: "dotted",
}

func (s BorderStyle) String() string {
	if s < 0 || int(s) >= len(borderNames) {
		return fmt.Sprintf("border(%d)", int(s))
	}
	return borderNames[s]
}

func (s BorderStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *BorderStyle) UnmarshalText(b []byte) error {
	for i, name := range borderNames {
		if name == string(b) {
			*s = BorderStyle(i)
			return nil
		}
	}
	return fmt.Errorf("unknown border style %q", b)
}

type Gradient struct {
	From Color `yaml:"from"`
	To   Color `yaml:"to"`
	// Angle in degrees, clockwise from left-to-right.
	Angle float64 `yaml:"angle"`
}

type Background struct {
	Kind     BackgroundKind `yaml:"kind"`
	Color    Color          `yaml:"color"`
	Gradient Gradient       `yaml:"gradient"`
	// ImagePath is resolved into Image by the caller before rendering.
	ImagePath  string      `yaml:"image_path,omitempty"`
	Image      image.Image `yaml:"-"`
	BlurRadius float64     `yaml:"blur_radius"`
}

type Shadow struct {
	Enabled bool    `yaml:"enabled"`
	Color   Color   `yaml:"color"`
	Blur    float64 `yaml:"blur"`
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
	Opacity float64 `yaml:"opacity"`
}

type Border struct {
	Enabled bool        `yaml:"enabled"`
	Width   float64     `yaml:"width"`
	Color   Color       `yaml:"color"`
	Style   BorderStyle `yaml:"style"`
}

// Padding is the per-edge margin around the content in output pixels.
type Padding struct {
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
}

func UniformPadding(p int) Padding {
	return Padding{Top: p, Right: p, Bottom: p, Left: p}
}

type Inset struct {
	Enabled bool    `yaml:"enabled"`
	Depth   float64 `yaml:"depth"`
	// LightAngle in degrees, counter-clockwise from the right; 90 lights
	// from the top.
	LightAngle float64 `yaml:"light_angle"`
	Highlight  Color   `yaml:"highlight"`
	Shade      Color   `yaml:"shade"`
}

type Reflection struct {
	Enabled bool    `yaml:"enabled"`
	Opacity float64 `yaml:"opacity"`
	// Height is the reflected fraction of the content height.
	Height float64 `yaml:"height"`
	Gap    int     `yaml:"gap"`
}

type VisualEffects struct {
	Background   Background `yaml:"background"`
	Shadow       Shadow     `yaml:"shadow"`
	Border       Border     `yaml:"border"`
	CornerRadius float64    `yaml:"corner_radius"`
	Padding      Padding    `yaml:"padding"`
	Inset        Inset      `yaml:"inset"`
	Reflection   Reflection `yaml:"reflection"`
}

func DefaultVisualEffects() VisualEffects {
	return VisualEffects{
		Background: Background{
			Kind:  BackgroundGradient,
			Color: RGB(0x1e, 0x1e, 0x2e),
			Gradient: Gradient{
				From:  RGB(0x4f, 0x46, 0xe5),
				To:    RGB(0xdb, 0x27, 0x77),
				Angle: 45,
			},
			BlurRadius: 40,
		},
		Shadow: Shadow{
			Enabled: true,
			Color:   RGB(0, 0, 0),
			Blur:    24,
			OffsetY: 12,
			Opacity: 0.45,
		},
		Border: Border{
			Width: 2,
			Color: Color{R: 0xff, G: 0xff, B: 0xff, A: 0x40},
		},
		CornerRadius: 12,
		Padding:      UniformPadding(40),
		Inset: Inset{
			Depth:      3,
			LightAngle: 90,
			Highlight:  Color{R: 0xff, G: 0xff, B: 0xff, A: 0x60},
			Shade:      Color{A: 0x60},
		},
		Reflection: Reflection{
			Opacity: 0.3,
			Height:  0.25,
			Gap:     8,
		},
	}
}

// Sanitize clamps values that cannot be rendered. Corner radius is limited
// further per frame once the content size is known.
func (fx VisualEffects) Sanitize() VisualEffects {
	for _, p := range []*int{&fx.Padding.Top, &fx.Padding.Right, &fx.Padding.Bottom, &fx.Padding.Left, &fx.Reflection.Gap} {
		if *p < 0 {
			*p = 0
		}
	}
	for _, f := range []*float64{&fx.CornerRadius, &fx.Shadow.Blur, &fx.Border.Width, &fx.Inset.Depth, &fx.Background.BlurRadius} {
		if *f < 0 || math.IsNaN(*f) {
			*f = 0
		}
	}
	fx.Shadow.Opacity = clamp(fx.Shadow.Opacity, 0, 1)
	fx.Reflection.Opacity = clamp(fx.Reflection.Opacity, 0, 1)
	fx.Reflection.Height = clamp(fx.Reflection.Height, 0, 1)
	return fx
}

// reflectionHeight is the height of the mirrored strip under the content.
// The strip lives in the bottom padding, below Gap, and never grows the
// canvas.
func (fx VisualEffects) reflectionHeight(srcH int) int {
	if !fx.Reflection.Enabled {
		return 0
	}
	h := int(math.Round(fx.Reflection.Height * float64(srcH)))
	return max(0, min(h, fx.Padding.Bottom-fx.Reflection.Gap))
}

// OutputSize is the canvas size for a source frame of size src: the source
// plus padding.
func OutputSize(src image.Point, fx VisualEffects) image.Point {
	fx = fx.Sanitize()
	return image.Point{
		X: src.X + fx.Padding.Left + fx.Padding.Right,
		Y: src.Y + fx.Padding.Top + fx.Padding.Bottom,
	}
}

// ContentRect is where the unscaled source lands on the canvas.
func ContentRect(src image.Point, fx VisualEffects) image.Rectangle {
	fx = fx.Sanitize()
	origin := image.Point{X: fx.Padding.Left, Y: fx.Padding.Top}
	return image.Rectangle{Min: origin, Max: origin.Add(src)}
}

func cornerRadius(r float64, size image.Point) float64 {
	limit := float64(min(size.X, size.Y)) / 2
	return clamp(r, 0, limit)
}
