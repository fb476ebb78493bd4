package compositor

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/fogleman/gg"
)

type DeviceCategory int

const (
	CategoryGeneric DeviceCategory = iota
	CategoryLaptop
	CategoryDesktop
	CategoryPhone
	CategoryTablet
	CategoryWatch
	CategoryTV
)

func (c DeviceCategory) String() string {
	switch c {
	case CategoryLaptop:
		return "laptop"
	case CategoryDesktop:
		return "desktop"
	case CategoryPhone:
		return "phone"
	case CategoryTablet:
		return "tablet"
	case CategoryWatch:
		return "watch"
	case CategoryTV:
		return "tv"
	}
	return "generic"
}

type NotchStyle int

const (
	NoNotch NotchStyle = iota
	Notch
	DynamicIsland
)

// DeviceSpec is fixed geometry for one device model. Bezel is the screen
// border as a fraction of the screen size per side, Corner is the body
// corner radius as a fraction of the body's shorter side.
type DeviceSpec struct {
	Name        string
	Category    DeviceCategory
	AspectRatio float64
	Bezel       float64
	Corner      float64
	Camera      bool
	Notch       NotchStyle
}

type DeviceType int

const (
	DeviceGeneric DeviceType = iota
	DeviceMacBookPro14
	DeviceMacBookPro16
	DeviceMacBookAir
	DeviceIMac24
	DeviceStudioDisplay
	DeviceIPhone15Pro
	DeviceIPhone14
	DeviceIPhoneSE
	DevicePixel8
	DeviceIPadPro
	DeviceIPadAir
	DeviceAppleWatch
	DeviceTV
)

var deviceTable = map[DeviceType]DeviceSpec{
	DeviceGeneric:       {Name: "generic", Category: CategoryGeneric, AspectRatio: 16.0 / 9, Bezel: 0.03, Corner: 0.02},
	DeviceMacBookPro14:  {Name: "macbook-pro-14", Category: CategoryLaptop, AspectRatio: 1.54, Bezel: 0.025, Corner: 0.03, Camera: true},
	DeviceMacBookPro16:  {Name: "macbook-pro-16", Category: CategoryLaptop, AspectRatio: 1.54, Bezel: 0.022, Corner: 0.028, Camera: true},
	DeviceMacBookAir:    {Name: "macbook-air", Category: CategoryLaptop, AspectRatio: 1.54, Bezel: 0.03, Corner: 0.03, Camera: true},
	DeviceIMac24:        {Name: "imac-24", Category: CategoryDesktop, AspectRatio: 16.0 / 9, Bezel: 0.035, Corner: 0.015},
	DeviceStudioDisplay: {Name: "studio-display", Category: CategoryDesktop, AspectRatio: 16.0 / 9, Bezel: 0.03, Corner: 0.012},
	DeviceIPhone15Pro:   {Name: "iphone-15-pro", Category: CategoryPhone, AspectRatio: 0.46, Bezel: 0.04, Corner: 0.16, Notch: DynamicIsland},
	DeviceIPhone14:      {Name: "iphone-14", Category: CategoryPhone, AspectRatio: 0.46, Bezel: 0.045, Corner: 0.15, Notch: Notch},
	DeviceIPhoneSE:      {Name: "iphone-se", Category: CategoryPhone, AspectRatio: 0.56, Bezel: 0.06, Corner: 0.12},
	DevicePixel8:        {Name: "pixel-8", Category: CategoryPhone, AspectRatio: 0.45, Bezel: 0.04, Corner: 0.13},
	DeviceIPadPro:       {Name: "ipad-pro", Category: CategoryTablet, AspectRatio: 0.72, Bezel: 0.04, Corner: 0.05},
	DeviceIPadAir:       {Name: "ipad-air", Category: CategoryTablet, AspectRatio: 0.7, Bezel: 0.05, Corner: 0.05},
	DeviceAppleWatch:    {Name: "apple-watch", Category: CategoryWatch, AspectRatio: 0.82, Bezel: 0.08, Corner: 0.22},
	DeviceTV:            {Name: "tv", Category: CategoryTV, AspectRatio: 16.0 / 9, Bezel: 0.015, Corner: 0.005},
}

// Spec returns the geometry for d, or the generic device for unknown types.
func (d DeviceType) Spec() DeviceSpec {
	if s, ok := deviceTable[d]; ok {
		return s
	}
	return deviceTable[DeviceGeneric]
}

func (d DeviceType) String() string { return d.Spec().Name }

func (d DeviceType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DeviceType) UnmarshalText(b []byte) error {
	t, err := ParseDeviceType(string(b))
	if err != nil {
		return err
	}
	*d = t
	return nil
}

func ParseDeviceType(name string) (DeviceType, error) {
	for t, s := range deviceTable {
		if s.Name == name {
			return t, nil
		}
	}
	return DeviceGeneric, fmt.Errorf("unknown device %q", name)
}

// DeviceTypes lists every device in declaration order.
func DeviceTypes() []DeviceType {
	out := make([]DeviceType, 0, len(deviceTable))
	for t := range deviceTable {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type DeviceColor int

const (
	ColorSpaceGray DeviceColor = iota
	ColorSilver
	ColorMidnight
	ColorStarlight
	ColorBlack
	ColorWhite
)

var deviceColors = [...]struct {
	name string
	body Color
}{
	ColorSpaceGray: {"space-gray", RGB(0x3a, 0x3a, 0x3c)},
	ColorSilver:    {"silver", RGB(0xd6, 0xd6, 0xd8)},
	ColorMidnight:  {"midnight", RGB(0x1f, 0x24, 0x2e)},
	ColorStarlight: {"starlight", RGB(0xe8, 0xe0, 0xd2)},
	ColorBlack:     {"black", RGB(0x10, 0x10, 0x10)},
	ColorWhite:     {"white", RGB(0xf4, 0xf4, 0xf4)},
}

func (c DeviceColor) body() Color {
	if c < 0 || int(c) >= len(deviceColors) {
		return deviceColors[ColorSpaceGray].body
	}
	return deviceColors[c].body
}

func (c DeviceColor) String() string {
	if c < 0 || int(c) >= len(deviceColors) {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return deviceColors[c].name
}

func (c DeviceColor) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *DeviceColor) UnmarshalText(b []byte) error {
	for i, dc := range deviceColors {
		if dc.name == string(b) {
			*c = DeviceColor(i)
			return nil
		}
	}
	return fmt.Errorf("unknown device colour %q", b)
}

// DeviceFrame places the recording inside a device mockup.
type DeviceFrame struct {
	Device     DeviceType  `yaml:"device"`
	Color      DeviceColor `yaml:"color"`
	Shadow     bool        `yaml:"shadow"`
	Background Background  `yaml:"background"`
	// Padding around the device as a fraction of its size per side.
	Padding float64 `yaml:"padding"`
	// Bezel overrides the device's bezel ratio when positive.
	Bezel float64 `yaml:"bezel,omitempty"`
	// Rotation tilts the device by degrees about the canvas centre.
	Rotation float64 `yaml:"rotation"`
}

func DefaultDeviceFrame() DeviceFrame {
	return DeviceFrame{
		Device:     DeviceMacBookPro14,
		Color:      ColorSpaceGray,
		Shadow:     true,
		Background: DefaultVisualEffects().Background,
		Padding:    0.08,
	}
}

const maxFrameRatio = 0.45

func (df DeviceFrame) bezelRatio() float64 {
	b := df.Bezel
	if b <= 0 {
		b = df.Device.Spec().Bezel
	}
	return clamp(b, 0, maxFrameRatio)
}

func (df DeviceFrame) paddingRatio() float64 {
	return clamp(df.Padding, 0, maxFrameRatio)
}

func scaleDim(v int, f float64) int {
	return int(math.Round(float64(v) * f))
}

func (df DeviceFrame) bodySize(src image.Point) image.Point {
	b := df.bezelRatio()
	return image.Point{X: scaleDim(src.X, 1+2*b), Y: scaleDim(src.Y, 1+2*b)}
}

// CalculateFrameSize is src × (1 + 2·bezel) × (1 + 2·padding), rounded.
func CalculateFrameSize(src image.Point, df DeviceFrame) image.Point {
	b, p := df.bezelRatio(), df.paddingRatio()
	return image.Point{
		X: scaleDim(src.X, (1+2*b)*(1+2*p)),
		Y: scaleDim(src.Y, (1+2*b)*(1+2*p)),
	}
}

func (df DeviceFrame) bodyRect(src image.Point) image.Rectangle {
	size := CalculateFrameSize(src, df)
	body := df.bodySize(src)
	origin := image.Point{X: (size.X - body.X) / 2, Y: (size.Y - body.Y) / 2}
	return image.Rectangle{Min: origin, Max: origin.Add(body)}
}

// ScreenRect is where the unscaled source lands inside the device frame.
func ScreenRect(src image.Point, df DeviceFrame) image.Rectangle {
	body := df.bodyRect(src)
	origin := body.Min.Add(image.Point{X: (body.Dx() - src.X) / 2, Y: (body.Dy() - src.Y) / 2})
	return image.Rectangle{Min: origin, Max: origin.Add(src)}
}

var (
	innerBezelColor = RGB(0x0a, 0x0a, 0x0a)
	cameraColor     = RGB(0x22, 0x26, 0x2c)
)

// NewDevicePlan prepares a device-mockup composition for frames of size src.
// Every proportion is taken from the body rect so mockups look the same at
// any resolution.
func NewDevicePlan(src image.Point, df DeviceFrame) *Plan {
	spec := df.Device.Spec()
	size := CalculateFrameSize(src, df)
	bounds := image.Rectangle{Max: size}
	body := df.bodyRect(src)
	screen := ScreenRect(src, df)
	p := &Plan{size: size, content: screen, rotation: df.Rotation}

	bg := df.Background
	if bg.Kind == BackgroundBlur {
		if p.rotation == 0 {
			p.blur = math.Max(bg.BlurRadius, 4)
		} else {
			bg.Kind = BackgroundSolid
		}
	}

	p.backdrop = image.NewRGBA(bounds)
	if p.rotation == 0 {
		fillBackground(p.backdrop, bg)
	} else {
		p.base = image.NewRGBA(bounds)
		fillBackground(p.base, bg)
	}

	bx, by, bw, bh := rectF(body)
	short := math.Min(bw, bh)
	corner := spec.Corner * short
	bezel := math.Min(float64(body.Dx()-src.X), float64(body.Dy()-src.Y)) / 2
	screenCorner := math.Max(0, corner-bezel)

	if df.Shadow {
		drawShadow(p.backdrop, body, corner, Shadow{
			Color:   RGB(0, 0, 0),
			Blur:    0.04 * short,
			OffsetY: 0.015 * bh,
			Opacity: 0.5,
		})
	}

	dc := gg.NewContextForRGBA(p.backdrop)
	dc.SetColor(df.Color.body())
	dc.DrawRoundedRectangle(bx, by, bw, bh, corner)
	dc.Fill()

	sx, sy, sw, sh := rectF(screen)
	margin := bezel * 0.35
	dc.SetColor(innerBezelColor)
	dc.DrawRoundedRectangle(sx-margin, sy-margin, sw+2*margin, sh+2*margin, screenCorner+margin)
	dc.Fill()

	if spec.Camera && spec.Category == CategoryLaptop && bezel > 0 {
		dc.SetColor(cameraColor)
		dc.DrawCircle(bx+bw/2, by+(sy-by)/2, math.Max(1, 0.006*short))
		dc.Fill()
	}

	if screenCorner > 0 {
		p.mask = roundedMask(src, screenCorner)
	}
	if spec.Category == CategoryPhone && spec.Notch != NoNotch {
		p.overlay = drawNotch(bounds, body, screen, spec.Notch)
	}
	return p
}

func drawNotch(bounds, body, screen image.Rectangle, style NotchStyle) *image.RGBA {
	layer := image.NewRGBA(bounds)
	dc := gg.NewContextForRGBA(layer)
	dc.SetColor(innerBezelColor)
	bw, bh := float64(body.Dx()), float64(body.Dy())
	cx := float64(body.Min.X) + bw/2
	top := float64(screen.Min.Y)

	switch style {
	case Notch:
		w, h := 0.36*bw, 0.035*bh
		dc.DrawRoundedRectangle(cx-w/2, top-h/2, w, h*1.5, h/2)
	case DynamicIsland:
		w, h := 0.3*bw, 0.03*bh
		dc.DrawRoundedRectangle(cx-w/2, top+0.015*bh, w, h, h/2)
	}
	dc.Fill()
	return layer
}

// ComposeDevice renders src inside df in one call. Prefer NewDevicePlan when
// rendering more than one frame.
func ComposeDevice(src image.Image, df DeviceFrame) *image.RGBA {
	return NewDevicePlan(src.Bounds().Size(), df).Compose(src)
}
