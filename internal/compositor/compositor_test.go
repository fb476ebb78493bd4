package compositor

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"gopkg.in/yaml.v3"
)

func patternFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x + y), A: 0xff})
		}
	}
	return img
}

func plainEffects(padding int) VisualEffects {
	fx := DefaultVisualEffects()
	fx.Padding = UniformPadding(padding)
	fx.CornerRadius = 0
	fx.Border.Enabled = false
	fx.Inset.Enabled = false
	fx.Reflection.Enabled = false
	return fx
}

func TestOutputSizeAndContentRect(t *testing.T) {
	fx := plainEffects(40)
	src := image.Point{X: 1000, Y: 600}
	if got := OutputSize(src, fx); got != (image.Point{X: 1080, Y: 680}) {
		t.Fatalf("OutputSize = %v, want 1080x680", got)
	}
	if got := ContentRect(src, fx); got != image.Rect(40, 40, 1040, 640) {
		t.Fatalf("ContentRect = %v", got)
	}

	fx.Padding = Padding{Top: 10, Right: 20, Bottom: 30, Left: -5}
	if got := OutputSize(src, fx); got != (image.Point{X: 1020, Y: 640}) {
		t.Fatalf("expected negative padding to clamp to zero, got %v", got)
	}
}

func TestReflectionStaysInsidePadding(t *testing.T) {
	src := image.Point{X: 1000, Y: 600}
	fx := plainEffects(40)
	fx.Reflection = Reflection{Enabled: true, Opacity: 0.3, Height: 0.25, Gap: 8}
	if got := OutputSize(src, fx); got != (image.Point{X: 1080, Y: 680}) {
		t.Fatalf("reflection must not grow the canvas, got %v", got)
	}

	plan := NewPlan(src, fx)
	if plan.refl == nil {
		t.Fatalf("expected a reflection strip")
	}
	if want := image.Rect(40, 648, 1040, 680); plan.refl.rect != want {
		t.Fatalf("reflection strip %v, want %v", plan.refl.rect, want)
	}

	fx.Padding.Bottom = 6
	if plan := NewPlan(src, fx); plan.refl != nil {
		t.Fatalf("no room below the gap, expected no reflection, got %v", plan.refl.rect)
	}
}

func TestInsetDrawnOverBorder(t *testing.T) {
	content := image.Rect(10, 10, 110, 70)
	bounds := image.Rect(0, 0, 120, 80)
	border := Border{Enabled: true, Width: 4, Color: Color{R: 0xff, A: 0xff}}
	inset := Inset{Enabled: true, Depth: 4, LightAngle: 90, Highlight: Color{G: 0xff, A: 0xff}, Shade: Color{B: 0xff, A: 0xff}}

	layer := drawOverlay(bounds, content, 0, border, inset)
	got := layer.RGBAAt(60, content.Min.Y+1)
	if got.G < 0xc0 || got.R > 0x40 {
		t.Fatalf("expected the inset highlight over the border, got %v", got)
	}

	inset.Enabled = false
	if got := drawOverlay(bounds, content, 0, border, inset).RGBAAt(60, content.Min.Y+1); got.R < 0xc0 {
		t.Fatalf("expected the border alone, got %v", got)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	src := patternFrame(120, 80)
	fx := plainEffects(16)
	fx.Shadow.Enabled = true

	out := Compose(src, fx)
	if out.Bounds().Size() != (image.Point{X: 152, Y: 112}) {
		t.Fatalf("unexpected canvas %v", out.Bounds())
	}
	back := Crop(out, ContentRect(src.Bounds().Size(), fx))
	if !bytes.Equal(back.Pix, src.Pix) {
		t.Fatalf("cropped content differs from the source")
	}
}

func TestComposeRoundedCorners(t *testing.T) {
	src := patternFrame(120, 80)
	fx := plainEffects(10)
	fx.Background = Background{Kind: BackgroundSolid, Color: RGB(0, 0, 255)}
	fx.Shadow.Enabled = false
	fx.CornerRadius = 12

	out := Compose(src, fx)
	rect := ContentRect(src.Bounds().Size(), fx)
	if got := out.RGBAAt(rect.Min.X, rect.Min.Y); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("expected background in the clipped corner, got %v", got)
	}
	cx, cy := rect.Min.X+60, rect.Min.Y+40
	if got, want := out.RGBAAt(cx, cy), src.RGBAAt(60, 40); got != want {
		t.Fatalf("interior pixel changed: got %v want %v", got, want)
	}
}

func TestCornerRadiusClamped(t *testing.T) {
	if got := cornerRadius(500, image.Point{X: 100, Y: 40}); got != 20 {
		t.Fatalf("expected radius clamped to 20, got %v", got)
	}
	if got := cornerRadius(-3, image.Point{X: 100, Y: 40}); got != 0 {
		t.Fatalf("expected negative radius clamped to 0, got %v", got)
	}
}

func TestComposeLayers(t *testing.T) {
	src := patternFrame(64, 48)
	fx := DefaultVisualEffects()
	fx.Padding = UniformPadding(12)
	fx.Border.Enabled = true
	fx.Border.Style = BorderDashed
	fx.Inset.Enabled = true
	fx.Reflection.Enabled = true

	plan := NewPlan(src.Bounds().Size(), fx)
	if plan.overlay == nil || plan.refl == nil || plan.mask == nil {
		t.Fatalf("expected overlay, reflection and mask to be prepared")
	}
	out := plan.Compose(src)
	if out.Bounds().Size() != plan.Size() {
		t.Fatalf("compose size %v, plan size %v", out.Bounds().Size(), plan.Size())
	}
	below := plan.refl.rect.Min.Add(image.Point{X: 32, Y: 1})
	if got := out.RGBAAt(below.X, below.Y); got.A != 0xff {
		t.Fatalf("expected opaque canvas under the reflection, got %v", got)
	}
}

func TestComposeBlurBackground(t *testing.T) {
	src := patternFrame(64, 48)
	fx := plainEffects(20)
	fx.Background = Background{Kind: BackgroundBlur, BlurRadius: 8}
	fx.Shadow.Enabled = false

	out := Compose(src, fx)
	if got := out.RGBAAt(2, 2); got.A == 0 {
		t.Fatalf("expected blurred frame behind the padding, got %v", got)
	}
	back := Crop(out, ContentRect(src.Bounds().Size(), fx))
	if !bytes.Equal(back.Pix, src.Pix) {
		t.Fatalf("content must be untouched by the blurred background")
	}
}

func TestComposeTransparentBackground(t *testing.T) {
	src := patternFrame(32, 32)
	fx := plainEffects(8)
	fx.Background.Kind = BackgroundTransparent
	fx.Shadow.Enabled = false
	if got := Compose(src, fx).RGBAAt(1, 1); got.A != 0 {
		t.Fatalf("expected transparent padding, got %v", got)
	}
}

func TestCoverRect(t *testing.T) {
	got := coverRect(image.Rect(0, 0, 400, 100), image.Point{X: 200, Y: 100})
	if got != image.Rect(100, 0, 300, 100) {
		t.Fatalf("unexpected cover crop %v", got)
	}
}

func TestCalculateFrameSize(t *testing.T) {
	df := DeviceFrame{Device: DeviceGeneric, Bezel: 0.03, Padding: 0.1}
	got := CalculateFrameSize(image.Point{X: 1920, Y: 1080}, df)
	// 1920 × 1.06 × 1.2 = 2442.24, 1080 × 1.06 × 1.2 = 1373.76
	if got != (image.Point{X: 2442, Y: 1374}) {
		t.Fatalf("CalculateFrameSize = %v", got)
	}

	df.Padding = 3
	df.Bezel = 0
	df.Device = DeviceTV
	got = CalculateFrameSize(image.Point{X: 1000, Y: 1000}, df)
	if want := scaleDim(1000, 1.03*1.9); got.X != want {
		t.Fatalf("expected padding clamped to 0.45 and table bezel, got %v want %d", got, want)
	}
}

func TestDeviceRoundTrip(t *testing.T) {
	src := patternFrame(200, 100)
	df := DeviceFrame{Device: DeviceGeneric, Bezel: 0.03, Padding: 0.1, Shadow: true}

	out := ComposeDevice(src, df)
	if out.Bounds().Size() != CalculateFrameSize(src.Bounds().Size(), df) {
		t.Fatalf("unexpected device canvas %v", out.Bounds())
	}
	screen := ScreenRect(src.Bounds().Size(), df)
	if screen.Size() != src.Bounds().Size() {
		t.Fatalf("screen rect %v does not match source size", screen)
	}
	if !bytes.Equal(Crop(out, screen).Pix, src.Pix) {
		t.Fatalf("screen content differs from the source")
	}
}

func TestDevicePlanDecorations(t *testing.T) {
	src := image.Point{X: 390, Y: 844}
	phone := NewDevicePlan(src, DeviceFrame{Device: DeviceIPhone15Pro, Padding: 0.05})
	if phone.overlay == nil {
		t.Fatalf("expected a dynamic island overlay")
	}
	if phone.mask == nil {
		t.Fatalf("expected rounded screen corners on a phone")
	}
	laptop := NewDevicePlan(image.Point{X: 300, Y: 200}, DeviceFrame{Device: DeviceMacBookAir})
	if laptop.overlay != nil {
		t.Fatalf("laptops have no notch overlay")
	}

	tilted := NewDevicePlan(image.Point{X: 80, Y: 60}, DeviceFrame{Device: DeviceIPadAir, Padding: 0.2, Rotation: 8})
	out := tilted.Compose(patternFrame(80, 60))
	if out.Bounds().Size() != tilted.Size() {
		t.Fatalf("rotation must not change the canvas size")
	}
}

func TestDeviceTypesTable(t *testing.T) {
	types := DeviceTypes()
	if len(types) != len(deviceTable) || types[0] != DeviceGeneric {
		t.Fatalf("unexpected device listing %v", types)
	}
	for _, d := range types {
		parsed, err := ParseDeviceType(d.String())
		if err != nil || parsed != d {
			t.Fatalf("ParseDeviceType(%q) = %v, %v", d.String(), parsed, err)
		}
		s := d.Spec()
		if s.AspectRatio <= 0 || s.Bezel <= 0 || s.Corner <= 0 {
			t.Fatalf("device %s has incomplete geometry %+v", s.Name, s)
		}
	}
}

func TestEffectsYAML(t *testing.T) {
	in := `
background:
  kind: solid
  color: "#102030"
border:
  enabled: true
  width: 3
  style: dotted
padding: {top: 5, right: 6, bottom: 7, left: 8}
`
	var fx VisualEffects
	if err := yaml.Unmarshal([]byte(in), &fx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fx.Background.Kind != BackgroundSolid || fx.Background.Color != RGB(0x10, 0x20, 0x30) {
		t.Fatalf("unexpected background %+v", fx.Background)
	}
	if fx.Border.Style != BorderDotted || fx.Padding.Left != 8 {
		t.Fatalf("unexpected border/padding %+v %+v", fx.Border, fx.Padding)
	}

	var df DeviceFrame
	if err := yaml.Unmarshal([]byte("device: iphone-14\ncolor: silver\n"), &df); err != nil {
		t.Fatalf("unmarshal device: %v", err)
	}
	if df.Device != DeviceIPhone14 || df.Color != ColorSilver {
		t.Fatalf("unexpected device frame %+v", df)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#11223380")
	if err != nil || c != (Color{R: 0x11, G: 0x22, B: 0x33, A: 0x80}) {
		t.Fatalf("ParseColor = %v, %v", c, err)
	}
	if c.String() != "#11223380" || RGB(1, 2, 3).String() != "#010203" {
		t.Fatalf("unexpected formatting %s", c)
	}
	if _, err := ParseColor("blue"); err == nil {
		t.Fatalf("expected error for named colour")
	}
}
