package compositor

import (
	"image"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Plan holds everything about a composition that does not depend on frame
// pixels: canvas geometry, the pre-rendered backdrop, the rounded clip mask
// and the overlay strokes. Build one per source size and reuse it for every
// frame. A Plan is never mutated after construction, so Compose may run on
// several goroutines at once.
type Plan struct {
	size    image.Point
	content image.Rectangle

	// backdrop is everything below the content. With blur set it is drawn
	// over a blurred copy of each frame instead of replacing it.
	backdrop *image.RGBA
	blur     float64

	mask    *image.Alpha
	overlay *image.RGBA
	refl    *reflection

	// rotation tilts the composed layer about the canvas centre over base.
	rotation float64
	base     *image.RGBA
}

type reflection struct {
	rect image.Rectangle
	mask *image.Alpha
}

// NewPlan prepares a styled-canvas composition for frames of size src.
func NewPlan(src image.Point, fx VisualEffects) *Plan {
	fx = fx.Sanitize()
	p := &Plan{size: OutputSize(src, fx), content: ContentRect(src, fx)}
	bounds := image.Rectangle{Max: p.size}
	radius := cornerRadius(fx.CornerRadius, src)

	if fx.Background.Kind == BackgroundBlur {
		p.blur = math.Max(fx.Background.BlurRadius, 4)
	}
	if p.blur == 0 || fx.Shadow.Enabled {
		p.backdrop = image.NewRGBA(bounds)
		fillBackground(p.backdrop, fx.Background)
	}
	if fx.Shadow.Enabled {
		drawShadow(p.backdrop, p.content, radius, fx.Shadow)
	}
	if radius > 0 {
		p.mask = roundedMask(src, radius)
	}
	p.overlay = drawOverlay(bounds, p.content, radius, fx.Border, fx.Inset)
	if h := fx.reflectionHeight(src.Y); h > 0 {
		p.refl = newReflection(p.content, fx.Reflection.Gap, h, fx.Reflection.Opacity, p.mask)
	}
	return p
}

// Size is the output canvas size.
func (p *Plan) Size() image.Point { return p.size }

// ContentRect is where the source frame is placed on the canvas.
func (p *Plan) ContentRect() image.Rectangle { return p.content }

// Compose renders one frame. src should have the size the plan was built
// for; anything outside the content rect is clipped.
func (p *Plan) Compose(src image.Image) *image.RGBA {
	bounds := image.Rectangle{Max: p.size}
	dst := image.NewRGBA(bounds)
	switch {
	case p.blur > 0:
		blurInto(dst, src, p.blur)
		if p.backdrop != nil {
			draw.Draw(dst, bounds, p.backdrop, image.Point{}, draw.Over)
		}
	case p.backdrop != nil:
		copy(dst.Pix, p.backdrop.Pix)
	}

	sp := src.Bounds().Min
	if p.mask == nil {
		draw.Draw(dst, p.content, src, sp, draw.Src)
	} else {
		draw.DrawMask(dst, p.content, src, sp, p.mask, image.Point{}, draw.Over)
	}
	if p.overlay != nil {
		draw.Draw(dst, bounds, p.overlay, image.Point{}, draw.Over)
	}
	if p.refl != nil {
		p.refl.draw(dst, p.content)
	}
	if p.rotation == 0 {
		return dst
	}

	out := image.NewRGBA(bounds)
	copy(out.Pix, p.base.Pix)
	dc := gg.NewContextForRGBA(out)
	dc.RotateAbout(gg.Radians(p.rotation), float64(p.size.X)/2, float64(p.size.Y)/2)
	dc.DrawImage(dst, 0, 0)
	return out
}

// Compose renders src with fx in one call. Prefer NewPlan when rendering
// more than one frame.
func Compose(src image.Image, fx VisualEffects) *image.RGBA {
	return NewPlan(src.Bounds().Size(), fx).Compose(src)
}

// Crop copies r out of img into a new image anchored at the origin. Used
// with ContentRect or ScreenRect it recovers the source of a composition.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rectangle{Max: r.Size()})
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

func rectF(r image.Rectangle) (x, y, w, h float64) {
	return float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy())
}

func fillBackground(dst *image.RGBA, bg Background) {
	b := dst.Bounds()
	switch bg.Kind {
	case BackgroundTransparent, BackgroundBlur:
		return
	case BackgroundGradient:
		w, h := float64(b.Dx()), float64(b.Dy())
		a := gg.Radians(bg.Gradient.Angle)
		dx, dy := math.Cos(a), math.Sin(a)
		half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
		grad := gg.NewLinearGradient(w/2-dx*half, h/2-dy*half, w/2+dx*half, h/2+dy*half)
		grad.AddColorStop(0, bg.Gradient.From)
		grad.AddColorStop(1, bg.Gradient.To)
		dc := gg.NewContextForRGBA(dst)
		dc.SetFillStyle(grad)
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
		return
	case BackgroundImage:
		if bg.Image != nil {
			draw.CatmullRom.Scale(dst, b, bg.Image, coverRect(bg.Image.Bounds(), b.Size()), draw.Src, nil)
			return
		}
	}
	draw.Draw(dst, b, image.NewUniform(bg.Color), image.Point{}, draw.Src)
}

// coverRect picks the centred part of src with the aspect ratio of size.
func coverRect(src image.Rectangle, size image.Point) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	want := float64(size.X) / float64(size.Y)
	if sw/sh > want {
		w := int(math.Round(sh * want))
		x := src.Min.X + (src.Dx()-w)/2
		return image.Rect(x, src.Min.Y, x+w, src.Max.Y)
	}
	h := int(math.Round(sw / want))
	y := src.Min.Y + (src.Dy()-h)/2
	return image.Rect(src.Min.X, y, src.Max.X, y+h)
}

// blurInto paints a blurred, stretched copy of src over dst by scaling down
// by roughly radius/2 and back up.
func blurInto(dst *image.RGBA, src image.Image, radius float64) {
	b := dst.Bounds()
	k := radius / 2
	small := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(b.Dx())/k)), max(1, int(float64(b.Dy())/k))))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)
	draw.BiLinear.Scale(dst, b, small, small.Bounds(), draw.Src, nil)
}

// drawShadow casts a soft rounded-rect shadow for the content rect. Softness
// comes from rendering at reduced resolution and scaling up bilinearly.
func drawShadow(dst *image.RGBA, content image.Rectangle, radius float64, sh Shadow) {
	c := sh.Color.WithAlpha(sh.Opacity)
	x, y, w, h := rectF(content)
	x += sh.OffsetX
	y += sh.OffsetY

	b := dst.Bounds()
	k := sh.Blur / 2
	if k <= 1 {
		dc := gg.NewContextForRGBA(dst)
		dc.SetColor(c)
		dc.DrawRoundedRectangle(x, y, w, h, radius)
		dc.Fill()
		return
	}

	small := image.NewRGBA(image.Rect(0, 0, max(1, int(math.Ceil(float64(b.Dx())/k))), max(1, int(math.Ceil(float64(b.Dy())/k)))))
	dc := gg.NewContextForRGBA(small)
	dc.Scale(float64(small.Bounds().Dx())/float64(b.Dx()), float64(small.Bounds().Dy())/float64(b.Dy()))
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y, w, h, radius)
	dc.Fill()
	draw.BiLinear.Scale(dst, b, small, small.Bounds(), draw.Over, nil)
}

// roundedMask is an alpha mask of size with rounded corners.
func roundedMask(size image.Point, radius float64) *image.Alpha {
	dc := gg.NewContext(size.X, size.Y)
	dc.SetRGB(1, 1, 1)
	dc.DrawRoundedRectangle(0, 0, float64(size.X), float64(size.Y), radius)
	dc.Fill()
	return dc.AsMask()
}

func drawOverlay(bounds, content image.Rectangle, radius float64, border Border, inset Inset) *image.RGBA {
	drawInset := inset.Enabled && inset.Depth > 0
	drawBorder := border.Enabled && border.Width > 0
	if !drawInset && !drawBorder {
		return nil
	}
	layer := image.NewRGBA(bounds)
	dc := gg.NewContextForRGBA(layer)
	x, y, w, h := rectF(content)

	if drawBorder {
		bw := border.Width
		dc.SetColor(border.Color)
		dc.SetLineWidth(bw)
		switch border.Style {
		case BorderDashed:
			dc.SetDash(bw*3, bw*2)
		case BorderDotted:
			dc.SetLineCapRound()
			dc.SetDash(1, bw*2)
		}
		half := bw / 2
		dc.DrawRoundedRectangle(x+half, y+half, w-bw, h-bw, math.Max(0, radius-half))
		dc.Stroke()
		dc.SetDash()
		dc.SetLineCapButt()
	}

	if drawInset {
		// Each stroke is shifted so only its light-facing (or shaded) side
		// falls inside the clip.
		a := gg.Radians(inset.LightAngle)
		lx, ly := math.Cos(a), -math.Sin(a)
		d := inset.Depth
		dc.DrawRoundedRectangle(x, y, w, h, radius)
		dc.Clip()
		dc.SetLineWidth(d)
		dc.SetColor(inset.Highlight)
		dc.DrawRoundedRectangle(x-lx*d/2, y-ly*d/2, w, h, radius)
		dc.Stroke()
		dc.SetColor(inset.Shade)
		dc.DrawRoundedRectangle(x+lx*d/2, y+ly*d/2, w, h, radius)
		dc.Stroke()
		dc.ResetClip()
	}
	return layer
}

// newReflection prepares the faded mask for a mirrored strip of height h
// placed gap pixels below content.
func newReflection(content image.Rectangle, gap, h int, opacity float64, corners *image.Alpha) *reflection {
	w := content.Dx()
	top := content.Max.Y + gap
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	srcH := content.Dy()
	for r := 0; r < h; r++ {
		fade := opacity * (1 - (float64(r)+0.5)/float64(h))
		row := mask.Pix[r*mask.Stride : r*mask.Stride+w]
		for x := range row {
			a := 255.0
			if corners != nil {
				a = float64(corners.AlphaAt(x, srcH-1-r).A)
			}
			row[x] = uint8(a*fade + 0.5)
		}
	}
	return &reflection{rect: image.Rect(content.Min.X, top, content.Max.X, top+h), mask: mask}
}

func (r *reflection) draw(dst *image.RGBA, content image.Rectangle) {
	w, h := r.rect.Dx(), r.rect.Dy()
	flipped := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		sy := content.Max.Y - 1 - row
		if sy < content.Min.Y {
			break
		}
		so := dst.PixOffset(content.Min.X, sy)
		copy(flipped.Pix[row*flipped.Stride:row*flipped.Stride+w*4], dst.Pix[so:so+w*4])
	}
	draw.DrawMask(dst, r.rect, flipped, image.Point{}, r.mask, image.Point{}, draw.Over)
}
