package tracking

import (
	"math"
	"sort"
	"time"

	"github.com/vedantwpatil/focusframe/internal/easing"
	"gonum.org/v1/gonum/spatial/r2"
)

// SmoothingConfig tunes the trail smoothers. Tension 0.5 gives the classic
// Catmull-Rom curve.
type SmoothingConfig struct {
	MinDistance            float64     `yaml:"min_distance"`
	Intensity              float64     `yaml:"intensity"`
	MaxInterpolationPoints int         `yaml:"max_interpolation_points"`
	Easing                 easing.Kind `yaml:"easing"`
	Tension                float64     `yaml:"tension"`
	JitterThreshold        float64     `yaml:"jitter_threshold"`
}

func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		MinDistance:            5,
		Intensity:              0.5,
		MaxInterpolationPoints: 10,
		Easing:                 easing.CubicInOut,
		Tension:                0.5,
		JitterThreshold:        2,
	}
}

func sortPoints(pts []CursorPoint) {
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Timestamp < pts[j].Timestamp })
}

func lerpDuration(a, b time.Duration, f float64) time.Duration {
	return a + time.Duration(math.Round(float64(b-a)*f))
}

// Interpolate inserts eased intermediate points between consecutive samples
// that are at least MinDistance apart. Timestamps of inserted points are
// spaced linearly.
func Interpolate(raw []CursorPoint, cfg SmoothingConfig) []CursorPoint {
	if len(raw) < 2 {
		return append([]CursorPoint(nil), raw...)
	}
	out := make([]CursorPoint, 0, len(raw))
	for i := 0; i < len(raw)-1; i++ {
		a, b := raw[i], raw[i+1]
		out = append(out, a)

		delta := r2.Sub(b.Position, a.Position)
		dist := r2.Norm(delta)
		if dist < cfg.MinDistance {
			continue
		}
		n := int(dist * cfg.Intensity / 10)
		if n < 1 {
			n = 1
		}
		if cfg.MaxInterpolationPoints > 0 && n > cfg.MaxInterpolationPoints {
			n = cfg.MaxInterpolationPoints
		}
		for j := 1; j <= n; j++ {
			f := float64(j) / float64(n+1)
			out = append(out, CursorPoint{
				Position:  r2.Add(a.Position, r2.Scale(easing.Ease(cfg.Easing, f), delta)),
				Timestamp: lerpDuration(a.Timestamp, b.Timestamp, f),
			})
		}
	}
	return append(out, raw[len(raw)-1])
}

// CatmullRom fits a cardinal spline through the trail. Fewer than four points
// are returned unchanged.
func CatmullRom(raw []CursorPoint, cfg SmoothingConfig) []CursorPoint {
	if len(raw) < 4 {
		return append([]CursorPoint(nil), raw...)
	}
	samples := int(cfg.Intensity * 10)
	if samples < 1 {
		samples = 1
	}
	last := len(raw) - 1
	out := make([]CursorPoint, 0, last*samples+1)
	for i := 0; i < last; i++ {
		p0 := raw[max(i-1, 0)].Position
		p1 := raw[i].Position
		p2 := raw[i+1].Position
		p3 := raw[min(i+2, last)].Position

		out = append(out, raw[i])
		for j := 1; j < samples; j++ {
			f := float64(j) / float64(samples)
			out = append(out, CursorPoint{
				Position:  cardinal(p0, p1, p2, p3, f, cfg.Tension),
				Timestamp: lerpDuration(raw[i].Timestamp, raw[i+1].Timestamp, f),
			})
		}
	}
	return append(out, raw[last])
}

// cardinal evaluates the cardinal spline segment between p1 and p2.
func cardinal(p0, p1, p2, p3 r2.Vec, t, s float64) r2.Vec {
	t2 := t * t
	t3 := t2 * t
	c0 := -s*t3 + 2*s*t2 - s*t
	c1 := (2-s)*t3 + (s-3)*t2 + 1
	c2 := (s-2)*t3 + (3-2*s)*t2 + s*t
	c3 := s*t3 - s*t2
	return r2.Add(
		r2.Add(r2.Scale(c0, p0), r2.Scale(c1, p1)),
		r2.Add(r2.Scale(c2, p2), r2.Scale(c3, p3)),
	)
}

// RemoveJitter drops interior points that deviate less than threshold from
// the line between the last kept point and the next raw point. Clicks are
// always kept.
func RemoveJitter(raw []CursorPoint, threshold float64) []CursorPoint {
	if len(raw) < 3 {
		return append([]CursorPoint(nil), raw...)
	}
	out := []CursorPoint{raw[0]}
	for i := 1; i < len(raw)-1; i++ {
		p := raw[i]
		if !p.IsClick && deviation(p.Position, out[len(out)-1].Position, raw[i+1].Position) < threshold {
			continue
		}
		out = append(out, p)
	}
	return append(out, raw[len(raw)-1])
}

// deviation is the perpendicular distance from p to the line through a and b.
func deviation(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	length := r2.Norm(ab)
	if length == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	return math.Abs(r2.Cross(ab, r2.Sub(p, a))) / length
}

// Smooth removes jitter and then fits a spline, falling back to eased
// interpolation for trails too short for a spline.
func Smooth(raw []CursorPoint, cfg SmoothingConfig) []CursorPoint {
	filtered := RemoveJitter(raw, cfg.JitterThreshold)
	if len(filtered) >= 4 {
		return CatmullRom(filtered, cfg)
	}
	return Interpolate(filtered, cfg)
}

// PositionAt interpolates the smoothed trail at t, clamping to the first and
// last points outside its range. It reports false for an empty trail.
func PositionAt(smoothed []CursorPoint, t time.Duration) (r2.Vec, bool) {
	if len(smoothed) == 0 {
		return r2.Vec{}, false
	}
	if t <= smoothed[0].Timestamp {
		return smoothed[0].Position, true
	}
	last := smoothed[len(smoothed)-1]
	if t >= last.Timestamp {
		return last.Position, true
	}
	i := sort.Search(len(smoothed), func(i int) bool { return smoothed[i].Timestamp > t })
	a, b := smoothed[i-1], smoothed[i]
	span := b.Timestamp - a.Timestamp
	if span <= 0 {
		return b.Position, true
	}
	f := float64(t-a.Timestamp) / float64(span)
	return r2.Add(a.Position, r2.Scale(f, r2.Sub(b.Position, a.Position))), true
}
