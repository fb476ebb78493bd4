package zoom

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vedantwpatil/focusframe/internal/animation"
	"github.com/vedantwpatil/focusframe/internal/easing"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

// Keyframe marks the start of an animation towards its values. The values
// are reached AnimationDuration later, following Interpolation.
type Keyframe struct {
	Time          time.Duration `yaml:"t"`
	Zoom          float64       `yaml:"zoom"`
	CenterX       float64       `yaml:"x"`
	CenterY       float64       `yaml:"y"`
	Interpolation easing.Kind   `yaml:"interpolation"`
}

func (k Keyframe) State() animation.State {
	return animation.State{Zoom: k.Zoom, Center: r2.Vec{X: k.CenterX, Y: k.CenterY}}
}

// Track is a keyframe list plus the animation length needed to evaluate it.
type Track struct {
	Version           int           `yaml:"version"`
	AnimationDuration time.Duration `yaml:"animation_duration"`
	Screen            r2.Vec        `yaml:"screen"`
	Keyframes         []Keyframe    `yaml:"keyframes"`
}

// GenerateKeyframes expands each trigger into a zoom-in, hold and zoom-out
// keyframe, ordered by time. A zoom-out that would land after the next
// trigger is pulled back to that trigger so it cannot undo the next zoom.
func GenerateKeyframes(triggers []Trigger, cfg Config) []Keyframe {
	cfg = cfg.Sanitize()
	sorted := make([]Trigger, len(triggers))
	copy(sorted, triggers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	kfs := make([]Keyframe, 0, len(sorted)*3)
	for i, tr := range sorted {
		hold := tr.Hold
		if hold <= 0 {
			hold = cfg.HoldDuration
		}
		holdAt := tr.At + cfg.AnimationDuration
		outAt := holdAt + hold
		if i+1 < len(sorted) {
			next := sorted[i+1].At
			if holdAt > next {
				holdAt = next
			}
			if outAt > next {
				outAt = next
			}
		}

		kfs = append(kfs,
			Keyframe{Time: tr.At, Zoom: tr.Level, CenterX: tr.Center.X, CenterY: tr.Center.Y, Interpolation: cfg.Easing},
			Keyframe{Time: holdAt, Zoom: tr.Level, CenterX: tr.Center.X, CenterY: tr.Center.Y, Interpolation: easing.Linear},
			Keyframe{Time: outAt, Zoom: 1, CenterX: tr.Center.X, CenterY: tr.Center.Y, Interpolation: cfg.Easing},
		)
	}
	sort.SliceStable(kfs, func(i, j int) bool { return kfs[i].Time < kfs[j].Time })
	return kfs
}

// Sample evaluates the track at t. Each keyframe starts an animation from
// whatever value was current at its timestamp, mirroring how the live
// engine restarts animations.
func (tr Track) Sample(t time.Duration) animation.State {
	if len(tr.Keyframes) == 0 {
		return animation.State{Zoom: 1, Center: r2.Scale(0.5, tr.Screen)}
	}
	dur := tr.AnimationDuration
	from := animation.State{Zoom: 1, Center: tr.Keyframes[0].State().Center}
	var active *Keyframe
	for i := range tr.Keyframes {
		kf := &tr.Keyframes[i]
		if kf.Time > t {
			break
		}
		if active != nil {
			from = evaluate(from, *active, kf.Time, dur)
		}
		active = kf
	}
	if active == nil {
		return from
	}
	return evaluate(from, *active, t, dur)
}

func evaluate(from animation.State, kf Keyframe, at, dur time.Duration) animation.State {
	p := 1.0
	if dur > 0 {
		p = float64(at-kf.Time) / float64(dur)
	}
	return animation.Lerp(from, kf.State(), easing.Ease(kf.Interpolation, p))
}

// NewTrack builds a track from the engine's trigger log.
func NewTrack(triggers []Trigger, cfg Config, screen r2.Vec) Track {
	cfg = cfg.Sanitize()
	return Track{
		Version:           1,
		AnimationDuration: cfg.AnimationDuration,
		Screen:            screen,
		Keyframes:         GenerateKeyframes(triggers, cfg),
	}
}

func WriteTrack(w io.Writer, tr Track) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tr); err != nil {
		return fmt.Errorf("failed to encode zoom track: %w", err)
	}
	return enc.Close()
}

func ReadTrack(r io.Reader) (Track, error) {
	var tr Track
	if err := yaml.NewDecoder(r).Decode(&tr); err != nil {
		return Track{}, fmt.Errorf("failed to decode zoom track: %w", err)
	}
	sort.SliceStable(tr.Keyframes, func(i, j int) bool { return tr.Keyframes[i].Time < tr.Keyframes[j].Time })
	return tr, nil
}
