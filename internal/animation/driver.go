package animation

import (
	"time"

	"github.com/vedantwpatil/focusframe/internal/easing"
	"gonum.org/v1/gonum/spatial/r2"
)

// State is the animated tuple: a zoom level and the point it is centred on.
type State struct {
	Zoom   float64
	Center r2.Vec
}

// Lerp interpolates each field of a and b independently.
func Lerp(a, b State, p float64) State {
	return State{
		Zoom:   a.Zoom + (b.Zoom-a.Zoom)*p,
		Center: r2.Add(a.Center, r2.Scale(p, r2.Sub(b.Center, a.Center))),
	}
}

// Clock reports wall-clock time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads time.Now.
var SystemClock Clock = systemClock{}

// Driver interpolates a State towards a target over a fixed duration.
// Progress is derived from elapsed wall-clock time, never from the number of
// ticks, so the result does not depend on the pulse rate.
//
// Driver is not safe for concurrent use; it belongs to the goroutine that
// owns the zoom state.
type Driver struct {
	clock    Clock
	observer func(State)

	from     State
	to       State
	current  State
	start    time.Time
	duration time.Duration
	kind     easing.Kind
	active   bool
	progress float64
}

func NewDriver(clock Clock) *Driver {
	if clock == nil {
		clock = SystemClock
	}
	return &Driver{clock: clock, current: State{Zoom: 1}}
}

// SetObserver registers the function that receives every emitted state.
func (d *Driver) SetObserver(fn func(State)) {
	d.observer = fn
}

// Begin starts a new animation. When another animation is still running its
// target is discarded and the new one starts from the current interpolated
// value instead of from, so the stream of states stays continuous.
func (d *Driver) Begin(from, to State, duration time.Duration, kind easing.Kind) {
	if d.active {
		from = d.current
	}
	if duration < 0 {
		duration = 0
	}
	d.from = from
	d.to = to
	d.current = from
	d.start = d.clock.Now()
	d.duration = duration
	d.kind = kind
	d.progress = 0
	d.active = true
}

// Tick advances the animation to the current clock time and emits the
// resulting state. It reports whether the animation is still running; the
// tick that completes it emits the exact target and returns false.
func (d *Driver) Tick() (State, bool) {
	if !d.active {
		return d.current, false
	}

	raw := 1.0
	if d.duration > 0 {
		elapsed := d.clock.Now().Sub(d.start)
		raw = clamp01(float64(elapsed) / float64(d.duration))
	}
	if raw < d.progress {
		raw = d.progress
	}
	d.progress = raw

	if raw >= 1 {
		d.active = false
		d.current = d.to
		d.emit(d.current)
		return d.current, false
	}

	d.current = Lerp(d.from, d.to, easing.Ease(d.kind, raw))
	d.emit(d.current)
	return d.current, true
}

// Jump sets the state without animating and cancels any running animation.
func (d *Driver) Jump(s State) {
	d.active = false
	d.current = s
	d.emit(s)
}

func (d *Driver) Current() State { return d.current }
func (d *Driver) Target() State  { return d.to }
func (d *Driver) Active() bool   { return d.active }

// Progress is the raw (un-eased) progress of the running animation.
func (d *Driver) Progress() float64 { return d.progress }

func (d *Driver) emit(s State) {
	if d.observer != nil {
		d.observer(s)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
