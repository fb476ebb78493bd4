package zoom

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Event is an input notification delivered to the engine. All coordinates
// use a top-left origin in screen points.
type Event interface {
	eventTime() time.Time
}

type Click struct {
	At   r2.Vec
	Time time.Time
}

type Key struct {
	Chars   string
	Command bool
	Time    time.Time
}

type Scroll struct {
	At   r2.Vec
	Time time.Time
}

type Move struct {
	At   r2.Vec
	Time time.Time
}

func (e Click) eventTime() time.Time  { return e.Time }
func (e Key) eventTime() time.Time    { return e.Time }
func (e Scroll) eventTime() time.Time { return e.Time }
func (e Move) eventTime() time.Time   { return e.Time }

// Phase is the engine's state machine position.
type Phase int

const (
	Idle Phase = iota
	ZoomingIn
	Zoomed
	Following
	ZoomingOut
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ZoomingIn:
		return "zooming-in"
	case Zoomed:
		return "zoomed"
	case Following:
		return "following"
	case ZoomingOut:
		return "zooming-out"
	}
	return "unknown"
}

// Update is delivered to the sink on every animation tick.
type Update struct {
	Zoom   float64
	Center r2.Vec
	Phase  Phase
}

// Trigger records one zoom decision, relative to the session origin.
type Trigger struct {
	At     time.Duration `yaml:"at"`
	Level  float64       `yaml:"level"`
	Center r2.Vec        `yaml:"center"`
	// Hold is the time spent fully zoomed. Clicks that extend the hold
	// lengthen it.
	Hold time.Duration `yaml:"hold"`
}
