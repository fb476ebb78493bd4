package tracking

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

// ClickKind tells which button, if any, produced a cursor point.
type ClickKind int

const (
	NoClick ClickKind = iota
	LeftClick
	RightClick
	DoubleClick
)

var clickNames = [...]string{
	NoClick:     "none",
	LeftClick:   "left",
	RightClick:  "right",
	DoubleClick: "double",
}

func (k ClickKind) String() string {
	if k < 0 || int(k) >= len(clickNames) {
		return fmt.Sprintf("click(%d)", int(k))
	}
	return clickNames[k]
}

func (k ClickKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ClickKind) UnmarshalText(b []byte) error {
	for i, name := range clickNames {
		if name == string(b) {
			*k = ClickKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown click kind %q", b)
}

// CursorPoint is one sample of the cursor trail. Timestamp is relative to the
// start of the recording.
type CursorPoint struct {
	Position  r2.Vec        `yaml:"pos"`
	Timestamp time.Duration `yaml:"t"`
	IsClick   bool          `yaml:"click,omitempty"`
	Click     ClickKind     `yaml:"kind,omitempty"`
}

// Trail is the raw cursor sequence captured during a recording. Appends may
// come from the hook goroutine and the poller concurrently.
type Trail struct {
	mu     sync.Mutex
	points []CursorPoint
}

func NewTrail() *Trail {
	return &Trail{}
}

func (t *Trail) Append(p CursorPoint) {
	t.mu.Lock()
	t.points = append(t.points, p)
	t.mu.Unlock()
}

func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.points)
}

// Points returns a snapshot ordered by timestamp. Clicks from the hook and
// polled positions interleave, so the snapshot is sorted rather than trusted.
func (t *Trail) Points() []CursorPoint {
	t.mu.Lock()
	out := make([]CursorPoint, len(t.points))
	copy(out, t.points)
	t.mu.Unlock()
	sortPoints(out)
	return out
}

// Clicks returns only the click points of the trail.
func (t *Trail) Clicks() []CursorPoint {
	var out []CursorPoint
	for _, p := range t.Points() {
		if p.IsClick {
			out = append(out, p)
		}
	}
	return out
}

type trailFile struct {
	Version int           `yaml:"version"`
	Points  []CursorPoint `yaml:"points"`
}

func WriteTrail(w io.Writer, t *Trail) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(trailFile{Version: 1, Points: t.Points()}); err != nil {
		return fmt.Errorf("failed to encode cursor trail: %w", err)
	}
	return enc.Close()
}

func ReadTrail(r io.Reader) (*Trail, error) {
	var f trailFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode cursor trail: %w", err)
	}
	sortPoints(f.Points)
	return &Trail{points: f.Points}, nil
}
