package editing

import (
	"sort"
	"time"

	"github.com/vedantwpatil/focusframe/internal/animation"
	"github.com/vedantwpatil/focusframe/internal/tracking"
	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gonum.org/v1/gonum/spatial/r2"
)

type replayClock struct{ now time.Time }

func (c *replayClock) Now() time.Time { return c.now }

// ReplayTrail runs a saved cursor trail through a zoom engine on a virtual
// clock and returns the resulting track. Moves come from the smoothed trail
// and clicks from the raw one, so re-tuned zoom or smoothing settings can be
// tried without recording again.
func ReplayTrail(trail *tracking.Trail, cfg zoom.Config, smoothing tracking.SmoothingConfig, screen r2.Vec, probe uiprobe.Probe) zoom.Track {
	type step struct {
		at    time.Duration
		pos   r2.Vec
		click bool
	}
	raw := trail.Points()
	var steps []step
	var moves []tracking.CursorPoint
	for _, p := range raw {
		if p.IsClick {
			steps = append(steps, step{at: p.Timestamp, pos: p.Position, click: true})
		} else {
			moves = append(moves, p)
		}
	}
	for _, p := range tracking.Smooth(moves, smoothing) {
		steps = append(steps, step{at: p.Timestamp, pos: p.Position})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].at < steps[j].at })

	origin := time.Unix(0, 0)
	clock := &replayClock{now: origin}
	engine := zoom.NewEngine(cfg, screen, zoom.WithClock(clock), zoom.WithProbe(probe))

	var elapsed time.Duration
	advance := func(to time.Duration) {
		for elapsed+animation.DefaultInterval <= to {
			elapsed += animation.DefaultInterval
			clock.now = origin.Add(elapsed)
			engine.Tick()
		}
		elapsed = max(elapsed, to)
		clock.now = origin.Add(elapsed)
	}
	for _, s := range steps {
		advance(s.at)
		if s.click {
			engine.HandleClick(zoom.Click{At: s.pos, Time: clock.now})
		} else {
			engine.HandleMove(zoom.Move{At: s.pos, Time: clock.now})
		}
	}
	return zoom.NewTrack(engine.Triggers(), cfg, screen)
}
