package tracking

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	hook "github.com/robotn/gohook"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gonum.org/v1/gonum/spatial/r2"
)

// libuiohook values not exported by gohook.
const (
	buttonLeft  = 1
	buttonRight = 2

	maskCtrlL  = 1 << 1
	maskMetaL  = 1 << 2
	maskCtrlR  = 1 << 5
	maskMetaR  = 1 << 6
	maskCmdAny = maskCtrlL | maskMetaL | maskCtrlR | maskMetaR

	charUndefined = 0xFFFF
)

// RobotPointer reads the live cursor through robotgo.
type RobotPointer struct{}

func (RobotPointer) Location() r2.Vec {
	x, y := robotgo.Location()
	return r2.Vec{X: float64(x), Y: float64(y)}
}

// ScreenSize reports the main display size in the same units as Location.
// It falls back to the first display's pixel bounds when robotgo cannot
// tell.
func ScreenSize() r2.Vec {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		if displays := Displays(); len(displays) > 0 {
			w, h = displays[0].Dx(), displays[0].Dy()
		}
	}
	return r2.Vec{X: float64(w), Y: float64(h)}
}

// Displays lists the pixel bounds of every active display.
func Displays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := range n {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Poll samples p once per frame at fps until ctx is done.
func Poll(ctx context.Context, p zoom.Pointer, fps int, fn func(r2.Vec, time.Time)) {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(p.Location(), now)
		}
	}
}

// HookListener feeds global input events into a zoom engine and records
// clicks on the cursor trail. Coordinates arrive top-left based from the
// hook and are only scaled here.
type HookListener struct {
	trail  *Trail
	submit func(zoom.Event) bool
	scale  float64
	logger *slog.Logger

	mu      sync.Mutex
	origin  time.Time
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewHookListener sends converted events to submit. scale converts hook
// pixels to screen points; pass 1 when they agree.
func NewHookListener(trail *Trail, submit func(zoom.Event) bool, scale float64, logger *slog.Logger) *HookListener {
	if scale <= 0 {
		scale = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HookListener{
		trail:  trail,
		submit: submit,
		scale:  scale,
		logger: logger.With("component", "hook"),
	}
}

// Start installs the global hook. Click timestamps on the trail are relative
// to origin.
func (l *HookListener) Start(origin time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("input hook already running")
	}
	l.origin = origin
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.running = true

	evChan := hook.Start()
	go l.run(evChan, l.stop, l.done)
	l.logger.Debug("input hook started")
	return nil
}

func (l *HookListener) run(evChan <-chan hook.Event, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-evChan:
			if !ok {
				return
			}
			l.handle(ev, time.Now())
		}
	}
}

// Stop removes the global hook and returns once no further events will be
// delivered.
func (l *HookListener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	hook.End()
	<-done
	l.logger.Debug("input hook stopped")
}

func (l *HookListener) handle(ev hook.Event, now time.Time) {
	zev, point := l.convert(ev, now)
	if point != nil && l.trail != nil {
		l.trail.Append(*point)
	}
	if zev != nil && l.submit != nil {
		l.submit(zev)
	}
}

// convert maps a raw hook event to an engine event and, for clicks, a trail
// point. Unhandled kinds yield nil for both.
func (l *HookListener) convert(ev hook.Event, now time.Time) (zoom.Event, *CursorPoint) {
	at := r2.Vec{X: float64(ev.X) / l.scale, Y: float64(ev.Y) / l.scale}
	switch ev.Kind {
	case hook.MouseDown:
		kind := LeftClick
		switch {
		case ev.Clicks >= 2:
			kind = DoubleClick
		case ev.Button == buttonRight:
			kind = RightClick
		case ev.Button != buttonLeft:
			return nil, nil
		}
		l.mu.Lock()
		origin := l.origin
		l.mu.Unlock()
		return zoom.Click{At: at, Time: now}, &CursorPoint{
			Position:  at,
			Timestamp: now.Sub(origin),
			IsClick:   true,
			Click:     kind,
		}
	case hook.KeyDown:
		chars := ""
		if ev.Keychar != charUndefined && ev.Keychar != 0 {
			chars = string(ev.Keychar)
		}
		return zoom.Key{Chars: chars, Command: ev.Mask&maskCmdAny != 0, Time: now}, nil
	case hook.MouseWheel:
		return zoom.Scroll{At: at, Time: now}, nil
	case hook.MouseMove, hook.MouseDrag:
		return zoom.Move{At: at, Time: now}, nil
	}
	return nil, nil
}
