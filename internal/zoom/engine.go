package zoom

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vedantwpatil/focusframe/internal/animation"
	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"gonum.org/v1/gonum/spatial/r2"
)

// Pointer reports the live cursor position.
type Pointer interface {
	Location() r2.Vec
}

type clickRecord struct {
	at  time.Time
	pos r2.Vec
}

// Engine decides when, where and how far to zoom.
//
// All state is owned by a single goroutine started by Start. Input events
// arrive through Submit from any goroutine and clock pulses are marshalled
// onto the same goroutine before they touch state. The Handle* and Tick
// methods are that goroutine's operations; they may be called directly only
// when the loop is not running, as tests do.
type Engine struct {
	cfg     Config
	probe   uiprobe.Probe
	screen  r2.Vec
	clock   animation.Clock
	pointer Pointer
	sink    func(Update)
	logger  *slog.Logger
	tick    time.Duration

	driver      *animation.Driver
	phase       Phase
	origin      time.Time
	lastPointer r2.Vec
	lastScroll  time.Time
	lastTrigger time.Time
	zoomOutAt   time.Time
	clicks      []clickRecord
	keys        []time.Time
	triggers    []Trigger
	ctx         context.Context

	mu      sync.Mutex
	events  chan Event
	tasks   chan func()
	pulse   *animation.Pulse
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

type Option func(*Engine)

func WithProbe(p uiprobe.Probe) Option   { return func(e *Engine) { e.probe = p } }
func WithClock(c animation.Clock) Option { return func(e *Engine) { e.clock = c } }
func WithPointer(p Pointer) Option       { return func(e *Engine) { e.pointer = p } }
func WithSink(fn func(Update)) Option    { return func(e *Engine) { e.sink = fn } }
func WithLogger(l *slog.Logger) Option   { return func(e *Engine) { e.logger = l } }
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// NewEngine builds an engine for a screen of the given size in points.
func NewEngine(cfg Config, screen r2.Vec, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.Sanitize(),
		probe:  uiprobe.Nop{},
		screen: screen,
		clock:  animation.SystemClock,
		logger: slog.Default(),
		tick:   animation.DefaultInterval,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.probe == nil {
		e.probe = uiprobe.Nop{}
	}
	e.logger = e.logger.With("component", "zoom")
	e.driver = animation.NewDriver(e.clock)
	e.driver.SetObserver(e.emit)
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.driver.Jump(animation.State{Zoom: 1, Center: r2.Scale(0.5, e.screen)})
	e.phase = Idle
	e.origin = e.clock.Now()
	e.lastPointer = r2.Scale(0.5, e.screen)
	e.lastScroll = time.Time{}
	e.lastTrigger = time.Time{}
	e.zoomOutAt = time.Time{}
	e.clicks = nil
	e.keys = nil
}

// Start launches the affinity goroutine and the clock pulse.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("zoom engine already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.ctx = loopCtx
	e.cancel = cancel
	e.events = make(chan Event, 64)
	e.tasks = make(chan func(), 1)
	e.done = make(chan struct{})
	e.triggers = nil
	e.reset()

	tasks, done := e.tasks, e.done
	e.pulse = animation.NewPulse(e.tick, animation.SchedulerFunc(func(fn func()) {
		select {
		case tasks <- fn:
		case <-done:
		}
	}), e.Tick)

	go e.loop(loopCtx, e.events, e.tasks, e.done)
	e.pulse.Start()
	e.running = true
	e.logger.Debug("zoom engine started", "screen_w", e.screen.X, "screen_h", e.screen.Y)
	return nil
}

// Stop halts the pulse and the loop and cancels any pending zoom-out. It
// returns once the affinity goroutine has exited.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	pulse, cancel, done := e.pulse, e.cancel, e.done
	e.mu.Unlock()

	pulse.Stop()
	cancel()
	<-done

	e.zoomOutAt = time.Time{}
	e.phase = Idle
	e.logger.Debug("zoom engine stopped", "triggers", len(e.triggers))
}

// Submit queues an input event. It never blocks; events arriving while the
// queue is full are dropped since a missed zoom is harmless.
func (e *Engine) Submit(ev Event) bool {
	e.mu.Lock()
	events, running := e.events, e.running
	e.mu.Unlock()
	if !running {
		return false
	}
	select {
	case events <- ev:
		return true
	default:
		e.logger.Debug("dropping input event, queue full")
		return false
	}
}

// SetConfig swaps the configuration. Safe from any goroutine.
func (e *Engine) SetConfig(cfg Config) {
	cfg = cfg.Sanitize()
	e.mu.Lock()
	tasks, done, running := e.tasks, e.done, e.running
	e.mu.Unlock()
	if !running {
		e.cfg = cfg
		return
	}
	select {
	case tasks <- func() { e.cfg = cfg }:
	case <-done:
	}
}

func (e *Engine) loop(ctx context.Context, events <-chan Event, tasks <-chan func(), done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-tasks:
			fn()
		case ev := <-events:
			e.dispatch(ev)
		}
	}
}

func (e *Engine) dispatch(ev Event) {
	switch ev := ev.(type) {
	case Click:
		e.HandleClick(ev)
	case Key:
		e.HandleKey(ev)
	case Scroll:
		e.HandleScroll(ev)
	case Move:
		e.HandleMove(ev)
	}
}

func (e *Engine) now(t time.Time) time.Time {
	if t.IsZero() {
		return e.clock.Now()
	}
	return t
}

// HandleClick evaluates a click for a zoom trigger.
func (e *Engine) HandleClick(ev Click) {
	if !e.cfg.ZoomOnClick {
		return
	}
	now := e.now(ev.Time)
	e.lastPointer = ev.At

	nearby := e.countNearbyClicks(now, ev.At)
	e.clicks = append(e.clicks, clickRecord{at: now, pos: ev.At})
	e.pruneHistory(now)

	// Spam and cooldown checks run before the probe is consulted.
	if e.countRecentClicks(now, e.cfg.RapidClickThreshold) >= rapidClickCount {
		e.logger.Debug("click suppressed: rapid clicking")
		return
	}
	if e.inCooldown(now) {
		if e.isZoomed() {
			e.extendHold(now)
		}
		return
	}

	el := e.probeAt(ev.At)
	interactive := el != nil && el.Interactive
	if !interactive && nearby >= proximityClickLimit {
		e.logger.Debug("click suppressed: repeated clicks on a non-interactive area")
		return
	}
	e.trigger(now, el, ev.At)
}

// HandleKey evaluates a keystroke for a typing zoom.
func (e *Engine) HandleKey(ev Key) {
	if !e.cfg.ZoomOnTyping || ev.Command || ev.Chars == "" {
		return
	}
	now := e.now(ev.Time)
	e.keys = append(e.keys, now)
	e.pruneHistory(now)

	typed := 0
	for _, k := range e.keys {
		if now.Sub(k) <= typingWindow {
			typed++
		}
	}
	if typed < typingMinKeys {
		return
	}
	if e.inCooldown(now) {
		if e.isZoomed() {
			e.extendHold(now)
		}
		return
	}

	el := e.probeFocused()
	if el != nil && el.Role == uiprobe.TextField {
		e.trigger(now, el, el.Center())
		return
	}
	e.trigger(now, nil, e.pointerLocation())
}

// HandleScroll zooms out when scrolling while zoomed.
func (e *Engine) HandleScroll(ev Scroll) {
	if !e.cfg.ZoomOutOnScroll {
		return
	}
	now := e.now(ev.Time)
	if !e.lastScroll.IsZero() && now.Sub(e.lastScroll) < e.cfg.ScrollCooldown {
		return
	}
	e.lastScroll = now
	if e.isZoomed() {
		e.zoomOut()
	}
}

// HandleMove records the latest pointer position.
func (e *Engine) HandleMove(ev Move) {
	e.lastPointer = ev.At
}

// Tick advances the animation, fires a due zoom-out and runs the follow
// check.
func (e *Engine) Tick() {
	now := e.clock.Now()
	if e.driver.Active() {
		if _, running := e.driver.Tick(); !running {
			e.animationDone()
		}
	}
	if !e.zoomOutAt.IsZero() && !now.Before(e.zoomOutAt) && e.isZoomed() {
		e.zoomOut()
	}
	if e.cfg.SmoothFollow && e.isZoomed() && !e.driver.Active() {
		e.follow()
	}
}

func (e *Engine) animationDone() {
	switch e.phase {
	case ZoomingIn:
		e.phase = Zoomed
	case ZoomingOut:
		e.phase = Idle
	}
}

func (e *Engine) trigger(now time.Time, el *uiprobe.Element, pt r2.Vec) {
	level := SelectLevel(e.cfg, el)
	center := SelectCenter(e.cfg, el, pt)

	target := animation.State{Zoom: level, Center: center}
	e.phase = ZoomingIn
	e.driver.Begin(e.driver.Current(), target, e.cfg.AnimationDuration, e.cfg.Easing)
	e.lastTrigger = now
	// A single deadline replaces any pending zoom-out.
	e.zoomOutAt = now.Add(e.cfg.AnimationDuration + e.cfg.HoldDuration)

	e.triggers = append(e.triggers, Trigger{
		At:     now.Sub(e.origin),
		Level:  level,
		Center: center,
		Hold:   e.cfg.HoldDuration,
	})
	role := "none"
	if el != nil {
		role = el.Role.String()
	}
	e.logger.Debug("zoom triggered", "level", level, "x", center.X, "y", center.Y, "role", role)
}

func (e *Engine) extendHold(now time.Time) {
	e.zoomOutAt = now.Add(e.cfg.HoldDuration)
	if n := len(e.triggers); n > 0 {
		last := &e.triggers[n-1]
		hold := e.zoomOutAt.Sub(e.origin) - last.At - e.cfg.AnimationDuration
		if hold > last.Hold {
			last.Hold = hold
		}
	}
}

func (e *Engine) zoomOut() {
	current := e.driver.Current()
	e.zoomOutAt = time.Time{}
	e.phase = ZoomingOut
	e.driver.Begin(current, animation.State{Zoom: 1, Center: current.Center}, e.cfg.AnimationDuration, e.cfg.Easing)
}

// follow chases the cursor once it leaves the central part of the visible
// viewport.
func (e *Engine) follow() {
	state := e.driver.Current()
	cursor := e.pointerLocation()
	delta := r2.Sub(cursor, state.Center)
	dist := r2.Norm(delta)

	if e.phase == Zoomed {
		threshold := (e.screen.X / state.Zoom) * followViewportRatio
		if dist <= threshold {
			return
		}
		e.phase = Following
	}
	if dist < 0.5 {
		return
	}
	e.driver.Jump(animation.State{
		Zoom:   state.Zoom,
		Center: r2.Add(state.Center, r2.Scale(e.cfg.FollowSpeed, delta)),
	})
}

func (e *Engine) probeAt(pt r2.Vec) *uiprobe.Element {
	if !e.cfg.DetectUIElements {
		return nil
	}
	el, err := e.probe.ElementAt(e.ctx, pt)
	if err != nil {
		e.logger.Debug("element probe failed, zooming on position", "error", err)
		return nil
	}
	return el
}

func (e *Engine) probeFocused() *uiprobe.Element {
	if !e.cfg.DetectUIElements {
		return nil
	}
	el, err := e.probe.FocusedElement(e.ctx)
	if err != nil {
		e.logger.Debug("focused element probe failed", "error", err)
		return nil
	}
	return el
}

func (e *Engine) pointerLocation() r2.Vec {
	if e.pointer != nil {
		return e.pointer.Location()
	}
	return e.lastPointer
}

func (e *Engine) inCooldown(now time.Time) bool {
	return !e.lastTrigger.IsZero() && now.Sub(e.lastTrigger) < e.cfg.CooldownDuration
}

func (e *Engine) isZoomed() bool {
	return e.phase == Zoomed || e.phase == Following
}

func (e *Engine) countRecentClicks(now time.Time, window time.Duration) int {
	n := 0
	for _, c := range e.clicks {
		if now.Sub(c.at) <= window {
			n++
		}
	}
	return n
}

func (e *Engine) countNearbyClicks(now time.Time, pos r2.Vec) int {
	n := 0
	for _, c := range e.clicks {
		if now.Sub(c.at) <= proximityWindow && r2.Norm(r2.Sub(c.pos, pos)) <= proximityRadius {
			n++
		}
	}
	return n
}

// pruneHistory drops click and key records older than historyMaxAge.
func (e *Engine) pruneHistory(now time.Time) {
	i := 0
	for i < len(e.clicks) && now.Sub(e.clicks[i].at) >= historyMaxAge {
		i++
	}
	e.clicks = e.clicks[i:]

	j := 0
	for j < len(e.keys) && now.Sub(e.keys[j]) >= historyMaxAge {
		j++
	}
	e.keys = e.keys[j:]
}

// emit reports the viewport the way an export renders it: the center is
// clamped so the zoomed view stays on screen.
func (e *Engine) emit(s animation.State) {
	if e.sink != nil {
		e.sink(Update{Zoom: s.Zoom, Center: ClampCenter(s.Center, e.screen, s.Zoom), Phase: e.phase})
	}
}

// Phase reports the state machine position. See the Engine concurrency note.
func (e *Engine) Phase() Phase { return e.phase }

// Current reports the latest interpolated zoom state.
func (e *Engine) Current() animation.State { return e.driver.Current() }

// ZoomOutAt reports the pending zoom-out deadline, zero when none.
func (e *Engine) ZoomOutAt() time.Time { return e.zoomOutAt }

// Triggers returns a copy of the trigger log. Call it after Stop when the
// loop has been running.
func (e *Engine) Triggers() []Trigger {
	out := make([]Trigger, len(e.triggers))
	copy(out, e.triggers)
	return out
}

// HistoryLen reports the sizes of the rolling click and key histories.
func (e *Engine) HistoryLen() (clicks, keys int) { return len(e.clicks), len(e.keys) }
