// Package recording runs a capture session: the ffmpeg screen recording, the
// global input hook, the cursor trail and the live zoom engine.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vedantwpatil/focusframe/internal/tracking"
	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gonum.org/v1/gonum/spatial/r2"
)

// Input delivers global input events for the duration of a session.
type Input interface {
	Start(origin time.Time) error
	Stop()
}

type Options struct {
	OutputDir string
	TargetFPS int
	TrackFPS  int
	AutoZoom  bool
	Zoom      zoom.Config

	// Everything below defaults to the live desktop.
	Recorder Recorder
	Pointer  zoom.Pointer
	Screen   r2.Vec
	Probe    uiprobe.Probe
	Sink     func(zoom.Update)
	NewInput func(trail *tracking.Trail, submit func(zoom.Event) bool) Input
	Logger   *slog.Logger
}

type state int

const (
	idle state = iota
	recording
	done
)

// Session is one recording from Start to Stop. It cannot be restarted.
type Session struct {
	id     ulid.ULID
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	state    state
	base     string
	origin   time.Time
	trail    *tracking.Trail
	engine   *zoom.Engine
	input    Input
	stopPoll context.CancelFunc
	pollDone chan struct{}
	triggers []zoom.Trigger
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	if opts.Pointer == nil {
		opts.Pointer = tracking.RobotPointer{}
	}
	if opts.Screen.X <= 0 || opts.Screen.Y <= 0 {
		opts.Screen = tracking.ScreenSize()
	}
	if opts.Recorder == nil {
		opts.Recorder = &FFmpegRecorder{TargetFPS: opts.TargetFPS, Stderr: os.Stderr, Logger: opts.Logger}
	}
	if opts.NewInput == nil {
		logger := opts.Logger
		opts.NewInput = func(trail *tracking.Trail, submit func(zoom.Event) bool) Input {
			return tracking.NewHookListener(trail, submit, 1, logger)
		}
	}

	id := ulid.Make()
	return &Session{
		id:     id,
		opts:   opts,
		logger: opts.Logger.With("component", "session", "session", id.String()),
		trail:  tracking.NewTrail(),
	}
}

func (s *Session) ID() string { return s.id.String() }

// Start begins capturing into <OutputDir>/<baseName>.mp4. An empty baseName
// uses the session id.
func (s *Session) Start(ctx context.Context, baseName string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != idle {
		return errors.New("session already started")
	}
	if baseName == "" {
		baseName = "recording-" + strings.ToLower(s.id.String())
	}
	if err := os.MkdirAll(s.opts.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	s.base = filepath.Join(s.opts.OutputDir, baseName)
	s.origin = time.Now()

	defer func() {
		if err != nil {
			s.teardown()
		}
	}()

	if s.opts.AutoZoom {
		s.engine = zoom.NewEngine(s.opts.Zoom, s.opts.Screen,
			zoom.WithProbe(s.opts.Probe),
			zoom.WithPointer(s.opts.Pointer),
			zoom.WithSink(s.opts.Sink),
			zoom.WithLogger(s.opts.Logger),
		)
		if err := s.engine.Start(ctx); err != nil {
			return err
		}
	}

	engine := s.engine
	s.input = s.opts.NewInput(s.trail, func(ev zoom.Event) bool {
		if engine == nil {
			return false
		}
		return engine.Submit(ev)
	})
	if err := s.input.Start(s.origin); err != nil {
		return fmt.Errorf("failed to start input hook: %w", err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.stopPoll = cancel
	s.pollDone = make(chan struct{})
	go func(done chan struct{}, origin time.Time) {
		defer close(done)
		tracking.Poll(pollCtx, s.opts.Pointer, s.opts.TrackFPS, func(p r2.Vec, at time.Time) {
			s.trail.Append(tracking.CursorPoint{Position: p, Timestamp: at.Sub(origin)})
		})
	}(s.pollDone, s.origin)

	if err := s.opts.Recorder.Start(ctx, s.outputPath()); err != nil {
		return err
	}
	s.state = recording
	s.logger.Info("recording started", "output", s.outputPath(), "auto_zoom", s.opts.AutoZoom)
	return nil
}

// Stop ends the capture, unregisters the input hook, stops the zoom engine
// and writes the trail and zoom track next to the video.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != recording {
		return errors.New("session is not recording")
	}
	s.state = done

	recErr := s.opts.Recorder.Stop()
	s.teardown()

	trailErr := writeFile(s.TrailPath(), func(f *os.File) error { return tracking.WriteTrail(f, s.trail) })
	var trackErr error
	if s.opts.AutoZoom {
		track := zoom.NewTrack(s.triggers, s.opts.Zoom, s.opts.Screen)
		trackErr = writeFile(s.TrackPath(), func(f *os.File) error { return zoom.WriteTrack(f, track) })
	}
	s.logger.Info("recording stopped",
		"duration", time.Since(s.origin).Round(time.Millisecond),
		"cursor_points", s.trail.Len(),
		"zooms", len(s.triggers),
	)
	return errors.Join(recErr, trailErr, trackErr)
}

// teardown stops whatever Start got running. Callers hold s.mu.
func (s *Session) teardown() {
	if s.input != nil {
		s.input.Stop()
		s.input = nil
	}
	if s.stopPoll != nil {
		s.stopPoll()
		<-s.pollDone
		s.stopPoll = nil
	}
	if s.engine != nil {
		s.engine.Stop()
		s.triggers = s.engine.Triggers()
		s.engine = nil
	}
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == recording
}

func (s *Session) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == done
}

func (s *Session) OutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputPath()
}

// outputPath expects s.mu to be held.
func (s *Session) outputPath() string {
	if s.base == "" {
		return ""
	}
	return s.base + ".mp4"
}

func (s *Session) TrailPath() string { return s.base + ".trail.yaml" }
func (s *Session) TrackPath() string { return s.base + ".zoom.yaml" }

func (s *Session) Trail() *tracking.Trail { return s.trail }

// Triggers returns the zoom decisions made so far. It is complete once the
// session has stopped.
func (s *Session) Triggers() []zoom.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]zoom.Trigger, len(s.triggers))
	copy(out, s.triggers)
	return out
}
