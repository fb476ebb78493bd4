package video

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vedantwpatil/focusframe/internal/compositor"
)

type fakeSource struct {
	info   SourceInfo
	frames int
	idx    int
	buf    *image.RGBA
	closed bool
}

func newFakeSource(w, h, frames int, fps float64) *fakeSource {
	return &fakeSource{
		info: SourceInfo{
			Width:    w,
			Height:   h,
			FPS:      fps,
			Frames:   frames,
			Duration: time.Duration(float64(frames) / fps * float64(time.Second)),
			HasVideo: true,
		},
		frames: frames,
		buf:    image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

func (s *fakeSource) Info() SourceInfo { return s.info }

func (s *fakeSource) Next() (*image.RGBA, error) {
	if s.idx >= s.frames {
		return nil, io.EOF
	}
	c := color.RGBA{R: uint8(s.idx), G: uint8(s.idx >> 8), B: 0x80, A: 0xff}
	for i := 0; i < len(s.buf.Pix); i += 4 {
		s.buf.Pix[i], s.buf.Pix[i+1], s.buf.Pix[i+2], s.buf.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	s.idx++
	return s.buf, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	opts     SinkOptions
	frames   []*image.RGBA
	failAt   int
	onWrite  func(n int)
	finished bool
	aborted  bool
}

func (s *fakeSink) Write(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.frames) == s.failAt {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, frame)
	if s.onWrite != nil {
		s.onWrite(len(s.frames))
	}
	return nil
}

func (s *fakeSink) Finish() error {
	s.finished = true
	return nil
}

func (s *fakeSink) Abort() error {
	s.aborted = true
	return nil
}

// stalledSink never becomes ready.
type stalledSink struct{ fakeSink }

func (s *stalledSink) WaitReady(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeOpener struct {
	src     Source
	srcErr  error
	sink    Sink
	sinkErr error
	opened  bool
	opts    SinkOptions
}

func (o *fakeOpener) OpenSource(context.Context, string) (Source, error) {
	if o.srcErr != nil {
		return nil, o.srcErr
	}
	return o.src, nil
}

func (o *fakeOpener) OpenSink(_ context.Context, _ string, opts SinkOptions) (Sink, error) {
	o.opened = true
	o.opts = opts
	if o.sinkErr != nil {
		return nil, o.sinkErr
	}
	return o.sink, nil
}

type recordingProgress struct {
	mu       sync.Mutex
	values   []float64
	errs     []error
	complete int
}

func (r *recordingProgress) Report(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, p)
}

func (r *recordingProgress) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingProgress) ReportComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete++
}

type failingEffect struct{}

func (failingEffect) Name() string { return "broken" }

func (failingEffect) Prepare(image.Point) (FrameRenderer, error) {
	return nil, errors.New("cannot build renderer")
}

func flatEffects(padding int) Effects {
	fx := compositor.DefaultVisualEffects()
	fx.Background = compositor.Background{Kind: compositor.BackgroundSolid, Color: compositor.RGB(10, 20, 30)}
	fx.Shadow.Enabled = false
	fx.CornerRadius = 0
	fx.Padding = compositor.UniformPadding(padding)
	return Effects{FX: fx}
}

func TestExportEndToEnd(t *testing.T) {
	src := newFakeSource(192, 108, 300, 30)
	src.info.HasAudio = true
	sink := &fakeSink{}
	opener := &fakeOpener{src: src, sink: sink}
	progress := &recordingProgress{}

	p := NewPipeline(opener, WithProgress(progress), WithWorkers(3))
	if err := p.Export(context.Background(), "in.mp4", "out.mp4", flatEffects(4)); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(sink.frames) != 300 {
		t.Fatalf("expected 300 frames, got %d", len(sink.frames))
	}
	if !sink.finished || sink.aborted || !src.closed {
		t.Fatalf("unexpected sink/source state finished=%v aborted=%v closed=%v", sink.finished, sink.aborted, src.closed)
	}
	if opener.opts.Width != 200 || opener.opts.Height != 116 || opener.opts.FPS != 30 {
		t.Fatalf("unexpected sink options %+v", opener.opts)
	}
	if opener.opts.AudioFrom != "in.mp4" {
		t.Fatalf("expected audio to be copied from the input, got %q", opener.opts.AudioFrom)
	}

	// Frames stay in order even with several render workers.
	for i, f := range sink.frames {
		if got := f.RGBAAt(100, 58); got.R != uint8(i) || got.G != uint8(i>>8) {
			t.Fatalf("frame %d out of order: centre pixel %v", i, got)
		}
	}

	last := -1.0
	for i, v := range progress.values {
		if v < last {
			t.Fatalf("progress went backwards at %d: %v", i, progress.values)
		}
		if v > 1-finalizeShare && i != len(progress.values)-1 {
			t.Fatalf("progress %v exceeded the finalize reserve before completion", v)
		}
		last = v
	}
	if last != 1 || progress.complete != 1 || len(progress.errs) != 0 {
		t.Fatalf("expected completion at 1.0, got last=%v complete=%d errs=%v", last, progress.complete, progress.errs)
	}
}

func TestExportFullHDOutputSize(t *testing.T) {
	r, err := flatEffects(40).Prepare(image.Point{X: 1920, Y: 1080})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if r.Size() != (image.Point{X: 2000, Y: 1160}) {
		t.Fatalf("expected 2000x1160, got %v", r.Size())
	}
}

func TestExportNoVideoTrack(t *testing.T) {
	src := newFakeSource(16, 16, 1, 30)
	src.info.HasVideo = false
	opener := &fakeOpener{src: src, sink: &fakeSink{}}
	progress := &recordingProgress{}

	err := NewPipeline(opener, WithProgress(progress)).Export(context.Background(), "a.m4a", "out.mp4", Passthrough{})
	if !errors.Is(err, ErrNoVideoTrack) {
		t.Fatalf("expected ErrNoVideoTrack, got %v", err)
	}
	if opener.opened {
		t.Fatalf("writer must not be created for an input without video")
	}
	if len(progress.errs) != 1 || progress.complete != 0 {
		t.Fatalf("expected one error report, got %+v", progress)
	}
}

func TestExportErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		opener *fakeOpener
		effect Effect
		want   error
	}{
		{
			name:   "reader",
			opener: &fakeOpener{srcErr: errors.New("moov atom not found")},
			effect: Passthrough{},
			want:   ErrReaderCreation,
		},
		{
			name:   "probe without video",
			opener: &fakeOpener{srcErr: ErrNoVideoTrack},
			effect: Passthrough{},
			want:   ErrNoVideoTrack,
		},
		{
			name:   "writer",
			opener: &fakeOpener{src: newFakeSource(16, 16, 3, 30), sinkErr: errors.New("permission denied")},
			effect: Passthrough{},
			want:   ErrWriterCreation,
		},
		{
			name:   "effect",
			opener: &fakeOpener{src: newFakeSource(16, 16, 3, 30), sink: &fakeSink{}},
			effect: failingEffect{},
			want:   ErrInputAdd,
		},
		{
			name:   "encode",
			opener: &fakeOpener{src: newFakeSource(16, 16, 30, 30), sink: &fakeSink{failAt: 10}},
			effect: Passthrough{},
			want:   ErrEncode,
		},
		{
			name:   "empty",
			opener: &fakeOpener{src: newFakeSource(16, 16, 0, 30), sink: &fakeSink{}},
			effect: Passthrough{},
			want:   ErrDecode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPipeline(tt.opener).Export(context.Background(), "in.mp4", "out.mp4", tt.effect)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var se *StageError
			if !errors.As(err, &se) || se.Stage == "" {
				t.Fatalf("expected a StageError with a stage, got %#v", err)
			}
			if sink, ok := tt.opener.sink.(*fakeSink); ok && sink.finished {
				t.Fatalf("sink must not be finished after a failure")
			}
		})
	}
}

func TestExportEncodeFailureAbortsSink(t *testing.T) {
	sink := &fakeSink{failAt: 5}
	opener := &fakeOpener{src: newFakeSource(8, 8, 20, 30), sink: sink}
	if err := NewPipeline(opener).Export(context.Background(), "in", "out", Passthrough{}); err == nil {
		t.Fatalf("expected an error")
	}
	if !sink.aborted || sink.finished {
		t.Fatalf("expected abort without finish, aborted=%v finished=%v", sink.aborted, sink.finished)
	}
}

func TestExportCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &fakeSink{onWrite: func(n int) {
		if n == 5 {
			cancel()
		}
	}}
	opener := &fakeOpener{src: newFakeSource(8, 8, 1000, 30), sink: sink}
	progress := &recordingProgress{}

	err := NewPipeline(opener, WithProgress(progress), WithWorkers(1)).Export(ctx, "in", "out", Passthrough{})
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !sink.aborted || sink.finished {
		t.Fatalf("cancelled export must abort the sink")
	}
	if len(sink.frames) >= 1000 {
		t.Fatalf("export kept going after cancellation")
	}
	if progress.complete != 0 {
		t.Fatalf("cancelled export reported completion")
	}
}

func TestExportCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opener := &fakeOpener{src: newFakeSource(8, 8, 10, 30), sink: &fakeSink{}}
	err := NewPipeline(opener).Export(ctx, "in", "out", Passthrough{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if opener.opened {
		t.Fatalf("writer opened after cancellation")
	}
}

func TestExportRotation(t *testing.T) {
	src := newFakeSource(6, 4, 3, 30)
	src.info.Rotation = 90
	sink := &fakeSink{}
	opener := &fakeOpener{src: src, sink: sink}

	if err := NewPipeline(opener).Export(context.Background(), "in", "out", Passthrough{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if opener.opts.Width != 4 || opener.opts.Height != 6 {
		t.Fatalf("expected rotated 4x6 output, got %dx%d", opener.opts.Width, opener.opts.Height)
	}
	for _, f := range sink.frames {
		if f.Bounds().Size() != (image.Point{X: 4, Y: 6}) {
			t.Fatalf("unexpected frame size %v", f.Bounds())
		}
	}
}

func TestExportOddSizeIsPadded(t *testing.T) {
	sink := &fakeSink{}
	opener := &fakeOpener{src: newFakeSource(5, 3, 2, 30), sink: sink}
	if err := NewPipeline(opener).Export(context.Background(), "in", "out", Passthrough{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if opener.opts.Width != 6 || opener.opts.Height != 4 {
		t.Fatalf("expected even 6x4 output, got %dx%d", opener.opts.Width, opener.opts.Height)
	}
	if got := sink.frames[0].Bounds().Size(); got != (image.Point{X: 6, Y: 4}) {
		t.Fatalf("frame not padded: %v", got)
	}
}

func TestExportStalledSinkTimesOut(t *testing.T) {
	sink := &stalledSink{}
	opener := &fakeOpener{src: newFakeSource(8, 8, 5, 30), sink: sink}
	err := NewPipeline(opener, WithReadyTimeout(10*time.Millisecond)).Export(context.Background(), "in", "out", Passthrough{})
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode after the ready timeout, got %v", err)
	}
	if errors.Is(err, ErrCancelled) {
		t.Fatalf("a stalled sink is not a cancellation")
	}
}

func TestExportAsync(t *testing.T) {
	opener := &fakeOpener{src: newFakeSource(8, 8, 12, 24), sink: &fakeSink{}}
	select {
	case err := <-NewPipeline(opener).ExportAsync(context.Background(), "in", "out", Passthrough{}):
		if err != nil {
			t.Fatalf("ExportAsync: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("export did not finish")
	}
}

func TestRemovePartialMissingFile(t *testing.T) {
	if err := RemovePartial(t.TempDir() + "/missing.mp4"); err != nil {
		t.Fatalf("RemovePartial on a missing file: %v", err)
	}
}
