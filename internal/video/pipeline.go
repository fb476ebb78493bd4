package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const (
	// finalizeShare is the part of the progress range kept back for
	// flushing the encoder.
	finalizeShare = 0.05

	defaultFPS          = 30
	defaultReportEvery  = 10
	defaultReadyTimeout = 5 * time.Second
)

// Pipeline decodes an input, renders every frame through an Effect and
// encodes the result. Decoding, rendering and encoding overlap; frames are
// always written in order.
type Pipeline struct {
	opener       Opener
	progress     ProgressReporter
	logger       *slog.Logger
	reportEvery  int
	bitrate      int
	codec        string
	readyTimeout time.Duration
	workers      int
}

type Option func(*Pipeline)

func WithProgress(r ProgressReporter) Option {
	return func(p *Pipeline) { p.progress = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithReportEvery sets how many frames pass between progress reports.
func WithReportEvery(n int) Option {
	return func(p *Pipeline) { p.reportEvery = max(1, n) }
}

// WithBitrate overrides the source bitrate for the output.
func WithBitrate(bps int) Option {
	return func(p *Pipeline) { p.bitrate = bps }
}

func WithCodec(codec string) Option {
	return func(p *Pipeline) { p.codec = codec }
}

// WithReadyTimeout bounds how long a ReadyWaiter sink may stall one frame.
func WithReadyTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.readyTimeout = d }
}

// WithWorkers sets how many frames are rendered in parallel.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = max(1, n) }
}

func NewPipeline(opener Opener, opts ...Option) *Pipeline {
	p := &Pipeline{
		opener:       opener,
		progress:     ProgressFunc(func(float64) {}),
		logger:       slog.Default(),
		reportEvery:  defaultReportEvery,
		readyTimeout: defaultReadyTimeout,
		workers:      min(4, runtime.GOMAXPROCS(0)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.progress == nil {
		p.progress = ProgressFunc(func(float64) {})
	}
	return p
}

// Export re-encodes in to out through effect. On failure the output is
// aborted and left on disk; see RemovePartial.
func (p *Pipeline) Export(ctx context.Context, in, out string, effect Effect) (err error) {
	log := p.logger.With("component", "export", "input", in, "output", out, "effect", effect.Name())
	defer func() {
		if err != nil {
			p.progress.ReportError(err)
		}
	}()

	src, err := p.opener.OpenSource(ctx, in)
	if err != nil {
		if errors.Is(err, ErrNoVideoTrack) {
			return stageErr("open input", ErrNoVideoTrack, unlessSentinel(err, ErrNoVideoTrack))
		}
		return stageErr("open input", ErrReaderCreation, err)
	}
	defer src.Close()

	info := src.Info()
	if !info.HasVideo {
		return stageErr("open input", ErrNoVideoTrack, nil)
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	renderer, err := effect.Prepare(info.DisplaySize())
	if err != nil {
		return stageErr("prepare "+effect.Name(), ErrInputAdd, err)
	}
	size := evenSize(renderer.Size())
	if size.X <= 0 || size.Y <= 0 {
		return stageErr("prepare output", ErrOutputAdd, fmt.Errorf("invalid output size %v", renderer.Size()))
	}

	fps := info.FPS
	if fps <= 0 {
		log.Warn("source frame rate unknown, assuming default", "fps", defaultFPS)
		fps = defaultFPS
	}
	opts := SinkOptions{
		Width:   size.X,
		Height:  size.Y,
		FPS:     fps,
		Bitrate: info.Bitrate,
		Codec:   p.codec,
	}
	if p.bitrate > 0 {
		opts.Bitrate = p.bitrate
	}
	if info.HasAudio {
		opts.AudioFrom = in
	}

	sink, err := p.opener.OpenSink(ctx, out, opts)
	if err != nil {
		return stageErr("open output", ErrWriterCreation, err)
	}

	total := info.EstimatedFrames()
	log.Info("export started",
		"source", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"rotation", info.Rotation,
		"output", fmt.Sprintf("%dx%d", size.X, size.Y),
		"fps", fps,
		"frames", total,
		"audio", info.HasAudio,
	)
	p.progress.Report(0)

	start := time.Now()
	written, err := p.run(ctx, src, sink, renderer, frameLoop{
		rotation: info.Rotation,
		fps:      fps,
		size:     size,
		total:    total,
	})
	if err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			log.Debug("abort failed", "error", abortErr)
		}
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		return err
	}
	if written == 0 {
		_ = sink.Abort()
		return stageErr("decode", ErrDecode, errors.New("input has no frames"))
	}

	if err := sink.Finish(); err != nil {
		return stageErr("finalize", ErrEncode, err)
	}
	p.progress.Report(1)
	p.progress.ReportComplete()
	log.Info("export complete", "frames", written, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// ExportAsync runs Export on its own goroutine. The channel yields exactly
// one value.
func (p *Pipeline) ExportAsync(ctx context.Context, in, out string, effect Effect) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.Export(ctx, in, out, effect)
	}()
	return done
}

type frameLoop struct {
	rotation int
	fps      float64
	size     image.Point
	total    int
}

type frameJob struct {
	idx   int
	frame *image.RGBA
	done  chan *image.RGBA
}

func (p *Pipeline) run(ctx context.Context, src Source, sink Sink, r FrameRenderer, fl frameLoop) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan *frameJob, p.workers)
	order := make(chan *frameJob, p.workers*2)

	g.Go(func() error {
		defer close(jobs)
		defer close(order)
		for idx := 0; ; idx++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame, err := src.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return stageErr(fmt.Sprintf("decode frame %d", idx), ErrDecode, err)
			}
			if fl.rotation != 0 {
				frame = Rotate(frame, fl.rotation)
			} else {
				// The source reuses its buffer.
				frame = clone(frame)
			}

			job := &frameJob{idx: idx, frame: frame, done: make(chan *image.RGBA, 1)}
			select {
			case order <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- job:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for job := range jobs {
				t := time.Duration(float64(job.idx) / fl.fps * float64(time.Second))
				job.done <- r.Render(job.frame, t)
			}
			return nil
		})
	}

	written := 0
	g.Go(func() error {
		reported := 0.0
		waiter, _ := sink.(ReadyWaiter)
		for job := range order {
			var frame *image.RGBA
			select {
			case frame = <-job.done:
			case <-gctx.Done():
				return gctx.Err()
			}
			if waiter != nil {
				if err := p.waitReady(gctx, waiter); err != nil {
					return err
				}
			}
			if err := sink.Write(fit(frame, fl.size)); err != nil {
				return stageErr(fmt.Sprintf("encode frame %d", job.idx), ErrEncode, err)
			}
			written++

			if fl.total > 0 && written%p.reportEvery == 0 {
				progress := (1 - finalizeShare) * min(1, float64(written)/float64(fl.total))
				if progress > reported {
					reported = progress
					p.progress.Report(progress)
				}
			}
		}
		return nil
	})

	err := g.Wait()
	return written, err
}

func (p *Pipeline) waitReady(ctx context.Context, w ReadyWaiter) error {
	wctx, cancel := context.WithTimeout(ctx, p.readyTimeout)
	defer cancel()
	if err := w.WaitReady(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return stageErr("encode", ErrEncode, fmt.Errorf("output not ready after %v: %w", p.readyTimeout, err))
	}
	return nil
}

// RemovePartial deletes an output left behind by a failed export.
func RemovePartial(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial output %s: %w", path, err)
	}
	return nil
}

func cancelled(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ErrCancelled
	}
	return stageErr("export", ErrCancelled, ctx.Err())
}

func unlessSentinel(err, sentinel error) error {
	if err == sentinel {
		return nil
	}
	return err
}

// evenSize rounds odd dimensions up; most encoders reject odd chroma planes.
func evenSize(p image.Point) image.Point {
	return image.Point{X: p.X + p.X&1, Y: p.Y + p.Y&1}
}

// fit places frame on a canvas of size when the two differ.
func fit(frame *image.RGBA, size image.Point) *image.RGBA {
	b := frame.Bounds()
	if b.Min == (image.Point{}) && b.Size() == size {
		return frame
	}
	out := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(out, out.Bounds(), frame, b.Min, draw.Src)
	return out
}

func clone(frame *image.RGBA) *image.RGBA {
	out := image.NewRGBA(image.Rectangle{Max: frame.Bounds().Size()})
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)
	return out
}
