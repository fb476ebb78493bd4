// Package video re-encodes a recording frame by frame through a render
// stage (styled canvas, device frame, burned-in zoom) and reports progress
// while it runs.
package video

import (
	"context"
	"image"
	"time"
)

// SourceInfo describes the first video track of an input.
type SourceInfo struct {
	Width    int
	Height   int
	Rotation int // clockwise degrees: 0, 90, 180 or 270
	Duration time.Duration
	FPS      float64
	Frames   int
	HasVideo bool
	HasAudio bool
	Bitrate  int
	Codec    string
}

// DisplaySize is the frame size after applying the rotation.
func (i SourceInfo) DisplaySize() image.Point {
	if i.Rotation == 90 || i.Rotation == 270 {
		return image.Point{X: i.Height, Y: i.Width}
	}
	return image.Point{X: i.Width, Y: i.Height}
}

// EstimatedFrames is the frame count used for progress, falling back to
// duration × fps when the container does not say.
func (i SourceInfo) EstimatedFrames() int {
	if i.Frames > 0 {
		return i.Frames
	}
	if i.FPS > 0 && i.Duration > 0 {
		return max(1, int(i.Duration.Seconds()*i.FPS+0.5))
	}
	return 0
}

// Source yields decoded frames in presentation order. The frame returned by
// Next is only valid until the following call.
type Source interface {
	Info() SourceInfo
	// Next returns io.EOF after the last frame.
	Next() (*image.RGBA, error)
	Close() error
}

// Sink encodes frames into an output file.
type Sink interface {
	Write(frame *image.RGBA) error
	// Finish flushes and closes the output.
	Finish() error
	// Abort stops encoding without finalising. The partial file is left for
	// the caller to remove.
	Abort() error
}

// ReadyWaiter is implemented by sinks that apply backpressure. WaitReady
// blocks until the sink can take another frame.
type ReadyWaiter interface {
	WaitReady(ctx context.Context) error
}

type SinkOptions struct {
	Width   int
	Height  int
	FPS     float64
	Bitrate int
	Codec   string
	// AudioFrom names a file whose audio is copied into the output as is.
	AudioFrom string
}

// Opener creates sources and sinks for paths.
type Opener interface {
	OpenSource(ctx context.Context, path string) (Source, error)
	OpenSink(ctx context.Context, path string, opts SinkOptions) (Sink, error)
}

// ProgressReporter defines the interface for reporting progress
type ProgressReporter interface {
	Report(progress float64)
	ReportError(err error)
	ReportComplete()
}

// Effect turns source frames into output frames.
type Effect interface {
	Name() string
	// Prepare builds a renderer for frames of the given size.
	Prepare(src image.Point) (FrameRenderer, error)
}

// FrameRenderer renders frames of one fixed input size. Render must be safe
// for concurrent use.
type FrameRenderer interface {
	Size() image.Point
	// Render draws frame, shown at t from the start, into a new image.
	Render(frame *image.RGBA, t time.Duration) *image.RGBA
}
