package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	vidio "github.com/AlexEidt/Vidio"
)

const (
	// Vidio pipes frames to and from ffmpeg as rgba.
	bytesPerPixel = 4
	// Output sizes are already even; anything larger makes Vidio rescale.
	encoderMacroBlock = 2
	verifyTimeout     = 30 * time.Second
)

// VidioOpener decodes and encodes through ffmpeg using Vidio.
type VidioOpener struct {
	Logger *slog.Logger
}

func (o VidioOpener) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o VidioOpener) OpenSource(ctx context.Context, path string) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	probed, probeErr := Probe(ctx, path)
	if errors.Is(probeErr, ErrNoVideoTrack) {
		return nil, probeErr
	}
	if probeErr != nil {
		o.logger().Debug("ffprobe unavailable, relying on decoder metadata", "path", path, "error", probeErr)
		probed = SourceInfo{}
	}

	v, err := vidio.NewVideo(path)
	if err != nil {
		return nil, err
	}

	size := uprightSize(image.Point{X: v.Width(), Y: v.Height()}, probed)
	info := SourceInfo{
		Width:    size.X,
		Height:   size.Y,
		FPS:      v.FPS(),
		Frames:   v.Frames(),
		Duration: time.Duration(v.Duration() * float64(time.Second)),
		Bitrate:  v.Bitrate(),
		Codec:    v.Codec(),
		HasVideo: true,
		HasAudio: v.HasStreams(),
	}
	if probeErr == nil {
		info.HasAudio = probed.HasAudio
	}
	return newVidioSource(v, info), nil
}

// uprightSize is the size of the frames ffmpeg emits. ffmpeg applies the
// rotation while decoding. Vidio already swaps the size for the legacy
// rotate tag but not for display matrix side data, so only a size that
// still matches the coded stream is swapped.
func uprightSize(decoder image.Point, probed SourceInfo) image.Point {
	if probed.Rotation%180 == 0 {
		return decoder
	}
	if decoder == (image.Point{X: probed.Width, Y: probed.Height}) {
		return image.Point{X: decoder.Y, Y: decoder.X}
	}
	return decoder
}

func (o VidioOpener) OpenSink(ctx context.Context, path string, opts SinkOptions) (Sink, error) {
	options := vidio.Options{
		FPS:        opts.FPS,
		Bitrate:    opts.Bitrate,
		Codec:      opts.Codec,
		Macro:      encoderMacroBlock,
		StreamFile: opts.AudioFrom,
	}
	writer, err := vidio.NewVideoWriter(path, opts.Width, opts.Height, &options)
	if err != nil {
		return nil, err
	}
	sink := newVidioSink(writer, image.Point{X: opts.Width, Y: opts.Height})
	sink.path = path
	sink.verify = Probe
	sink.logger = o.logger()
	return sink, nil
}

type frameReader interface {
	Read() bool
	FrameBuffer() []byte
	SetFrameBuffer(buffer []byte) error
	Close()
}

type vidioSource struct {
	v     frameReader
	info  SourceInfo
	frame *image.RGBA
}

func newVidioSource(v frameReader, info SourceInfo) *vidioSource {
	s := &vidioSource{
		v:     v,
		info:  info,
		frame: image.NewRGBA(image.Rect(0, 0, info.Width, info.Height)),
	}
	// Decode straight into the frame. Next copies when the decoder refuses.
	_ = v.SetFrameBuffer(s.frame.Pix)
	return s
}

func (s *vidioSource) Info() SourceInfo { return s.info }

func (s *vidioSource) Next() (*image.RGBA, error) {
	if !s.v.Read() {
		return nil, io.EOF
	}
	buf := s.v.FrameBuffer()
	if len(buf) < len(s.frame.Pix) {
		return nil, fmt.Errorf("short frame buffer: %d bytes, want %d", len(buf), len(s.frame.Pix))
	}
	if len(s.frame.Pix) > 0 && &buf[0] != &s.frame.Pix[0] {
		copy(s.frame.Pix, buf)
	}
	return s.frame, nil
}

func (s *vidioSource) Close() error {
	s.v.Close()
	return nil
}

type frameWriter interface {
	Write(frame []byte) error
	Close()
}

type vidioSink struct {
	w       frameWriter
	size    image.Point
	buf     []byte
	written int

	// verify re-reads the finished file; nil skips the check.
	path   string
	verify func(ctx context.Context, path string) (SourceInfo, error)
	logger *slog.Logger
}

func newVidioSink(w frameWriter, size image.Point) *vidioSink {
	return &vidioSink{w: w, size: size, logger: slog.Default()}
}

// Write blocks while ffmpeg drains its input pipe, which is the only
// backpressure this sink needs.
func (s *vidioSink) Write(frame *image.RGBA) error {
	b := frame.Bounds()
	if b.Size() != s.size {
		return fmt.Errorf("frame size %v does not match the writer %v", b.Size(), s.size)
	}
	rowBytes := b.Dx() * bytesPerPixel
	data := frame.Pix
	if b.Min != (image.Point{}) || frame.Stride != rowBytes {
		if s.buf == nil {
			s.buf = make([]byte, rowBytes*b.Dy())
		}
		for y := 0; y < b.Dy(); y++ {
			start := frame.PixOffset(b.Min.X, b.Min.Y+y)
			copy(s.buf[y*rowBytes:(y+1)*rowBytes], frame.Pix[start:start+rowBytes])
		}
		data = s.buf
	}
	if err := s.w.Write(data[:rowBytes*b.Dy()]); err != nil {
		return err
	}
	s.written++
	return nil
}

// Finish closes the encoder and re-reads the output, since Vidio does not
// report ffmpeg's exit status.
func (s *vidioSink) Finish() error {
	s.w.Close()
	if s.verify == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()
	info, err := s.verify(ctx, s.path)
	if errors.Is(err, exec.ErrNotFound) {
		s.logger.Warn("ffprobe not found, output not verified", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("encoded output is unreadable: %w", err)
	}
	return checkOutput(info, s.size, s.written)
}

func (s *vidioSink) Abort() error {
	s.w.Close()
	return nil
}

// checkOutput accepts a finished file holding a video stream of the written
// size with at least 90% of the written frames.
func checkOutput(info SourceInfo, size image.Point, written int) error {
	if !info.HasVideo {
		return ErrNoVideoTrack
	}
	if got := (image.Point{X: info.Width, Y: info.Height}); got != size {
		return fmt.Errorf("encoded size %v, want %v", got, size)
	}
	got := info.EstimatedFrames()
	if got == 0 || got*10 < written*9 {
		return fmt.Errorf("encoder kept %d of %d frames", got, written)
	}
	return nil
}
