package editing

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/config"
	"github.com/vedantwpatil/focusframe/internal/tracking"
	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"github.com/vedantwpatil/focusframe/internal/video"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gonum.org/v1/gonum/spatial/r2"
)

type solidSource struct {
	n, frames int
	img       *image.RGBA
}

func (s *solidSource) Info() video.SourceInfo {
	b := s.img.Bounds()
	return video.SourceInfo{Width: b.Dx(), Height: b.Dy(), FPS: 30, Frames: s.frames, HasVideo: true}
}

func (s *solidSource) Next() (*image.RGBA, error) {
	if s.n >= s.frames {
		return nil, io.EOF
	}
	s.n++
	return s.img, nil
}

func (s *solidSource) Close() error { return nil }

// fileSink creates the output file like a real encoder would.
type fileSink struct {
	f      *os.File
	writes int
	failAt int
}

func (s *fileSink) Write(*image.RGBA) error {
	if s.failAt > 0 && s.writes == s.failAt {
		return errors.New("encoder crashed")
	}
	s.writes++
	_, err := s.f.Write([]byte{0})
	return err
}

func (s *fileSink) Finish() error { return s.f.Close() }
func (s *fileSink) Abort() error  { return s.f.Close() }

type fileOpener struct {
	failAt int
	size   image.Point
}

func (o *fileOpener) OpenSource(context.Context, string) (video.Source, error) {
	return &solidSource{frames: 6, img: image.NewRGBA(image.Rect(0, 0, 32, 24))}, nil
}

func (o *fileOpener) OpenSink(_ context.Context, path string, opts video.SinkOptions) (video.Sink, error) {
	o.size = image.Point{X: opts.Width, Y: opts.Height}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &fileSink{f: f, failAt: o.failAt}, nil
}

func TestEditorExport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "exports", "final.mp4")
	opener := &fileOpener{}
	ed := NewEditor(video.NewPipeline(opener), nil)

	opts := OptionsFromConfig(config.NewConfig())
	opts.Effects.Padding = compositor.UniformPadding(4)
	if err := ed.Export(context.Background(), "in.mp4", out, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if opener.size != (image.Point{X: 40, Y: 32}) {
		t.Fatalf("unexpected output size %v", opener.size)
	}
}

func TestEditorRemovesPartialOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "broken.mp4")
	ed := NewEditor(video.NewPipeline(&fileOpener{failAt: 2}), nil)

	err := ed.Export(context.Background(), "in.mp4", out, Options{Mode: config.ExportPassthrough})
	if !errors.Is(err, video.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("partial output left behind: %v", statErr)
	}

	keep := filepath.Join(t.TempDir(), "kept.mp4")
	_ = ed.Export(context.Background(), "in.mp4", keep, Options{Mode: config.ExportPassthrough, KeepPartial: true})
	if _, statErr := os.Stat(keep); statErr != nil {
		t.Fatalf("KeepPartial must leave the file: %v", statErr)
	}
}

func TestBuildEffect(t *testing.T) {
	track := &zoom.Track{Keyframes: []zoom.Keyframe{{Time: 0, Zoom: 2}}}
	tests := []struct {
		opts Options
		name string
	}{
		{Options{Mode: config.ExportEffects}, "effects"},
		{Options{Mode: config.ExportDevice, Device: compositor.DeviceFrame{Device: compositor.DevicePixel8}}, "device:pixel-8"},
		{Options{Mode: config.ExportPassthrough}, "passthrough"},
		{Options{Mode: config.ExportEffects, Track: track}, "zoom+effects"},
		{Options{Mode: config.ExportPassthrough, Track: &zoom.Track{}}, "passthrough"},
	}
	for _, tt := range tests {
		effect, err := BuildEffect(tt.opts)
		if err != nil {
			t.Fatalf("BuildEffect(%s): %v", tt.name, err)
		}
		if effect.Name() != tt.name {
			t.Fatalf("expected %s, got %s", tt.name, effect.Name())
		}
	}
	if _, err := BuildEffect(Options{Mode: "sideways"}); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}

func TestBuildEffectLoadsBackgroundImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	fx := compositor.DefaultVisualEffects()
	fx.Background = compositor.Background{Kind: compositor.BackgroundImage, ImagePath: path}
	effect, err := BuildEffect(Options{Mode: config.ExportEffects, Effects: fx})
	if err != nil {
		t.Fatalf("BuildEffect: %v", err)
	}
	if effect.(video.Effects).FX.Background.Image == nil {
		t.Fatalf("background image was not loaded")
	}

	fx.Background.ImagePath = filepath.Join(t.TempDir(), "missing.png")
	if _, err := BuildEffect(Options{Mode: config.ExportEffects, Effects: fx}); err == nil {
		t.Fatalf("expected an error for a missing background image")
	}
}

func TestLoadTrack(t *testing.T) {
	dir := t.TempDir()
	if tr, err := LoadTrack(filepath.Join(dir, "none.zoom.yaml")); tr != nil || err != nil {
		t.Fatalf("missing track should be nil, nil; got %v, %v", tr, err)
	}

	clip := filepath.Join(dir, "demo.mp4")
	want := zoom.NewTrack([]zoom.Trigger{{At: time.Second, Level: 2, Center: r2.Vec{X: 10, Y: 20}}}, zoom.DefaultConfig(), r2.Vec{X: 100, Y: 100})
	f, err := os.Create(TrackPathFor(clip))
	if err != nil {
		t.Fatal(err)
	}
	if err := zoom.WriteTrack(f, want); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := LoadTrack(TrackPathFor(clip))
	if err != nil || got == nil || len(got.Keyframes) != 3 {
		t.Fatalf("LoadTrack = %+v, %v", got, err)
	}
	if TrailPathFor(clip) != filepath.Join(dir, "demo.trail.yaml") {
		t.Fatalf("unexpected trail path %s", TrailPathFor(clip))
	}
}

func TestReplayTrail(t *testing.T) {
	trail := tracking.NewTrail()
	for i := 0; i <= 60; i++ {
		at := time.Duration(i) * 100 * time.Millisecond
		trail.Append(tracking.CursorPoint{Position: r2.Vec{X: 400 + float64(i), Y: 300}, Timestamp: at})
	}
	click := func(at time.Duration, x, y float64) {
		trail.Append(tracking.CursorPoint{Position: r2.Vec{X: x, Y: y}, Timestamp: at, IsClick: true, Click: tracking.LeftClick})
	}
	click(time.Second, 410, 300)
	click(1300*time.Millisecond, 413, 300)
	click(6*time.Second, 1000, 600)

	screen := r2.Vec{X: 1440, Y: 900}
	track := ReplayTrail(trail, zoom.DefaultConfig(), tracking.DefaultSmoothingConfig(), screen, uiprobe.Nop{})
	if len(track.Keyframes) != 6 {
		t.Fatalf("expected two zooms (6 keyframes), got %d: %+v", len(track.Keyframes), track.Keyframes)
	}
	first := track.Keyframes[0]
	if first.Time != time.Second || first.Zoom != 2 || first.CenterX != 410 {
		t.Fatalf("unexpected first keyframe %+v", first)
	}
	last := track.Keyframes[3]
	if last.Time != 6*time.Second || last.CenterX != 1000 {
		t.Fatalf("unexpected second zoom %+v", last)
	}
	if track.Screen != screen {
		t.Fatalf("track screen %v", track.Screen)
	}
}
