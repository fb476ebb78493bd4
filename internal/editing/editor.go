// Package editing turns a finished recording into the exported video: it
// picks the render stage from the export settings, loads the saved zoom
// track and runs the re-encode pipeline.
package editing

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/config"
	"github.com/vedantwpatil/focusframe/internal/video"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	_ "golang.org/x/image/webp"
)

type Options struct {
	Mode    config.ExportMode
	Effects compositor.VisualEffects
	Device  compositor.DeviceFrame
	// Track is burned in before compositing when set.
	Track *zoom.Track
	// KeepPartial leaves a failed output on disk.
	KeepPartial bool
}

// OptionsFromConfig builds export options from the config. The zoom track
// is attached separately with LoadTrack.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:    cfg.Export.Mode,
		Effects: cfg.Effects,
		Device:  cfg.Device,
	}
}

type Editor struct {
	pipeline *video.Pipeline
	logger   *slog.Logger
}

func NewEditor(pipeline *video.Pipeline, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{pipeline: pipeline, logger: logger.With("component", "editor")}
}

// Export renders input into output. A failed or cancelled export removes
// the partial output unless opts.KeepPartial is set.
func (e *Editor) Export(ctx context.Context, input, output string, opts Options) error {
	effect, err := BuildEffect(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = e.pipeline.Export(ctx, input, output, effect)
	if err == nil {
		return nil
	}
	if errors.Is(err, video.ErrCancelled) {
		e.logger.Info("export cancelled", "output", output)
	}
	if !opts.KeepPartial {
		if rmErr := video.RemovePartial(output); rmErr != nil {
			e.logger.Warn("could not remove partial output", "error", rmErr)
		}
	}
	return err
}

// BuildEffect picks the render stage for opts, resolving a background image
// path into pixels.
func BuildEffect(opts Options) (video.Effect, error) {
	var effect video.Effect
	switch opts.Mode {
	case config.ExportEffects, "":
		fx := opts.Effects
		if err := resolveBackground(&fx.Background); err != nil {
			return nil, err
		}
		effect = video.Effects{FX: fx}
	case config.ExportDevice:
		df := opts.Device
		if err := resolveBackground(&df.Background); err != nil {
			return nil, err
		}
		effect = video.Device{Frame: df}
	case config.ExportPassthrough:
		effect = video.Passthrough{}
	default:
		return nil, fmt.Errorf("unknown export mode %q", opts.Mode)
	}
	if opts.Track != nil && len(opts.Track.Keyframes) > 0 {
		effect = video.ZoomBurnIn{Track: *opts.Track, Next: effect}
	}
	return effect, nil
}

func resolveBackground(bg *compositor.Background) error {
	if bg.Kind != compositor.BackgroundImage || bg.Image != nil || bg.ImagePath == "" {
		return nil
	}
	img, err := loadImage(bg.ImagePath)
	if err != nil {
		return err
	}
	bg.Image = img
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open background image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background image %s: %w", path, err)
	}
	return img, nil
}

// TrackPathFor is where a recording's zoom track is saved.
func TrackPathFor(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".zoom.yaml"
}

// TrailPathFor is where a recording's cursor trail is saved.
func TrailPathFor(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".trail.yaml"
}

// LoadTrack reads a saved zoom track. A missing file returns nil and no
// error.
func LoadTrack(path string) (*zoom.Track, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tr, err := zoom.ReadTrack(f)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}
