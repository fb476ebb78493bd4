package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/config"
	"github.com/vedantwpatil/focusframe/internal/editing"
	"github.com/vedantwpatil/focusframe/internal/preview"
	"github.com/vedantwpatil/focusframe/internal/video"
)

var (
	exportMode    string
	exportDevice  string
	noZoom        bool
	keepPartial   bool
	exportPreview bool
)

var exportCmd = &cobra.Command{
	Use:   "export <input> <output>",
	Short: "Export a recording with effects, a device frame and the zoom track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		opts, err := exportOptions(in)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var progress video.ProgressReporter = video.NewProgressBar("Exporting")
		if exportPreview || cfg.Preview.Enabled {
			hub, err := startPreview(ctx)
			if err != nil {
				return err
			}
			progress = video.MultiProgress{progress, &preview.ExportProgress{Hub: hub, Interval: 100 * time.Millisecond}}
		}

		ed := editing.NewEditor(newPipeline(progress), logger)
		if err := ed.Export(ctx, in, out, opts); err != nil {
			return err
		}
		fmt.Println("Exported", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMode, "mode", "", "Export mode: effects, device or passthrough")
	exportCmd.Flags().StringVar(&exportDevice, "device", "", "Device frame for device mode (see 'focusframe devices')")
	exportCmd.Flags().BoolVar(&noZoom, "no-zoom", false, "Skip the recorded zoom track")
	exportCmd.Flags().BoolVar(&keepPartial, "keep-partial", false, "Keep the output file when the export fails")
	exportCmd.Flags().BoolVar(&exportPreview, "preview", false, "Publish progress over WebSocket")
}

func exportOptions(in string) (editing.Options, error) {
	opts := editing.OptionsFromConfig(cfg)
	opts.KeepPartial = keepPartial
	if exportMode != "" {
		if err := opts.Mode.UnmarshalText([]byte(exportMode)); err != nil {
			return opts, err
		}
	}
	if exportDevice != "" {
		d, err := compositor.ParseDeviceType(exportDevice)
		if err != nil {
			return opts, err
		}
		opts.Device.Device = d
		if exportMode == "" {
			opts.Mode = config.ExportDevice
		}
	}
	if cfg.Export.BurnInZoom && !noZoom {
		track, err := editing.LoadTrack(editing.TrackPathFor(in))
		if err != nil {
			return opts, err
		}
		opts.Track = track
	}
	return opts, nil
}

func newPipeline(progress video.ProgressReporter) *video.Pipeline {
	workers := cfg.Processing.Workers
	if !cfg.Processing.Parallel {
		workers = 1
	}
	return video.NewPipeline(video.VidioOpener{Logger: logger},
		video.WithProgress(progress),
		video.WithLogger(logger),
		video.WithWorkers(workers),
		video.WithBitrate(cfg.Export.Bitrate),
		video.WithCodec(cfg.Export.Codec),
		video.WithReportEvery(cfg.Export.ReportEvery),
		video.WithReadyTimeout(cfg.Export.ReadyTimeout),
	)
}
