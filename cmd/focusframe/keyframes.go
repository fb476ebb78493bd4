package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vedantwpatil/focusframe/internal/editing"
	"github.com/vedantwpatil/focusframe/internal/tracking"
	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"github.com/vedantwpatil/focusframe/internal/zoom"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	keyframesOut    string
	keyframesWidth  float64
	keyframesHeight float64
)

var keyframesCmd = &cobra.Command{
	Use:   "keyframes <trail.yaml>",
	Short: "Rebuild a zoom track from a recorded cursor trail",
	Long: `Replay a cursor trail through the zoom engine with the current zoom
settings and write the resulting keyframes. Use this to retune zoom levels
or timing after a recording without recording again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		trail, err := tracking.ReadTrail(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read trail: %w", err)
		}

		screen := r2.Vec{X: keyframesWidth, Y: keyframesHeight}
		if screen.X <= 0 || screen.Y <= 0 {
			screen = tracking.ScreenSize()
		}
		track := editing.ReplayTrail(trail, cfg.Zoom, cfg.Cursor, screen, uiprobe.Nop{})

		out := keyframesOut
		if out == "" {
			out = strings.TrimSuffix(args[0], ".trail.yaml") + ".zoom.yaml"
		}
		w, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := zoom.WriteTrack(w, track); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %d keyframes to %s\n", len(track.Keyframes), out)
		return nil
	},
}

func init() {
	keyframesCmd.Flags().StringVarP(&keyframesOut, "output", "o", "", "Output track path (default: next to the trail)")
	keyframesCmd.Flags().Float64Var(&keyframesWidth, "width", 0, "Screen width the trail was recorded at")
	keyframesCmd.Flags().Float64Var(&keyframesHeight, "height", 0, "Screen height the trail was recorded at")
}
