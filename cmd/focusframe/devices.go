package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vedantwpatil/focusframe/internal/compositor"
	"github.com/vedantwpatil/focusframe/internal/tracking"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the available device frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tASPECT")
		for _, d := range compositor.DeviceTypes() {
			spec := d.Spec()
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", spec.Name, spec.Category, spec.AspectRatio)
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the effective configuration to --config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Println("Wrote", configPath)
		return nil
	},
}

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List the active displays",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tORIGIN\tSIZE")
		for i, b := range tracking.Displays() {
			fmt.Fprintf(w, "%d\t%d,%d\t%dx%d\n", i, b.Min.X, b.Min.Y, b.Dx(), b.Dy())
		}
		return w.Flush()
	},
}
