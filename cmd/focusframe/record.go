package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/vedantwpatil/focusframe/internal/preview"
	"github.com/vedantwpatil/focusframe/internal/recording"
	"github.com/vedantwpatil/focusframe/internal/uiprobe"
	"github.com/vedantwpatil/focusframe/internal/zoom"
)

var (
	noAutoZoom  bool
	withPreview bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the screen interactively",
	Long: `Record the screen with the live zoom engine following clicks and typing.

Ctrl+C stops a running recording; pressed again while idle it exits. The
cursor trail and zoom track are written next to each video.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var sink func(zoom.Update)
		if withPreview || cfg.Preview.Enabled {
			hub, err := startPreview(ctx)
			if err != nil {
				return err
			}
			sink = hub.ZoomSink()
		}
		return recordLoop(ctx, sink)
	},
}

func init() {
	recordCmd.Flags().BoolVar(&noAutoZoom, "no-auto-zoom", false, "Record without the live zoom engine")
	recordCmd.Flags().BoolVar(&withPreview, "preview", false, "Serve live zoom state over WebSocket")
}

func startPreview(ctx context.Context) (*preview.Hub, error) {
	ln, err := net.Listen("tcp", cfg.Preview.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Preview.Addr, err)
	}
	if cfg.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	hub := preview.NewHub(logger)
	srv := preview.NewServer(hub, logger)
	go func() {
		if err := srv.Serve(ctx, ln); err != nil {
			logger.Error("preview server failed", "error", err)
		}
	}()
	if cfg.Preview.Advertise {
		port, err := preview.PortOf(ln.Addr())
		if err == nil {
			err = preview.Advertise(ctx, cfg.Preview.Name, port)
		}
		if err != nil {
			logger.Warn("mDNS advertisement unavailable", "error", err)
		}
	}
	return hub, nil
}

func newSession(sink func(zoom.Update)) *recording.Session {
	return recording.NewSession(recording.Options{
		OutputDir: cfg.Recording.OutputDir,
		TargetFPS: cfg.Recording.TargetFPS,
		TrackFPS:  cfg.Recording.TrackFPS,
		AutoZoom:  cfg.Recording.AutoZoom && !noAutoZoom,
		Zoom:      cfg.Zoom,
		Probe:     uiprobe.Nop{},
		Sink:      sink,
		Logger:    logger,
	})
}

func recordLoop(ctx context.Context, sink func(zoom.Update)) error {
	var (
		mu      sync.Mutex
		session *recording.Session
	)
	stop := func() {
		if session == nil || !session.IsRecording() {
			return
		}
		if err := session.Stop(); err != nil {
			fmt.Println("Recording stopped with errors:", err)
		} else {
			fmt.Println("Saved", session.OutputPath())
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for sig := range sigChan {
			fmt.Printf("\nReceived signal: %v\n", sig)
			mu.Lock()
			if session != nil && session.IsRecording() {
				fmt.Println("Stopping screen recording...")
				stop()
				mu.Unlock()
				continue
			}
			mu.Unlock()
			fmt.Println("Exiting application...")
			os.Exit(0)
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("\nCommands:")
		fmt.Println("1. Start recording")
		fmt.Println("2. Stop recording")
		fmt.Println("3. Exit")
		fmt.Print("Choose an option: ")
		if !in.Scan() {
			mu.Lock()
			stop()
			mu.Unlock()
			return in.Err()
		}

		switch strings.TrimSpace(in.Text()) {
		case "1":
			mu.Lock()
			if session != nil && session.IsRecording() {
				fmt.Println("Already recording")
				mu.Unlock()
				continue
			}
			session = newSession(sink)
			err := session.Start(ctx, "")
			mu.Unlock()
			if err != nil {
				fmt.Println("Failed to start recording:", err)
				continue
			}
			fmt.Println("Recording... Press Ctrl+C or choose 2 to stop.")
		case "2":
			mu.Lock()
			if session == nil || !session.IsRecording() {
				fmt.Println("Not recording")
			}
			stop()
			mu.Unlock()
		case "3":
			mu.Lock()
			stop()
			mu.Unlock()
			fmt.Println("Exiting...")
			return nil
		default:
			fmt.Println("Invalid option")
		}
	}
}
