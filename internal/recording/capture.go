package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Recorder captures the screen into a file.
type Recorder interface {
	Start(ctx context.Context, output string) error
	Stop() error
}

// stopTimeout is how long ffmpeg gets to finalise the file after "q".
const stopTimeout = 10 * time.Second

// FFmpegRecorder records the main screen with ffmpeg, without the cursor.
type FFmpegRecorder struct {
	TargetFPS int
	// GOOS selects the capture device; runtime.GOOS when empty.
	GOOS string
	// Display is the X11 display on Linux; $DISPLAY or :0.0 when empty.
	Display string
	Stderr  io.Writer
	Logger  *slog.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan error
}

func (r *FFmpegRecorder) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *FFmpegRecorder) Start(ctx context.Context, output string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return errors.New("ffmpeg capture already running")
	}

	goos := r.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	log := r.logger().With("component", "capture", "os", goos)

	screen := ""
	if goos == "darwin" {
		index, err := findScreenDeviceIndex(ctx)
		if err != nil {
			return fmt.Errorf("unable to locate the screen capture device: %w", err)
		}
		screen = index
	}
	display := r.Display
	if display == "" {
		display = os.Getenv("DISPLAY")
	}

	args, err := captureArgs(goos, r.TargetFPS, screen, display, output)
	if err != nil {
		return err
	}

	cmd := exec.Command("ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	cmd.Stderr = r.Stderr

	log.Info("starting ffmpeg", "output", output, "fps", r.TargetFPS)
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	r.cmd, r.stdin, r.done = cmd, stdin, done
	return nil
}

// Stop asks ffmpeg to quit so it can finalise the file, killing it if it
// does not exit in time.
func (r *FFmpegRecorder) Stop() error {
	r.mu.Lock()
	cmd, stdin, done := r.cmd, r.stdin, r.done
	r.cmd, r.stdin, r.done = nil, nil, nil
	r.mu.Unlock()
	if cmd == nil {
		return errors.New("ffmpeg capture not running")
	}

	log := r.logger().With("component", "capture")
	log.Debug("signaling ffmpeg to stop")
	if _, err := stdin.Write([]byte("q\n")); err != nil {
		log.Warn("failed to write 'q' to ffmpeg stdin", "error", err)
	}
	stdin.Close()

	var err error
	select {
	case err = <-done:
	case <-time.After(stopTimeout):
		log.Warn("ffmpeg did not exit, killing it")
		cmd.Process.Kill()
		err = <-done
	}
	if !cleanExit(err) {
		return fmt.Errorf("recording may have failed: %w", err)
	}
	log.Info("ffmpeg process finished", "status", exitStatus(err))
	return nil
}

// cleanExit accepts the statuses ffmpeg uses when told to quit mid-stream.
func cleanExit(err error) bool {
	if err == nil {
		return true
	}
	switch err.Error() {
	case "signal: interrupt", "exit status 255":
		return true
	}
	return false
}

func exitStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

func captureArgs(goos string, fps int, screen, display, output string) ([]string, error) {
	if fps <= 0 {
		fps = 60
	}
	rate := fmt.Sprintf("%d", fps)
	switch goos {
	case "windows":
		return []string{
			"-f", "gdigrab",
			"-framerate", rate,
			"-i", "desktop",
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-y",
			output,
		}, nil
	case "darwin":
		return []string{
			"-f", "avfoundation",
			"-framerate", rate,
			"-capture_cursor", "0",
			"-i", screen + ":none",
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-preset", "ultrafast",
			"-y",
			output,
		}, nil
	case "linux":
		if display == "" {
			display = ":0.0"
		}
		return []string{
			"-f", "x11grab",
			"-draw_mouse", "0",
			"-framerate", rate,
			"-i", display,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-y",
			output,
		}, nil
	}
	return nil, fmt.Errorf("unsupported operating system: %s", goos)
}

func findScreenDeviceIndex(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-f", "avfoundation", "-list_devices", "true", "-i", "")

	// ffmpeg exits non-zero after listing devices; only an empty listing is
	// a real failure.
	outputBytes, err := cmd.CombinedOutput()
	if err != nil && len(outputBytes) == 0 {
		return "", fmt.Errorf("failed to run ffmpeg list_devices command: %w", err)
	}
	return parseScreenDeviceIndex(string(outputBytes))
}

var deviceLine = regexp.MustCompile(`\[(\d+)\]\s+(.*)$`)

// parseScreenDeviceIndex finds "Capture screen 0" among the AVFoundation
// video devices.
func parseScreenDeviceIndex(output string) (string, error) {
	inVideoDevices := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "AVFoundation video devices:") {
			inVideoDevices = true
			continue
		}
		if strings.Contains(line, "AVFoundation audio devices:") {
			break
		}
		if !inVideoDevices {
			continue
		}
		m := deviceLine.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil && strings.HasPrefix(m[2], "Capture screen 0") {
			return m[1], nil
		}
	}
	return "", errors.New("could not find 'Capture screen 0' in ffmpeg device list")
}
