package video

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressBar implements the ProgressReporter interface
type ProgressBar struct {
	mu          sync.Mutex
	out         io.Writer
	total       int
	current     int
	startTime   time.Time
	lastUpdate  time.Time
	description string
}

func NewProgressBar(description string) *ProgressBar {
	return NewProgressBarTo(os.Stdout, description)
}

func NewProgressBarTo(out io.Writer, description string) *ProgressBar {
	return &ProgressBar{
		out:         out,
		total:       100,
		startTime:   time.Now(),
		description: description,
	}
}

func (p *ProgressBar) Report(progress float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(progress, false)
}

func (p *ProgressBar) report(progress float64, force bool) {
	p.current = int(progress * float64(p.total))

	// Redrawing more often than this only makes the terminal flicker
	if !force && time.Since(p.lastUpdate) < 100*time.Millisecond {
		return
	}
	p.lastUpdate = time.Now()

	percentage := float64(p.current) / float64(p.total) * 100
	elapsed := time.Since(p.startTime)

	barWidth := 30
	completed := min(barWidth, max(0, barWidth*p.current/p.total))
	bar := strings.Repeat("=", completed) + strings.Repeat("-", barWidth-completed)

	fmt.Fprintf(p.out, "\r%s [%s] %.1f%% Elapsed: %v",
		p.description,
		bar,
		percentage,
		elapsed.Round(time.Second),
	)
}

func (p *ProgressBar) ReportError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\nError: %v\n", err)
}

func (p *ProgressBar) ReportComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(1.0, true)
	fmt.Fprintln(p.out)
}

// ProgressFunc adapts a plain callback. Errors and completion are ignored.
type ProgressFunc func(progress float64)

func (f ProgressFunc) Report(progress float64) { f(progress) }
func (f ProgressFunc) ReportError(error)       {}
func (f ProgressFunc) ReportComplete()         {}

// ProgressUpdate is one message on a ChannelProgress.
type ProgressUpdate struct {
	Progress float64
	Err      error
	Done     bool
}

// ChannelProgress forwards updates to a buffered channel without ever
// blocking the export. Intermediate updates are dropped when the reader
// falls behind; the final update is always delivered.
type ChannelProgress struct {
	C chan ProgressUpdate
}

func NewChannelProgress(buffer int) *ChannelProgress {
	return &ChannelProgress{C: make(chan ProgressUpdate, max(1, buffer))}
}

func (c *ChannelProgress) Report(progress float64) {
	select {
	case c.C <- ProgressUpdate{Progress: progress}:
	default:
		// Channel full - drop this update
	}
}

func (c *ChannelProgress) ReportError(err error) {
	c.final(ProgressUpdate{Err: err, Done: true})
}

func (c *ChannelProgress) ReportComplete() {
	c.final(ProgressUpdate{Progress: 1, Done: true})
}

// final makes room for the terminal update by discarding stale ones, then
// closes the channel.
func (c *ChannelProgress) final(u ProgressUpdate) {
	for {
		select {
		case c.C <- u:
			close(c.C)
			return
		default:
		}
		select {
		case <-c.C:
		default:
		}
	}
}

// MultiProgress fans updates out to several reporters.
type MultiProgress []ProgressReporter

func (m MultiProgress) Report(progress float64) {
	for _, r := range m {
		r.Report(progress)
	}
}

func (m MultiProgress) ReportError(err error) {
	for _, r := range m {
		r.ReportError(err)
	}
}

func (m MultiProgress) ReportComplete() {
	for _, r := range m {
		r.ReportComplete()
	}
}
