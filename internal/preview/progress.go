package preview

import "time"

// ExportProgress publishes export progress through the hub. It satisfies
// video.ProgressReporter and throttles intermediate updates to Interval.
type ExportProgress struct {
	Hub      *Hub
	Interval time.Duration

	last time.Time
}

func (p *ExportProgress) Report(progress float64) {
	if now := time.Now(); now.Sub(p.last) >= p.Interval {
		p.last = now
		p.Hub.Publish(Message{Type: "progress", Progress: progress})
	}
}

func (p *ExportProgress) ReportError(err error) {
	p.Hub.Publish(Message{Type: "progress", Done: true, Error: err.Error()})
}

func (p *ExportProgress) ReportComplete() {
	p.Hub.Publish(Message{Type: "progress", Progress: 1, Done: true})
}
