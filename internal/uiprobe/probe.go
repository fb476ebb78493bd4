// Package uiprobe describes the capability that finds the interactive UI
// element under a screen point. The capability itself lives outside this
// module; the engine only relies on the Probe interface.
package uiprobe

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrUnavailable is returned by probes that lack permission or are disabled.
// Callers treat it the same as "no element".
var ErrUnavailable = errors.New("uiprobe: element probing unavailable")

// Element is a detected interactive element in screen coordinates
// (top-left origin).
type Element struct {
	Rect        r2.Box
	Role        Role
	RawRole     string
	Interactive bool
	Priority    int
}

// NewElement classifies raw and fills the derived fields.
func NewElement(rect r2.Box, raw string) Element {
	role := ClassifyRole(raw)
	return Element{
		Rect:        rect.Canon(),
		Role:        role,
		RawRole:     raw,
		Interactive: role.DefaultInteractive(),
		Priority:    role.Priority(),
	}
}

func (e Element) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(e.Rect.Min, e.Rect.Max))
}

func (e Element) Size() r2.Vec {
	return e.Rect.Size()
}

func (e Element) Contains(p r2.Vec) bool {
	return e.Rect.Contains(p)
}

// Probe resolves UI elements. Implementations must tolerate sequential reuse.
type Probe interface {
	ElementAt(ctx context.Context, pt r2.Vec) (*Element, error)
	FocusedElement(ctx context.Context) (*Element, error)
}

// Nop never detects anything.
type Nop struct{}

func (Nop) ElementAt(context.Context, r2.Vec) (*Element, error) { return nil, nil }
func (Nop) FocusedElement(context.Context) (*Element, error)    { return nil, nil }

// Static answers from a fixed element list. The smallest element containing
// the point wins so nested controls beat their containers.
type Static struct {
	Elements []Element
	Focused  *Element
}

func (s *Static) ElementAt(_ context.Context, pt r2.Vec) (*Element, error) {
	var best *Element
	bestArea := 0.0
	for i := range s.Elements {
		el := &s.Elements[i]
		if !el.Contains(pt) {
			continue
		}
		size := el.Size()
		area := size.X * size.Y
		if best == nil || area < bestArea {
			best, bestArea = el, area
		}
	}
	if best == nil {
		return nil, nil
	}
	found := *best
	return &found, nil
}

func (s *Static) FocusedElement(context.Context) (*Element, error) {
	if s.Focused == nil {
		return nil, nil
	}
	found := *s.Focused
	return &found, nil
}
