package uiprobe

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestClassifyRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"AXButton", Button},
		{"AXPopUpButton", Button},
		{"AXTextField", TextField},
		{"AXTextArea", TextField},
		{"AXSearchField", TextField},
		{"AXComboBox", TextField},
		{"text-field", TextField},
		{"AXMenu", Menu},
		{"AXMenuBar", Menu},
		{"AXMenuItem", MenuItem},
		{"menu_item", MenuItem},
		{"AXSheet", Dialog},
		{"dialog", Dialog},
		{"AXPopover", Popover},
		{"AXSlider", Slider},
		{"AXCheckBox", Checkbox},
		{"AXRadioButton", Checkbox},
		{"AXLink", Link},
		{"AXToolbar", Toolbar},
		{"AXGroup", Unknown},
		{"", Unknown},
		{"AX", Unknown},
	}
	for _, tt := range tests {
		if got := ClassifyRole(tt.raw); got != tt.want {
			t.Errorf("ClassifyRole(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNewElement_DerivedFields(t *testing.T) {
	el := NewElement(r2.Box{Min: r2.Vec{X: 30, Y: 40}, Max: r2.Vec{X: 10, Y: 20}}, "AXButton")
	if el.Rect.Min != (r2.Vec{X: 10, Y: 20}) {
		t.Fatalf("expected canonical rect, got %+v", el.Rect)
	}
	if !el.Interactive || el.Priority != Button.Priority() {
		t.Fatalf("unexpected derived fields: %+v", el)
	}
	if c := el.Center(); c != (r2.Vec{X: 20, Y: 30}) {
		t.Fatalf("unexpected center %+v", c)
	}
}

func TestStatic_SmallestElementWins(t *testing.T) {
	window := NewElement(r2.Box{Max: r2.Vec{X: 800, Y: 600}}, "AXSheet")
	button := NewElement(r2.Box{Min: r2.Vec{X: 100, Y: 100}, Max: r2.Vec{X: 140, Y: 120}}, "AXButton")
	probe := &Static{Elements: []Element{window, button}}

	el, err := probe.ElementAt(context.Background(), r2.Vec{X: 110, Y: 110})
	if err != nil {
		t.Fatalf("ElementAt: %v", err)
	}
	if el == nil || el.Role != Button {
		t.Fatalf("expected button, got %+v", el)
	}

	el, _ = probe.ElementAt(context.Background(), r2.Vec{X: 5000, Y: 5000})
	if el != nil {
		t.Fatalf("expected no element outside all rects, got %+v", el)
	}
}
