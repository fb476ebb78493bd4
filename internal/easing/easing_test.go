package easing

import "testing"

func TestEase_Endpoints(t *testing.T) {
	for _, k := range Kinds() {
		if got := Ease(k, 0); got != 0 {
			t.Errorf("%s: Ease(0) = %v, want 0", k, got)
		}
		if got := Ease(k, 1); got != 1 {
			t.Errorf("%s: Ease(1) = %v, want 1", k, got)
		}
	}
}

func TestEase_Monotonic(t *testing.T) {
	const steps = 1000
	for _, k := range Kinds() {
		prev := Ease(k, 0)
		for i := 1; i <= steps; i++ {
			v := Ease(k, float64(i)/steps)
			if v < prev-1e-12 {
				t.Fatalf("%s: not monotonic at t=%v (%v < %v)", k, float64(i)/steps, v, prev)
			}
			prev = v
		}
	}
}

func TestEase_InOutMidpoint(t *testing.T) {
	for _, k := range []Kind{QuadInOut, CubicInOut, QuartInOut, ExpoInOut} {
		if got := Ease(k, 0.5); got < 0.499999 || got > 0.500001 {
			t.Errorf("%s: Ease(0.5) = %v, want 0.5", k, got)
		}
	}
}

func TestEase_ClampsOutOfRange(t *testing.T) {
	if got := Ease(CubicOut, -3); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := Ease(QuadIn, 7); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Fatalf("ParseKind(%q) = %v, want %v", k.String(), parsed, k)
		}
	}
	if _, err := ParseKind("bounce"); err == nil {
		t.Fatalf("expected error for unknown easing")
	}
}
