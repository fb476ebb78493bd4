package easing

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects an interpolation curve.
type Kind int

const (
	Linear Kind = iota
	QuadIn
	QuadOut
	QuadInOut
	CubicIn
	CubicOut
	CubicInOut
	QuartIn
	QuartOut
	QuartInOut
	ExpoInOut
)

var kindNames = map[Kind]string{
	Linear:     "linear",
	QuadIn:     "quad-in",
	QuadOut:    "quad-out",
	QuadInOut:  "quad-in-out",
	CubicIn:    "cubic-in",
	CubicOut:   "cubic-out",
	CubicInOut: "cubic-in-out",
	QuartIn:    "quart-in",
	QuartOut:   "quart-out",
	QuartInOut: "quart-in-out",
	ExpoInOut:  "expo-in-out",
}

// Kinds lists every supported curve in declaration order.
func Kinds() []Kind {
	return []Kind{Linear, QuadIn, QuadOut, QuadInOut, CubicIn, CubicOut, CubicInOut,
		QuartIn, QuartOut, QuartInOut, ExpoInOut}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("easing(%d)", int(k))
}

// ParseKind accepts the names produced by String, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Linear, fmt.Errorf("unknown easing %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Ease maps t in [0,1] onto the curve. Inputs outside the range are clamped,
// so Ease(k, 0) == 0 and Ease(k, 1) == 1 for every kind.
func Ease(k Kind, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}

	switch k {
	case QuadIn:
		return t * t
	case QuadOut:
		return t * (2 - t)
	case QuadInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	case CubicIn:
		return t * t * t
	case CubicOut:
		u := t - 1
		return u*u*u + 1
	case CubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := 2*t - 2
		return 0.5*u*u*u + 1
	case QuartIn:
		return t * t * t * t
	case QuartOut:
		u := t - 1
		return 1 - u*u*u*u
	case QuartInOut:
		if t < 0.5 {
			return 8 * t * t * t * t
		}
		u := t - 1
		return 1 - 8*u*u*u*u
	case ExpoInOut:
		if t < 0.5 {
			return math.Pow(2, 20*t-10) / 2
		}
		return (2 - math.Pow(2, -20*t+10)) / 2
	default:
		return t
	}
}
