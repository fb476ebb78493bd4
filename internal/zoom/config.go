package zoom

import (
	"time"

	"github.com/vedantwpatil/focusframe/internal/easing"
)

// Pattern heuristics for click handling. They are tuned by feel rather than
// derived, so treat them as adjustable.
const (
	rapidClickCount     = 3
	proximityRadius     = 100.0
	proximityWindow     = time.Second
	proximityClickLimit = 3
	typingWindow        = 500 * time.Millisecond
	typingMinKeys       = 2
	historyMaxAge       = 2 * time.Second
	followViewportRatio = 0.3
)

// Config holds the per-session zoom parameters. A running Engine keeps its
// own copy; swap the whole value with Engine.SetConfig instead of mutating.
type Config struct {
	ButtonZoomLevel    float64 `yaml:"button_zoom_level"`
	TextFieldZoomLevel float64 `yaml:"text_field_zoom_level"`
	MenuZoomLevel      float64 `yaml:"menu_zoom_level"`
	DialogZoomLevel    float64 `yaml:"dialog_zoom_level"`
	DefaultZoomLevel   float64 `yaml:"default_zoom_level"`

	AnimationDuration   time.Duration `yaml:"animation_duration"`
	HoldDuration        time.Duration `yaml:"hold_duration"`
	CooldownDuration    time.Duration `yaml:"cooldown_duration"`
	RapidClickThreshold time.Duration `yaml:"rapid_click_threshold"`
	ScrollCooldown      time.Duration `yaml:"scroll_cooldown"`
	Easing              easing.Kind   `yaml:"easing"`

	// TextFieldOffset shifts the zoom centre right of a text field's centre
	// so the caret stays visible while typing.
	TextFieldOffset float64 `yaml:"text_field_offset"`
	// FollowSpeed is the fraction of the cursor distance covered per tick
	// while following.
	FollowSpeed float64 `yaml:"follow_speed"`

	ZoomOnClick      bool `yaml:"zoom_on_click"`
	ZoomOnTyping     bool `yaml:"zoom_on_typing"`
	DetectUIElements bool `yaml:"detect_ui_elements"`
	SmoothFollow     bool `yaml:"smooth_follow"`
	ContentAware     bool `yaml:"content_aware"`
	ZoomOutOnScroll  bool `yaml:"zoom_out_on_scroll"`
}

func DefaultConfig() Config {
	return Config{
		ButtonZoomLevel:     2.0,
		TextFieldZoomLevel:  2.2,
		MenuZoomLevel:       1.8,
		DialogZoomLevel:     1.5,
		DefaultZoomLevel:    2.0,
		AnimationDuration:   500 * time.Millisecond,
		HoldDuration:        2 * time.Second,
		CooldownDuration:    800 * time.Millisecond,
		RapidClickThreshold: 150 * time.Millisecond,
		ScrollCooldown:      300 * time.Millisecond,
		Easing:              easing.CubicInOut,
		TextFieldOffset:     50,
		FollowSpeed:         0.1,
		ZoomOnClick:         true,
		ZoomOnTyping:        true,
		DetectUIElements:    true,
		SmoothFollow:        true,
		ContentAware:        true,
		ZoomOutOnScroll:     true,
	}
}

// Sanitize clamps values that would break the engine. Every field is a user
// slider with no upstream validation, so bad values are corrected rather
// than reported.
func (c Config) Sanitize() Config {
	for _, lvl := range []*float64{&c.ButtonZoomLevel, &c.TextFieldZoomLevel, &c.MenuZoomLevel,
		&c.DialogZoomLevel, &c.DefaultZoomLevel} {
		if *lvl < 1 {
			*lvl = 1
		}
	}
	for _, d := range []*time.Duration{&c.AnimationDuration, &c.HoldDuration, &c.CooldownDuration,
		&c.RapidClickThreshold, &c.ScrollCooldown} {
		if *d < 0 {
			*d = 0
		}
	}
	if c.AnimationDuration == 0 {
		c.AnimationDuration = time.Millisecond
	}
	if c.FollowSpeed <= 0 || c.FollowSpeed > 1 {
		c.FollowSpeed = DefaultConfig().FollowSpeed
	}
	return c
}
