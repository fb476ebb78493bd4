package uiprobe

import "strings"

// Role is the classification of an interactive element.
type Role int

const (
	Unknown Role = iota
	Button
	TextField
	Menu
	MenuItem
	Dialog
	Popover
	Slider
	Checkbox
	Link
	Toolbar
)

var roleNames = [...]string{
	Unknown:   "unknown",
	Button:    "button",
	TextField: "text-field",
	Menu:      "menu",
	MenuItem:  "menu-item",
	Dialog:    "dialog",
	Popover:   "popover",
	Slider:    "slider",
	Checkbox:  "checkbox",
	Link:      "link",
	Toolbar:   "toolbar",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return roleNames[Unknown]
	}
	return roleNames[r]
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(text []byte) error {
	*r = ClassifyRole(string(text))
	return nil
}

// roleTable maps normalized raw role strings onto a Role. Keys are lower
// case with the accessibility "AX" prefix and separators removed.
var roleTable = map[string]Role{
	"button":          Button,
	"popupbutton":     Button,
	"menubutton":      Button,
	"textfield":       TextField,
	"textarea":        TextField,
	"searchfield":     TextField,
	"securetextfield": TextField,
	"combobox":        TextField,
	"textbox":         TextField,
	"menu":            Menu,
	"menubar":         Menu,
	"menuitem":        MenuItem,
	"menubaritem":     MenuItem,
	"dialog":          Dialog,
	"sheet":           Dialog,
	"alert":           Dialog,
	"systemdialog":    Dialog,
	"popover":         Popover,
	"slider":          Slider,
	"checkbox":        Checkbox,
	"radiobutton":     Checkbox,
	"switch":          Checkbox,
	"link":            Link,
	"toolbar":         Toolbar,
	"unknown":         Unknown,
}

// ClassifyRole maps a probe's raw role string (for example "AXTextField",
// "text-field" or "TextArea") onto a Role. Unrecognized strings are Unknown.
func ClassifyRole(raw string) Role {
	key := normalizeRole(raw)
	if role, ok := roleTable[key]; ok {
		return role
	}
	return Unknown
}

func normalizeRole(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 2 && strings.HasPrefix(s, "AX") {
		s = s[2:]
	}
	s = strings.ToLower(s)
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// DefaultInteractive reports whether elements of this role accept input
// when the probe does not say otherwise.
func (r Role) DefaultInteractive() bool {
	switch r {
	case Button, TextField, Menu, MenuItem, Slider, Checkbox, Link:
		return true
	}
	return false
}

// Priority ranks roles for zoom targeting; higher wins.
func (r Role) Priority() int {
	switch r {
	case TextField:
		return 9
	case Button:
		return 8
	case MenuItem:
		return 7
	case Menu, Checkbox, Slider:
		return 6
	case Link:
		return 5
	case Dialog, Popover:
		return 4
	case Toolbar:
		return 2
	}
	return 0
}
