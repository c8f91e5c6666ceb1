// Package light holds the in-memory state of a two-channel light accessory and
// validates every characteristic write against it.
package light

import "fmt"

// Mode is the active operating mode of the light.
type Mode int

const (
	ModeWhite Mode = iota
	ModeColor
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeWhite:
		return "white"
	case ModeColor:
		return "color"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white":
		*m = ModeWhite
	case "color":
		*m = ModeColor
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// Change identifies the characteristic touched by a successful write.
type Change int

const (
	ChangePower Change = iota
	ChangeBrightness
	ChangeColorTemperature
	ChangeHue
	ChangeSaturation
)

// String returns the characteristic name of the change.
func (c Change) String() string {
	switch c {
	case ChangePower:
		return "power"
	case ChangeBrightness:
		return "brightness"
	case ChangeColorTemperature:
		return "color_temperature"
	case ChangeHue:
		return "hue"
	case ChangeSaturation:
		return "saturation"
	default:
		return "unknown"
	}
}

// Format returns the value format a characteristic accepts.
func (c Change) Format() Format {
	switch c {
	case ChangePower:
		return FormatBool
	case ChangeBrightness:
		return FormatInt
	case ChangeColorTemperature:
		return FormatUInt32
	default:
		return FormatFloat
	}
}

// Defaults applied when a store is created.
const (
	DefaultBrightness       = 100
	DefaultColorTemperature = 154
)

// miredScale converts mired to the device color temperature value and back.
const miredScale = 1_000_000

// State is a snapshot of the accessory state.
type State struct {
	Power            bool    `json:"power"`
	Brightness       int     `json:"brightness"`
	ColorTemperature uint32  `json:"color_temperature"` // mired
	Hue              float64 `json:"hue"`
	Saturation       float64 `json:"saturation"`
	Mode             Mode    `json:"mode"`
}

// DefaultState returns the state a light starts with.
func DefaultState() State {
	return State{
		Power:            false,
		Brightness:       DefaultBrightness,
		ColorTemperature: DefaultColorTemperature,
		Mode:             ModeWhite,
	}
}

// ColorTemperatureKelvin returns the device-facing color temperature.
// Returns 0 when ColorTemperature is 0; the store never holds that value.
func (s State) ColorTemperatureKelvin() int {
	if s.ColorTemperature == 0 {
		return 0
	}
	return int(miredScale / s.ColorTemperature)
}

// WhiteActive reports whether the white channel is the active one.
func (s State) WhiteActive() bool {
	return s.Mode == ModeWhite
}
