package light

import (
	"fmt"
	"math"
)

// Store owns the canonical state of one accessory.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	state State
}

// NewStore creates a store initialised with DefaultState.
func NewStore() *Store {
	return &Store{state: DefaultState()}
}

// NewStoreWithState creates a store starting from the given state.
func NewStoreWithState(state State) *Store {
	return &Store{state: state}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	return s.state
}

func (s *Store) Power() bool              { return s.state.Power }
func (s *Store) Brightness() int          { return s.state.Brightness }
func (s *Store) ColorTemperature() uint32 { return s.state.ColorTemperature }
func (s *Store) Hue() float64             { return s.state.Hue }
func (s *Store) Saturation() float64      { return s.state.Saturation }
func (s *Store) Mode() Mode               { return s.state.Mode }

// Get returns the tagged value of a characteristic.
func (s *Store) Get(c Change) Value {
	switch c {
	case ChangePower:
		return Bool(s.state.Power)
	case ChangeBrightness:
		return Int(s.state.Brightness)
	case ChangeColorTemperature:
		return UInt32(s.state.ColorTemperature)
	case ChangeHue:
		return Float(s.state.Hue)
	case ChangeSaturation:
		return Float(s.state.Saturation)
	default:
		return Value{}
	}
}

// Set dispatches to the setter of the given characteristic.
func (s *Store) Set(c Change, v Value) (Change, error) {
	switch c {
	case ChangePower:
		return s.SetPower(v)
	case ChangeBrightness:
		return s.SetBrightness(v)
	case ChangeColorTemperature:
		return s.SetColorTemperature(v)
	case ChangeHue:
		return s.SetHue(v)
	case ChangeSaturation:
		return s.SetSaturation(v)
	default:
		return c, fmt.Errorf("%w: %d", ErrUnknownChange, int(c))
	}
}

// SetPower turns the light on or off. Turning on at zero brightness restores full brightness.
func (s *Store) SetPower(v Value) (Change, error) {
	if err := checkFormat(ChangePower, v); err != nil {
		return ChangePower, err
	}

	s.state.Power = v.Bool
	if s.state.Power && s.state.Brightness < 1 {
		s.state.Brightness = DefaultBrightness
	}
	return ChangePower, nil
}

// SetBrightness stores brightness verbatim and turns the light on.
func (s *Store) SetBrightness(v Value) (Change, error) {
	if err := checkFormat(ChangeBrightness, v); err != nil {
		return ChangeBrightness, err
	}

	s.state.Brightness = v.Int
	s.state.Power = true
	return ChangeBrightness, nil
}

// SetColorTemperature stores the mired value, turns the light on and switches to white mode.
func (s *Store) SetColorTemperature(v Value) (Change, error) {
	if err := checkFormat(ChangeColorTemperature, v); err != nil {
		return ChangeColorTemperature, err
	}
	if v.UInt32 == 0 {
		return ChangeColorTemperature, &InvalidRangeError{
			Characteristic: ChangeColorTemperature,
			Value:          v,
			Reason:         "color temperature must be greater than zero",
		}
	}

	s.state.ColorTemperature = v.UInt32
	s.state.Power = true
	s.state.Mode = ModeWhite
	return ChangeColorTemperature, nil
}

// SetHue stores hue, turns the light on and switches to color mode.
func (s *Store) SetHue(v Value) (Change, error) {
	if err := checkFormat(ChangeHue, v); err != nil {
		return ChangeHue, err
	}
	if err := checkFinite(ChangeHue, v); err != nil {
		return ChangeHue, err
	}

	s.state.Hue = v.Float
	s.state.Power = true
	s.state.Mode = ModeColor
	return ChangeHue, nil
}

// SetSaturation stores saturation, turns the light on and switches to color mode.
func (s *Store) SetSaturation(v Value) (Change, error) {
	if err := checkFormat(ChangeSaturation, v); err != nil {
		return ChangeSaturation, err
	}
	if err := checkFinite(ChangeSaturation, v); err != nil {
		return ChangeSaturation, err
	}

	s.state.Saturation = v.Float
	s.state.Power = true
	s.state.Mode = ModeColor
	return ChangeSaturation, nil
}

func checkFormat(c Change, v Value) error {
	if v.Format != c.Format() {
		return &FormatError{Characteristic: c, Want: c.Format(), Got: v.Format}
	}
	return nil
}

func checkFinite(c Change, v Value) error {
	if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
		return &InvalidRangeError{Characteristic: c, Value: v, Reason: c.String() + " must be a finite number"}
	}
	return nil
}
