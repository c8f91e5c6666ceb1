package accessory

import "github.com/dokzlo13/duolight/internal/light"

// Characteristic is the read/write surface a transport uses for one
// characteristic. Set reports FormatError or InvalidRangeError from the store.
type Characteristic interface {
	Name() string
	Format() light.Format
	Get() light.Value
	Set(v light.Value) error
}

// binding ties a characteristic to its accessory and the transport using it.
type binding struct {
	acc    *Accessory
	source string
	change light.Change
}

func (b binding) Name() string            { return b.change.String() }
func (b binding) Format() light.Format    { return b.change.Format() }
func (b binding) Get() light.Value        { return b.acc.Read(b.change) }
func (b binding) Set(v light.Value) error { return b.acc.Write(b.source, b.change, v) }

// Power is the on/off characteristic.
type Power struct{ binding }

// On returns the current power state.
func (p Power) On() bool { return p.Get().Bool }

// Brightness is the brightness characteristic, in percent.
type Brightness struct{ binding }

func (b Brightness) Level() int { return b.Get().Int }

// ColorTemperature is the color temperature characteristic, in mired.
type ColorTemperature struct{ binding }

func (c ColorTemperature) Mired() uint32 { return c.Get().UInt32 }

// Hue is the hue characteristic, in degrees.
type Hue struct{ binding }

func (h Hue) Degrees() float64 { return h.Get().Float }

// Saturation is the saturation characteristic, in percent.
type Saturation struct{ binding }

func (s Saturation) Percent() float64 { return s.Get().Float }

// Characteristic returns the characteristic named name, bound to source.
func (a *Accessory) Characteristic(source, name string) (Characteristic, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return a.bind(source, c), nil
}

// Characteristics returns every characteristic of the accessory, bound to source.
func (a *Accessory) Characteristics(source string) []Characteristic {
	out := make([]Characteristic, 0, len(allChanges))
	for _, c := range allChanges {
		out = append(out, a.bind(source, c))
	}
	return out
}

// bind returns nil for a change that is not part of the accessory.
func (a *Accessory) bind(source string, c light.Change) Characteristic {
	b := binding{acc: a, source: source, change: c}
	switch c {
	case light.ChangePower:
		return Power{b}
	case light.ChangeBrightness:
		return Brightness{b}
	case light.ChangeColorTemperature:
		return ColorTemperature{b}
	case light.ChangeHue:
		return Hue{b}
	case light.ChangeSaturation:
		return Saturation{b}
	default:
		return nil
	}
}
