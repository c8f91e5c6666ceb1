package accessory

import (
	"errors"
	"testing"

	"github.com/dokzlo13/duolight/internal/light"
)

func TestCharacteristics(t *testing.T) {
	acc, _, _ := newTestAccessory(light.DefaultState())

	chars := acc.Characteristics(SourceHTTP)
	names := []string{"power", "brightness", "color_temperature", "hue", "saturation"}
	formats := []light.Format{light.FormatBool, light.FormatInt, light.FormatUInt32, light.FormatFloat, light.FormatFloat}

	if len(chars) != len(names) {
		t.Fatalf("got %d characteristics, want %d", len(chars), len(names))
	}
	for i, c := range chars {
		if c.Name() != names[i] {
			t.Errorf("characteristic %d name = %q, want %q", i, c.Name(), names[i])
		}
		if c.Format() != formats[i] {
			t.Errorf("%s format = %v, want %v", c.Name(), c.Format(), formats[i])
		}
	}
}

func TestCharacteristicSetGet(t *testing.T) {
	acc, _, _ := newTestAccessory(light.DefaultState())

	c, err := acc.Characteristic(SourceHTTP, "saturation")
	if err != nil {
		t.Fatalf("Characteristic() error = %v", err)
	}
	if err := c.Set(light.Float(55)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := c.Get(); got != light.Float(55) {
		t.Errorf("Get() = %+v, want 55", got)
	}
	if sat, ok := c.(Saturation); !ok || sat.Percent() != 55 {
		t.Errorf("Saturation.Percent() = %v", c)
	}

	p, _ := acc.Characteristic(SourceHTTP, "power")
	if !p.(Power).On() {
		t.Error("saturation write should turn the light on")
	}

	ct, _ := acc.Characteristic(SourceHTTP, "color_temperature")
	if ct.(ColorTemperature).Mired() != light.DefaultColorTemperature {
		t.Errorf("Mired() = %d", ct.(ColorTemperature).Mired())
	}
}

func TestCharacteristicUnknown(t *testing.T) {
	acc, _, _ := newTestAccessory(light.DefaultState())
	if _, err := acc.Characteristic(SourceHTTP, "occupancy"); !errors.Is(err, ErrUnknownCharacteristic) {
		t.Errorf("Characteristic(occupancy) error = %v, want ErrUnknownCharacteristic", err)
	}
}

func TestBindUnknownChange(t *testing.T) {
	acc, _, _ := newTestAccessory(light.DefaultState())
	if c := acc.bind(SourceHTTP, light.Change(99)); c != nil {
		t.Errorf("bind(99) = %T, want nil", c)
	}
	if c := acc.bind(SourceHTTP, light.ChangeSaturation); c == nil || c.Name() != "saturation" {
		t.Errorf("bind(saturation) = %v", c)
	}
}
