// Package hue drives two Philips Hue lights, one per channel, through a Hue bridge.
package hue

import (
	"context"
	"fmt"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Hue API ranges
const (
	minBri   = 1
	maxBri   = 254
	maxSat   = 254
	maxHue   = 65535
	minMired = 153
	maxMired = 500
)

// Driver implements device.Driver on a Hue bridge.
type Driver struct {
	bridge *huego.Bridge
	white  int
	color  int
}

// New creates a driver for the given bridge address and API user.
func New(address, token string, whiteLight, colorLight int) *Driver {
	return &Driver{
		bridge: huego.New(address, token),
		white:  whiteLight,
		color:  colorLight,
	}
}

func (d *Driver) Name() string { return "hue" }

func (d *Driver) id(ch reconcile.Channel) int {
	if ch == reconcile.ChannelColor {
		return d.color
	}
	return d.white
}

// set sends one state update. The bridge request is bound to ctx.
func (d *Driver) set(ctx context.Context, ch reconcile.Channel, st huego.State) error {
	id := d.id(ch)
	if _, err := d.bridge.SetLightStateContext(ctx, id, st); err != nil {
		return fmt.Errorf("hue: set %s light %d: %w", ch, id, err)
	}
	return nil
}

func (d *Driver) Power(ctx context.Context, ch reconcile.Channel, on bool) error {
	return d.set(ctx, ch, huego.State{On: on})
}

// Brightness skips level 0: Hue has no zero brightness and a power-off follows.
func (d *Driver) Brightness(ctx context.Context, ch reconcile.Channel, level int) error {
	if level < 1 {
		log.Debug().Str("channel", ch.String()).Msg("Skipping zero brightness, power command follows")
		return nil
	}
	return d.set(ctx, ch, huego.State{On: true, Bri: bri(level)})
}

func (d *Driver) ColorTemperature(ctx context.Context, ch reconcile.Channel, kelvin int) error {
	return d.set(ctx, ch, huego.State{On: true, Ct: mired(kelvin)})
}

func (d *Driver) HueSaturation(ctx context.Context, hue, saturation int) error {
	return d.set(ctx, reconcile.ChannelColor, huego.State{
		On:  true,
		Hue: hueValue(hue),
		Sat: sat(saturation),
	})
}

// Identify runs the bridge "select" alert (one breathe cycle) on both lights.
// The bridge API always carries "on", so the alert also switches the light on.
func (d *Driver) Identify(ctx context.Context) error {
	for _, ch := range []reconcile.Channel{reconcile.ChannelWhite, reconcile.ChannelColor} {
		if err := d.set(ctx, ch, huego.State{On: true, Alert: "select"}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) Close() error { return nil }

// bri maps a 1-100 percentage to the Hue 1-254 range.
func bri(level int) uint8 {
	v := (level*maxBri + 50) / 100
	if v < minBri {
		v = minBri
	}
	if v > maxBri {
		v = maxBri
	}
	return uint8(v)
}

// mired converts the device color temperature back to mirek within Hue limits.
func mired(kelvin int) uint16 {
	if kelvin <= 0 {
		return maxMired
	}
	m := 1_000_000 / kelvin
	if m < minMired {
		m = minMired
	}
	if m > maxMired {
		m = maxMired
	}
	return uint16(m)
}

func hueValue(degrees int) uint16 {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	return uint16(degrees * maxHue / 360)
}

func sat(percent int) uint8 {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return uint8(percent * maxSat / 100)
}
