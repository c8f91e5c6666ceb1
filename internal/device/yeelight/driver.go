package yeelight

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Limits accepted by the bulbs.
const (
	minKelvin = 1700
	maxKelvin = 6500

	minSmoothDuration = 30 * time.Millisecond
	defaultTimeout    = 5 * time.Second
)

// Config selects the two bulbs and the transition used for every command.
type Config struct {
	White    string
	Color    string
	Smooth   bool
	Duration time.Duration
	Timeout  time.Duration
}

// Driver drives the white and color bulbs.
type Driver struct {
	white    *Bulb
	color    *Bulb
	effect   string
	duration int
}

// New creates a driver. No connection is made until the first command.
func New(cfg Config) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	effect := "sudden"
	duration := 0
	if cfg.Smooth {
		effect = "smooth"
		d := cfg.Duration
		if d < minSmoothDuration {
			d = minSmoothDuration
		}
		duration = int(d / time.Millisecond)
	}

	return &Driver{
		white:    NewBulb(cfg.White, cfg.Timeout),
		color:    NewBulb(cfg.Color, cfg.Timeout),
		effect:   effect,
		duration: duration,
	}
}

func (d *Driver) Name() string { return "yeelight" }

func (d *Driver) bulb(ch reconcile.Channel) *Bulb {
	if ch == reconcile.ChannelColor {
		return d.color
	}
	return d.white
}

func (d *Driver) Power(ctx context.Context, ch reconcile.Channel, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	return d.bulb(ch).Call(ctx, "set_power", state, d.effect, d.duration)
}

// Brightness sets the level. Bulbs reject 0, which is always followed by a
// power-off command, so it is skipped.
func (d *Driver) Brightness(ctx context.Context, ch reconcile.Channel, level int) error {
	if level < 1 {
		log.Debug().Str("channel", ch.String()).Msg("Skipping zero brightness, power command follows")
		return nil
	}
	return d.bulb(ch).Call(ctx, "set_bright", clamp(level, 1, 100), d.effect, d.duration)
}

func (d *Driver) ColorTemperature(ctx context.Context, ch reconcile.Channel, kelvin int) error {
	return d.bulb(ch).Call(ctx, "set_ct_abx", clamp(kelvin, minKelvin, maxKelvin), d.effect, d.duration)
}

func (d *Driver) HueSaturation(ctx context.Context, hue, saturation int) error {
	return d.color.Call(ctx, "set_hsv", clamp(hue, 0, 359), clamp(saturation, 0, 100), d.effect, d.duration)
}

// Identify blinks both bulbs with a short color flow and restores their state.
func (d *Driver) Identify(ctx context.Context) error {
	const flow = "250,2,4000,100,250,2,4000,1"
	if err := d.white.Call(ctx, "start_cf", 6, 0, flow); err != nil {
		return err
	}
	return d.color.Call(ctx, "start_cf", 6, 0, flow)
}

func (d *Driver) Close() error {
	werr := d.white.Close()
	cerr := d.color.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
