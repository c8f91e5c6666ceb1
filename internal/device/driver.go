// Package device delivers reconciler commands to the physical light.
package device

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Driver talks to the light hardware. Each call is one device command.
type Driver interface {
	Name() string
	Power(ctx context.Context, ch reconcile.Channel, on bool) error
	Brightness(ctx context.Context, ch reconcile.Channel, level int) error
	ColorTemperature(ctx context.Context, ch reconcile.Channel, kelvin int) error
	HueSaturation(ctx context.Context, hue, saturation int) error
	Close() error
}

// Identifier is implemented by drivers that can make the light blink.
type Identifier interface {
	Identify(ctx context.Context) error
}

// Execute sends one command to the driver.
func Execute(ctx context.Context, d Driver, cmd reconcile.Command) error {
	switch cmd.Kind {
	case reconcile.KindPower:
		return d.Power(ctx, cmd.Channel, cmd.On)
	case reconcile.KindBrightness:
		return d.Brightness(ctx, cmd.Channel, cmd.Level)
	case reconcile.KindColorTemperature:
		return d.ColorTemperature(ctx, cmd.Channel, cmd.Kelvin)
	case reconcile.KindHueSaturation:
		return d.HueSaturation(ctx, cmd.Hue, cmd.Saturation)
	default:
		return fmt.Errorf("unsupported command kind %d", cmd.Kind)
	}
}

// LogDriver only logs commands. Used for dry runs.
type LogDriver struct{}

// NewLogDriver creates a dry-run driver.
func NewLogDriver() *LogDriver {
	return &LogDriver{}
}

func (LogDriver) Name() string { return "log" }

func (LogDriver) Power(ctx context.Context, ch reconcile.Channel, on bool) error {
	log.Info().Str("channel", ch.String()).Bool("on", on).Msg("Device power")
	return nil
}

func (LogDriver) Brightness(ctx context.Context, ch reconcile.Channel, level int) error {
	log.Info().Str("channel", ch.String()).Int("level", level).Msg("Device brightness")
	return nil
}

func (LogDriver) ColorTemperature(ctx context.Context, ch reconcile.Channel, kelvin int) error {
	log.Info().Str("channel", ch.String()).Int("kelvin", kelvin).Msg("Device color temperature")
	return nil
}

func (LogDriver) HueSaturation(ctx context.Context, hue, saturation int) error {
	log.Info().Int("hue", hue).Int("saturation", saturation).Msg("Device hue/saturation")
	return nil
}

func (LogDriver) Identify(ctx context.Context) error {
	log.Info().Msg("Device identify")
	return nil
}

func (LogDriver) Close() error { return nil }
