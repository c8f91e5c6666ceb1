package app

import (
	"context"
	"fmt"

	"github.com/dokzlo13/duolight/internal/config"
	"github.com/dokzlo13/duolight/internal/device"
	"github.com/dokzlo13/duolight/internal/device/hue"
	"github.com/dokzlo13/duolight/internal/device/yeelight"
)

// DeviceService owns the device driver and the command dispatcher in front of it.
type DeviceService struct {
	cfg        *config.Config
	Driver     device.Driver
	Dispatcher *device.Dispatcher
}

// NewDeviceService puts the dispatcher in front of driver. Nothing touches the network yet.
func NewDeviceService(cfg *config.Config, driver device.Driver) *DeviceService {
	dispatcher := device.NewDispatcher(
		driver,
		cfg.Device.QueueSize,
		cfg.Device.RateLimitRPS,
		cfg.Device.Timeout.Duration(),
	)

	return &DeviceService{
		cfg:        cfg,
		Driver:     driver,
		Dispatcher: dispatcher,
	}
}

// newDriver creates the configured driver.
func newDriver(cfg *config.DeviceConfig) (device.Driver, error) {
	switch cfg.Driver {
	case "yeelight":
		return yeelight.New(yeelight.Config{
			White:    cfg.Yeelight.White,
			Color:    cfg.Yeelight.Color,
			Smooth:   cfg.Yeelight.Smooth,
			Duration: cfg.Yeelight.Duration.Duration(),
			Timeout:  cfg.Timeout.Duration(),
		}), nil
	case "hue":
		return hue.New(cfg.Hue.Bridge, cfg.Hue.Token, cfg.Hue.WhiteLight, cfg.Hue.ColorLight), nil
	case "log", "":
		return device.NewLogDriver(), nil
	default:
		return nil, fmt.Errorf("unknown device driver %q", cfg.Driver)
	}
}

// Start runs the dispatcher worker.
func (s *DeviceService) Start(ctx context.Context) {
	s.Dispatcher.Start(ctx)
}

// Close drains queued plans until ctx expires, then closes the driver.
func (s *DeviceService) Close(ctx context.Context) error {
	return s.Dispatcher.Close(ctx)
}
