package app

import (
	"context"
	"sync"

	hapaccessory "github.com/brutella/hap/accessory"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/config"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/homekit"
)

// HomeKitService wraps the HAP server.
type HomeKitService struct {
	cfg    *config.Config
	Bridge *homekit.Bridge
}

// NewHomeKitService creates a new HomeKitService.
func NewHomeKitService(cfg *config.Config, acc *accessory.Accessory, bus *eventbus.Bus) *HomeKitService {
	info := hapaccessory.Info{
		Name:         cfg.Accessory.Name,
		SerialNumber: cfg.Accessory.SerialNumber,
		Manufacturer: cfg.Accessory.Manufacturer,
		Model:        cfg.Accessory.Model,
		Firmware:     cfg.Accessory.Firmware,
	}
	bridge := homekit.New(info, acc)
	bridge.Subscribe(bus)

	return &HomeKitService{
		cfg:    cfg,
		Bridge: bridge,
	}
}

// Start begins the HAP server if enabled.
// The onFatalError callback is called when the server cannot run.
func (s *HomeKitService) Start(ctx context.Context, wg *sync.WaitGroup, onFatalError func(error)) {
	if !s.cfg.HomeKit.Enabled {
		log.Debug().Msg("HomeKit server disabled")
		return
	}

	hc := homekit.Config{
		Pin:         s.cfg.HomeKit.Pin,
		SetupID:     s.cfg.HomeKit.SetupID,
		Addr:        s.cfg.HomeKit.Addr,
		StoragePath: s.cfg.HomeKit.StoragePath,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Bridge.Run(ctx, hc); err != nil {
			log.Error().Err(err).Msg("HomeKit server error")
			if onFatalError != nil {
				onFatalError(err)
			}
		}
	}()
}
