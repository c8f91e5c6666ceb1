package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/config"
	"github.com/dokzlo13/duolight/internal/db"
	"github.com/dokzlo13/duolight/internal/device"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/ledger"
	"github.com/dokzlo13/duolight/internal/light"
	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB  *db.DB
	Bus *eventbus.Bus

	// Light core
	Device     *DeviceService
	Reconciler *reconcile.Reconciler
	Accessory  *accessory.Accessory

	// Observers and transports
	Ledger  *LedgerService
	HomeKit *HomeKitService
	MQTT    *MQTTService
	HTTP    *HTTPService

	transports sync.WaitGroup
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	driver, err := newDriver(&cfg.Device)
	if err != nil {
		return nil, err
	}
	return newServices(cfg, driver)
}

func newServices(cfg *config.Config, driver device.Driver) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		driver.Close()
		return nil, err
	}
	s.DB = database

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Device driver behind the plan dispatcher
	s.Device = NewDeviceService(cfg, driver)

	// Light core: store -> reconciler -> dispatcher
	s.Reconciler = reconcile.New(s.Device.Dispatcher)
	s.Accessory = accessory.New(light.NewStore(), s.Reconciler, s.Bus)
	s.Accessory.SetIdentifier(s.Device.Dispatcher)

	// Observers subscribe before any transport can write
	s.Ledger = NewLedgerService(cfg, ledger.New(database.DB), s.Bus)
	s.HomeKit = NewHomeKitService(cfg, s.Accessory, s.Bus)
	s.MQTT = NewMQTTService(cfg, s.Accessory, s.Bus)
	s.HTTP = NewHTTPService(cfg, s.Accessory)

	return s, nil
}

// Start starts all services. The device worker gets a context detached from
// ctx so that cancelling ctx stops the transports without dropping queued
// plans; Shutdown drains it. onFatalError is called when a transport cannot run.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Device first so the initial commands are not dropped
	s.Device.Start(context.WithoutCancel(ctx))
	s.Ledger.Start(ctx)

	s.HomeKit.Start(ctx, &s.transports, onFatalError)
	s.MQTT.Start(ctx, &s.transports)
	s.HTTP.Start(ctx, &s.transports)

	st := s.Accessory.State()
	log.Info().
		Bool("power", st.Power).
		Int("brightness", st.Brightness).
		Str("mode", st.Mode.String()).
		Msg("Accessory ready")

	return nil
}

// Shutdown stops the services in dependency order. The transport context
// must already be cancelled. Every phase shares the ctx deadline.
func (s *Services) Shutdown(ctx context.Context) error {
	transportsDone := make(chan struct{})
	go func() {
		s.transports.Wait()
		close(transportsDone)
	}()
	select {
	case <-transportsDone:
		log.Debug().Msg("Transports stopped")
	case <-ctx.Done():
		log.Warn().Msg("Transports still running at shutdown deadline")
	}

	var errs []error
	if err := s.Device.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("device: %w", err))
	}

	s.Bus.Close(ctx)

	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
