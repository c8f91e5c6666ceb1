// Package app wires the light accessory to its device and transports and owns
// the daemon lifecycle.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/config"
)

// App runs one accessory. Transports live under a context that Stop cancels
// first; the device worker is detached from it so it can drain after the
// transports are gone.
type App struct {
	cfg      *config.Config
	services *Services

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

// New builds every service. Nothing is started and no socket is opened.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Start brings the accessory online. Cancelling ctx, or a fatal transport
// error, ends Wait; the caller then calls Stop.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	fatal := func(err error) {
		log.Error().Err(err).Msg("Transport failed, shutting down")
		a.cancel()
	}

	if err := a.services.Start(a.ctx, fatal); err != nil {
		a.cancel()
		return err
	}

	log.Info().Str("accessory", a.cfg.Accessory.Name).Msg("duolight started")
	return nil
}

// Stop shuts down in dependency order under a single deadline:
//  1. transports stop accepting writes
//  2. the device queue drains, so the light ends in the last applied state
//  3. the event bus flushes pending events to the ledger
//  4. the database closes
//
// Stop is safe to call more than once.
func (a *App) Stop() error {
	a.stopOnce.Do(func() {
		log.Info().Dur("timeout", a.cfg.GetShutdownTimeout()).Msg("Shutting down")

		if a.cancel != nil {
			a.cancel()
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.GetShutdownTimeout())
		defer cancel()
		a.stopErr = a.services.Shutdown(ctx)

		log.Info().Msg("duolight stopped")
	})
	return a.stopErr
}

// Wait blocks until the application context ends.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// Accessory returns the accessory served by the application.
func (a *App) Accessory() *accessory.Accessory {
	return a.services.Accessory
}

// SignalContext is cancelled on the first SIGINT or SIGTERM. A second signal
// exits at once, skipping the drain.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		sig = <-signals
		log.Warn().Str("signal", sig.String()).Msg("Second signal, exiting without drain")
		os.Exit(1)
	}()

	return ctx
}
