package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/config"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/ledger"
)

// LedgerService records accessory events and applies the retention policy.
type LedgerService struct {
	cfg    *config.Config
	Ledger *ledger.Ledger
}

// NewLedgerService creates a new LedgerService and subscribes it to bus.
func NewLedgerService(cfg *config.Config, l *ledger.Ledger, bus *eventbus.Bus) *LedgerService {
	l.Subscribe(bus)
	return &LedgerService{
		cfg:    cfg,
		Ledger: l,
	}
}

// Start runs the periodic cleanup.
func (s *LedgerService) Start(ctx context.Context) {
	interval := s.cfg.Ledger.CleanupInterval.Duration()
	retention := s.cfg.Ledger.Retention()

	// Trim once at startup so a long downtime does not wait a full interval.
	if n, err := s.Ledger.DeleteOlderThan(retention); err != nil {
		log.Error().Err(err).Msg("Ledger cleanup failed")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("Ledger cleanup")
	}

	go s.Ledger.RunCleanup(ctx, interval, retention)
}
