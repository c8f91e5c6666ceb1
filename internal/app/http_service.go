package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/config"
	"github.com/dokzlo13/duolight/internal/httpapi"
)

// HTTPService wraps the HTTP API server.
type HTTPService struct {
	cfg    *config.Config
	server *httpapi.Server
}

// NewHTTPService creates a new HTTPService.
func NewHTTPService(cfg *config.Config, acc *accessory.Accessory) *HTTPService {
	return &HTTPService{
		cfg:    cfg,
		server: httpapi.NewServer(cfg.HTTP.GetHost(), cfg.HTTP.GetPort(), acc),
	}
}

// Start begins the HTTP server if enabled. wg is done once the server has shut down.
func (s *HTTPService) Start(ctx context.Context, wg *sync.WaitGroup) {
	if !s.cfg.HTTP.Enabled {
		log.Debug().Msg("HTTP API server disabled")
		return
	}

	s.server.SetReady(true)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.server.Run(ctx, s.cfg.GetShutdownTimeout()); err != nil {
			log.Error().Err(err).Msg("HTTP API server error")
		}
	}()
}
