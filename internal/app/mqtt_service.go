package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/config"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/mqtt"
)

// MQTTService wraps the MQTT bridge.
type MQTTService struct {
	cfg    *config.Config
	Bridge *mqtt.Bridge
}

// NewMQTTService creates a new MQTTService. Returns nil bridge when disabled.
func NewMQTTService(cfg *config.Config, acc *accessory.Accessory, bus *eventbus.Bus) *MQTTService {
	s := &MQTTService{cfg: cfg}
	if !cfg.MQTT.Enabled {
		return s
	}

	s.Bridge = mqtt.New(mqtt.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		QoS:         cfg.MQTT.QoS,

		PublishInterval: cfg.MQTT.Coalesce.Duration(),
	}, acc)
	s.Bridge.Subscribe(bus)
	return s
}

// Start connects to the broker if enabled. wg is done once the client has disconnected.
func (s *MQTTService) Start(ctx context.Context, wg *sync.WaitGroup) {
	if s.Bridge == nil {
		log.Debug().Msg("MQTT bridge disabled")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Bridge.Run(ctx); err != nil {
			log.Error().Err(err).Msg("MQTT bridge error")
		}
	}()
}
