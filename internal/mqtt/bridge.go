// Package mqtt mirrors the accessory to an MQTT broker: <prefix>/<name>/set topics
// drive writes, retained <prefix>/<name> topics carry the current state.
package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/light"
	"github.com/dokzlo13/duolight/internal/middleware"
)

const (
	setSuffix     = "set"
	topicIdentify = "identify"
	topicToggle   = "toggle"
	topicMode     = "mode"

	publishTimeout = 5 * time.Second
	quiesce        = 250 // ms
)

// Config contains broker connection settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte

	// PublishInterval coalesces bursts of state updates; 0 publishes every update.
	PublishInterval time.Duration
}

// Bridge connects one accessory to an MQTT broker.
type Bridge struct {
	cfg    Config
	acc    *accessory.Accessory
	client paho.Client
	states middleware.Collector[eventbus.Event]

	mu      sync.Mutex
	lastSeq uint64
}

// New creates a bridge. Nothing connects until Run.
func New(cfg Config, acc *accessory.Accessory) *Bridge {
	b := &Bridge{cfg: cfg, acc: acc}
	b.states = middleware.New(cfg.PublishInterval, b.flushStates)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("Disconnected from MQTT broker")
	})

	b.client = paho.NewClient(opts)
	return b
}

// SetTopic returns the command topic for a characteristic.
func SetTopic(prefix, name string) string {
	return prefix + "/" + name + "/" + setSuffix
}

// StateTopic returns the retained state topic for a characteristic.
func StateTopic(prefix, name string) string {
	return prefix + "/" + name
}

// parseSetTopic extracts the characteristic name from a command topic.
func parseSetTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "/"+setSuffix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// FormatValue renders a value as a text payload that ParseValue accepts.
func FormatValue(v light.Value) string {
	switch v.Format {
	case light.FormatBool:
		return strconv.FormatBool(v.Bool)
	case light.FormatInt:
		return strconv.Itoa(v.Int)
	case light.FormatUInt32:
		return strconv.FormatUint(uint64(v.UInt32), 10)
	default:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	}
}

// statePayloads renders every retained state topic for st.
func statePayloads(prefix string, st light.State) map[string]string {
	return map[string]string{
		StateTopic(prefix, light.ChangePower.String()):            strconv.FormatBool(st.Power),
		StateTopic(prefix, light.ChangeBrightness.String()):       strconv.Itoa(st.Brightness),
		StateTopic(prefix, light.ChangeColorTemperature.String()): strconv.FormatUint(uint64(st.ColorTemperature), 10),
		StateTopic(prefix, light.ChangeHue.String()):              strconv.FormatFloat(st.Hue, 'f', -1, 64),
		StateTopic(prefix, light.ChangeSaturation.String()):       strconv.FormatFloat(st.Saturation, 'f', -1, 64),
		StateTopic(prefix, topicMode):                             st.Mode.String(),
	}
}

// Run connects to the broker and blocks until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	log.Info().Str("broker", b.cfg.Broker).Str("prefix", b.cfg.TopicPrefix).Msg("Connecting to MQTT broker")

	// With ConnectRetry the token completes only once connected, or on ctx cancellation below.
	token := b.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
	case <-ctx.Done():
	}

	<-ctx.Done()
	b.states.Close()
	b.client.Disconnect(quiesce)
	log.Info().Msg("MQTT bridge stopped")
	return nil
}

// onConnect runs on every (re)connect: subscriptions do not survive a clean session.
func (b *Bridge) onConnect(c paho.Client) {
	log.Info().Str("broker", b.cfg.Broker).Msg("Connected to MQTT broker")

	filter := b.cfg.TopicPrefix + "/+/" + setSuffix
	token := c.Subscribe(filter, b.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		b.handleMessage(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", filter).Msg("Failed to subscribe")
		return
	}

	b.publishState(b.acc.State())
}

// handleMessage applies one command message to the accessory.
func (b *Bridge) handleMessage(topic string, payload []byte) {
	name, ok := parseSetTopic(b.cfg.TopicPrefix, topic)
	if !ok {
		log.Debug().Str("topic", topic).Msg("Ignoring MQTT message on unknown topic")
		return
	}

	switch name {
	case topicIdentify:
		b.acc.Identify(accessory.SourceMQTT)
		return
	case topicToggle:
		if err := b.acc.Toggle(accessory.SourceMQTT); err != nil {
			log.Warn().Err(err).Msg("MQTT toggle failed")
		}
		return
	}

	change, err := accessory.Lookup(name)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("MQTT write to unknown characteristic")
		return
	}

	v, err := light.ParseValue(change.Format(), string(payload))
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Invalid MQTT payload")
		return
	}

	// Rejections are logged by the accessory.
	_ = b.acc.Write(accessory.SourceMQTT, change, v)
}

// Subscribe mirrors applied writes to the retained state topics.
func (b *Bridge) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeWriteApplied, b.handleEvent)
}

func (b *Bridge) handleEvent(e eventbus.Event) {
	b.states.Add(e)
}

// flushStates publishes the newest snapshot of a batch.
func (b *Bridge) flushStates(events []eventbus.Event) {
	latest := events[0]
	for _, e := range events[1:] {
		if e.Seq > latest.Seq {
			latest = e
		}
	}
	if !b.advance(latest.Seq) {
		log.Debug().Uint64("seq", latest.Seq).Msg("Dropping stale MQTT state update")
		return
	}
	b.publishState(latest.State)
}

// advance records seq and reports whether it is newer than anything seen.
func (b *Bridge) advance(seq uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq <= b.lastSeq {
		return false
	}
	b.lastSeq = seq
	return true
}

func (b *Bridge) publishState(st light.State) {
	if !b.client.IsConnectionOpen() {
		log.Debug().Msg("MQTT not connected, skipping state publish")
		return
	}

	for topic, payload := range statePayloads(b.cfg.TopicPrefix, st) {
		token := b.client.Publish(topic, b.cfg.QoS, true, payload)
		if !token.WaitTimeout(publishTimeout) {
			log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
			continue
		}
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}
}
