// Package accessory binds a light store and its reconciler into one accessory
// and serializes every read and write reaching it from the transports.
package accessory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/light"
	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Write sources
const (
	SourceHomeKit = "homekit"
	SourceMQTT    = "mqtt"
	SourceHTTP    = "http"
	SourceToggle  = "toggle"
)

// ErrUnknownCharacteristic is returned for names that are not part of the accessory.
var ErrUnknownCharacteristic = errors.New("unknown characteristic")

// Publisher receives accessory events.
type Publisher interface {
	Publish(event eventbus.Event)
}

// Identifier produces a visible signal on the device, such as a blink.
type Identifier interface {
	Identify()
}

// Accessory owns the light state of one accessory. Writes from any number of
// goroutines are applied one at a time: validate, mutate, emit commands.
type Accessory struct {
	mu         sync.Mutex
	store      *light.Store
	reconciler *reconcile.Reconciler
	publisher  Publisher
	identifier Identifier
	seq        uint64
}

// New creates an accessory. publisher may be nil.
func New(store *light.Store, reconciler *reconcile.Reconciler, publisher Publisher) *Accessory {
	return &Accessory{
		store:      store,
		reconciler: reconciler,
		publisher:  publisher,
	}
}

// SetIdentifier sets the device used to signal identify requests.
func (a *Accessory) SetIdentifier(id Identifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identifier = id
}

// State returns a snapshot of the current light state.
func (a *Accessory) State() light.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Snapshot()
}

// Read returns the tagged value of a characteristic.
func (a *Accessory) Read(c light.Change) light.Value {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Get(c)
}

// Write validates v, applies it and emits the resulting device commands.
// On error the state is unchanged and no command is emitted.
func (a *Accessory) Write(source string, c light.Change, v light.Value) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.write(source, c, v)
}

// Toggle flips power, as a physical switch would.
func (a *Accessory) Toggle(source string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.write(source, light.ChangePower, light.Bool(!a.store.Power()))
}

// Identify signals the accessory without touching its state.
func (a *Accessory) Identify(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	log.Info().Str("source", source).Msg("Accessory identify")

	if a.identifier != nil {
		a.identifier.Identify()
	}
	a.publish(eventbus.Event{
		Type:          eventbus.EventTypeIdentify,
		Source:        source,
		CorrelationID: uuid.NewString(),
		State:         a.store.Snapshot(),
	})
}

func (a *Accessory) write(source string, c light.Change, v light.Value) error {
	id := uuid.NewString()

	change, err := a.store.Set(c, v)
	if err != nil {
		log.Warn().
			Err(err).
			Str("source", source).
			Str("characteristic", c.String()).
			Str("format", v.Format.String()).
			Str("correlation_id", id).
			Msg("Rejected characteristic write")

		a.publish(eventbus.Event{
			Type:           eventbus.EventTypeWriteRejected,
			Source:         source,
			CorrelationID:  id,
			Characteristic: c.String(),
			Value:          v,
			State:          a.store.Snapshot(),
			Err:            err,
		})
		return err
	}

	state := a.store.Snapshot()
	cmds := a.reconciler.Apply(change, state)

	log.Info().
		Str("source", source).
		Str("characteristic", change.String()).
		Str("value", v.String()).
		Bool("power", state.Power).
		Int("brightness", state.Brightness).
		Str("mode", state.Mode.String()).
		Str("correlation_id", id).
		Msg("Applied characteristic write")

	a.publish(eventbus.Event{
		Type:           eventbus.EventTypeWriteApplied,
		Source:         source,
		CorrelationID:  id,
		Characteristic: change.String(),
		Value:          v,
		State:          state,
		Commands:       cmds,
	})
	return nil
}

// publish must be called with mu held so Seq follows application order.
func (a *Accessory) publish(e eventbus.Event) {
	if a.publisher == nil {
		return
	}
	a.seq++
	e.Seq = a.seq
	e.Time = time.Now().UTC()
	a.publisher.Publish(e)
}

// Lookup resolves a characteristic name.
func Lookup(name string) (light.Change, error) {
	for _, c := range allChanges {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCharacteristic, name)
}

var allChanges = []light.Change{
	light.ChangePower,
	light.ChangeBrightness,
	light.ChangeColorTemperature,
	light.ChangeHue,
	light.ChangeSaturation,
}
