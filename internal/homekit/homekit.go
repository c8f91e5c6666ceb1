// Package homekit publishes the accessory as a HomeKit lightbulb.
package homekit

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/brutella/hap"
	hapaccessory "github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/light"
)

// HAP status codes
const (
	statusSuccess              = 0
	statusCommunicationFailure = -70402
	statusInvalidValue         = -70410
)

// Config contains HAP server settings.
type Config struct {
	Pin         string
	SetupID     string
	Addr        string
	StoragePath string
}

// lightbulb is a lightbulb service with color temperature, hue and saturation.
type lightbulb struct {
	*service.S

	On               *characteristic.On
	Brightness       *characteristic.Brightness
	ColorTemperature *characteristic.ColorTemperature
	Hue              *characteristic.Hue
	Saturation       *characteristic.Saturation
}

func newLightbulb() *lightbulb {
	s := lightbulb{}
	s.S = service.New(service.TypeLightbulb)

	s.On = characteristic.NewOn()
	s.AddC(s.On.C)

	s.Brightness = characteristic.NewBrightness()
	s.AddC(s.Brightness.C)

	s.ColorTemperature = characteristic.NewColorTemperature()
	s.AddC(s.ColorTemperature.C)

	s.Hue = characteristic.NewHue()
	s.AddC(s.Hue.C)

	s.Saturation = characteristic.NewSaturation()
	s.AddC(s.Saturation.C)

	return &s
}

// Bridge connects a HAP lightbulb accessory to an accessory.Accessory.
// Controller reads and writes go straight to the accessory; writes from
// other sources are pushed to controllers from bus events.
type Bridge struct {
	name string
	acc  *accessory.Accessory
	a    *hapaccessory.A
	bulb *lightbulb

	mu      sync.Mutex
	lastSeq uint64
}

// New builds the HAP accessory for acc.
func New(info hapaccessory.Info, acc *accessory.Accessory) *Bridge {
	b := &Bridge{
		name: info.Name,
		acc:  acc,
		a:    hapaccessory.New(info, hapaccessory.TypeLightbulb),
		bulb: newLightbulb(),
	}
	b.a.AddS(b.bulb.S)

	b.bind(b.bulb.On.C, light.ChangePower)
	b.bind(b.bulb.Brightness.C, light.ChangeBrightness)
	b.bind(b.bulb.ColorTemperature.C, light.ChangeColorTemperature)
	b.bind(b.bulb.Hue.C, light.ChangeHue)
	b.bind(b.bulb.Saturation.C, light.ChangeSaturation)

	b.a.IdentifyFunc = func(r *http.Request) {
		acc.Identify(accessory.SourceHomeKit)
	}

	b.sync(acc.State())
	return b
}

// Accessory returns the HAP accessory.
func (b *Bridge) Accessory() *hapaccessory.A {
	return b.a
}

func (b *Bridge) bind(c *characteristic.C, change light.Change) {
	c.ValueRequestFunc = func(r *http.Request) (interface{}, int) {
		return b.acc.Read(change).Interface(), statusSuccess
	}
	c.SetValueRequestFunc = func(raw interface{}, r *http.Request) (interface{}, int) {
		// Local SetValue calls from sync carry no request.
		if r == nil {
			return raw, statusSuccess
		}
		return b.write(change, raw)
	}
}

func (b *Bridge) write(change light.Change, raw interface{}) (interface{}, int) {
	v, err := light.ValueOf(change.Format(), raw)
	if err != nil {
		log.Warn().Err(err).Str("characteristic", change.String()).Msg("HomeKit sent an unsupported value")
		return nil, statusInvalidValue
	}
	if err := b.acc.Write(accessory.SourceHomeKit, change, v); err != nil {
		log.Warn().
			Err(err).
			Str("characteristic", change.String()).
			Interface("value", raw).
			Msg("HomeKit write rejected")
		return nil, statusFor(err)
	}
	return b.acc.Read(change).Interface(), statusSuccess
}

// statusFor maps a write error to a HAP status code.
func statusFor(err error) int {
	switch {
	case err == nil:
		return statusSuccess
	case errors.Is(err, light.ErrFormat), errors.Is(err, light.ErrInvalidRange):
		return statusInvalidValue
	default:
		return statusCommunicationFailure
	}
}

// Subscribe pushes applied writes to paired controllers.
func (b *Bridge) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeWriteApplied, b.handleEvent)
}

func (b *Bridge) handleEvent(e eventbus.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Bus workers may deliver out of order.
	if e.Seq <= b.lastSeq {
		log.Debug().Uint64("seq", e.Seq).Uint64("last_seq", b.lastSeq).Msg("Dropping stale HomeKit update")
		return
	}
	b.lastSeq = e.Seq
	b.sync(e.State)
}

func (b *Bridge) sync(st light.State) {
	b.bulb.On.SetValue(st.Power)
	b.bulb.Brightness.SetValue(st.Brightness)
	b.bulb.ColorTemperature.SetValue(int(st.ColorTemperature))
	b.bulb.Hue.SetValue(st.Hue)
	b.bulb.Saturation.SetValue(st.Saturation)
}

// Run serves the accessory over HAP. It blocks until the context is cancelled.
func (b *Bridge) Run(ctx context.Context, cfg Config) error {
	fs := hap.NewFsStore(cfg.StoragePath)

	server, err := hap.NewServer(fs, b.a)
	if err != nil {
		return err
	}
	server.Pin = cfg.Pin
	server.SetupId = cfg.SetupID
	server.Addr = cfg.Addr

	log.Info().
		Str("name", b.name).
		Str("addr", cfg.Addr).
		Str("storage", cfg.StoragePath).
		Msg("Starting HomeKit server")

	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		return err
	}
	return nil
}
