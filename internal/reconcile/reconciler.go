// Package reconcile translates accessory state changes into ordered device
// commands for the white and color channels of a light.
package reconcile

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/duolight/internal/light"
)

// Commander is the device command interface. Calls are fire-and-forget.
type Commander interface {
	SetPower(on bool, colorChannel bool)
	SetBrightness(level int, colorChannel bool)
	SetColorTemperature(value int, colorChannel bool)
	SetHueSaturation(hue, saturation int)
}

// PlanSender is implemented by commanders that take a whole plan at once.
// A plan handed to SendPlan is delivered or dropped as a unit, so the
// inactive channel is never left half-updated.
type PlanSender interface {
	SendPlan(cmds []Command)
}

// Reconciler emits the command plan for each state change to a Commander.
type Reconciler struct {
	commander Commander
}

// New creates a Reconciler emitting to commander.
func New(commander Commander) *Reconciler {
	return &Reconciler{commander: commander}
}

// Apply plans the commands for change against state (the state after the
// mutation) and sends them in order. Returns the emitted plan.
// Commanders implementing PlanSender receive the plan in one call.
func (r *Reconciler) Apply(change light.Change, state light.State) []Command {
	plan := Plan(change, state)

	log.Debug().
		Str("change", change.String()).
		Str("mode", state.Mode.String()).
		Strs("commands", Strings(plan)).
		Msg("Emitting device commands")

	if ps, ok := r.commander.(PlanSender); ok {
		ps.SendPlan(plan)
		return plan
	}
	for _, cmd := range plan {
		cmd.Send(r.commander)
	}
	return plan
}

// Plan computes the ordered device commands for a state change.
// This is the core mode-exclusivity policy: the inactive channel is always
// driven off, never left stale.
func Plan(change light.Change, state light.State) []Command {
	switch change {
	case light.ChangePower:
		return planPower(state)
	case light.ChangeBrightness:
		return planBrightness(state)
	case light.ChangeColorTemperature:
		return planColorTemperature(state)
	case light.ChangeHue, light.ChangeSaturation:
		return planHueSaturation(state)
	}
	return nil
}

func planPower(state light.State) []Command {
	white := state.WhiteActive()
	return []Command{
		Power(ChannelWhite, state.Power && white),
		Power(ChannelColor, state.Power && !white),
	}
}

// planBrightness always hands the color channel the literal brightness.
func planBrightness(state light.State) []Command {
	white := state.WhiteActive()
	b := state.Brightness

	whiteLevel := 0
	if white {
		whiteLevel = b
	}

	return []Command{
		Brightness(ChannelWhite, whiteLevel),
		Brightness(ChannelColor, b),
		Power(ChannelWhite, white && b > 0),
		Power(ChannelColor, b > 0),
	}
}

// planColorTemperature powers both channels regardless of mode.
func planColorTemperature(state light.State) []Command {
	ct := state.ColorTemperatureKelvin()
	return []Command{
		ColorTemperature(ChannelWhite, ct),
		ColorTemperature(ChannelColor, ct),
		Power(ChannelWhite, true),
		Power(ChannelColor, true),
	}
}

func planHueSaturation(state light.State) []Command {
	return []Command{
		HueSaturation(int(state.Hue), int(state.Saturation)),
		Power(ChannelWhite, false),
		Power(ChannelColor, true),
	}
}
