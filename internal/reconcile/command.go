package reconcile

import "fmt"

// Channel is one of the two device command targets.
type Channel int

const (
	ChannelWhite Channel = iota
	ChannelColor
)

// String returns a human-readable name for the channel.
func (c Channel) String() string {
	switch c {
	case ChannelWhite:
		return "white"
	case ChannelColor:
		return "color"
	default:
		return "unknown"
	}
}

// IsColor reports whether the channel is the color channel.
func (c Channel) IsColor() bool {
	return c == ChannelColor
}

// channelOf maps the colorChannel flag of the device interface to a Channel.
func channelOf(colorChannel bool) Channel {
	if colorChannel {
		return ChannelColor
	}
	return ChannelWhite
}

// Kind identifies a device command.
type Kind int

const (
	KindPower Kind = iota
	KindBrightness
	KindColorTemperature
	KindHueSaturation
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPower:
		return "power"
	case KindBrightness:
		return "brightness"
	case KindColorTemperature:
		return "color_temperature"
	case KindHueSaturation:
		return "hue_saturation"
	default:
		return "unknown"
	}
}

// Command is a single device command. Channel is ignored for KindHueSaturation.
type Command struct {
	Kind       Kind    `json:"kind"`
	Channel    Channel `json:"channel"`
	On         bool    `json:"on,omitempty"`
	Level      int     `json:"level,omitempty"`
	Kelvin     int     `json:"kelvin,omitempty"`
	Hue        int     `json:"hue,omitempty"`
	Saturation int     `json:"saturation,omitempty"`
}

// Power builds a power command.
func Power(ch Channel, on bool) Command {
	return Command{Kind: KindPower, Channel: ch, On: on}
}

// Brightness builds a brightness command.
func Brightness(ch Channel, level int) Command {
	return Command{Kind: KindBrightness, Channel: ch, Level: level}
}

// ColorTemperature builds a color temperature command. The value is 1_000_000/mired.
func ColorTemperature(ch Channel, kelvin int) Command {
	return Command{Kind: KindColorTemperature, Channel: ch, Kelvin: kelvin}
}

// HueSaturation builds the combined hue/saturation command.
func HueSaturation(hue, saturation int) Command {
	return Command{Kind: KindHueSaturation, Channel: ChannelColor, Hue: hue, Saturation: saturation}
}

// Send emits the command to a Commander.
func (c Command) Send(cmd Commander) {
	switch c.Kind {
	case KindPower:
		cmd.SetPower(c.On, c.Channel.IsColor())
	case KindBrightness:
		cmd.SetBrightness(c.Level, c.Channel.IsColor())
	case KindColorTemperature:
		cmd.SetColorTemperature(c.Kelvin, c.Channel.IsColor())
	case KindHueSaturation:
		cmd.SetHueSaturation(c.Hue, c.Saturation)
	}
}

func (c Command) String() string {
	switch c.Kind {
	case KindPower:
		return fmt.Sprintf("Power(%s,%t)", c.Channel, c.On)
	case KindBrightness:
		return fmt.Sprintf("Brightness(%s,%d)", c.Channel, c.Level)
	case KindColorTemperature:
		return fmt.Sprintf("ColorTemp(%s,%d)", c.Channel, c.Kelvin)
	case KindHueSaturation:
		return fmt.Sprintf("HueSaturation(%d,%d)", c.Hue, c.Saturation)
	default:
		return "Unknown()"
	}
}

// Strings formats a plan for logging.
func Strings(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

// Recorder is a Commander that keeps every command it receives, in order.
type Recorder struct {
	Commands []Command
}

func (r *Recorder) SetPower(on bool, colorChannel bool) {
	r.Commands = append(r.Commands, Power(channelOf(colorChannel), on))
}

func (r *Recorder) SetBrightness(level int, colorChannel bool) {
	r.Commands = append(r.Commands, Brightness(channelOf(colorChannel), level))
}

func (r *Recorder) SetColorTemperature(value int, colorChannel bool) {
	r.Commands = append(r.Commands, ColorTemperature(channelOf(colorChannel), value))
}

func (r *Recorder) SetHueSaturation(hue, saturation int) {
	r.Commands = append(r.Commands, HueSaturation(hue, saturation))
}

// Reset drops recorded commands.
func (r *Recorder) Reset() {
	r.Commands = nil
}
