package mqtt

import (
	"testing"

	"github.com/dokzlo13/duolight/internal/accessory"
	"github.com/dokzlo13/duolight/internal/eventbus"
	"github.com/dokzlo13/duolight/internal/light"
	"github.com/dokzlo13/duolight/internal/reconcile"
)

func newTestBridge() (*Bridge, *accessory.Accessory, *reconcile.Recorder) {
	rec := &reconcile.Recorder{}
	acc := accessory.New(light.NewStore(), reconcile.New(rec), nil)
	b := New(Config{Broker: "tcp://127.0.0.1:1883", ClientID: "test", TopicPrefix: "home/light"}, acc)
	return b, acc, rec
}

func TestParseSetTopic(t *testing.T) {
	tests := []struct {
		topic    string
		wantName string
		wantOK   bool
	}{
		{"home/light/power/set", "power", true},
		{"home/light/color_temperature/set", "color_temperature", true},
		{"home/light/identify/set", "identify", true},
		{"home/light/power", "", false},
		{"home/light//set", "", false},
		{"home/light/a/b/set", "", false},
		{"other/power/set", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			name, ok := parseSetTopic("home/light", tt.topic)
			if name != tt.wantName || ok != tt.wantOK {
				t.Errorf("parseSetTopic(%q) = (%q, %v), want (%q, %v)", tt.topic, name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestFormatValueRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value light.Value
		want  string
	}{
		{"bool", light.Bool(true), "true"},
		{"int", light.Int(42), "42"},
		{"uint32", light.UInt32(154), "154"},
		{"float", light.Float(120.5), "120.5"},
		{"integral float", light.Float(80), "80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatValue(tt.value)
			if got != tt.want {
				t.Fatalf("FormatValue() = %q, want %q", got, tt.want)
			}
			back, err := light.ParseValue(tt.value.Format, got)
			if err != nil {
				t.Fatalf("ParseValue(%q) error = %v", got, err)
			}
			if back != tt.value {
				t.Errorf("ParseValue(%q) = %+v, want %+v", got, back, tt.value)
			}
		})
	}
}

func TestStatePayloads(t *testing.T) {
	st := light.State{Power: true, Brightness: 80, ColorTemperature: 200, Hue: 120, Saturation: 50.5, Mode: light.ModeColor}

	got := statePayloads("home/light", st)
	want := map[string]string{
		"home/light/power":             "true",
		"home/light/brightness":        "80",
		"home/light/color_temperature": "200",
		"home/light/hue":               "120",
		"home/light/saturation":        "50.5",
		"home/light/mode":              "color",
	}

	if len(got) != len(want) {
		t.Fatalf("got %d topics, want %d", len(got), len(want))
	}
	for topic, payload := range want {
		if got[topic] != payload {
			t.Errorf("%s = %q, want %q", topic, got[topic], payload)
		}
	}
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		payload  string
		wantCmds int
		check    func(t *testing.T, st light.State)
	}{
		{
			name: "power on", topic: "home/light/power/set", payload: "on", wantCmds: 2,
			check: func(t *testing.T, st light.State) {
				if !st.Power {
					t.Error("power = false")
				}
			},
		},
		{
			name: "brightness", topic: "home/light/brightness/set", payload: "35", wantCmds: 4,
			check: func(t *testing.T, st light.State) {
				if st.Brightness != 35 || !st.Power {
					t.Errorf("state = %+v", st)
				}
			},
		},
		{
			name: "hue", topic: "home/light/hue/set", payload: "240", wantCmds: 3,
			check: func(t *testing.T, st light.State) {
				if st.Hue != 240 || st.Mode != light.ModeColor {
					t.Errorf("state = %+v", st)
				}
			},
		},
		{
			name: "toggle", topic: "home/light/toggle/set", payload: "", wantCmds: 2,
			check: func(t *testing.T, st light.State) {
				if !st.Power {
					t.Error("power = false after toggle")
				}
			},
		},
		{name: "brightness as float rejected", topic: "home/light/brightness/set", payload: "35.5"},
		{name: "power as number rejected", topic: "home/light/power/set", payload: "1"},
		{name: "zero color temperature rejected", topic: "home/light/color_temperature/set", payload: "0"},
		{name: "garbage payload", topic: "home/light/hue/set", payload: "blue"},
		{name: "hue NaN rejected", topic: "home/light/hue/set", payload: "NaN"},
		{name: "hue Inf rejected", topic: "home/light/hue/set", payload: "Inf"},
		{name: "saturation NaN rejected", topic: "home/light/saturation/set", payload: "nan"},
		{name: "saturation -Inf rejected", topic: "home/light/saturation/set", payload: "-Inf"},
		{name: "unknown characteristic", topic: "home/light/occupancy/set", payload: "true"},
		{name: "identify", topic: "home/light/identify/set", payload: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, acc, rec := newTestBridge()
			before := acc.State()

			b.handleMessage(tt.topic, []byte(tt.payload))

			if len(rec.Commands) != tt.wantCmds {
				t.Errorf("commands = %v, want %d", reconcile.Strings(rec.Commands), tt.wantCmds)
			}
			if tt.check != nil {
				tt.check(t, acc.State())
			} else if acc.State() != before {
				t.Errorf("state changed: %+v", acc.State())
			}
		})
	}
}

func TestHandleEventDropsStale(t *testing.T) {
	b, _, _ := newTestBridge()

	b.handleEvent(eventbus.Event{Type: eventbus.EventTypeWriteApplied, Seq: 3})
	if b.advance(2) {
		t.Error("advance(2) after seq 3 = true, want false")
	}
	if b.advance(3) {
		t.Error("advance(3) after seq 3 = true, want false")
	}
	if !b.advance(4) {
		t.Error("advance(4) = false, want true")
	}
}

func TestFlushStatesKeepsNewest(t *testing.T) {
	b, _, _ := newTestBridge()

	b.flushStates([]eventbus.Event{{Seq: 5}, {Seq: 7}, {Seq: 6}})

	if b.advance(7) {
		t.Error("advance(7) after batch = true, want false")
	}
	if !b.advance(8) {
		t.Error("advance(8) = false, want true")
	}
}

func TestTopics(t *testing.T) {
	if got := SetTopic("duolight", "hue"); got != "duolight/hue/set" {
		t.Errorf("SetTopic() = %q", got)
	}
	if got := StateTopic("duolight", "hue"); got != "duolight/hue" {
		t.Errorf("StateTopic() = %q", got)
	}
}
