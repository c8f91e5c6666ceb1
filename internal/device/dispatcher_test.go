package device

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dokzlo13/duolight/internal/device/mocks"
	"github.com/dokzlo13/duolight/internal/light"
	"github.com/dokzlo13/duolight/internal/reconcile"
)

func TestDispatcherPreservesOrder(t *testing.T) {
	drv := &mocks.Driver{}

	var mu sync.Mutex
	var got []string
	record := func(s string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		}
	}

	drv.On("Name").Return("mock")
	drv.On("Brightness", mock.Anything, reconcile.ChannelWhite, 0).Return(nil).Run(record("bri-white"))
	drv.On("Brightness", mock.Anything, reconcile.ChannelColor, 60).Return(nil).Run(record("bri-color"))
	drv.On("Power", mock.Anything, reconcile.ChannelWhite, false).Return(errors.New("unreachable")).Run(record("power-white"))
	drv.On("Power", mock.Anything, reconcile.ChannelColor, true).Return(nil).Run(record("power-color"))
	drv.On("Close").Return(nil)

	d := NewDispatcher(drv, 16, 1000, time.Second)
	d.Start(context.Background())

	// Same sequence the reconciler emits for a brightness write in color mode.
	d.SetBrightness(0, false)
	d.SetBrightness(60, true)
	d.SetPower(false, false)
	d.SetPower(true, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := []string{"bri-white", "bri-color", "power-white", "power-color"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("executed %v, want %v", got, want)
	}
	drv.AssertExpectations(t)
}

// recordingDriver keeps every command it executes. With block set, each
// command waits for its context to end.
type recordingDriver struct {
	LogDriver

	mu     sync.Mutex
	cmds   []reconcile.Command
	block  bool
	closed bool
}

func (r *recordingDriver) record(ctx context.Context, cmd reconcile.Command) error {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	block := r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (r *recordingDriver) Power(ctx context.Context, ch reconcile.Channel, on bool) error {
	return r.record(ctx, reconcile.Power(ch, on))
}

func (r *recordingDriver) Brightness(ctx context.Context, ch reconcile.Channel, level int) error {
	return r.record(ctx, reconcile.Brightness(ch, level))
}

func (r *recordingDriver) ColorTemperature(ctx context.Context, ch reconcile.Channel, kelvin int) error {
	return r.record(ctx, reconcile.ColorTemperature(ch, kelvin))
}

func (r *recordingDriver) HueSaturation(ctx context.Context, hue, saturation int) error {
	return r.record(ctx, reconcile.HueSaturation(hue, saturation))
}

func (r *recordingDriver) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *recordingDriver) executed() []reconcile.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reconcile.Command(nil), r.cmds...)
}

// wholePlans reports whether got is made of complete plans, in order, with
// any plan either fully present or absent. Returns how many plans arrived.
func wholePlans(got []reconcile.Command, plans [][]reconcile.Command) (int, bool) {
	delivered := 0
	for _, plan := range plans {
		if len(got) >= len(plan) && reflect.DeepEqual(got[:len(plan)], plan) {
			got = got[len(plan):]
			delivered++
		}
	}
	return delivered, len(got) == 0
}

func TestDispatcherPlansAreAllOrNone(t *testing.T) {
	white := light.State{Power: true, Brightness: 40, ColorTemperature: 200, Mode: light.ModeWhite}
	color := light.State{Power: true, Brightness: 40, ColorTemperature: 200, Hue: 120, Mode: light.ModeColor}

	tests := []struct {
		name      string
		queueSize int
		writes    []light.Change
		states    []light.State
		wantPlans int
	}{
		{
			name:      "second plan does not fit",
			queueSize: 1,
			writes:    []light.Change{light.ChangeBrightness, light.ChangeHue},
			states:    []light.State{white, color},
			wantPlans: 1,
		},
		{
			name:      "burst larger than queue",
			queueSize: 2,
			writes: []light.Change{
				light.ChangeBrightness, light.ChangeHue, light.ChangeColorTemperature,
				light.ChangePower, light.ChangeSaturation,
			},
			states:    []light.State{white, color, white, white, color},
			wantPlans: 2,
		},
		{
			name:      "everything fits",
			queueSize: 8,
			writes:    []light.Change{light.ChangeBrightness, light.ChangeHue, light.ChangePower},
			states:    []light.State{white, color, color},
			wantPlans: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &recordingDriver{}
			d := NewDispatcher(drv, tt.queueSize, 1000, time.Second)
			r := reconcile.New(d)

			// Worker not running yet: the queue only fills.
			var plans [][]reconcile.Command
			for i, change := range tt.writes {
				plans = append(plans, r.Apply(change, tt.states[i]))
			}

			d.Start(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := d.Close(ctx); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			got := drv.executed()
			n, ok := wholePlans(got, plans)
			if !ok {
				t.Fatalf("executed %v contains a partial plan", reconcile.Strings(got))
			}
			if n != tt.wantPlans {
				t.Errorf("delivered %d plans, want %d: %v", n, tt.wantPlans, reconcile.Strings(got))
			}
		})
	}
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	drv := &recordingDriver{}
	d := NewDispatcher(drv, 16, 1000, time.Second)
	d.Start(context.Background())

	r := reconcile.New(d)
	var want []reconcile.Command
	want = append(want, r.Apply(light.ChangeBrightness, light.State{Power: true, Brightness: 30, Mode: light.ModeWhite})...)
	want = append(want, r.Apply(light.ChangeHue, light.State{Power: true, Brightness: 30, Hue: 90, Mode: light.ModeColor})...)
	want = append(want, r.Apply(light.ChangePower, light.State{Power: false, Brightness: 30, Mode: light.ModeColor})...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := drv.executed(); !reflect.DeepEqual(got, want) {
		t.Errorf("executed %v, want %v", reconcile.Strings(got), reconcile.Strings(want))
	}
	if !drv.closed {
		t.Error("driver not closed")
	}
}

func TestDispatcherCloseTimeoutAborts(t *testing.T) {
	drv := &recordingDriver{block: true}
	d := NewDispatcher(drv, 16, 1000, time.Minute)
	d.Start(context.Background())

	d.SendPlan([]reconcile.Command{reconcile.Power(reconcile.ChannelWhite, true), reconcile.Power(reconcile.ChannelColor, false)})
	d.SendPlan([]reconcile.Command{reconcile.HueSaturation(10, 10)})

	for deadline := time.Now().Add(2 * time.Second); len(drv.executed()) == 0; {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first plan")
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	closed := make(chan error, 1)
	go func() { closed <- d.Close(ctx) }()

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return after its deadline")
	}

	if got := drv.executed(); len(got) == 0 || len(got) == 3 {
		t.Errorf("executed %v, want an aborted drain", reconcile.Strings(got))
	}
	if !drv.closed {
		t.Error("driver not closed")
	}
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	drv := &recordingDriver{}
	d := NewDispatcher(drv, 4, 1000, time.Second)
	d.SendPlan([]reconcile.Command{reconcile.Power(reconcile.ChannelWhite, true)})

	// Never started: queued plans are dropped, the driver still closes.
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Enqueue and Start after close are no-ops, not a panic.
	d.SetPower(true, true)
	d.Start(context.Background())

	if got := drv.executed(); len(got) != 0 {
		t.Errorf("executed %v, want none", reconcile.Strings(got))
	}
	if !drv.closed {
		t.Error("driver not closed")
	}
}

func TestExecute(t *testing.T) {
	drv := &mocks.Driver{}
	ctx := context.Background()
	drv.On("ColorTemperature", ctx, reconcile.ChannelColor, 5000).Return(nil).Once()
	drv.On("HueSaturation", ctx, 120, 0).Return(nil).Once()

	if err := Execute(ctx, drv, reconcile.ColorTemperature(reconcile.ChannelColor, 5000)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := Execute(ctx, drv, reconcile.HueSaturation(120, 0)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := Execute(ctx, drv, reconcile.Command{Kind: reconcile.Kind(9)}); err == nil {
		t.Error("Execute() with unknown kind should fail")
	}
	drv.AssertExpectations(t)
}

type identifyingDriver struct {
	LogDriver
	identified chan struct{}
}

func (d *identifyingDriver) Identify(ctx context.Context) error {
	close(d.identified)
	return nil
}

func TestDispatcherIdentify(t *testing.T) {
	drv := &identifyingDriver{identified: make(chan struct{})}
	d := NewDispatcher(drv, 4, 1000, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Identify()

	select {
	case <-drv.identified:
	case <-time.After(2 * time.Second):
		t.Fatal("driver Identify was not called")
	}
}
