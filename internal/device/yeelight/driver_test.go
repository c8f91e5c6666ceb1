package yeelight

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/duolight/internal/reconcile"
)

// fakeBulb accepts one connection at a time and answers every command.
type fakeBulb struct {
	ln net.Listener

	mu       sync.Mutex
	received []command
	failWith *Error
}

func newFakeBulb(t *testing.T) *fakeBulb {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeBulb{ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeBulb) addr() string { return f.ln.Addr().String() }

func (f *fakeBulb) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeBulb) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(line, &cmd); err != nil {
			return
		}

		f.mu.Lock()
		f.received = append(f.received, cmd)
		failWith := f.failWith
		f.mu.Unlock()

		// A notification first, as real bulbs do after a state change.
		fmt.Fprintf(conn, `{"method":"props","params":{"power":"on"}}`+"\r\n")
		if failWith != nil {
			fmt.Fprintf(conn, `{"id":%d,"error":{"code":%d,"message":%q}}`+"\r\n", cmd.ID, failWith.Code, failWith.Message)
			continue
		}
		fmt.Fprintf(conn, `{"id":%d,"result":["ok"]}`+"\r\n", cmd.ID)
	}
}

func (f *fakeBulb) commands() []command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]command(nil), f.received...)
}

func TestDriverRoutesChannels(t *testing.T) {
	white := newFakeBulb(t)
	color := newFakeBulb(t)

	d := New(Config{White: white.addr(), Color: color.addr(), Smooth: true, Duration: 300 * time.Millisecond, Timeout: time.Second})
	defer d.Close()
	ctx := context.Background()

	steps := []func() error{
		func() error { return d.ColorTemperature(ctx, reconcile.ChannelWhite, 5000) },
		func() error { return d.ColorTemperature(ctx, reconcile.ChannelColor, 9000) },
		func() error { return d.Power(ctx, reconcile.ChannelWhite, true) },
		func() error { return d.HueSaturation(ctx, 120, 45) },
		func() error { return d.Brightness(ctx, reconcile.ChannelColor, 150) },
		func() error { return d.Brightness(ctx, reconcile.ChannelWhite, 0) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	w := white.commands()
	if len(w) != 2 {
		t.Fatalf("white bulb got %d commands, want 2", len(w))
	}
	if w[0].Method != "set_ct_abx" || w[0].Params[0] != float64(5000) || w[0].Params[1] != "smooth" || w[0].Params[2] != float64(300) {
		t.Errorf("white[0] = %+v", w[0])
	}
	if w[1].Method != "set_power" || w[1].Params[0] != "on" {
		t.Errorf("white[1] = %+v", w[1])
	}

	c := color.commands()
	if len(c) != 3 {
		t.Fatalf("color bulb got %d commands, want 3", len(c))
	}
	if c[0].Method != "set_ct_abx" || c[0].Params[0] != float64(maxKelvin) {
		t.Errorf("color[0] = %+v, want clamped ct", c[0])
	}
	if c[1].Method != "set_hsv" || c[1].Params[0] != float64(120) || c[1].Params[1] != float64(45) {
		t.Errorf("color[1] = %+v", c[1])
	}
	if c[2].Method != "set_bright" || c[2].Params[0] != float64(100) {
		t.Errorf("color[2] = %+v, want clamped brightness", c[2])
	}
}

func TestBulbError(t *testing.T) {
	f := newFakeBulb(t)
	f.mu.Lock()
	f.failWith = &Error{Code: -1, Message: "method not supported"}
	f.mu.Unlock()

	b := NewBulb(f.addr(), time.Second)
	defer b.Close()

	err := b.Call(context.Background(), "set_power", "on", "sudden", 0)
	var yerr *Error
	if !errors.As(err, &yerr) {
		t.Fatalf("Call() error = %v, want *Error", err)
	}
	if yerr.Message != "method not supported" {
		t.Errorf("message = %q", yerr.Message)
	}
}

func TestBulbUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	b := NewBulb(addr, 200*time.Millisecond)
	if err := b.Call(context.Background(), "set_power", "on"); err == nil {
		t.Error("Call() to closed port should fail")
	}
}

func TestNewBulbDefaultPort(t *testing.T) {
	if got := NewBulb("192.168.1.20", time.Second).Addr(); got != "192.168.1.20:55443" {
		t.Errorf("Addr() = %q", got)
	}
	if got := NewBulb("192.168.1.20:1234", time.Second).Addr(); got != "192.168.1.20:1234" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestSuddenEffect(t *testing.T) {
	d := New(Config{White: "127.0.0.1:1", Color: "127.0.0.1:2"})
	if d.effect != "sudden" || d.duration != 0 {
		t.Errorf("effect = %s/%d, want sudden/0", d.effect, d.duration)
	}
}
