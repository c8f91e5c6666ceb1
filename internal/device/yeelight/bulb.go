// Package yeelight drives a pair of Yeelight LAN bulbs (white and color) over
// the JSON-over-TCP control protocol.
package yeelight

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPort is the Yeelight LAN control port.
const DefaultPort = 55443

// command is a request sent to a bulb.
type command struct {
	ID     int32         `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// response is either a result to a command or an unsolicited notification.
type response struct {
	ID     int32         `json:"id"`
	Method string        `json:"method,omitempty"`
	Result []interface{} `json:"result,omitempty"`
	Error  *Error        `json:"error,omitempty"`
}

// Error is an error reported by the bulb.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("yeelight: %s (code %d)", e.Message, e.Code)
}

// Bulb is a connection to one bulb. The connection is opened lazily and
// re-dialled after any I/O error.
type Bulb struct {
	addr    string
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int32
}

// NewBulb creates a bulb handle. addr is host or host:port.
func NewBulb(addr string, timeout time.Duration) *Bulb {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprint(DefaultPort))
	}
	return &Bulb{addr: addr, timeout: timeout}
}

// Addr returns the bulb address.
func (b *Bulb) Addr() string {
	return b.addr
}

// Call sends method with params and waits for its result.
func (b *Bulb) Call(ctx context.Context, method string, params ...interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connect(ctx); err != nil {
		return err
	}

	b.nextID++
	cmd := command{ID: b.nextID, Method: method, Params: params}
	if cmd.Params == nil {
		cmd.Params = []interface{}{}
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("yeelight: marshal %s: %w", method, err)
	}
	payload = append(payload, '\r', '\n')

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := b.conn.SetDeadline(deadline); err != nil {
		b.reset()
		return err
	}

	if _, err := b.conn.Write(payload); err != nil {
		b.reset()
		return fmt.Errorf("yeelight: write %s to %s: %w", method, b.addr, err)
	}

	for {
		line, err := b.reader.ReadBytes('\n')
		if err != nil {
			b.reset()
			return fmt.Errorf("yeelight: read %s reply from %s: %w", method, b.addr, err)
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			log.Debug().Err(err).Str("bulb", b.addr).Msg("Skipping malformed yeelight message")
			continue
		}
		// Property notifications carry a method and no id.
		if resp.Method != "" || resp.ID != cmd.ID {
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		return nil
	}
}

func (b *Bulb) connect(ctx context.Context) error {
	if b.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: b.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		return fmt.Errorf("yeelight: connect %s: %w", b.addr, err)
	}

	log.Debug().Str("bulb", b.addr).Msg("Connected to yeelight bulb")
	b.conn = conn
	b.reader = bufio.NewReader(conn)
	return nil
}

func (b *Bulb) reset() {
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = nil
	b.reader = nil
}

// Close closes the connection, if any.
func (b *Bulb) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	b.reader = nil
	return err
}
