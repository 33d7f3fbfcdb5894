// Package feed reads the gesture and voice WebSocket channels, reconnecting
// with exponential backoff whenever a connection drops.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// ErrDisabled is returned by Run when the channel has no URL.
var ErrDisabled = errors.New("feed disabled")

// DefaultStableAfter is how long a connection must stay up before the
// backoff schedule and attempt count start over.
const DefaultStableAfter = 5 * time.Second

// ConnState represents the connection lifecycle state.
type ConnState uint32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateStopped  // Gave up after the attempt limit, or the context ended
	StateDisabled // No URL configured
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	case StateDisabled:
		return "disabled"
	default:
		return "disconnected"
	}
}

// MarshalText encodes the state as its name.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time view of a channel.
type Status struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	State      ConnState `json:"state"`
	Attempts   int       `json:"attempts"`   // Failed dials and early drops since the last stable connection
	Reconnects int       `json:"reconnects"` // Successful connections after the first
	Messages   uint64    `json:"messages"`
	LastError  string    `json:"lastError,omitempty"`
}

// Handler receives every message read from the channel.
type Handler func(msg []byte) error

// Options configures a Channel.
type Options struct {
	Name            string
	URL             string
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     int           // Attempts per outage, 0 for unbounded
	StableAfter     time.Duration // Uptime after which a connection ends the outage
	Dialer          *websocket.Dialer
	Logger          *log.Logger
}

// Channel is a supervised WebSocket reader.
type Channel struct {
	opts    Options
	handler Handler
	logger  *log.Logger

	state      atomic.Uint32 // ConnState
	attempts   atomic.Int64
	reconnects atomic.Int64
	messages   atomic.Uint64
	connected  atomic.Bool // Has connected at least once

	mu      sync.Mutex
	lastErr string
}

// New creates a channel delivering messages to handler.
func New(opts Options, handler Handler) *Channel {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.StableAfter <= 0 {
		opts.StableAfter = DefaultStableAfter
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Channel{
		opts:    opts,
		handler: handler,
		logger:  logger.WithPrefix("feed").With("channel", opts.Name),
	}
	if opts.URL == "" {
		c.state.Store(uint32(StateDisabled))
	}
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.opts.Name
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	lastErr := c.lastErr
	c.mu.Unlock()

	return Status{
		Name:       c.opts.Name,
		URL:        c.opts.URL,
		State:      ConnState(c.state.Load()),
		Attempts:   int(c.attempts.Load()),
		Reconnects: int(c.reconnects.Load()),
		Messages:   c.messages.Load(),
		LastError:  lastErr,
	}
}

func (c *Channel) setState(s ConnState) {
	c.state.Store(uint32(s))
}

func (c *Channel) setError(err error) {
	c.mu.Lock()
	if err == nil {
		c.lastErr = ""
	} else {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
}

// Run connects and reads until ctx ends or the attempt limit is exhausted.
// Failed dials and connections dropped before StableAfter both count as
// attempts and wait out the next backoff interval before redialing.
func (c *Channel) Run(ctx context.Context) error {
	if c.opts.URL == "" {
		c.logger.Info("no url configured, channel disabled")
		return ErrDisabled
	}

	b := c.newBackOff()
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			started := time.Now()
			err = c.listen(ctx, conn)
			if ctx.Err() == nil && time.Since(started) >= c.opts.StableAfter {
				b.Reset()
				c.attempts.Store(0)
			}
		}
		if ctx.Err() != nil {
			c.setState(StateStopped)
			return nil
		}

		c.setState(StateDisconnected)
		c.setError(err)
		n := c.attempts.Add(1)
		if c.opts.MaxAttempts > 0 && n >= int64(c.opts.MaxAttempts) {
			c.setState(StateStopped)
			c.logger.Error("giving up", "attempts", n, "err", err)
			return fmt.Errorf("feed %s: giving up after %d attempts: %w", c.opts.Name, n, err)
		}

		wait := b.NextBackOff()
		c.logger.Warn("connection lost, retrying", "attempt", n, "retry_in", wait, "err", err)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			c.setState(StateStopped)
			return nil
		}
	}
}

// newBackOff returns the retry schedule for one outage. Intervals start at
// InitialInterval exactly and grow up to MaxInterval.
func (c *Channel) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // Bounded by MaxAttempts only
	b.Reset()
	return b
}

// dial opens one connection.
func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	c.setState(StateConnecting)
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		c.logger.Debug("dial failed", "err", err)
		return nil, err
	}

	if c.connected.Swap(true) {
		c.reconnects.Add(1)
	}
	c.setError(nil)
	c.setState(StateConnected)
	c.logger.Info("connected", "url", c.opts.URL)
	return conn, nil
}

// listen reads messages until the connection fails or ctx ends.
func (c *Channel) listen(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.messages.Add(1)
		if c.handler == nil {
			continue
		}
		if err := c.handler(msg); err != nil {
			c.logger.Debug("message rejected", "err", err)
		}
	}
}
