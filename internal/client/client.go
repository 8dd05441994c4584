// Package client dials a swarmdeck hub and keeps the connection alive,
// reconnecting on a fixed delay when the hub drops.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/soyeahso/swarmdeck/internal/hub"
	"github.com/soyeahso/swarmdeck/internal/logging"
)

var (
	// ErrMaxAttempts is returned by Run when the reconnect budget is spent.
	ErrMaxAttempts = errors.New("max reconnect attempts reached")
	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("not connected")
)

const defaultReconnectDelay = 3 * time.Second

// Options configures a hub client.
type Options struct {
	// URL is the hub WebSocket endpoint, e.g. ws://127.0.0.1:18790/ws.
	URL string
	// AgentID, when set, is sent as an identify message after each
	// successful dial so the hub attributes cursor events to it.
	AgentID string
	// Bounds clamps outgoing cursor positions. Zero bounds disable clamping.
	Bounds domain.Bounds
	// ReconnectDelay is the fixed wait between attempts. Defaults to 3s.
	ReconnectDelay time.Duration
	// MaxAttempts bounds consecutive failed connections. Zero means retry
	// forever.
	MaxAttempts int

	// OnEnvelope is invoked for every decoded non-snapshot message.
	OnEnvelope func(env hub.Envelope)
	// OnSnapshot is invoked when the hub hydrates this client.
	OnSnapshot func(snap hub.SnapshotPayload)
}

// Client maintains one logical connection to the hub across reconnects.
type Client struct {
	opts Options
	log  *logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// New creates a client. Run must be called to connect.
func New(opts Options, log *logging.Logger) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	return &Client{
		opts: opts,
		log:  log.Sub("client"),
	}
}

// Run connects and processes messages until the context is cancelled or
// the reconnect budget is exhausted. A successful connection resets the
// attempt counter.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			attempts++
			c.log.Warn().Err(err).Int("attempt", attempts).Msg("connection lost")
		} else {
			attempts = 0
		}

		if c.opts.MaxAttempts > 0 && attempts >= c.opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxAttempts, attempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.ReconnectDelay):
		}
	}
}

// runOnce dials the hub and reads messages until the connection drops.
func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.opts.URL, err)
	}
	defer conn.Close()

	c.log.Info().Str("url", c.opts.URL).Msg("connected to hub")

	if c.opts.AgentID != "" {
		identify := hub.Envelope{
			Type:      hub.TypeIdentify,
			AgentID:   c.opts.AgentID,
			Timestamp: time.Now().UnixMilli(),
		}
		if err := conn.WriteJSON(identify); err != nil {
			return fmt.Errorf("sending identify: %w", err)
		}
	}

	// Publish the live connection for SendCursor, retract it on exit.
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	// Unblock the read loop when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading: %w", err)
		}

		env, err := hub.DecodeEnvelope(data)
		if err != nil {
			c.log.Debug().Err(err).Msg("dropping undecodable message")
			continue
		}

		if env.Type == hub.TypeSnapshot && c.opts.OnSnapshot != nil {
			var snap hub.SnapshotPayload
			if err := json.Unmarshal(env.Payload, &snap); err != nil {
				c.log.Debug().Err(err).Msg("dropping malformed snapshot")
				continue
			}
			c.opts.OnSnapshot(snap)
			continue
		}

		if c.opts.OnEnvelope != nil {
			c.opts.OnEnvelope(env)
		}
	}
}

// SendCursor sends the client's own cursor position, clamped to the canvas
// bounds when bounds are configured.
func (c *Client) SendCursor(pos domain.Position) error {
	if c.opts.Bounds.Width > 0 && c.opts.Bounds.Height > 0 {
		pos = pos.Clamp(c.opts.Bounds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}

	evt := hub.CursorEvent{
		AgentID:   c.opts.AgentID,
		Position:  pos,
		Timestamp: time.Now().UnixMilli(),
		Origin:    hub.OriginClient,
	}
	return c.conn.WriteJSON(evt.Envelope())
}
