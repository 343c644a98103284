// Package live maintains the streaming connection that pushes dashboard
// invalidations (tool status changes, detected anomalies) to the console.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultReconnectDelay is the pause before a reconnect attempt.
const DefaultReconnectDelay = 3 * time.Second

// Message is one inbound frame. Raw holds the full frame for payload fields
// beyond the type discriminator.
type Message struct {
	// Type is the frame type discriminator, e.g. "anomaly_detected".
	Type string `json:"type"`
	// Raw is the complete frame as received.
	Raw json.RawMessage `json:"-"`
}

// ReconnectRecorder records reconnect attempts. Implemented by the metrics
// package; a nil recorder disables recording.
type ReconnectRecorder interface {
	RecordLiveReconnect()
}

// Config configures a Channel.
type Config struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string

	// ReconnectDelay is the pause before a reconnect attempt.
	// Default: 3 seconds.
	ReconnectDelay time.Duration

	// BackoffFactor multiplies the delay after each consecutive failure.
	// Values <= 1 keep the delay fixed, preserving the original behavior.
	BackoffFactor float64

	// MaxDelay caps the grown delay. Zero means no cap.
	MaxDelay time.Duration

	// MaxAttempts caps consecutive failed reconnect attempts; the channel
	// stops after the cap is reached. Zero means retry indefinitely.
	MaxAttempts int

	// Dialer is the websocket dialer. Default: websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Logger for connection events. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records reconnect attempts. Optional.
	Metrics ReconnectRecorder
}

// Channel is a self-reconnecting subscription to the streaming endpoint.
//
// A subscriber's callback is invoked for every decodable inbound frame;
// frames that fail to decode are logged and dropped without disturbing the
// connection. On close the channel schedules exactly one reconnect attempt
// per delay window and repeats until Unsubscribe, after which no further
// attempts occur.
type Channel struct {
	cfg  Config
	dial func(ctx context.Context, url string) (*websocket.Conn, error)

	mu     sync.Mutex
	conn   *websocket.Conn
	wg     sync.WaitGroup
	active bool
}

// NewChannel creates a Channel with defaults applied.
func NewChannel(cfg Config) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Channel{cfg: cfg}
	c.dial = func(ctx context.Context, url string) (*websocket.Conn, error) {
		conn, _, err := cfg.Dialer.DialContext(ctx, url, nil)
		return conn, err
	}
	return c
}

// Subscribe opens the connection and starts delivering messages to onMessage
// from a dedicated goroutine. It returns an unsubscribe function that closes
// the connection and stops all reconnect attempts; after it returns, no
// further callbacks or reconnects occur. A second Subscribe on the same
// Channel panics; create one Channel per subscription.
func (c *Channel) Subscribe(onMessage func(Message)) func() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		panic("live: Subscribe called twice on the same Channel")
	}
	c.active = true
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(ctx, onMessage)

	return func() {
		cancel()

		// Re-read the connection after cancelling: a dial may have completed
		// since Subscribe, and a connection stored before the cancellation is
		// observed must still be torn down here to unblock its read loop.
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()

		c.wg.Wait()
	}
}

// run is the connect/read/reconnect loop.
func (c *Channel) run(ctx context.Context, onMessage func(Message)) {
	defer c.wg.Done()

	delay := c.cfg.ReconnectDelay
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx, c.cfg.URL)
		if err != nil {
			c.cfg.Logger.Error("live channel connect failed", "url", c.cfg.URL, "error", err)
			failures++
			if c.stopAfter(failures) {
				return
			}
			if !c.sleep(ctx, delay) {
				return
			}
			delay = c.nextDelay(delay)
			c.recordReconnect()
			continue
		}

		// Store the connection and check for cancellation under the same
		// lock. A dial that completes concurrently with unsubscribe could
		// otherwise leave a fresh connection that nobody closes.
		c.mu.Lock()
		c.conn = conn
		cancelled := ctx.Err() != nil
		c.mu.Unlock()
		if cancelled {
			_ = conn.Close()
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			return
		}
		c.cfg.Logger.Debug("live channel connected", "url", c.cfg.URL)

		// Successful connection resets the backoff.
		delay = c.cfg.ReconnectDelay
		failures = 0

		c.readLoop(conn, onMessage)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		c.cfg.Logger.Debug("live channel disconnected, scheduling reconnect", "delay", delay)
		if !c.sleep(ctx, delay) {
			return
		}
		delay = c.nextDelay(delay)
		c.recordReconnect()
	}
}

// readLoop delivers frames until the connection errors or closes.
func (c *Channel) readLoop(conn *websocket.Conn, onMessage func(Message)) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Drop the frame; a bad frame must not kill the channel.
			c.cfg.Logger.Error("failed to decode live message", "error", err)
			continue
		}
		msg.Raw = raw
		onMessage(msg)
	}
}

// sleep waits for the delay, returning false when the context is cancelled.
func (c *Channel) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextDelay grows the delay by the backoff factor, capped at MaxDelay.
func (c *Channel) nextDelay(d time.Duration) time.Duration {
	if c.cfg.BackoffFactor <= 1 {
		return d
	}
	grown := time.Duration(float64(d) * c.cfg.BackoffFactor)
	if c.cfg.MaxDelay > 0 && grown > c.cfg.MaxDelay {
		return c.cfg.MaxDelay
	}
	return grown
}

// stopAfter reports whether the attempt cap has been exhausted.
func (c *Channel) stopAfter(failures int) bool {
	if c.cfg.MaxAttempts > 0 && failures >= c.cfg.MaxAttempts {
		c.cfg.Logger.Error("live channel giving up after max attempts", "attempts", failures)
		return true
	}
	return false
}

// recordReconnect reports one reconnect attempt to the metrics recorder.
func (c *Channel) recordReconnect() {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordLiveReconnect()
	}
}
