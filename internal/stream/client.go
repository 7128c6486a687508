// Package stream maintains the single duplex connection to the remote
// trading agent and fans incoming named events out to subscribers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"arb-console/internal/observability"
)

// Config configures stream client behavior.
type Config struct {
	// Endpoint is the agent websocket URL.
	Endpoint string
	// MaxReconnectAttempts bounds automatic reconnection. Exhausting it
	// leaves the client disconnected until an explicit Connect.
	MaxReconnectAttempts int
	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns default stream client configuration.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:             endpoint,
		MaxReconnectAttempts: 10,
		ReconnectDelay:       3 * time.Second,
		PingInterval:         30 * time.Second,
		ReadTimeout:          90 * time.Second,
		WriteTimeout:         10 * time.Second,
		HandshakeTimeout:     10 * time.Second,
	}
}

// Handler consumes the payload of one named event.
type Handler func(data json.RawMessage)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	client *Client
	event  string
	id     int
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.client != nil {
		s.client.unsubscribe(s.event, s.id)
	}
}

// Client owns one logical agent subscription. Handlers live in a dispatch
// table keyed by event name that survives the underlying connection, so a
// reconnect re-delivers to the same handlers without re-registration and
// cannot double-deliver.
type Client struct {
	cfg    Config
	logger *zap.SugaredLogger

	conn   *websocket.Conn
	connMu sync.Mutex

	closed    atomic.Bool
	connected atomic.Bool
	running   atomic.Bool

	handlersMu sync.RWMutex
	handlers   map[string]map[int]Handler
	nextSubID  int

	stateMu        sync.Mutex
	stateListeners map[int]func(connected bool)
	nextListenerID int

	done     chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
}

// NewClient creates a stream client. No connection is made until Connect.
func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Client{
		cfg:            cfg,
		logger:         logger,
		handlers:       make(map[string]map[int]Handler),
		stateListeners: make(map[int]func(bool)),
	}
}

// Subscribe registers a handler for the named event and returns its handle.
// Subscriptions persist across reconnects.
func (c *Client) Subscribe(event string, h Handler) *Subscription {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	id := c.nextSubID
	c.nextSubID++
	c.handlers[event][id] = h
	return &Subscription{client: c, event: event, id: id}
}

// unsubscribe removes one handler from the dispatch table.
func (c *Client) unsubscribe(event string, id int) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if m := c.handlers[event]; m != nil {
		delete(m, id)
	}
}

// OnConnectionChange registers a listener for connect/disconnect
// transitions. The returned function unsubscribes it.
func (c *Client) OnConnectionChange(fn func(connected bool)) func() {
	c.stateMu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.stateListeners[id] = fn
	c.stateMu.Unlock()

	return func() {
		c.stateMu.Lock()
		delete(c.stateListeners, id)
		c.stateMu.Unlock()
	}
}

// setConnected flips the connection flag and fires listeners on change.
func (c *Client) setConnected(connected bool) {
	if c.connected.Swap(connected) == connected {
		return
	}
	c.stateMu.Lock()
	fns := make([]func(bool), 0, len(c.stateListeners))
	for _, fn := range c.stateListeners {
		fns = append(fns, fn)
	}
	c.stateMu.Unlock()
	for _, fn := range fns {
		fn(connected)
	}
}

// Connected reports the current connection state.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Connect dials the agent and starts the read and ping loops. It may be
// called again after automatic reconnection has been exhausted or after a
// previous run ended; calling it while a run is active is an error.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}
	if c.running.Swap(true) {
		return fmt.Errorf("already connected")
	}

	// The previous run's loops may still be draining; done must not be
	// reassigned while they can read it.
	c.wg.Wait()

	if err := c.dial(ctx); err != nil {
		c.running.Store(false)
		return err
	}

	c.done = make(chan struct{})
	c.stopOnce = &sync.Once{}
	c.setConnected(true)

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return nil
}

// dial establishes the websocket connection.
func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("stream dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// Close tears the client down. The reconnect loop is fully cancelled: no
// handler fires after Close returns.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.stopRun()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	c.setConnected(false)
	return nil
}

// stopRun closes the per-run done channel exactly once, ending the ping
// loop alongside the reader.
func (c *Client) stopRun() {
	if c.stopOnce != nil {
		c.stopOnce.Do(func() { close(c.done) })
	}
}

// readLoop reads frames and dispatches them. On read errors it reconnects
// with a fixed delay, bounded by MaxReconnectAttempts; exhaustion leaves the
// client disconnected and ends the run.
func (c *Client) readLoop() {
	defer c.wg.Done()
	defer c.running.Store(false)
	defer c.stopRun()

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			return
		}

		if c.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.setConnected(false)
			c.logger.Warnw("stream read failed", "error", err)

			if !c.reconnect() {
				c.logger.Errorw("stream reconnect attempts exhausted",
					"attempts", c.cfg.MaxReconnectAttempts)
				return
			}
			continue
		}

		c.dispatch(message)
	}
}

// reconnect attempts to re-dial with a fixed delay between attempts.
// Reports whether a connection was re-established.
func (c *Client) reconnect() bool {
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return false
		case <-time.After(c.cfg.ReconnectDelay):
		}

		if c.closed.Load() {
			return false
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		err := c.dial(ctx)
		cancel()

		if err == nil {
			c.logger.Infow("stream reconnected", "attempt", attempt)
			observability.RecordReconnect()
			c.setConnected(true)
			return true
		}
		c.logger.Warnw("stream reconnect failed", "attempt", attempt, "error", err)
	}
	return false
}

// dispatch decodes one frame and fans it out to the event's handlers.
// Malformed frames are logged and dropped; they never reach handlers.
func (c *Client) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
		c.logger.Warnw("malformed stream frame dropped", "error", err)
		return
	}

	c.handlersMu.RLock()
	handlers := make([]Handler, 0, len(c.handlers[env.Event]))
	for _, h := range c.handlers[env.Event] {
		handlers = append(handlers, h)
	}
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(env.Data)
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection is likely dead; the reader handles reconnect.
				}
			}
			c.connMu.Unlock()
		}
	}
}

// send writes one outbound envelope, fire-and-forget.
func (c *Client) send(event string, payload interface{}) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = b
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil || !c.connected.Load() {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// StartAgent requests the agent to start. The resulting status event, not
// this send, is the source of truth.
func (c *Client) StartAgent() error {
	return c.send(CommandAgentStart, nil)
}

// StopAgent requests the agent to stop.
func (c *Client) StopAgent() error {
	return c.send(CommandAgentStop, nil)
}

// WalletConnected announces the connected wallet address to the agent.
func (c *Client) WalletConnected(address string) error {
	return c.send(CommandWalletConnected, walletPayload{Address: address})
}

// WalletDisconnected announces wallet disconnect to the agent.
func (c *Client) WalletDisconnected() error {
	return c.send(CommandWalletDisconnected, nil)
}
