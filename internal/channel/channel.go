package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hypershop/shopstream/internal/protocol"
)

// ErrNotConnected is returned by Send when the channel has no live
// connection. Outbound envelopes are never queued.
var ErrNotConnected = errors.New("channel: not connected")

// State of the underlying connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Handler receives inbound events. Handlers run sequentially on the read
// goroutine, so a slow handler backpressures the socket rather than
// reordering events.
type Handler func(protocol.Event)

// Channel is a duplex WebSocket link to the gateway. One read pump per
// live connection decodes inbound frames and fans them out to subscribed
// handlers in subscription order; writes are serialized by a mutex. A lost
// connection triggers bounded automatic reconnection with linear backoff;
// a deliberate Disconnect does not.
type Channel struct {
	// URL is the ws:// or wss:// endpoint to dial.
	URL string
	// ReconnectDelay is the backoff unit: attempt n waits n*ReconnectDelay.
	ReconnectDelay time.Duration
	// MaxReconnects bounds automatic redial attempts after a drop.
	MaxReconnects int

	dialer *websocket.Dialer

	mu            sync.Mutex
	ws            *websocket.Conn
	gen           int // bumped on every successful dial; stale pumps compare against it
	closing       bool
	state         State
	handlers      map[int]Handler
	stateHandlers map[int]func(State)
	nextToken     int

	writeMu sync.Mutex
}

func New(url string) *Channel {
	return &Channel{
		URL:            url,
		ReconnectDelay: time.Second,
		MaxReconnects:  5,
		dialer:         websocket.DefaultDialer,
		state:          StateDisconnected,
		handlers:       make(map[int]Handler),
		stateHandlers:  make(map[int]func(State)),
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a handler for inbound events and returns a token
// for Unsubscribe. Handlers are invoked in subscription order.
func (c *Channel) Subscribe(h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextToken++
	c.handlers[c.nextToken] = h
	return c.nextToken
}

// Unsubscribe removes a handler. Unknown tokens are ignored.
func (c *Channel) Unsubscribe(token int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, token)
}

// SubscribeState registers a listener for connection state transitions and
// returns a token for UnsubscribeState.
func (c *Channel) SubscribeState(h func(State)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextToken++
	c.stateHandlers[c.nextToken] = h
	return c.nextToken
}

// UnsubscribeState removes a state listener. Unknown tokens are ignored.
func (c *Channel) UnsubscribeState(token int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stateHandlers, token)
}

// Connect dials the gateway and starts the read pump. Calling Connect on
// an already connected channel is a no-op.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.ws != nil {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	c.mu.Unlock()
	return c.dial(ctx)
}

// Disconnect closes the connection without triggering reconnection.
// Safe to call when already disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closing = true
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		deadline := time.Now().Add(time.Second)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		ws.Close()
	}
	c.setState(StateDisconnected)
}

// Send writes an outbound envelope. It fails immediately when there is no
// live connection; callers decide whether to retry.
func (c *Channel) Send(env protocol.Envelope) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ws.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s envelope: %w", env.Type, err)
	}
	return nil
}

func (c *Channel) dial(ctx context.Context) error {
	c.setState(StateConnecting)
	ws, resp, err := c.dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.setState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", c.URL, err)
	}

	c.mu.Lock()
	if c.closing {
		// Disconnect raced the dial; the deliberate close wins.
		c.mu.Unlock()
		ws.Close()
		c.setState(StateDisconnected)
		return fmt.Errorf("dial %s: closed while dialing", c.URL)
	}
	c.gen++
	gen := c.gen
	c.ws = ws
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readPump(ws, gen)
	return nil
}

// readPump decodes inbound frames until the connection dies. Malformed
// frames are logged and dropped; the connection stays up.
func (c *Channel) readPump(ws *websocket.Conn, gen int) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			c.readFailed(gen, err)
			return
		}
		evt, err := protocol.DecodeEvent(msg)
		if err != nil {
			slog.Warn("dropping malformed frame", "error", err)
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Channel) dispatch(evt protocol.Event) {
	c.mu.Lock()
	tokens := make([]int, 0, len(c.handlers))
	for t := range c.handlers {
		tokens = append(tokens, t)
	}
	sort.Ints(tokens)
	handlers := make([]Handler, 0, len(tokens))
	for _, t := range tokens {
		handlers = append(handlers, c.handlers[t])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

// readFailed decides whether the pump's death warrants reconnection.
// Stale pumps (superseded by a newer dial) and deliberate closes do not.
func (c *Channel) readFailed(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen || c.closing {
		c.mu.Unlock()
		return
	}
	c.ws = nil
	c.mu.Unlock()

	slog.Warn("connection lost", "url", c.URL, "error", err)
	c.setState(StateDisconnected)
	go c.reconnect(gen)
}

// reconnect redials with linear backoff. It stops when a dial succeeds,
// when the attempt budget is spent, or when someone else (Disconnect or
// an explicit Connect) has changed the connection underneath it.
func (c *Channel) reconnect(from int) {
	for attempt := 1; attempt <= c.MaxReconnects; attempt++ {
		time.Sleep(time.Duration(attempt) * c.ReconnectDelay)

		c.mu.Lock()
		stale := c.closing || c.gen != from
		c.mu.Unlock()
		if stale {
			return
		}

		if err := c.dial(context.Background()); err != nil {
			slog.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}
		slog.Info("reconnected", "url", c.URL, "attempt", attempt)
		return
	}
	slog.Error("giving up after reconnect attempts exhausted", "url", c.URL, "attempts", c.MaxReconnects)
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	tokens := make([]int, 0, len(c.stateHandlers))
	for t := range c.stateHandlers {
		tokens = append(tokens, t)
	}
	sort.Ints(tokens)
	listeners := make([]func(State), 0, len(tokens))
	for _, t := range tokens {
		listeners = append(listeners, c.stateHandlers[t])
	}
	c.mu.Unlock()

	for _, h := range listeners {
		h(s)
	}
}
