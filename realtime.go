package adminchat

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// ============================================================================
// Wire Format
// ============================================================================

// RealtimeEnvelope is the wire format for server-pushed events.
type RealtimeEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RealtimeCommand is a client-to-server command.
type RealtimeCommand struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
}

// Event and command names on the real-time wire.
const (
	EventNewMessage  = "newMessage"
	CommandJoinRoom  = "joinConversation"
	CommandLeaveRoom = "leaveConversation"
)

// ============================================================================
// Configuration
// ============================================================================

// RealtimeConfig configures the real-time connection. The zero value gets
// the dashboard defaults: reconnection on, 1s initial delay, 5s cap, five
// attempts before giving up. Set DisableReconnect to turn automatic
// reconnection off.
type RealtimeConfig struct {
	Token             string
	DisableReconnect  bool
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ReconnectAttempts int
}

func (c *RealtimeConfig) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 1 * time.Second
	}
	if c.ReconnectDelayMax == 0 {
		c.ReconnectDelayMax = 5 * time.Second
	}
	if c.ReconnectAttempts == 0 {
		c.ReconnectAttempts = 5
	}
}

// RealtimeState represents the connection state.
type RealtimeState string

const (
	StateDisconnected RealtimeState = "disconnected"
	StateConnecting   RealtimeState = "connecting"
	StateConnected    RealtimeState = "connected"
	StateReconnecting RealtimeState = "reconnecting"
)

// ============================================================================
// Event Dispatcher
// ============================================================================

// RealtimeEventHandler is the generic event callback type.
type RealtimeEventHandler func(event string, data json.RawMessage)

type eventDispatcher struct {
	mu             sync.RWMutex
	generic        map[string][]RealtimeEventHandler
	onNewMessage   []func(Message)
	onConnected    []func()
	onDisconnected []func(reason string)
	onReconnecting []func(attempt int, delay time.Duration)
}

func newEventDispatcher() *eventDispatcher {
	return &eventDispatcher{
		generic: make(map[string][]RealtimeEventHandler),
	}
}

// dispatch invokes handlers synchronously on the read-loop goroutine, so
// events are delivered to each handler in arrival order. Handlers are
// copied out first; registering new handlers from inside one is safe.
func (d *eventDispatcher) dispatch(env RealtimeEnvelope) {
	d.mu.RLock()
	msgHandlers := append([]func(Message){}, d.onNewMessage...)
	genHandlers := append([]RealtimeEventHandler{}, d.generic[env.Event]...)
	d.mu.RUnlock()

	if env.Event == EventNewMessage {
		var msg Message
		if json.Unmarshal(env.Data, &msg) == nil {
			for _, h := range msgHandlers {
				h(msg)
			}
		}
	}

	for _, h := range genHandlers {
		h(env.Event, env.Data)
	}
}

func (d *eventDispatcher) emitConnected() {
	d.mu.RLock()
	handlers := append([]func(){}, d.onConnected...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h()
	}
}

func (d *eventDispatcher) emitDisconnected(reason string) {
	d.mu.RLock()
	handlers := append([]func(string){}, d.onDisconnected...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h(reason)
	}
}

func (d *eventDispatcher) emitReconnecting(attempt int, delay time.Duration) {
	d.mu.RLock()
	handlers := append([]func(int, time.Duration){}, d.onReconnecting...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h(attempt, delay)
	}
}

// ============================================================================
// Reconnector
// ============================================================================

type reconnector struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func newReconnector(config *RealtimeConfig) *reconnector {
	return &reconnector{
		baseDelay:   config.ReconnectDelay,
		maxDelay:    config.ReconnectDelayMax,
		maxAttempts: config.ReconnectAttempts,
	}
}

func (r *reconnector) shouldReconnect() bool {
	return r.maxAttempts == 0 || r.attempt < r.maxAttempts
}

func (r *reconnector) markConnected() {
	r.connectedAt = time.Now()
}

func (r *reconnector) nextDelay() time.Duration {
	// A connection that held for a minute resets the backoff ladder.
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > 60*time.Second {
		r.attempt = 0
	}
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

// ============================================================================
// RealtimeClient
// ============================================================================

// RealtimeClient is the WebSocket connection to the real-time server, with
// auto-reconnect and named-event dispatch. One live connection per session;
// use GetConnection for the shared process-wide handle.
type RealtimeClient struct {
	baseURL          string
	config           *RealtimeConfig
	conn             *websocket.Conn
	mu               sync.Mutex
	state            RealtimeState
	intentionalClose bool
	dispatcher       *eventDispatcher
	recon            *reconnector
	cancelFn         context.CancelFunc
}

// NewRealtimeClient creates a disconnected client against the real-time
// server at baseURL. Call Connect to establish the connection.
func NewRealtimeClient(baseURL string, config *RealtimeConfig) *RealtimeClient {
	cfg := RealtimeConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.defaults()
	return &RealtimeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		config:     &cfg,
		state:      StateDisconnected,
		dispatcher: newEventDispatcher(),
		recon:      newReconnector(&cfg),
	}
}

// OnNewMessage registers a handler for incoming chat messages.
func (rt *RealtimeClient) OnNewMessage(h func(Message)) {
	rt.dispatcher.mu.Lock()
	rt.dispatcher.onNewMessage = append(rt.dispatcher.onNewMessage, h)
	rt.dispatcher.mu.Unlock()
}

// OnConnected registers a handler fired on every successful connect,
// including reconnects. Room membership does not survive a reconnect, so
// this is where the active room gets re-joined.
func (rt *RealtimeClient) OnConnected(h func()) {
	rt.dispatcher.mu.Lock()
	rt.dispatcher.onConnected = append(rt.dispatcher.onConnected, h)
	rt.dispatcher.mu.Unlock()
}

// OnDisconnected registers a handler for connection loss.
func (rt *RealtimeClient) OnDisconnected(h func(reason string)) {
	rt.dispatcher.mu.Lock()
	rt.dispatcher.onDisconnected = append(rt.dispatcher.onDisconnected, h)
	rt.dispatcher.mu.Unlock()
}

// OnReconnecting registers a handler fired before each reconnect attempt.
func (rt *RealtimeClient) OnReconnecting(h func(attempt int, delay time.Duration)) {
	rt.dispatcher.mu.Lock()
	rt.dispatcher.onReconnecting = append(rt.dispatcher.onReconnecting, h)
	rt.dispatcher.mu.Unlock()
}

// On registers a generic handler for a named event.
func (rt *RealtimeClient) On(event string, h RealtimeEventHandler) {
	rt.dispatcher.mu.Lock()
	rt.dispatcher.generic[event] = append(rt.dispatcher.generic[event], h)
	rt.dispatcher.mu.Unlock()
}

// State returns the current connection state.
func (rt *RealtimeClient) State() RealtimeState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// Connect establishes the WebSocket connection. Calling it while a
// connection is live or in progress is a no-op.
func (rt *RealtimeClient) Connect(ctx context.Context) error {
	rt.mu.Lock()
	if rt.state == StateConnected || rt.state == StateConnecting {
		rt.mu.Unlock()
		return nil
	}
	rt.state = StateConnecting
	rt.intentionalClose = false
	rt.mu.Unlock()

	wsURL := strings.Replace(rt.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/socket"
	if rt.config.Token != "" {
		wsURL += "?token=" + rt.config.Token
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		rt.mu.Lock()
		rt.state = StateDisconnected
		rt.mu.Unlock()
		return fmt.Errorf("websocket dial: %w", err)
	}

	rt.mu.Lock()
	rt.conn = conn
	rt.state = StateConnected
	rt.mu.Unlock()
	rt.recon.markConnected()

	rt.dispatcher.emitConnected()

	connCtx, cancel := context.WithCancel(context.Background())
	rt.mu.Lock()
	rt.cancelFn = cancel
	rt.mu.Unlock()

	go rt.readLoop(connCtx)

	return nil
}

// Disconnect gracefully closes the connection. No reconnect is attempted.
func (rt *RealtimeClient) Disconnect() error {
	rt.mu.Lock()
	rt.intentionalClose = true
	if rt.cancelFn != nil {
		rt.cancelFn()
		rt.cancelFn = nil
	}
	conn := rt.conn
	rt.conn = nil
	rt.state = StateDisconnected
	rt.mu.Unlock()

	rt.dispatcher.emitDisconnected("client disconnect")

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	return nil
}

// JoinConversation asks the server to route the conversation's events to
// this connection.
func (rt *RealtimeClient) JoinConversation(ctx context.Context, conversationID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Event:     CommandJoinRoom,
		Data:      conversationID,
		RequestID: uuid.NewString(),
	})
}

// LeaveConversation stops event routing for the conversation.
func (rt *RealtimeClient) LeaveConversation(ctx context.Context, conversationID string) error {
	return rt.Send(ctx, &RealtimeCommand{
		Event:     CommandLeaveRoom,
		Data:      conversationID,
		RequestID: uuid.NewString(),
	})
}

// Send sends a raw command over the connection.
func (rt *RealtimeClient) Send(ctx context.Context, cmd *RealtimeCommand) error {
	rt.mu.Lock()
	conn := rt.conn
	rt.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (rt *RealtimeClient) readLoop(ctx context.Context) {
	for {
		rt.mu.Lock()
		conn := rt.conn
		rt.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			rt.mu.Lock()
			intentional := rt.intentionalClose
			rt.mu.Unlock()
			if intentional {
				return
			}

			rt.mu.Lock()
			rt.state = StateDisconnected
			rt.conn = nil
			rt.mu.Unlock()

			rt.dispatcher.emitDisconnected(err.Error())

			if !rt.config.DisableReconnect && rt.recon.shouldReconnect() {
				rt.scheduleReconnect()
			}
			return
		}

		var env RealtimeEnvelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		rt.dispatcher.dispatch(env)
	}
}

// scheduleReconnect retries with capped exponential backoff until a
// connection holds or attempts run out. Exhaustion leaves the client
// disconnected; callers observe it only as absence of further events.
func (rt *RealtimeClient) scheduleReconnect() {
	delay := rt.recon.nextDelay()
	rt.mu.Lock()
	rt.state = StateReconnecting
	rt.mu.Unlock()

	rt.dispatcher.emitReconnecting(rt.recon.attempt, delay)

	time.Sleep(delay)

	rt.mu.Lock()
	if rt.intentionalClose {
		rt.mu.Unlock()
		return
	}
	rt.state = StateDisconnected
	rt.mu.Unlock()

	if err := rt.Connect(context.Background()); err != nil {
		if !rt.config.DisableReconnect && rt.recon.shouldReconnect() {
			rt.scheduleReconnect()
		} else {
			rt.mu.Lock()
			rt.state = StateDisconnected
			rt.mu.Unlock()
		}
	}
}

// ============================================================================
// Shared Connection
// ============================================================================

// sharedConn is the process-wide connection. Guarded by sharedMu across the
// whole first dial so that two interleaved first calls cannot open two
// connections.
var (
	sharedMu   sync.Mutex
	sharedConn *RealtimeClient
)

// GetConnection returns the shared real-time connection, dialing it on
// first use. Concurrent first callers block until the one dial finishes and
// then all receive the same handle.
func GetConnection(ctx context.Context, baseURL string, config *RealtimeConfig) (*RealtimeClient, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedConn != nil {
		return sharedConn, nil
	}

	rt := NewRealtimeClient(baseURL, config)
	if err := rt.Connect(ctx); err != nil {
		return nil, err
	}
	sharedConn = rt
	return sharedConn, nil
}

// DisconnectShared tears down the shared connection and clears the handle,
// so a later GetConnection dials a fresh one. Scoped to session teardown.
func DisconnectShared() error {
	sharedMu.Lock()
	rt := sharedConn
	sharedConn = nil
	sharedMu.Unlock()

	if rt == nil {
		return nil
	}
	return rt.Disconnect()
}
