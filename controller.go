package adminchat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoActiveConversation is returned by Send when no conversation is bound.
var ErrNoActiveConversation = errors.New("adminchat: no active conversation")

// ControllerState is the controller's position in the active-conversation
// state machine.
type ControllerState string

const (
	// ControllerIdle: nothing selected, no room joined, sequence empty.
	ControllerIdle ControllerState = "idle"
	// ControllerResolving: a counterparty was selected and the controller
	// is finding or creating its conversation.
	ControllerResolving ControllerState = "resolving"
	// ControllerActive: a conversation is bound and its room joined.
	ControllerActive ControllerState = "active"
)

// RealtimeTransport is the slice of the real-time connection the controller
// drives. *RealtimeClient satisfies it.
type RealtimeTransport interface {
	JoinConversation(ctx context.Context, conversationID string) error
	LeaveConversation(ctx context.Context, conversationID string) error
	OnNewMessage(h func(Message))
	OnConnected(h func())
}

// ControllerOptions configures optional controller behavior.
type ControllerOptions struct {
	// Cache receives write-through copies of fetched state for offline
	// viewing. Nil disables caching.
	Cache Cache
	// RejoinTimeout bounds the room re-join issued after a reconnect.
	RejoinTimeout time.Duration
}

// ChatController sequences user intent (select counterparty, send) and
// asynchronous server events (push messages, reconnects) into one
// consistent story over the ChatStore. It is the store's only writer and
// the only component issuing room join/leave commands.
type ChatController struct {
	controllerEmitter
	api   *ChatClient
	store *ChatStore
	rt    RealtimeTransport
	cache Cache

	mu            sync.Mutex
	state         ControllerState
	activeID      string
	joinedRoom    string
	fetchSeq      uint64
	rejoinTimeout time.Duration
}

// NewChatController wires a controller to the REST client and real-time
// transport, registering its push-event and reconnect handlers.
func NewChatController(client *Client, rt RealtimeTransport, opts *ControllerOptions) *ChatController {
	c := &ChatController{
		controllerEmitter: controllerEmitter{listeners: make(map[string][]ControllerEventHandler)},
		api:               client.Chat(),
		store:             NewChatStore(),
		rt:                rt,
		state:             ControllerIdle,
		rejoinTimeout:     10 * time.Second,
	}
	if opts != nil {
		c.cache = opts.Cache
		if opts.RejoinTimeout > 0 {
			c.rejoinTimeout = opts.RejoinTimeout
		}
	}

	rt.OnNewMessage(c.handleNewMessage)
	rt.OnConnected(c.handleConnected)
	return c
}

// Store exposes the underlying store for read-only snapshots.
func (c *ChatController) Store() *ChatStore {
	return c.store
}

// State returns the controller's current state.
func (c *ChatController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveConversationID returns the bound conversation identifier, or "".
func (c *ChatController) ActiveConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// FetchInbox loads the conversation list into the store. On failure the
// prior inbox is left untouched.
func (c *ChatController) FetchInbox(ctx context.Context) error {
	convs, err := c.api.Inbox(ctx)
	if err != nil {
		return fmt.Errorf("fetch inbox: %w", err)
	}
	c.store.SetConversations(convs)
	if c.cache != nil {
		_ = c.cache.PutConversations(convs)
	}
	return nil
}

// SelectCounterparty drives the Idle/Active → Resolving → Active
// transition for a store. The conversation is resolved from the current
// inbox when present, created via the backend otherwise; its room is
// joined (leaving any previously joined room first) and its history
// fetched.
//
// Selecting the already-active counterparty refetches history but issues
// no duplicate join. On creation failure the controller returns to Idle
// with nothing selected.
func (c *ChatController) SelectCounterparty(ctx context.Context, store StoreRef) (*Conversation, error) {
	c.mu.Lock()
	c.state = ControllerResolving
	c.mu.Unlock()

	conv, found := c.store.ConversationForStore(store.ID)
	if !found {
		created, err := c.api.Start(ctx, store.ID)
		if err != nil {
			c.resetToIdle(ctx)
			return nil, fmt.Errorf("start conversation with store %s: %w", store.ID, err)
		}
		conv = *created
	}
	c.store.UpsertConversation(conv)

	if err := c.bindConversation(ctx, conv.ID); err != nil {
		return &conv, err
	}

	if err := c.fetchHistory(ctx, conv.ID); err != nil {
		return &conv, err
	}
	return &conv, nil
}

// Send posts text (and optional attachments) to the active conversation.
// The message appears in the sequence only once the backend confirms it and
// assigns its identifier; a push echo of the same identifier, before or
// after, is absorbed by the merge de-duplication. On failure nothing is
// inserted.
func (c *ChatController) Send(ctx context.Context, text string, files ...FileAttachment) (*Message, error) {
	c.mu.Lock()
	if c.state != ControllerActive {
		c.mu.Unlock()
		return nil, ErrNoActiveConversation
	}
	convID := c.activeID
	c.mu.Unlock()

	msg, err := c.api.Send(ctx, convID, text, files)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	// The backend may omit conversationId on the confirmation body. Stamp
	// it so the merge filter still applies if the selection moved on while
	// the request was in flight.
	if msg.ConversationID == "" {
		msg.ConversationID = convID
	}

	if c.store.MergeIncoming(*msg) && c.cache != nil {
		_ = c.cache.AppendMessage(convID, *msg)
	}
	return msg, nil
}

// MarkRead records the operator's read position in the active conversation.
func (c *ChatController) MarkRead(ctx context.Context) error {
	c.mu.Lock()
	convID := c.activeID
	c.mu.Unlock()
	if convID == "" {
		return ErrNoActiveConversation
	}
	return c.api.MarkRead(ctx, convID)
}

// Close leaves the joined room and returns the controller to Idle. The
// transport connection itself stays up; it is shared session state.
func (c *ChatController) Close(ctx context.Context) {
	c.resetToIdle(ctx)
}

// ----------------------------------------------------------------------------
// Internals
// ----------------------------------------------------------------------------

// bindConversation makes conversationID the active conversation: joins its
// room (idempotently), leaves the previous room, and clears the message
// sequence when the binding actually changed.
func (c *ChatController) bindConversation(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	prevRoom := c.joinedRoom
	changed := c.activeID != conversationID
	c.activeID = conversationID
	c.state = ControllerActive
	c.mu.Unlock()

	c.store.SetActive(conversationID)
	if changed {
		c.store.SetMessages(nil)
	}

	if prevRoom == conversationID {
		return nil
	}
	if prevRoom != "" {
		if err := c.rt.LeaveConversation(ctx, prevRoom); err != nil {
			c.emit("error", fmt.Errorf("leave room %s: %w", prevRoom, err))
		}
	}
	if err := c.rt.JoinConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("join room %s: %w", conversationID, err)
	}
	c.mu.Lock()
	c.joinedRoom = conversationID
	c.mu.Unlock()
	return nil
}

// fetchHistory loads the conversation's authoritative message window. A
// response that lands after the active conversation moved on — detected by
// identifier and fetch sequence — is discarded silently, never an error.
func (c *ChatController) fetchHistory(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	msgs, err := c.api.Messages(ctx, conversationID)

	c.mu.Lock()
	stale := c.activeID != conversationID || c.fetchSeq != seq
	c.mu.Unlock()
	if stale {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	c.store.SetMessages(msgs)
	if c.cache != nil {
		_ = c.cache.PutMessages(conversationID, msgs)
	}
	return nil
}

func (c *ChatController) resetToIdle(ctx context.Context) {
	c.mu.Lock()
	prevRoom := c.joinedRoom
	c.joinedRoom = ""
	c.activeID = ""
	c.state = ControllerIdle
	c.mu.Unlock()

	c.store.SetActive("")
	c.store.SetMessages(nil)

	if prevRoom != "" {
		if err := c.rt.LeaveConversation(ctx, prevRoom); err != nil {
			c.emit("error", fmt.Errorf("leave room %s: %w", prevRoom, err))
		}
	}
}

// handleNewMessage is the push-event path: every received message goes
// through the store's merge, which applies the conversation filter and
// identifier de-duplication.
func (c *ChatController) handleNewMessage(msg Message) {
	if convID, merged := c.store.merge(msg); merged {
		c.emit("message", msg)
		if c.cache != nil {
			_ = c.cache.AppendMessage(convID, msg)
		}
	}
}

// handleConnected re-joins the active room after a (re)connect; the server
// forgets room membership when the connection drops.
func (c *ChatController) handleConnected() {
	c.mu.Lock()
	room := c.joinedRoom
	timeout := c.rejoinTimeout
	c.mu.Unlock()
	if room == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.rt.JoinConversation(ctx, room); err != nil {
		c.emit("error", fmt.Errorf("rejoin room %s: %w", room, err))
	}
}

// ============================================================================
// Controller Events
// ============================================================================

// ControllerEventHandler observes controller events: "message" (a merged
// push message) and "error" (a background failure with no caller to
// return to).
type ControllerEventHandler func(event string, payload any)

type controllerEmitter struct {
	emu       sync.RWMutex
	listeners map[string][]ControllerEventHandler
}

// OnEvent registers an observer for a controller event.
func (e *controllerEmitter) OnEvent(event string, h ControllerEventHandler) {
	e.emu.Lock()
	defer e.emu.Unlock()
	e.listeners[event] = append(e.listeners[event], h)
}

func (e *controllerEmitter) emit(event string, payload any) {
	e.emu.RLock()
	handlers := append([]ControllerEventHandler{}, e.listeners[event]...)
	e.emu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() { recover() }() // swallow panics in user callbacks
			h(event, payload)
		}()
	}
}
