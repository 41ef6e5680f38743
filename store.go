package adminchat

import "sync"

// ChatStore holds the client-side view of the operator's inbox and the
// active conversation's message sequence. The ChatController is the only
// writer; consumers read snapshots.
//
// The store is goroutine-safe because push events arrive on the real-time
// connection's read goroutine while fetches complete on the caller's.
type ChatStore struct {
	mu            sync.RWMutex
	conversations []Conversation
	messages      []Message
	activeID      string
}

// NewChatStore creates an empty store.
func NewChatStore() *ChatStore {
	return &ChatStore{}
}

// SetActive binds the store to a conversation identifier. Pass "" to
// unbind. Incoming merges for any other conversation are discarded.
func (s *ChatStore) SetActive(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = conversationID
}

// Active returns the bound conversation identifier, or "".
func (s *ChatStore) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SetConversations replaces the inbox with the fetched list.
func (s *ChatStore) SetConversations(list []Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append([]Conversation(nil), list...)
}

// UpsertConversation inserts or refreshes one conversation. An existing
// entry is replaced in place, preserving its position; a new one is
// prepended, since newly started conversations sort most-recent-first.
func (s *ChatStore) UpsertConversation(conv Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].ID == conv.ID {
			s.conversations[i] = conv
			return
		}
	}
	s.conversations = append([]Conversation{conv}, s.conversations...)
}

// Conversations returns a snapshot of the inbox.
func (s *ChatStore) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Conversation(nil), s.conversations...)
}

// ConversationForStore scans the inbox for the conversation whose
// counterparty store matches storeID.
func (s *ChatStore) ConversationForStore(storeID string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.Store.ID == storeID {
			return c, true
		}
	}
	return Conversation{}, false
}

// SetMessages replaces the active conversation's message sequence with a
// freshly fetched history window. Full replacement: the fetch is
// authoritative for the window it covers, superseding any prior merges.
func (s *ChatStore) SetMessages(list []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]Message(nil), list...)
}

// Messages returns a snapshot of the active message sequence.
func (s *ChatStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// MergeIncoming reconciles one incoming message — push event or confirmed
// send — against the active sequence. Returns true when the message was
// appended.
//
// Rules, in order:
//  1. No active conversation: discard.
//  2. The message names a conversation other than the active one: discard.
//  3. A message with the same identifier is already present: discard. This
//     makes confirm-then-push double delivery safe regardless of which copy
//     lands first.
//  4. Otherwise append.
//
// Append-only: the sequence is not re-sorted by CreatedAt, so an event
// delivered out of creation-time order stays out of order until the next
// full history refresh.
func (s *ChatStore) MergeIncoming(msg Message) bool {
	_, merged := s.merge(msg)
	return merged
}

// merge is MergeIncoming plus the conversation the message landed in,
// captured under the same lock so callers filing the message elsewhere
// (the cache) cannot race a selection switch.
func (s *ChatStore) merge(msg Message) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return "", false
	}
	if msg.ConversationID != "" && msg.ConversationID != s.activeID {
		return "", false
	}
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			return "", false
		}
	}
	s.messages = append(s.messages, msg)
	return s.activeID, true
}
