package adminchat

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Cache persists inbox and message history so recent support threads stay
// viewable while the backend is unreachable. The controller writes through
// after every successful fetch or merge; reads are on demand.
type Cache interface {
	PutConversations(convs []Conversation) error
	Conversations() ([]Conversation, error)
	PutMessages(conversationID string, msgs []Message) error
	AppendMessage(conversationID string, msg Message) error
	Messages(conversationID string) ([]Message, error)
}

// ============================================================================
// MemoryCache
// ============================================================================

// MemoryCache is a goroutine-safe in-memory Cache.
type MemoryCache struct {
	mu            sync.RWMutex
	conversations []Conversation
	messages      map[string][]Message
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		messages: make(map[string][]Message),
	}
}

func (m *MemoryCache) PutConversations(convs []Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = append([]Conversation(nil), convs...)
	return nil
}

func (m *MemoryCache) Conversations() ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Conversation(nil), m.conversations...), nil
}

func (m *MemoryCache) PutMessages(conversationID string, msgs []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[conversationID] = append([]Message(nil), msgs...)
	return nil
}

func (m *MemoryCache) AppendMessage(conversationID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.messages[conversationID] {
		if existing.ID == msg.ID {
			return nil
		}
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	return nil
}

func (m *MemoryCache) Messages(conversationID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.messages[conversationID]...), nil
}

// ============================================================================
// SQLCache
// ============================================================================

const cacheSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	data            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages (conversation_id, created_at);
`

// SQLCache is a sqlite-backed Cache. Rows store the wire JSON; the schema
// only carries the columns needed for lookup and ordering.
type SQLCache struct {
	db *sqlx.DB
}

// NewSQLCache opens (creating if needed) the cache database at path.
// Use ":memory:" for an ephemeral cache.
func NewSQLCache(path string) (*SQLCache, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLCache{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLCache) Close() error {
	return s.db.Close()
}

func (s *SQLCache) PutConversations(convs []Conversation) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return err
	}
	for i, c := range convs {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO conversations (id, position, data) VALUES (?, ?, ?)`,
			c.ID, i, string(data))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLCache) Conversations() ([]Conversation, error) {
	var rows []string
	err := s.db.Select(&rows, `SELECT data FROM conversations ORDER BY position`)
	if err != nil {
		return nil, err
	}
	convs := make([]Conversation, 0, len(rows))
	for _, raw := range rows {
		var c Conversation
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("corrupt conversation row: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, nil
}

func (s *SQLCache) PutMessages(conversationID string, msgs []Message) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}
	for _, m := range msgs {
		if err := insertMessage(tx, conversationID, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLCache) AppendMessage(conversationID string, msg Message) error {
	var existing string
	err := s.db.Get(&existing, `SELECT id FROM messages WHERE id = ?`, msg.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertMessage(tx, conversationID, msg); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLCache) Messages(conversationID string) ([]Message, error) {
	var rows []string
	err := s.db.Select(&rows,
		`SELECT data FROM messages WHERE conversation_id = ? ORDER BY created_at, id`,
		conversationID)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(rows))
	for _, raw := range rows {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("corrupt message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func insertMessage(tx *sqlx.Tx, conversationID string, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO messages (id, conversation_id, created_at, data) VALUES (?, ?, ?, ?)`,
		m.ID, conversationID, m.CreatedAt, string(data))
	return err
}
