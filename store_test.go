package adminchat

import (
	"fmt"
	"testing"
)

func testMessage(id, convID, text string) Message {
	return Message{
		ID:             id,
		Sender:         Sender{ID: "admin-1", Name: "Operator", Role: "admin"},
		Text:           text,
		CreatedAt:      "2026-02-01T10:00:00Z",
		ConversationID: convID,
	}
}

func testConversation(id, storeID, storeName string) Conversation {
	return Conversation{
		ID:    id,
		Store: StoreRef{ID: storeID, Name: storeName},
		Participants: []Participant{
			{User: UserRef{ID: "vendor-" + storeID, Name: storeName + " Support"}},
		},
	}
}

// ============================================================================
// MergeIncoming
// ============================================================================

func TestMergeIncoming(t *testing.T) {
	t.Run("appends to active conversation", func(t *testing.T) {
		s := NewChatStore()
		s.SetActive("conv-1")

		if !s.MergeIncoming(testMessage("m1", "conv-1", "hello")) {
			t.Fatal("expected merge to append")
		}
		msgs := s.Messages()
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Fatalf("unexpected sequence: %+v", msgs)
		}
	})

	t.Run("deduplicates by identifier", func(t *testing.T) {
		s := NewChatStore()
		s.SetActive("conv-1")

		first := testMessage("m1", "conv-1", "hello")
		dup := testMessage("m1", "conv-1", "hello again")

		if !s.MergeIncoming(first) {
			t.Fatal("first merge should append")
		}
		if s.MergeIncoming(dup) {
			t.Fatal("duplicate identifier should be discarded")
		}
		msgs := s.Messages()
		if len(msgs) != 1 {
			t.Fatalf("expected exactly one entry, got %d", len(msgs))
		}
		if msgs[0].Text != "hello" {
			t.Fatalf("duplicate must not overwrite: %q", msgs[0].Text)
		}
	})

	t.Run("idempotent under repeated delivery", func(t *testing.T) {
		s := NewChatStore()
		s.SetActive("conv-1")

		msg := testMessage("m1", "conv-1", "hello")
		for i := 0; i < 5; i++ {
			s.MergeIncoming(msg)
		}
		if got := len(s.Messages()); got != 1 {
			t.Fatalf("expected 1 entry after 5 deliveries, got %d", got)
		}
	})

	t.Run("filters other conversations", func(t *testing.T) {
		s := NewChatStore()
		s.SetActive("conv-1")
		s.SetMessages([]Message{testMessage("m1", "conv-1", "hello")})

		if s.MergeIncoming(testMessage("m2", "conv-2", "wrong room")) {
			t.Fatal("message for another conversation must be discarded")
		}
		msgs := s.Messages()
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Fatalf("sequence changed: %+v", msgs)
		}
	})

	t.Run("accepts message without conversation id", func(t *testing.T) {
		// No conversationId means the event belongs to the joined room.
		s := NewChatStore()
		s.SetActive("conv-1")

		if !s.MergeIncoming(testMessage("m1", "", "from joined room")) {
			t.Fatal("expected merge to append")
		}
	})

	t.Run("discards when nothing is active", func(t *testing.T) {
		s := NewChatStore()
		if s.MergeIncoming(testMessage("m1", "", "orphan")) {
			t.Fatal("merge with no active conversation must discard")
		}
		if len(s.Messages()) != 0 {
			t.Fatal("sequence must stay empty")
		}
	})

	t.Run("append-only preserves arrival order", func(t *testing.T) {
		s := NewChatStore()
		s.SetActive("conv-1")

		newer := testMessage("m2", "conv-1", "second")
		newer.CreatedAt = "2026-02-01T10:05:00Z"
		older := testMessage("m1", "conv-1", "first")
		older.CreatedAt = "2026-02-01T10:01:00Z"

		s.MergeIncoming(newer)
		s.MergeIncoming(older)

		msgs := s.Messages()
		if msgs[0].ID != "m2" || msgs[1].ID != "m1" {
			t.Fatalf("merge must not resort by timestamp: %+v", msgs)
		}
	})
}

// ============================================================================
// SetMessages
// ============================================================================

func TestSetMessagesReplacesSequence(t *testing.T) {
	s := NewChatStore()
	s.SetActive("conv-1")

	// Build up state through merges, then replace.
	for i := 0; i < 3; i++ {
		s.MergeIncoming(testMessage(fmt.Sprintf("old-%d", i), "conv-1", "stale"))
	}

	fresh := []Message{
		testMessage("m1", "conv-1", "one"),
		testMessage("m2", "conv-1", "two"),
	}
	s.SetMessages(fresh)

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected exact replacement, got %d entries", len(msgs))
	}
	for i, want := range []string{"m1", "m2"} {
		if msgs[i].ID != want {
			t.Errorf("entry %d: got %s, want %s", i, msgs[i].ID, want)
		}
	}
}

func TestMessagesReturnsSnapshot(t *testing.T) {
	s := NewChatStore()
	s.SetActive("conv-1")
	s.SetMessages([]Message{testMessage("m1", "conv-1", "hello")})

	snap := s.Messages()
	snap[0].Text = "mutated"

	if s.Messages()[0].Text != "hello" {
		t.Fatal("snapshot mutation leaked into store")
	}
}

// ============================================================================
// Conversations
// ============================================================================

func TestUpsertConversation(t *testing.T) {
	t.Run("prepends new conversation", func(t *testing.T) {
		s := NewChatStore()
		s.SetConversations([]Conversation{testConversation("c1", "s1", "Acme")})

		s.UpsertConversation(testConversation("c2", "s2", "Globex"))

		convs := s.Conversations()
		if len(convs) != 2 || convs[0].ID != "c2" {
			t.Fatalf("new conversation must be prepended: %+v", convs)
		}
	})

	t.Run("replaces existing in place", func(t *testing.T) {
		s := NewChatStore()
		s.SetConversations([]Conversation{
			testConversation("c1", "s1", "Acme"),
			testConversation("c2", "s2", "Globex"),
		})

		updated := testConversation("c2", "s2", "Globex Renamed")
		s.UpsertConversation(updated)

		convs := s.Conversations()
		if len(convs) != 2 {
			t.Fatalf("upsert must not grow the inbox: %d", len(convs))
		}
		if convs[1].Store.Name != "Globex Renamed" {
			t.Fatalf("existing entry not replaced in place: %+v", convs[1])
		}
	})
}

func TestConversationForStore(t *testing.T) {
	s := NewChatStore()
	s.SetConversations([]Conversation{
		testConversation("c1", "s1", "Acme"),
		testConversation("c2", "s2", "Globex"),
	})

	conv, ok := s.ConversationForStore("s2")
	if !ok || conv.ID != "c2" {
		t.Fatalf("lookup by store failed: %+v ok=%v", conv, ok)
	}
	if _, ok := s.ConversationForStore("s3"); ok {
		t.Fatal("unknown store must not resolve")
	}
}
