//go:build integration

package adminchat_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	adminchat "github.com/vendora-hq/adminchat-go"
)

// These tests run against a live Vendora backend. They are excluded from the
// normal test run; enable them with:
//
//	VENDORA_TOKEN_TEST=... VENDORA_BASE_URL_TEST=http://localhost:5000 \
//	VENDORA_REALTIME_URL_TEST=http://localhost:5001 \
//	VENDORA_STORE_ID_TEST=... go test -tags integration ./...

// helpers ---------------------------------------------------------------

func adminToken(t *testing.T) string {
	t.Helper()
	token := os.Getenv("VENDORA_TOKEN_TEST")
	if token == "" {
		t.Skip("VENDORA_TOKEN_TEST environment variable is required")
	}
	return token
}

func liveClient(t *testing.T) *adminchat.Client {
	t.Helper()
	var opts []adminchat.ClientOption
	if u := os.Getenv("VENDORA_BASE_URL_TEST"); u != "" {
		opts = append(opts, adminchat.WithBaseURL(u))
	}
	if u := os.Getenv("VENDORA_REALTIME_URL_TEST"); u != "" {
		opts = append(opts, adminchat.WithRealtimeURL(u))
	}
	return adminchat.NewClient(adminToken(t), opts...)
}

func testStoreID(t *testing.T) string {
	t.Helper()
	id := os.Getenv("VENDORA_STORE_ID_TEST")
	if id == "" {
		t.Skip("VENDORA_STORE_ID_TEST environment variable is required")
	}
	return id
}

// tests -----------------------------------------------------------------

func TestIntegrationInbox(t *testing.T) {
	client := liveClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conversations, err := client.Chat().Inbox(ctx)
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	t.Logf("inbox has %d conversations", len(conversations))
}

func TestIntegrationSendAndHistory(t *testing.T) {
	client := liveClient(t)
	storeID := testStoreID(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conv, err := client.Chat().Start(ctx, storeID)
	if err != nil {
		t.Fatalf("start conversation failed: %v", err)
	}

	text := fmt.Sprintf("integration test %d", time.Now().UnixNano())
	sent, err := client.Chat().Send(ctx, conv.ID, text, nil)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sent.ID == "" {
		t.Fatal("sent message has no identifier")
	}

	history, err := client.Chat().Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("history fetch failed: %v", err)
	}
	found := false
	for _, msg := range history {
		if msg.ID == sent.ID {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("sent message %s not present in history of %d messages", sent.ID, len(history))
	}
}

func TestIntegrationRealtimeSession(t *testing.T) {
	client := liveClient(t)
	storeID := testStoreID(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rt, err := adminchat.GetConnection(ctx, client.RealtimeURL(), nil)
	if err != nil {
		t.Fatalf("real-time connect failed: %v", err)
	}
	defer adminchat.DisconnectShared()

	controller := adminchat.NewChatController(client, rt, nil)
	defer controller.Close(context.Background())

	if err := controller.FetchInbox(ctx); err != nil {
		t.Fatalf("inbox fetch failed: %v", err)
	}
	conv, err := controller.SelectCounterparty(ctx, adminchat.StoreRef{ID: storeID})
	if err != nil {
		t.Fatalf("select counterparty failed: %v", err)
	}
	if controller.State() != adminchat.ControllerActive {
		t.Fatalf("state = %v, want active", controller.State())
	}

	msg, err := controller.Send(ctx, "realtime integration check")
	if err != nil {
		t.Fatalf("controller send failed: %v", err)
	}
	t.Logf("sent %s to conversation %s", msg.ID, conv.ID)
}
