package adminchat

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Test Helpers
// ============================================================================

const testSecret = "test-webhook-secret-key"

func makeTestSignature(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func makeMessagePayload() string {
	payload := WebhookPayload{
		Source:    "vendora_admin",
		Event:     WebhookEventMessage,
		Timestamp: 1770000000,
		Message: &Message{
			ID:             "msg-001",
			Sender:         Sender{ID: "vendor-1", Name: "Acme Support", Role: "vendor"},
			Text:           "Hello from webhook",
			CreatedAt:      "2026-02-01T10:00:00Z",
			ConversationID: "conv-001",
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func makeVendorPayload() string {
	payload := WebhookPayload{
		Source:    "vendora_admin",
		Event:     WebhookEventVendorStatus,
		Timestamp: 1770000000,
		Vendor: &VendorRequest{
			ID:     "vendor-9",
			Email:  "owner@acme.example",
			Status: VendorApproved,
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// ============================================================================
// VerifyWebhookSignature
// ============================================================================

func TestVerifyWebhookSignature(t *testing.T) {
	t.Run("valid signature", func(t *testing.T) {
		body := makeMessagePayload()
		sig := makeTestSignature(body, testSecret)
		if !VerifyWebhookSignature(body, sig, testSecret) {
			t.Fatal("expected valid signature")
		}
	})

	t.Run("valid without prefix", func(t *testing.T) {
		body := makeMessagePayload()
		sig := strings.TrimPrefix(makeTestSignature(body, testSecret), "sha256=")
		if !VerifyWebhookSignature(body, sig, testSecret) {
			t.Fatal("expected valid signature without prefix")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		body := makeMessagePayload()
		sig := makeTestSignature(body, "wrong-secret")
		if VerifyWebhookSignature(body, sig, testSecret) {
			t.Fatal("expected invalid signature")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		body := makeMessagePayload()
		sig := makeTestSignature(body, testSecret)
		if VerifyWebhookSignature(body+" ", sig, testSecret) {
			t.Fatal("expected invalid signature for tampered body")
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		if VerifyWebhookSignature("", "sig", testSecret) ||
			VerifyWebhookSignature("body", "", testSecret) ||
			VerifyWebhookSignature("body", "sig", "") {
			t.Fatal("empty inputs must never verify")
		}
	})
}

// ============================================================================
// ParseWebhookPayload
// ============================================================================

func TestParseWebhookPayload(t *testing.T) {
	t.Run("message event", func(t *testing.T) {
		payload, err := ParseWebhookPayload(makeMessagePayload())
		if err != nil {
			t.Fatalf("ParseWebhookPayload: %v", err)
		}
		if payload.Message == nil || payload.Message.ID != "msg-001" {
			t.Fatalf("payload = %+v", payload)
		}
	})

	t.Run("vendor event", func(t *testing.T) {
		payload, err := ParseWebhookPayload(makeVendorPayload())
		if err != nil {
			t.Fatalf("ParseWebhookPayload: %v", err)
		}
		if payload.Vendor == nil || payload.Vendor.Status != VendorApproved {
			t.Fatalf("payload = %+v", payload)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := ParseWebhookPayload("{not json"); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		body := strings.Replace(makeMessagePayload(), "vendora_admin", "someone_else", 1)
		if _, err := ParseWebhookPayload(body); err == nil {
			t.Fatal("expected source rejection")
		}
	})

	t.Run("message event without message", func(t *testing.T) {
		body := fmt.Sprintf(`{"source":"vendora_admin","event":%q,"timestamp":1}`, WebhookEventMessage)
		if _, err := ParseWebhookPayload(body); err == nil {
			t.Fatal("expected missing-message rejection")
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		body := `{"source":"vendora_admin","event":"order.created","timestamp":1}`
		if _, err := ParseWebhookPayload(body); err == nil {
			t.Fatal("expected unknown-event rejection")
		}
	})
}

// ============================================================================
// WebhookReceiver
// ============================================================================

func TestWebhookReceiver(t *testing.T) {
	t.Run("requires secret", func(t *testing.T) {
		if _, err := NewWebhookReceiver("", nil); err == nil {
			t.Fatal("expected error for empty secret")
		}
	})

	t.Run("dispatches valid request", func(t *testing.T) {
		var handled *WebhookPayload
		wr, err := NewWebhookReceiver(testSecret, func(p *WebhookPayload) error {
			handled = p
			return nil
		})
		if err != nil {
			t.Fatalf("NewWebhookReceiver: %v", err)
		}

		body := makeMessagePayload()
		status, _ := wr.Handle(body, makeTestSignature(body, testSecret))
		if status != http.StatusOK {
			t.Fatalf("status = %d", status)
		}
		if handled == nil || handled.Message.ID != "msg-001" {
			t.Fatalf("handler saw %+v", handled)
		}
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		wr, _ := NewWebhookReceiver(testSecret, func(p *WebhookPayload) error { return nil })
		status, _ := wr.Handle(makeMessagePayload(), "sha256=deadbeef")
		if status != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", status)
		}
	})

	t.Run("handler error becomes 500", func(t *testing.T) {
		wr, _ := NewWebhookReceiver(testSecret, func(p *WebhookPayload) error {
			return fmt.Errorf("downstream broke")
		})
		body := makeVendorPayload()
		status, _ := wr.Handle(body, makeTestSignature(body, testSecret))
		if status != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", status)
		}
	})
}

func TestWebhookHTTPHandler(t *testing.T) {
	wr, _ := NewWebhookReceiver(testSecret, func(p *WebhookPayload) error { return nil })
	srv := httptest.NewServer(wr.HTTPHandler())
	defer srv.Close()

	t.Run("rejects non-POST", func(t *testing.T) {
		resp, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", resp.StatusCode)
		}
	})

	t.Run("accepts signed POST", func(t *testing.T) {
		body := makeMessagePayload()
		req, _ := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(body))
		req.Header.Set("X-Vendora-Signature", makeTestSignature(body, testSecret))

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
		}
	})
}
