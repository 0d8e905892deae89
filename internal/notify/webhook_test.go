package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotify_DeliversEvent(t *testing.T) {
	t.Parallel()

	got := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		got <- ev
	}))
	defer srv.Close()

	n := NewWebhook(0)
	n.Notify(context.Background(), srv.URL, Event{
		Event:      "dispatch.sent",
		Tenant:     "acme",
		LogID:      "log-1",
		Recipients: []string{"ann@example.com"},
		Subject:    "Hi Ann",
		Timestamp:  time.Now().UTC(),
	})

	select {
	case ev := <-got:
		if ev.Event != "dispatch.sent" || ev.LogID != "log-1" {
			t.Fatalf("payload mismatch: %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("webhook never arrived")
	}
}

func TestNotify_EmptyURLIsNoop(t *testing.T) {
	t.Parallel()
	// No debe paniquear ni disparar nada.
	NewWebhook(0).Notify(context.Background(), "", Event{Event: "dispatch.sent"})
}

func TestNotify_DoesNotBlockOnDeadEndpoint(t *testing.T) {
	t.Parallel()

	n := NewWebhook(100 * time.Millisecond)
	start := time.Now()
	n.Notify(context.Background(), "http://127.0.0.1:1/webhook", Event{Event: "dispatch.failed"})
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("Notify blocked for %v", elapsed)
	}
}
