package telegram_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform/telegram"
)

func TestSend_PostsSeverityPrefixedMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	n := telegram.New("bot-token", "chat-42", telegram.WithBaseURL(srv.URL))
	if err := n.Send(context.Background(), platform.SeverityCritical, "all accounts exhausted"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Errorf("path = %q, want /botbot-token/sendMessage", gotPath)
	}
	if gotBody["chat_id"] != "chat-42" {
		t.Errorf("chat_id = %q, want chat-42", gotBody["chat_id"])
	}
	if gotBody["text"] != "[CRITICAL] all accounts exhausted" {
		t.Errorf("text = %q, want severity prefix", gotBody["text"])
	}
}

func TestSend_SurfacesAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok": false, "description": "chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := telegram.New("tok", "chat", telegram.WithBaseURL(srv.URL))
	err := n.Send(context.Background(), platform.SeverityError, "boom")
	if err == nil {
		t.Fatal("Send() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("Send() error = %v, want status in message", err)
	}
}

func TestSend_DropsDebugWhenRateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	// Burst of one: the second debug send finds no token and is dropped.
	n := telegram.New("tok", "chat",
		telegram.WithBaseURL(srv.URL),
		telegram.WithRateLimit(rate.Every(time.Hour), 1))

	ctx := context.Background()
	if err := n.Send(ctx, platform.SeverityDebug, "first"); err != nil {
		t.Fatalf("Send(first debug) error: %v", err)
	}
	if err := n.Send(ctx, platform.SeverityDebug, "second"); err != nil {
		t.Fatalf("Send(second debug) error: %v", err)
	}

	if calls != 1 {
		t.Errorf("server saw %d sends, want 1 (second debug dropped)", calls)
	}
}

func TestSend_CancelledContextWhileWaiting(t *testing.T) {
	n := telegram.New("tok", "chat",
		telegram.WithRateLimit(rate.Every(time.Hour), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.Send(ctx, platform.SeverityInfo, "never sent"); err == nil {
		t.Error("Send() error = nil with cancelled context, want error")
	}
}
