package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestTelegram(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tg := NewTelegram("TESTTOKEN", zap.NewNop())
	tg.apiBase = srv.URL
	tg.backoff = time.Millisecond
	return tg
}

func TestSendPostsJSONPayload(t *testing.T) {
	var gotPath string
	var gotPayload sendMessagePayload

	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := tg.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/botTESTTOKEN/sendMessage" {
		t.Errorf("path = %q, want /botTESTTOKEN/sendMessage", gotPath)
	}
	if gotPayload.ChatID != 42 || gotPayload.Text != "hello" {
		t.Errorf("payload = %+v, want chat 42 text hello", gotPayload)
	}
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	tg := newTestTelegram(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := tg.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestSendGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	tg := newTestTelegram(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := tg.Send(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxAttempts)
	}
}

func TestSendDisabledWithoutToken(t *testing.T) {
	tg := NewTelegram("", zap.NewNop())
	if err := tg.Send(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("Send with empty token: %v", err)
	}
}

func TestSendRejectsZeroChatID(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not reach the API")
	})
	if err := tg.Send(context.Background(), 0, "hello"); err == nil {
		t.Fatal("expected error for zero chat id")
	}
}

func TestCreditedMessage(t *testing.T) {
	msg := CreditedMessage("Ava", "Dee", "200.00", 1)
	for _, want := range []string{"Ava", "Dee", "200.00", "level 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
