package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Paramfpv/lev/internal/log"
)

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(Config{}, log.NewNop())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("NewClient() = %v, want ErrMissingAPIKey", err)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		APIKey: "gsk-test",
		APIURL: srv.URL,
	}, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestComplete(t *testing.T) {
	var gotAuth string
	var gotReq completionRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "Magnesium helps with sleep."}},
			},
		})
	})

	messages := []Message{
		{Role: RoleSystem, Content: "You are a longevity expert."},
		{Role: RoleUser, Content: "Does magnesium help sleep?"},
	}
	answer, err := client.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if answer != "Magnesium helps with sleep." {
		t.Errorf("answer = %q", answer)
	}
	if gotAuth != "Bearer gsk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.MaxTokens != 800 {
		t.Errorf("max_tokens = %d, want 800", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != RoleSystem {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestComplete_NonOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model overloaded"}`, http.StatusServiceUnavailable)
	})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Complete on 503 returned nil error")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not carry the status", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Complete with empty choices returned nil error")
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Complete(ctx, []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatal("Complete with cancelled context returned nil error")
	}
}
