package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paramfpv/lev/internal/chat"
	"github.com/Paramfpv/lev/internal/llm"
	"github.com/Paramfpv/lev/internal/log"
	"github.com/Paramfpv/lev/internal/storage"
)

// echoCompleter answers every prompt with a fixed reply.
type echoCompleter struct {
	reply string
}

func (c echoCompleter) Complete(context.Context, []llm.Message) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T, store *storage.Store) *Server {
	t.Helper()

	registry := NewRegistry(func() (*chat.Engine, error) {
		return chat.New(chat.Config{
			Completer: echoCompleter{reply: "take it with dinner"},
			Logger:    log.NewNop(),
		})
	})

	srv, err := NewServer(ServerConfig{
		Logger:  log.NewNop(),
		Engines: registry,
		Store:   store,
	})
	require.NoError(t, err)
	return srv
}

func newAPIStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "lev.db"), log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestNewServer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewServer(ServerConfig{Engines: NewRegistry(nil)})
	assert.Error(t, err, "nil logger")

	_, err = NewServer(ServerConfig{Logger: log.NewNop()})
	assert.Error(t, err, "nil registry")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	handler := srv.Handler()

	w := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	// Readiness without a database reports not ready.
	w = doJSON(t, handler, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadiness_WithStore(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newAPIStore(t))
	w := doJSON(t, srv.Handler(), http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", w.Body.String())
}

func TestChat(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/chat",
		chatRequest{Question: "when should I take magnesium?"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "take it with dinner", resp.Answer)
}

func TestChat_EmptyQuestion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/chat", chatRequest{Question: "   "})

	require.Equal(t, http.StatusOK, w.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, chat.EmptyQueryReply, resp.Answer)
}

func TestChat_InvalidBody(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")
}

func TestChat_QuestionTooLong(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/chat",
		chatRequest{Question: strings.Repeat("a", MaxQuestionLength+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_PersistsHistoryForRegisteredUser(t *testing.T) {
	t.Parallel()

	store := newAPIStore(t)
	srv := newTestServer(t, store)
	handler := srv.Handler()

	user, err := store.Register(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	w := doJSON(t, handler, http.MethodPost, "/chat",
		chatRequest{Question: "how much zinc?", UserID: user.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/history/"+user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		History []storage.Exchange `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "how much zinc?", resp.History[0].Question)
	assert.Equal(t, "take it with dinner", resp.History[0].Answer)
}

func TestChat_ConversationsAreIsolated(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	handler := srv.Handler()

	doJSON(t, handler, http.MethodPost, "/chat", chatRequest{Question: "q1", UserID: "user-a"})
	doJSON(t, handler, http.MethodPost, "/chat", chatRequest{Question: "q2", UserID: "user-b"})

	// Resetting one conversation leaves the other alone.
	w := doJSON(t, handler, http.MethodPost, "/reset", resetRequest{UserID: "user-a"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistory_UnknownUser(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newAPIStore(t))
	w := doJSON(t, srv.Handler(), http.MethodGet, "/history/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "user_not_found")
}

func TestHistory_StorageUnavailable(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/history/any", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newAPIStore(t))
	handler := srv.Handler()

	w := doJSON(t, handler, http.MethodPost, "/register",
		credentialsRequest{Email: "alice@example.com", Password: "s3cret"})
	require.Equal(t, http.StatusCreated, w.Code)

	var user storage.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.NotEmpty(t, user.ID)

	// Duplicate registration conflicts.
	w = doJSON(t, handler, http.MethodPost, "/register",
		credentialsRequest{Email: "alice@example.com", Password: "other"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Valid and invalid logins.
	w = doJSON(t, handler, http.MethodPost, "/login",
		credentialsRequest{Email: "alice@example.com", Password: "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/login",
		credentialsRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newAPIStore(t))
	w := doJSON(t, srv.Handler(), http.MethodPost, "/register",
		credentialsRequest{Email: "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRoutes_AbsentWithoutStore(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	w := doJSON(t, srv.Handler(), http.MethodPost, "/register",
		credentialsRequest{Email: "a@b.com", Password: "pw"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := chain(panicking, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
