package api

import (
	"sync"

	"github.com/Paramfpv/lev/internal/chat"
)

// Registry hands out one chat engine per conversation, keyed by user id.
// Requests without a user id share the anonymous engine. Engines are
// created lazily and retained for the life of the process; their memory
// is what makes follow-up questions coherent.
type Registry struct {
	mu        sync.Mutex
	engines   map[string]*chat.Engine
	newEngine func() (*chat.Engine, error)
}

// NewRegistry creates a Registry. newEngine builds a fresh engine for a
// conversation that has not been seen before.
func NewRegistry(newEngine func() (*chat.Engine, error)) *Registry {
	return &Registry{
		engines:   make(map[string]*chat.Engine),
		newEngine: newEngine,
	}
}

// Get returns the engine for userID, creating it on first use. An empty
// userID maps to the shared anonymous conversation.
func (r *Registry) Get(userID string) (*chat.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[userID]; ok {
		return e, nil
	}
	e, err := r.newEngine()
	if err != nil {
		return nil, err
	}
	r.engines[userID] = e
	return e, nil
}

// Reset clears the conversation memory for userID. A conversation that
// never existed is not an error.
func (r *Registry) Reset(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[userID]; ok {
		e.Reset()
	}
}
