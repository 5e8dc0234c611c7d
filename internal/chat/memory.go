// Package chat implements the session-bounded conversation engine: it
// retrieves relevant protocol chunks for a question, assembles a prompt
// within fixed memory and context bounds, calls the inference endpoint,
// and records the exchange.
package chat

import "sync"

// Turn roles. These match the roles accepted by the inference endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxMemoryTurns is the default number of logical exchanges (one
// user turn plus one assistant turn each) a session retains.
const DefaultMaxMemoryTurns = 10

// Turn is one role-tagged entry in a conversation.
type Turn struct {
	Role    string
	Content string
}

// Memory is the bounded, ordered turn log for a single conversation.
// It never holds more than 2×maxTurns turns; the oldest are evicted first.
//
// Memory is volatile: persistence of history is the storage layer's
// responsibility. Safe for concurrent use, though one conversation is
// normally driven by one caller at a time.
type Memory struct {
	mu       sync.RWMutex
	turns    []Turn
	maxTurns int
}

// NewMemory creates a Memory bounded to maxTurns logical exchanges.
func NewMemory(maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxMemoryTurns
	}
	return &Memory{maxTurns: maxTurns}
}

// Append pushes one turn, evicting from the front once the bound of
// 2×maxTurns turns is exceeded.
func (m *Memory) Append(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, Turn{Role: role, Content: content})
	if limit := 2 * m.maxTurns; len(m.turns) > limit {
		m.turns = append([]Turn(nil), m.turns[len(m.turns)-limit:]...)
	}
}

// Snapshot returns a copy of the most recent n turns in original order.
// It does not mutate the memory.
func (m *Memory) Snapshot(n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || len(m.turns) == 0 {
		return nil
	}
	if n > len(m.turns) {
		n = len(m.turns)
	}
	out := make([]Turn, n)
	copy(out, m.turns[len(m.turns)-n:])
	return out
}

// Len returns the number of retained turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Reset clears all turns.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
