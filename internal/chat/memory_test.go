package chat

import (
	"fmt"
	"testing"
)

func TestMemory_AppendAndSnapshot(t *testing.T) {
	m := NewMemory(10)
	m.Append(RoleUser, "question")
	m.Append(RoleAssistant, "answer")

	turns := m.Snapshot(4)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0] != (Turn{RoleUser, "question"}) || turns[1] != (Turn{RoleAssistant, "answer"}) {
		t.Errorf("turns = %+v", turns)
	}
}

func TestMemory_Bound(t *testing.T) {
	const maxTurns = 3
	m := NewMemory(maxTurns)

	for i := 0; i < 20; i++ {
		m.Append(RoleUser, fmt.Sprintf("q%d", i))
		m.Append(RoleAssistant, fmt.Sprintf("a%d", i))
	}

	if m.Len() != 2*maxTurns {
		t.Fatalf("len = %d, want %d", m.Len(), 2*maxTurns)
	}

	// The retained turns are the most recent ones, in original order.
	turns := m.Snapshot(m.Len())
	if turns[0] != (Turn{RoleUser, "q17"}) {
		t.Errorf("oldest retained turn = %+v, want q17", turns[0])
	}
	if turns[len(turns)-1] != (Turn{RoleAssistant, "a19"}) {
		t.Errorf("newest turn = %+v, want a19", turns[len(turns)-1])
	}
}

func TestMemory_SnapshotDoesNotMutate(t *testing.T) {
	m := NewMemory(5)
	m.Append(RoleUser, "q")
	m.Append(RoleAssistant, "a")

	turns := m.Snapshot(2)
	turns[0].Content = "mutated"

	if got := m.Snapshot(2)[0].Content; got != "q" {
		t.Errorf("memory mutated through snapshot: %q", got)
	}
}

func TestMemory_SnapshotSmallerThanLog(t *testing.T) {
	m := NewMemory(5)
	for i := 0; i < 6; i++ {
		m.Append(RoleUser, fmt.Sprintf("t%d", i))
	}

	turns := m.Snapshot(2)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Content != "t4" || turns[1].Content != "t5" {
		t.Errorf("turns = %+v, want the two most recent", turns)
	}
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory(5)
	m.Append(RoleUser, "q")
	m.Reset()

	if m.Len() != 0 {
		t.Errorf("len after reset = %d", m.Len())
	}
	if turns := m.Snapshot(10); turns != nil {
		t.Errorf("snapshot after reset = %+v", turns)
	}
}
