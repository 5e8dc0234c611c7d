package chat

import (
	"fmt"
	"strings"

	"github.com/Paramfpv/lev/internal/llm"
)

// DefaultPersona is the fixed system instruction for the chatbot.
const DefaultPersona = "You are a friendly, science-based longevity expert. " +
	"Give short, evidence-based, and practical answers. " +
	"If needed, suggest the user consult a doctor."

// DefaultMaxContextChars bounds the retrieved-context segment of the prompt.
const DefaultMaxContextChars = 3000

// contextSeparator joins retrieved chunks before truncation.
const contextSeparator = "\n\n"

// Assembler builds the message list for one inference call: a fixed persona
// system message followed by a single user message holding the truncated
// retrieved context, the rendered recent history, and the question.
type Assembler struct {
	persona         string
	maxContextChars int
	maxMemoryTurns  int
}

// NewAssembler creates an Assembler. Zero values fall back to the defaults.
func NewAssembler(persona string, maxContextChars, maxMemoryTurns int) *Assembler {
	if persona == "" {
		persona = DefaultPersona
	}
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	if maxMemoryTurns <= 0 {
		maxMemoryTurns = DefaultMaxMemoryTurns
	}
	return &Assembler{
		persona:         persona,
		maxContextChars: maxContextChars,
		maxMemoryTurns:  maxMemoryTurns,
	}
}

// Build assembles the messages for query. Contexts are joined first and
// truncated afterwards, so earlier (more relevant) contexts survive a cut
// and later ones may be dropped entirely.
func (a *Assembler) Build(query string, memory []Turn, contexts []string) []llm.Message {
	contextText := truncate(strings.Join(contexts, contextSeparator), a.maxContextChars)

	recent := memory
	if limit := 2 * a.maxMemoryTurns; len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	lines := make([]string, len(recent))
	for i, turn := range recent {
		lines[i] = turn.Role + ": " + turn.Content
	}
	historyText := strings.Join(lines, "\n")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: a.persona},
		{Role: llm.RoleUser, Content: fmt.Sprintf(
			"Context:\n%s\n\nHistory:\n%s\n\nQuestion: %s",
			contextText, historyText, query)},
	}
}

// truncate cuts s to at most n characters (runes, not bytes).
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
