package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/Paramfpv/lev/internal/llm"
	"github.com/Paramfpv/lev/internal/log"
)

// Searcher is the retrieval dependency: the top-K most relevant chunk
// contents for a query, in descending relevance order. internal/vector's
// Collection satisfies it.
type Searcher interface {
	Query(ctx context.Context, query string, topK int) ([]string, error)
}

// Completer is the inference dependency. internal/llm's Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// EmptyQueryReply is returned for empty or whitespace-only questions.
const EmptyQueryReply = "Please enter a valid question."

// DefaultTopK is the default retrieval depth.
const DefaultTopK = 3

// Config contains the parameters for one Engine.
type Config struct {
	// Searcher may be nil when the vector store is not configured; the
	// engine then answers without retrieved context.
	Searcher Searcher

	// Completer may be nil when the inference credential is missing; the
	// engine then returns (and records) a descriptive error text.
	Completer Completer

	Logger log.Logger

	TopK            int
	MaxMemoryTurns  int
	MaxContextChars int
	Persona         string
}

func (cfg Config) validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Engine drives one logical conversation: retrieve, assemble, complete,
// record. One Engine owns one Memory; deployments serving several
// conversations create one Engine per conversation.
type Engine struct {
	searcher  Searcher
	completer Completer
	assembler *Assembler
	memory    *Memory
	topK      int
	logger    log.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxMemoryTurns <= 0 {
		cfg.MaxMemoryTurns = DefaultMaxMemoryTurns
	}

	return &Engine{
		searcher:  cfg.Searcher,
		completer: cfg.Completer,
		assembler: NewAssembler(cfg.Persona, cfg.MaxContextChars, cfg.MaxMemoryTurns),
		memory:    NewMemory(cfg.MaxMemoryTurns),
		topK:      cfg.TopK,
		logger:    cfg.Logger,
	}, nil
}

// Chat answers one question. It never fails the caller: inference problems
// come back as descriptive text.
//
// Compatibility policy: when the inference call fails, the error text is
// the answer and IS recorded as the assistant turn, mirroring what the
// user saw. An empty question is rejected before any side effect.
func (e *Engine) Chat(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return EmptyQueryReply
	}

	contexts := e.retrieve(ctx, query)
	messages := e.assembler.Build(query, e.memory.Snapshot(2*e.assembler.maxMemoryTurns), contexts)
	answer := e.complete(ctx, messages)

	e.memory.Append(RoleUser, query)
	e.memory.Append(RoleAssistant, answer)
	return answer
}

// retrieve fetches contexts for the query. An unavailable or failing store
// degrades to answering without context instead of failing the exchange.
func (e *Engine) retrieve(ctx context.Context, query string) []string {
	if e.searcher == nil {
		e.logger.Warn("vector store not configured, answering without context")
		return nil
	}
	contexts, err := e.searcher.Query(ctx, query, e.topK)
	if err != nil {
		e.logger.Error("context retrieval failed", "error", err)
		return nil
	}
	e.logger.Debug("contexts retrieved", "count", len(contexts))
	return contexts
}

func (e *Engine) complete(ctx context.Context, messages []llm.Message) string {
	if e.completer == nil {
		return "Error: missing GROQ_API_KEY."
	}
	reply, err := e.completer.Complete(ctx, messages)
	if err != nil {
		e.logger.Error("completion failed", "error", err)
		return "Request failed: " + err.Error()
	}
	return reply
}

// History returns a copy of all retained turns, oldest first.
func (e *Engine) History() []Turn {
	return e.memory.Snapshot(e.memory.Len())
}

// Reset clears the conversation memory.
func (e *Engine) Reset() {
	e.memory.Reset()
}
