package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Paramfpv/lev/internal/chat"
	"github.com/Paramfpv/lev/internal/config"
	"github.com/Paramfpv/lev/internal/llm"
	"github.com/Paramfpv/lev/internal/log"
	"github.com/Paramfpv/lev/internal/vector"
)

// newLogger creates the process logger. --verbose lowers the level to debug.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// newCollection opens the vector store collection. A missing credential
// returns (nil, nil) after a warning: callers degrade instead of failing.
func newCollection(ctx context.Context, cfg *config.Config, logger log.Logger) (*vector.Collection, error) {
	client, err := vector.NewClient(vector.Config{
		APIKey:   cfg.Chroma.APIKey,
		Tenant:   cfg.Chroma.Tenant,
		Database: cfg.Chroma.Database,
		BaseURL:  cfg.Chroma.BaseURL,
	}, logger)
	if errors.Is(err, vector.ErrMissingAPIKey) {
		logger.Warn("CHROMA_API_KEY not set, vector store disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating vector client: %w", err)
	}

	col, err := client.GetOrCreateCollection(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", cfg.Collection, err)
	}
	return col, nil
}

// newCompleter creates the inference client. A missing credential returns
// (nil, nil) after a warning; the engine then answers with the
// configuration error text instead of crashing.
func newCompleter(cfg *config.Config, logger log.Logger) (*llm.Client, error) {
	client, err := llm.NewClient(llm.Config{
		APIKey:      cfg.Groq.APIKey,
		APIURL:      cfg.Groq.APIURL,
		Model:       cfg.Groq.Model,
		Temperature: cfg.Groq.Temperature,
		MaxTokens:   cfg.Groq.MaxTokens,
		Timeout:     time.Duration(cfg.Groq.TimeoutSeconds) * time.Second,
	}, logger)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		logger.Warn("GROQ_API_KEY not set, inference disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating inference client: %w", err)
	}
	return client, nil
}

// newEngineFactory returns a constructor for per-conversation chat engines
// sharing the given clients. Nil clients stay nil in the engine config so
// it degrades per its own rules.
func newEngineFactory(cfg *config.Config, col *vector.Collection, completer *llm.Client, logger log.Logger) func() (*chat.Engine, error) {
	return func() (*chat.Engine, error) {
		engineCfg := chat.Config{
			Logger:          logger,
			TopK:            cfg.TopK,
			MaxMemoryTurns:  cfg.MaxMemoryTurns,
			MaxContextChars: cfg.MaxContextChars,
		}
		if col != nil {
			engineCfg.Searcher = col
		}
		if completer != nil {
			engineCfg.Completer = completer
		}
		return chat.New(engineCfg)
	}
}
