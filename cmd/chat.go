package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paramfpv/lev/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively about longevity protocols",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	col, err := newCollection(ctx, cfg, logger)
	if err != nil {
		return err
	}
	completer, err := newCompleter(cfg, logger)
	if err != nil {
		return err
	}

	engine, err := newEngineFactory(cfg, col, completer, logger)()
	if err != nil {
		return fmt.Errorf("creating chat engine: %w", err)
	}

	fmt.Println("Ask about longevity protocols. Type 'quit' or 'exit' to leave.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "quit" || question == "exit" {
			break
		}

		fmt.Printf("Bot: %s\n\n", engine.Chat(ctx, question))

		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println("Goodbye!")
	return nil
}
