// Package cmd implements the lev command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "lev",
	Short: "lev - longevity protocol chatbot",
	Long: `lev answers questions about longevity protocols using retrieval
augmented generation: protocol documents are chunked and indexed in a
vector store, and each question is answered from the most relevant
chunks plus recent conversation history.

Running lev without a subcommand starts an interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
