package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paramfpv/lev/internal/config"
	"github.com/Paramfpv/lev/internal/ingest"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk new protocol documents and index them in the vector store",
	Long: `ingest scans the protocols directory for .txt documents that have not
been processed yet, splits them into overlapping chunks, appends the
chunks to the local ledger, and upserts them to the vector store.

Running ingest twice against an unchanged corpus does no work the
second time. Use --force to re-chunk and re-index every document,
replacing the ledger entries for the documents on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-process all documents, not just new ones")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest() error {
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

	var indexer *ingest.Indexer
	if col != nil {
		indexer = ingest.NewIndexer(col, cfg.BatchSize, logger)
	}

	pipeline := ingest.NewPipeline(
		ingest.NewLedger(cfg.LedgerPath, logger),
		ingest.NewLoader(cfg.ProtocolsDir, logger),
		ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		indexer,
		logger,
	)
	pipeline.Force = ingestForce

	res, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("running ingestion: %w", err)
	}

	fmt.Printf("Processed %d document(s), %d chunk(s)\n", res.Documents, res.Chunks)
	if res.Chunks > 0 && !res.Indexed {
		fmt.Println("Chunks were not indexed; see the log for details.")
	}
	return nil
}
