package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load PDFs into the knowledge base",
	Long: `Splits every PDF in the directory (default knowledge.pdf_dir) into
overlapping chunks, embeds them and stores them in the vector store.
Re-ingesting a file replaces its previous chunks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := cfg.Knowledge.PDFDir
	if len(args) == 1 {
		dir = args[0]
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	a, err := newKnowledgeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	res, err := a.ingester.IngestDir(ctx, dir)
	if err != nil {
		return err
	}

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}
	logger.Info("Ingest complete",
		zap.Int("files", res.Files),
		zap.Int("chunks", res.Chunks))
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d chunks from %d files (%d chunks total)\n",
		res.Chunks, res.Files, stats.Chunks)
	return nil
}
