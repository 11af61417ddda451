package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"asha/internal/knowledge"
	"asha/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat HTTP API",
	Long: `Starts the HTTP API on the configured address. Routes are served both
at the root and under /api:

  GET  /health
  GET  /suggestions[?stage=beginner|mid-career|advanced]
  POST /ask {"message": "...", "history": ["..."]}`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Re-ingest PDFs when the knowledge directory changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	a, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if cfg.Knowledge.IngestOnBoot {
		if err := a.ingestIfEmpty(ctx); err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
	}

	if serveWatch {
		w, err := knowledge.NewWatcher(cfg.Knowledge.PDFDir, a.ingester)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(a.responder, server.Options{
		Addr:             addr,
		AllowOrigins:     cfg.Server.AllowOrigins,
		Suggestions:      cfg.Server.Suggestions,
		StageSuggestions: cfg.Server.StageSuggestions,
		RequestTimeout:   cfg.GetRequestTimeout(),
		ShutdownTimeout:  cfg.GetShutdownTimeout(),
	})

	logger.Info("Serving", zap.String("addr", addr))
	return srv.Run(ctx)
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
