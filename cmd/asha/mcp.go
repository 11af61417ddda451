package main

import (
	"context"

	"asha/internal/mcp"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Asha tools over MCP stdio",
	Long: `Exposes the career advisor, HerKey listings and the safety pipeline as
Model Context Protocol tools on stdin/stdout.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	svc := mcp.Services{Answerer: a.responder}
	if a.herkey != nil {
		svc.Board = a.herkey
	}
	if a.safety != nil {
		svc.Safety = a.safety
	}

	s := mcp.NewServer("asha", version, svc)
	return mcp.ServeStdio(s)
}
