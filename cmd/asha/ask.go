package main

import (
	"context"
	"fmt"
	"strings"

	"asha/cmd/asha/ui"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var askRaw bool

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Ask a single career question",
	Long: `Runs one question through the full responder (knowledge base, web
search, listings and safety filters) and prints the reply as markdown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print markdown without rendering")
}

func runAsk(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	a, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	reply, err := a.responder.GenerateResponse(ctx, message, nil)
	if err != nil {
		return err
	}

	out := reply.Combined()
	if !askRaw {
		out = renderMarkdown(out, 100)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// renderMarkdown renders md for the terminal, returning it unchanged when
// glamour fails.
func renderMarkdown(md string, width int) string {
	style := "light"
	if ui.DetectTheme().IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
