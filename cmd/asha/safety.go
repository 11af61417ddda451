package main

import (
	"github.com/spf13/cobra"
)

var safetyInput string

var safetyCmd = &cobra.Command{
	Use:   "safety <response>",
	Short: "Run a response through the bias and safety filters",
	Long: `Prints the safety pipeline's analysis as JSON: the final response,
bias analysis, sensitive-topic report and inclusive-language suggestions.`,
	Args: cobra.ExactArgs(1),
	RunE: runSafety,
}

func init() {
	safetyCmd.Flags().StringVarP(&safetyInput, "input", "i", "", "User message that prompted the response")
}

func runSafety(cmd *cobra.Command, args []string) error {
	p, err := newSafetyPipeline(cfg)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), p.Process(safetyInput, args[0]))
}
