package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var outputJSON bool

var rootCmd = &cobra.Command{
	Use:   "prefetchctl",
	Short: "Inspect prefetch engine stages offline",
	Long: `prefetchctl runs the deterministic stages of the prefetch engine
without calling a model: classify a query, show the policy and prompts it
would produce, and parse raw model output the way the server does.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(parseCmd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
