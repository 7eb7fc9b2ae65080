package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/predictive-prefetch/internal/analyzer"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/internal/prompt"
	"github.com/capitalize-ai/predictive-prefetch/internal/scope"
)

var promptTier string

var promptCmd = &cobra.Command{
	Use:   "prompt <query>",
	Short: "Show the master prompt generated for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := joinArgs(args)
		analysis := analyzer.NewHeuristic().Analyze(query)
		policy := scope.Calculate(analysis, promptTier, scope.DefaultPolicy())
		return printPrompt(cmd.OutOrStdout(), prompt.Master(query, analysis, policy))
	},
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge <current-topic> <previous-topic>",
	Short: "Show the bridge prompt for a topic pivot",
	Long: `Show the prompt used when a session moves from one topic to another.
Nothing is printed when the topics are equal or the previous one is empty.

Example:
  prefetchctl bridge "black holes" "quantum computing"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mp := prompt.Bridge(args[0], args[1])
		if mp == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "no bridge: topics are the same or previous topic is empty")
			return nil
		}
		return printPrompt(cmd.OutOrStdout(), *mp)
	},
}

func init() {
	promptCmd.Flags().StringVar(&promptTier, "tier", "", "User tier hint")
}

func printPrompt(w io.Writer, mp model.MasterPrompt) error {
	if outputJSON {
		return writeJSON(w, mp)
	}
	fmt.Fprintln(w, "=== SYSTEM ===")
	fmt.Fprintln(w, mp.SystemPrompt)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== USER ===")
	fmt.Fprintln(w, mp.UserPrompt)
	return nil
}
