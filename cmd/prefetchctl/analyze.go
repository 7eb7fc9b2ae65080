package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/predictive-prefetch/internal/analyzer"
	"github.com/capitalize-ai/predictive-prefetch/internal/model"
	"github.com/capitalize-ai/predictive-prefetch/internal/scope"
)

var analyzeTier string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Classify a query and show the resulting policy",
	Long: `Run the topic analyzer and scope calculator on a query.

Example:
  prefetchctl analyze "What is quantum computing?"
  prefetchctl analyze --tier premium "Optimize neural network architecture"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTier, "tier", "", "User tier hint (premium and enterprise scale the count)")
}

type analyzeOutput struct {
	Analysis model.TopicAnalysis `json:"analysis"`
	Policy   model.PolicyConfig  `json:"policy"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query := joinArgs(args)
	analysis := analyzer.NewHeuristic().Analyze(query)
	policy := scope.Calculate(analysis, analyzeTier, scope.DefaultPolicy())

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, analyzeOutput{Analysis: analysis, Policy: policy})
	}

	fmt.Fprintf(out, "Main topic:      %s\n", analysis.MainTopic)
	fmt.Fprintf(out, "Intent:          %s\n", analysis.Intent)
	fmt.Fprintf(out, "Complexity:      %s\n", analysis.Complexity)
	fmt.Fprintf(out, "Sub-topics:      %s\n", listOrDash(analysis.SubTopics))
	fmt.Fprintf(out, "Related domains: %s\n", listOrDash(analysis.RelatedDomains))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Scope:           %s\n", policy.PredictionScope)
	fmt.Fprintf(out, "Predictions:     %d\n", policy.PredictionsPerQuery)
	fmt.Fprintf(out, "Min confidence:  %.2f\n", policy.MinConfidenceThreshold)
	return nil
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
