package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/predictive-prefetch/internal/analyzer"
	"github.com/capitalize-ai/predictive-prefetch/internal/parser"
)

var (
	parseQuery string
	parseTopic string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse raw model output into a prediction batch",
	Long: `Parse raw model output the way the server does. Reads stdin when no
file is given. Exits non-zero when the output is unusable.

Example:
  prefetchctl parse --query "What is Go?" response.txt
  cat response.txt | prefetchctl parse`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseQuery, "query", "", "Original query")
	parseCmd.Flags().StringVar(&parseTopic, "topic", "", "Fallback topic (default: analyzed from --query)")
}

func runParse(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read model output: %w", err)
	}

	topic := parseTopic
	if topic == "" {
		topic = analyzer.NewHeuristic().Analyze(parseQuery).MainTopic
	}

	resp, err := parser.Parse(string(raw), parseQuery, topic)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, resp)
	}

	fmt.Fprintf(out, "Main topic:  %s\n", resp.MainTopic)
	fmt.Fprintf(out, "Predictions: %d (avg confidence %.2f)\n", len(resp.Predictions), resp.AverageConfidence())
	for i, p := range resp.Predictions {
		fmt.Fprintf(out, "%3d. [%s %.2f] %s\n", i+1, p.Type, p.Confidence, p.Question)
	}
	return nil
}
