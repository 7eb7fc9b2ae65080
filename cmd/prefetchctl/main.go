// Command prefetchctl inspects the prefetch engine's pure stages offline:
// topic analysis, scope policy, prompt generation and response parsing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
