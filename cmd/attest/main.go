// Command attest runs the explanation trust engine: an HTTP service
// exposing consensus attribution, uncertainty estimation, confidence
// calibration, and windowed quality metrics, plus one-shot maintenance
// subcommands for operators.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "attest",
		Short: "Explanation trust engine for visual inspection models",
		Long: `attest aggregates attribution heatmaps from independent explainability
methods into consensus explanations, quantifies predictive uncertainty
via Monte Carlo dropout, tracks confidence calibration, and reduces
inspection history into time-windowed quality metrics.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration (defaults apply when omitted)")

	root.AddCommand(newServeCmd(), newCalibrateCmd(), newSnapshotCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
