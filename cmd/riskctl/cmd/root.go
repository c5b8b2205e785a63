package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "riskctl",
	Short: "Operator tool for the options-bot risk-control engine",
	Long: `riskctl inspects and exercises the risk-control engine offline.

It provides tools for:
  - Validating gameplan documents against account hard limits
  - Running a proposed trade through the full pre-trade check pipeline
  - Inspecting the persisted risk state blob
  - Reviewing journaled decisions`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
}
