package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "declcast",
	Short: "Customs declaration forecasting service",
	Long: `declcast turns daily customs declaration records into lag and calendar
features, trains one of six forecasting models per customer and serves
multi-day forecasts and accuracy evaluations over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, trainCmd, evaluateCmd, forecastCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
