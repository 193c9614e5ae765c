package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var metricsHours int

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print aggregated query metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Metrics.Snapshot(cmd.Context(), time.Duration(metricsHours)*time.Hour)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()
		return env.Cache.Purge(cmd.Context())
	},
}

func init() {
	metricsCmd.Flags().IntVar(&metricsHours, "hours", 24, "lookback window in hours")
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(cachePurgeCmd)
}
