package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taxdesk/answer-engine/internal/evidence"
)

var (
	evidenceRefresh bool
	evidenceFast    bool
	evidenceJSON    bool
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence <query>",
	Short: "Build and print the evidence pack for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		pack, err := env.Builder.Build(cmd.Context(), args[0], evidence.BuildOptions{
			ForceRefresh: evidenceRefresh,
			Fast:         evidenceFast || cfg.Search.FastMode,
		})
		if err != nil {
			return err
		}

		if evidenceJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pack)
		}

		fmt.Printf("query: %s\n", pack.Metadata.Query)
		fmt.Printf("latency: %dms  coverage: %.0f%%  diversity: %.0f%%\n",
			pack.Metadata.LatencyMS,
			pack.Metadata.WhitelistCoverage*100,
			pack.Metadata.DomainDiversity*100)
		for i, item := range pack.Evidence {
			fmt.Printf("%d. [%s] (%s, tier %d, score %.3f)\n   %s\n   %s\n",
				i+1, item.Domain, item.Type, item.Priority, item.Score, item.Title, item.URL)
		}
		return nil
	},
}

func init() {
	evidenceCmd.Flags().BoolVar(&evidenceRefresh, "refresh", false, "bypass the cached pack")
	evidenceCmd.Flags().BoolVar(&evidenceFast, "fast", false, "fast mode: fewer extractions, cheaper ranking")
	evidenceCmd.Flags().BoolVar(&evidenceJSON, "json", false, "print the full pack as JSON")
	rootCmd.AddCommand(evidenceCmd)
}
