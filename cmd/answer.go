package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taxdesk/answer-engine/internal/evidence"
)

var (
	answerSession string
	answerFast    bool
	answerRefresh bool
	answerJSON    bool
)

var answerCmd = &cobra.Command{
	Use:   "answer <query>",
	Short: "Run the full pipeline and print the final answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		if answerRefresh {
			if err := env.Answer.Invalidate(cmd.Context(), args[0]); err != nil {
				return err
			}
		}

		pack, err := env.Builder.Build(cmd.Context(), args[0], evidence.BuildOptions{
			ForceRefresh: answerRefresh,
			Fast:         answerFast || cfg.Search.FastMode,
		})
		if err != nil {
			return err
		}

		result, err := env.Answer.Answer(cmd.Context(), args[0], answerSession, pack)
		if err != nil {
			return err
		}

		if answerJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Println(result.Answer.Text)
		fmt.Printf("\n---\ndecision: %s  conflict: %.2f  evidence: %d  latency: %dms\n",
			result.Answer.Decision,
			result.Conflict.ConflictScore,
			len(pack.Evidence),
			result.LatencyMS)
		return nil
	},
}

func init() {
	answerCmd.Flags().StringVar(&answerSession, "session", "", "session id for metrics correlation")
	answerCmd.Flags().BoolVar(&answerFast, "fast", false, "fast mode evidence build")
	answerCmd.Flags().BoolVar(&answerRefresh, "refresh", false, "bypass the cached evidence pack")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(answerCmd)
}
