package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/taxdesk/answer-engine/internal/evidence"
	"github.com/taxdesk/answer-engine/internal/model"
)

var (
	conflictDraftA string
	conflictDraftB string
	conflictQuery  string
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Score the disagreement between two drafts",
	Long:  "Reads two draft files, optionally builds an evidence pack for a query, and prints the conflict analysis as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if conflictDraftA == "" || conflictDraftB == "" {
			return eris.New("--draft-a and --draft-b are required")
		}

		draftA, err := os.ReadFile(conflictDraftA)
		if err != nil {
			return eris.Wrap(err, "read draft A")
		}
		draftB, err := os.ReadFile(conflictDraftB)
		if err != nil {
			return eris.Wrap(err, "read draft B")
		}

		env, err := initPipeline(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		var pack *model.EvidencePack
		if conflictQuery != "" {
			pack, err = env.Builder.Build(cmd.Context(), conflictQuery, evidence.BuildOptions{})
			if err != nil {
				return err
			}
		}

		analysis, err := env.Resolver.Resolve(cmd.Context(), string(draftA), string(draftB), pack)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	conflictCmd.Flags().StringVar(&conflictDraftA, "draft-a", "", "path to the evidence-conditioned draft")
	conflictCmd.Flags().StringVar(&conflictDraftB, "draft-b", "", "path to the unconditioned draft")
	conflictCmd.Flags().StringVar(&conflictQuery, "query", "", "build an evidence pack for this query and include it")
	rootCmd.AddCommand(conflictCmd)
}
