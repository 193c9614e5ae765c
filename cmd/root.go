package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taxdesk/answer-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "taxqa",
	Short: "Korean capital-gains-tax answer engine",
	Long:  "Searches whitelisted tax sources, ranks evidence, generates dual answer drafts, resolves conflicts against the web evidence, and assembles a structured final answer.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
