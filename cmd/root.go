package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/config"
)

var cfg *config.Config

// cliUser is the identity one-shot commands act as. The API reads it from
// the X-User-ID header instead.
var cliUser string

var rootCmd = &cobra.Command{
	Use:   "dealdesk",
	Short: "Pitch deck analysis pipeline",
	Long:  "Ingests pitch decks, extracts structured deal data via Claude, runs a multi-agent investment council, and answers questions over the portfolio.",
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

func init() {
	rootCmd.PersistentFlags().StringVar(&cliUser, "user", "local", "user identity for CLI operations")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
