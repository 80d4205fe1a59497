package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/venturesight/dealdesk/internal/model"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a pitch deck and run the full pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}

		doc, err := env.Pipeline.Upload(ctx, cliUser, filepath.Base(args[0]), content)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %s (%s)\n", doc.Name, doc.ID)

		if doc.Status.Terminal() {
			// Duplicate upload; nothing scheduled.
			fmt.Printf("Status: %s\n", doc.Status)
			return nil
		}

		// Wait for background processing and analysis to finish.
		fmt.Println("Processing...")
		if err := env.Runner.Wait(ctx); err != nil {
			return err
		}

		final, err := env.Pipeline.Get(ctx, doc.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Status: %s\n", final.Status)

		if final.Status == model.StatusAnalyzed {
			return printAnalysis(cmd, env, final.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
