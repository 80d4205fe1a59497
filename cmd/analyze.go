package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <deck-id>",
	Short: "Run the investment council on an already-processed deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.TriggerAnalysis(ctx, args[0]); err != nil {
			return err
		}

		fmt.Println("Analyzing...")
		if err := env.Runner.Wait(ctx); err != nil {
			return err
		}

		return printAnalysis(cmd, env, args[0])
	},
}

func printAnalysis(cmd *cobra.Command, env *appEnv, documentID string) error {
	analysis, err := env.Pipeline.GetAnalysis(cmd.Context(), documentID)
	if err != nil {
		return err
	}

	c := analysis.Consensus
	fmt.Printf("\n%s", c.StartupName)
	if c.Tagline != "" {
		fmt.Printf(" -- %s", c.Tagline)
	}
	fmt.Printf("\nScore: %.0f/100  Recommendation: %s\n", c.FinalScore, c.Recommendation)
	if c.Summary != "" {
		fmt.Printf("\n%s\n", c.Summary)
	}
	for _, cs := range c.CategoryScores {
		fmt.Printf("  %-20s %.0f\n", cs.Category, cs.Score)
	}
	if len(c.KeyStrengths) > 0 {
		fmt.Println("\nStrengths:")
		for _, s := range c.KeyStrengths {
			fmt.Printf("  + %s\n", s)
		}
	}
	if len(c.KeyWeaknesses) > 0 {
		fmt.Println("\nWeaknesses:")
		for _, w := range c.KeyWeaknesses {
			fmt.Printf("  - %s\n", w)
		}
	}
	if c.Memo != "" {
		fmt.Printf("\n%s\n", c.Memo)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
