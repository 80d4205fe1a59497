package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	thesisText     string
	thesisSectors  []string
	thesisGeo      string
	thesisStage    string
	thesisAnti     string
	thesisCheckMin int64
	thesisCheckMax int64
)

var thesisCmd = &cobra.Command{
	Use:   "thesis",
	Short: "Show or update the investment thesis",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		t, err := env.Thesis.Get(cmd.Context(), cliUser)
		if err != nil {
			return err
		}
		if t.Empty() {
			fmt.Println("No thesis set. Use 'dealdesk thesis set' to define one.")
			return nil
		}
		fmt.Println(t.PromptContext())
		return nil
	},
}

var thesisSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update thesis fields (unset flags keep their stored values)",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		t, err := env.Thesis.Get(cmd.Context(), cliUser)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("text") {
			t.Text = thesisText
		}
		if cmd.Flags().Changed("sectors") {
			t.TargetSectors = thesisSectors
		}
		if cmd.Flags().Changed("geography") {
			t.Geography = thesisGeo
		}
		if cmd.Flags().Changed("stage") {
			t.PreferredStage = thesisStage
		}
		if cmd.Flags().Changed("anti") {
			t.AntiThesis = thesisAnti
		}
		if cmd.Flags().Changed("check-min") {
			t.CheckSizeMin = thesisCheckMin
		}
		if cmd.Flags().Changed("check-max") {
			t.CheckSizeMax = thesisCheckMax
		}

		updated, err := env.Thesis.Update(cmd.Context(), cliUser, t)
		if err != nil {
			return err
		}

		fmt.Printf("Thesis updated: %s\n", updated.Text)
		if len(updated.TargetSectors) > 0 {
			fmt.Printf("Sectors: %s\n", strings.Join(updated.TargetSectors, ", "))
		}
		return nil
	},
}

func init() {
	thesisSetCmd.Flags().StringVar(&thesisText, "text", "", "thesis statement")
	thesisSetCmd.Flags().StringSliceVar(&thesisSectors, "sectors", nil, "target sectors")
	thesisSetCmd.Flags().StringVar(&thesisGeo, "geography", "", "target geography")
	thesisSetCmd.Flags().StringVar(&thesisStage, "stage", "", "preferred stage")
	thesisSetCmd.Flags().StringVar(&thesisAnti, "anti", "", "anti-thesis (what to avoid)")
	thesisSetCmd.Flags().Int64Var(&thesisCheckMin, "check-min", 0, "minimum check size (USD)")
	thesisSetCmd.Flags().Int64Var(&thesisCheckMax, "check-max", 0, "maximum check size (USD)")

	thesisCmd.AddCommand(thesisSetCmd)
	rootCmd.AddCommand(thesisCmd)
}
