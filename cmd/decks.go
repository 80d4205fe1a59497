package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
)

var (
	decksStatus   string
	decksArchived bool
	decksLimit    int
)

var decksCmd = &cobra.Command{
	Use:   "decks",
	Short: "Manage uploaded pitch decks",
}

var decksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List decks in the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		docs, err := env.Pipeline.List(cmd.Context(), store.DocumentFilter{
			UserID:          cliUser,
			Status:          model.Status(decksStatus),
			IncludeArchived: decksArchived,
			Limit:           decksLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSCORE\tINDUSTRY\tUPLOADED")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%s\n",
				d.ID, d.Name, d.Status, d.MatchScore, d.Enrichment.Industry,
				d.UploadedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var decksShowCmd = &cobra.Command{
	Use:   "show <deck-id>",
	Short: "Show a deck and its council analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		doc, err := env.Pipeline.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\nStatus: %s  Uploaded: %s\n",
			doc.Name, doc.ID, doc.Status, doc.UploadedAt.Format("2006-01-02 15:04"))
		if doc.Notes != "" {
			fmt.Printf("Notes: %s\n", doc.Notes)
		}

		if doc.Status != model.StatusAnalyzed {
			return nil
		}
		return printAnalysis(cmd, env, doc.ID)
	},
}

var decksArchiveCmd = &cobra.Command{
	Use:   "archive <deck-id>",
	Short: "Archive a deck (kept, excluded from listings)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.Archive(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Archived.")
		return nil
	},
}

var decksDeleteCmd = &cobra.Command{
	Use:   "delete <deck-id>",
	Short: "Delete a deck and all derived data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var decksNotesCmd = &cobra.Command{
	Use:   "notes <deck-id> <text>",
	Short: "Replace the notes on a deck",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.UpdateNotes(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Updated.")
		return nil
	},
}

func init() {
	decksListCmd.Flags().StringVar(&decksStatus, "status", "", "filter by status")
	decksListCmd.Flags().BoolVar(&decksArchived, "archived", false, "include archived decks")
	decksListCmd.Flags().IntVar(&decksLimit, "limit", 0, "max decks to list")

	decksCmd.AddCommand(decksListCmd, decksShowCmd, decksArchiveCmd, decksDeleteCmd, decksNotesCmd)
	rootCmd.AddCommand(decksCmd)
}
