package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/venturesight/dealdesk/internal/store"
)

var (
	searchDecks []string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over deck content",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		docIDs := searchDecks
		if len(docIDs) == 0 {
			docs, err := env.Pipeline.List(ctx, store.DocumentFilter{UserID: cliUser})
			if err != nil {
				return err
			}
			for _, d := range docs {
				docIDs = append(docIDs, d.ID)
			}
		}
		if len(docIDs) == 0 {
			fmt.Println("No decks to search.")
			return nil
		}

		chunks, err := env.Retrieval.Search(ctx, strings.Join(args, " "), docIDs, searchLimit, 0)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			fmt.Println("No matches.")
			return nil
		}

		for _, c := range chunks {
			fmt.Printf("-- %s (similarity %.2f)\n%s\n\n", c.DocumentID, c.Similarity, c.Content)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchDecks, "deck", nil, "restrict to specific deck ids")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (default from config)")
	rootCmd.AddCommand(searchCmd)
}
