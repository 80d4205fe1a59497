package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/venturesight/dealdesk/internal/assistant"
)

var (
	chatConversation string
	chatDecks        []string
)

var chatCmd = &cobra.Command{
	Use:   "chat <question>",
	Short: "Ask the research associate a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		reply, err := env.Assistant.Respond(cmd.Context(), assistant.ChatRequest{
			UserID:         cliUser,
			ConversationID: chatConversation,
			DocumentIDs:    chatDecks,
			Query:          strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		fmt.Println(reply.Reply)
		fmt.Printf("\n[conversation %s]\n", reply.ConversationID)
		return nil
	},
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List past assistant conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "local")
		if err != nil {
			return err
		}
		defer env.Close()

		convs, err := env.Assistant.Conversations(cmd.Context(), cliUser)
		if err != nil {
			return err
		}
		for _, c := range convs {
			fmt.Printf("%s  %s  %s\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), c.Title)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "continue an existing conversation")
	chatCmd.Flags().StringSliceVar(&chatDecks, "deck", nil, "deck ids to focus the answer on")
	rootCmd.AddCommand(chatCmd, conversationsCmd)
}
