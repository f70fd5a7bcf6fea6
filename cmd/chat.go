package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukman83/affiliate-gateway/internal/conversation"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the shopping assistant from the terminal",
	Long:  "Reads one message per line from stdin and prints the replies, exactly as a chat user would see them.",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().Int64("user-id", 1, "User id to chat as")
	chatCmd.Flags().String("name", "", "First name to register the user with")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user-id")
	name, _ := cmd.Flags().GetString("name")
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	a, err := newApp(appOptions{store: true, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.dispatcher()
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprint(out, "> ")
	for in.Scan() {
		text := strings.TrimSpace(in.Text())
		if text == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		if text == "/quit" || text == "/exit" {
			return nil
		}

		replies, err := d.Handle(cmd.Context(), conversation.Message{UserID: userID, FirstName: name, Text: text})
		if err != nil {
			return err
		}
		for _, r := range replies {
			fmt.Fprintf(out, "%s\n\n", r.Text)
		}
		fmt.Fprint(out, "> ")
	}
	return in.Err()
}
