package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askFileID  uint
	historyMax int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		var fileID *uint
		if cmd.Flags().Changed("file") {
			fileID = &askFileID
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := client.Ask(ctx, strings.Join(args, " "), fileID, cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		var fileID *uint
		if cmd.Flags().Changed("file") {
			fileID = &askFileID
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		records, err := client.History(ctx, fileID, historyMax)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Query, r.Answer)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().UintVar(&askFileID, "file", 0, "restrict retrieval to this file id")
	historyCmd.Flags().UintVar(&askFileID, "file", 0, "only show questions about this file id")
	historyCmd.Flags().IntVar(&historyMax, "limit", 20, "number of records")
	rootCmd.AddCommand(askCmd, historyCmd)
}
