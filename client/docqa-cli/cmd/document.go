package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a document, replacing the current one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		res, err := client.Upload(ctx, args[0], f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as file %d (%d chunks)\n", res.Filename, res.FileID, res.Chunks)
		return nil
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		cur, err := client.Current(ctx)
		if err != nil {
			return err
		}
		if cur.FileID == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No document uploaded")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", *cur.FileID, *cur.Filename)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [file-id]",
	Short: "Delete a document and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 0)
		if err != nil {
			return fmt.Errorf("file id must be a positive integer: %w", err)
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := client.Remove(ctx, uint(id)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted file %d\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd, currentCmd, removeCmd)
}
