package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newSubtitleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtitle",
		Short: "Read or replace a task's subtitle",
	}
	cmd.AddCommand(newSubtitleGetCommand(ctx))
	cmd.AddCommand(newSubtitleSetCommand(ctx))
	return cmd
}

func newSubtitleGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print the SRT text of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			content, err := client.subtitle(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		},
	}
}

func newSubtitleSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <file|->",
		Short: "Replace the subtitle of a task; the task status is unchanged",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			var content []byte
			if args[1] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("read subtitle: %w", err)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			task, err := client.setSubtitle(cmd.Context(), id, string(content))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subtitle for task %d replaced (%s)\n", task.ID, task.SubtitlePath)
			return nil
		},
	}
}
