package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vidsub/internal/media/ffprobe"
)

func newClassifyCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "classify [ffmpeg output...]",
		Short:       "Explain an ffmpeg/ffprobe error message",
		Long:        "Classify ffmpeg or ffprobe diagnostics into a failure category. Reads stdin when no arguments are given.",
		Annotations: offline(),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				detail = string(data)
			}
			diag := ffprobe.Classify(detail)
			if asJSON {
				return writeJSON(cmd, map[string]string{
					"category": diag.Category.String(),
					"message":  diag.Message(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Category: %s\n", diag.Category)
			fmt.Fprintf(out, "Message:  %s\n", diag.Message())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the diagnosis as JSON")
	return cmd
}
