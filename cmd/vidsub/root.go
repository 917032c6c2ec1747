package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:   "vidsub",
		Short: "Turn uploaded videos into bilingual subtitles",
		Long: "vidsub accepts video uploads, extracts and transcribes their audio, translates the transcript\n" +
			"and renders an SRT subtitle. Run \"vidsub serve\" first; the other task commands talk to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if isOffline(cmd) {
				return nil
			}
			_, err := ctx.loadConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.apiAddr, "api", "", "Server address (host:port); defaults to paths.api_bind")

	root.AddCommand(
		newServeCommand(ctx),
		newSubmitCommand(ctx),
		newRunCommand(ctx),
		newShowCommand(ctx),
		newListCommand(ctx),
		newSubtitleCommand(ctx),
		newToolsCommand(ctx),
		newTestNotifyCommand(ctx),
		newClassifyCommand(),
		newConfigCommand(),
	)
	return root
}
