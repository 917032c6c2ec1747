package main

import (
	"time"

	"github.com/spf13/cobra"

	"vidsub/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and workflow engine in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.serveConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:        logLevel,
				ShutdownTimeout: shutdownTimeout,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "How long to wait for running tasks on shutdown")
	return cmd
}
