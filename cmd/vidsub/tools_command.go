package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidsub/internal/api"
	"vidsub/internal/daemonrun"
	"vidsub/internal/deps"
	"vidsub/internal/preflight"
	"vidsub/internal/services"
)

func newToolsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Media tool utilities",
	}
	cmd.AddCommand(newToolsStatusCommand(ctx))
	return cmd
}

func newToolsStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON, checkBackends bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report ffmpeg/ffprobe, backend and directory readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			rt, err := daemonrun.Build(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = rt.Close(closeCtx)
			}()

			results := preflight.CheckDirectories(cfg)
			if checkBackends {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			resp := api.ToolsResponse{
				Tools:    rt.Tools.Status(cmd.Context()),
				Backends: rt.Engine.Backends(cmd.Context()),
			}
			for _, r := range results {
				resp.Directories = append(resp.Directories, api.DirectoryStatus{Name: r.Name, Path: r.Path, Passed: r.Passed, Detail: r.Detail})
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			printToolsStatus(cmd, resp)
			if !resp.Tools.Available {
				return fmt.Errorf("media tools unavailable")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&checkBackends, "check-backends", false, "Also contact the translation API when a key is configured")
	return cmd
}

func printToolsStatus(cmd *cobra.Command, resp api.ToolsResponse) {
	w := newStatusWriter(cmd.OutOrStdout())

	w.section("Media tools")
	w.line("Platform", statusInfo, string(resp.Tools.Platform))
	if resp.Tools.Error != "" {
		w.line("Resolution", statusError, resp.Tools.Error)
		if resp.Tools.InstructionsPath != "" {
			w.line("Instructions", statusInfo, resp.Tools.InstructionsPath)
		}
	} else {
		w.line("Source", statusInfo, string(resp.Tools.Source))
		toolLine(w, "ffmpeg", resp.Tools.FFmpeg)
		toolLine(w, "ffprobe", resp.Tools.FFprobe)
	}

	w.section("Backends")
	for _, backend := range resp.Backends {
		kind := statusOK
		switch {
		case !backend.Available:
			kind = statusError
		case backend.Mode == services.ModePlaceholder:
			kind = statusWarn
		}
		detail := backend.Mode
		if backend.Model != "" {
			detail += " (" + backend.Model + ")"
		}
		if backend.Detail != "" {
			detail += ": " + backend.Detail
		}
		w.line(backend.Name, kind, detail)
	}

	w.section("Directories")
	for _, dir := range resp.Directories {
		kind := statusOK
		if !dir.Passed {
			kind = statusError
		}
		detail := dir.Detail
		if dir.Path != "" {
			detail = dir.Path + " (" + dir.Detail + ")"
		}
		w.line(dir.Name, kind, detail)
	}
}

func toolLine(w *statusWriter, name string, info deps.ToolInfo) {
	kind := statusOK
	if !info.Runnable {
		kind = statusError
	}
	parts := []string{info.Path}
	if info.Version != "" {
		parts = append(parts, info.Version)
	}
	parts = append(parts, "executable="+yesNo(info.Executable))
	if info.Detail != "" {
		parts = append(parts, info.Detail)
	}
	w.line(name, kind, strings.Join(parts, " | "))
}
