package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"vidsub/internal/api"
	"vidsub/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var run, wait, asJSON bool

	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Upload a video and create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			task, err := client.upload(cmd.Context(), args[0])
			if err != nil {
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Body.Task != nil {
					return fmt.Errorf("task %d rejected: %w", apiErr.Body.Task.ID, err)
				}
				return err
			}
			if run {
				if task, err = client.process(cmd.Context(), task.ID); err != nil {
					return err
				}
				if wait {
					if task, err = waitForTask(cmd, client, task.ID); err != nil {
						return err
					}
				}
			}
			if asJSON {
				return writeJSON(cmd, task)
			}
			printTaskDetail(cmd, task)
			return nil
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "Start processing right after the upload")
	cmd.Flags().BoolVar(&wait, "wait", false, "With --run, wait until the task finishes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the task as JSON")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var wait, asJSON bool

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Start (or restart) processing of a task",
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
			task, err := client.process(cmd.Context(), id)
			if err != nil {
				return err
			}
			if wait {
				if task, err = waitForTask(cmd, client, id); err != nil {
					return err
				}
			}
			if asJSON {
				return writeJSON(cmd, task)
			}
			printTaskDetail(cmd, task)
			if task.Status == string(queue.StatusFailed) {
				return fmt.Errorf("task %d failed", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the task finishes, printing progress")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the task as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
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
			task, err := client.task(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, task)
			}
			printTaskDetail(cmd, task)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the task as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(statusFlags))
			for _, value := range statusFlags {
				status, err := queue.ParseStatus(value)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			tasks, err := client.tasks(cmd.Context(), statuses)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.TaskListResponse{Tasks: tasks})
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTaskTable(tasks))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tasks as JSON")
	return cmd
}

// waitForTask polls until the task leaves PROCESSING, printing each new step.
func waitForTask(cmd *cobra.Command, client *apiClient, id int64) (api.Task, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	lastStep := ""
	for {
		task, err := client.task(cmd.Context(), id)
		if err != nil {
			return api.Task{}, err
		}
		if step := fmt.Sprintf("%3d%% %s", task.Progress, task.CurrentStep); step != lastStep {
			fmt.Fprintln(cmd.ErrOrStderr(), step)
			lastStep = step
		}
		if task.Status != string(queue.StatusProcessing) {
			return task, nil
		}
		select {
		case <-cmd.Context().Done():
			return task, context.Cause(cmd.Context())
		case <-ticker.C:
		}
	}
}

func parseTaskID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", value)
	}
	return id, nil
}

func printTaskDetail(cmd *cobra.Command, task api.Task) {
	w := newStatusWriter(cmd.OutOrStdout())
	w.section(fmt.Sprintf("Task %d", task.ID))
	w.line("Status", statusKindFor(task.Status), task.Status)
	w.line("Progress", statusInfo, fmt.Sprintf("%d%% %s", task.Progress, task.CurrentStep))
	w.line("Original name", statusInfo, task.OriginalName)
	w.line("Stored as", statusInfo, task.FileName)
	if task.SubtitlePath != "" {
		w.line("Subtitle", statusOK, task.SubtitlePath)
	}
	if task.ErrorMessage != "" {
		w.line("Error", statusError, task.ErrorMessage)
	}
	w.line("Updated", statusInfo, task.UpdatedAt)
}

func statusKindFor(status string) statusKind {
	switch queue.Status(status) {
	case queue.StatusCompleted:
		return statusOK
	case queue.StatusFailed, queue.StatusUploadFailed:
		return statusError
	case queue.StatusProcessing:
		return statusWarn
	default:
		return statusInfo
	}
}

var taskColumns = []column{
	{header: "ID", align: text.AlignRight},
	{header: "Status"},
	{header: "Progress", align: text.AlignRight},
	{header: "Step"},
	{header: "Name"},
	{header: "Error", width: 60},
}

func renderTaskTable(tasks []api.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(task.ID, 10),
			task.Status,
			fmt.Sprintf("%d%%", task.Progress),
			task.CurrentStep,
			task.OriginalName,
			task.ErrorMessage,
		})
	}
	return renderTable(taskColumns, rows)
}
