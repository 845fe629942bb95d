package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"labwatch/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon progress and the running score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				for _, line := range renderStatus(status, colorize) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")
	return cmd
}

func renderStatus(status *ipc.StatusResponse, colorize bool) []string {
	var lines []string

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "stopped", colorize))
	}
	watchKind := statusOK
	if !status.Watching {
		watchKind = statusError
	}
	lines = append(lines, renderStatusLine("Watcher", watchKind, status.WatchDir, colorize))
	lines = append(lines, renderValueLine("Extensions", strings.Join(status.Extensions, " ")))
	if status.ReferenceShots > 0 {
		lines = append(lines, renderValueLine("Reference shots", fmt.Sprintf("%d", status.ReferenceShots)))
	}
	if status.ResultsPath != "" {
		lines = append(lines, renderValueLine("Results", status.ResultsPath))
	}
	if status.LogPath != "" {
		lines = append(lines, renderValueLine("Log", status.LogPath))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Score", colorize)...)
	lines = append(lines, renderValueLine("Total processed", fmt.Sprintf("%d", status.TotalProcessed)))
	lines = append(lines, renderValueLine("Cumulative value", fmt.Sprintf("%d", status.Streak)))
	lines = append(lines, renderValueLine("Queue depth", fmt.Sprintf("%d", status.QueueDepth)))
	lines = append(lines, renderValueLine("Debouncing", fmt.Sprintf("%d", status.PendingDebounce)))
	if status.Dropped > 0 {
		lines = append(lines, renderStatusLine("Dropped files", statusWarn, fmt.Sprintf("%d", status.Dropped), colorize))
	}
	if status.SinkDropped > 0 {
		lines = append(lines, renderStatusLine("Dropped results", statusWarn, fmt.Sprintf("%d", status.SinkDropped), colorize))
	}

	if last := status.LastFile; last != nil {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Last file", colorize)...)
		lines = append(lines, renderStatusLine(categoryLabel(last.Category), verdictKind(last.Accepted),
			fmt.Sprintf("%s %s", filepath.Base(last.Path), verdict(last.Accepted)), colorize))
		if last.Artifact != "" {
			lines = append(lines, renderValueLine("Artifact", last.Artifact))
		}
		if !last.ProcessedAt.IsZero() {
			lines = append(lines, renderValueLine("Processed", last.ProcessedAt.Local().Format(time.DateTime)))
		}
	}
	if status.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, status.LastError, colorize))
	}
	return lines
}
