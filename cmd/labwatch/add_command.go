package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"labwatch/internal/fileutil"
	"labwatch/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var copyIntoWatchDir bool

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Queue files for processing",
		Long: "Queues files straight into the running daemon's work queue.\n" +
			"With --copy the files are copied into the watch directory instead and\n" +
			"picked up by the watcher, which also works when the daemon is not running yet.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("file does not exist: %s", absPath)
					}
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", absPath)
				}
				paths = append(paths, absPath)
			}

			if copyIntoWatchDir {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				for _, path := range paths {
					target, err := fileutil.PlaceInDir(path, cfg.Paths.WatchDir)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Copied %s to %s\n", filepath.Base(path), target)
				}
				return nil
			}

			return ctx.withClient(func(client *ipc.Client) error {
				for _, path := range paths {
					resp, err := client.AddFile(path)
					if err != nil {
						return fmt.Errorf("queue %s: %w", filepath.Base(path), err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as %s\n", filepath.Base(resp.Path), categoryLabel(resp.Category))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&copyIntoWatchDir, "copy", false, "Copy into the watch directory instead of queueing over IPC")
	return cmd
}
