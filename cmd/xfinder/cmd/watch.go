package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Watch path for changes and keep the index up to date",
		Long: `watch starts the filesystem watcher over path and applies
create/modify/delete/rename events to the index as they happen. It runs
until interrupted (Ctrl-C).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}
	return cmd
}

func runWatch(cmd *cobra.Command, root string) error {
	c, err := openCoordinator()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := c.StartWatching(ctx, root); err != nil {
		return fmt.Errorf("start watching: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (Ctrl-C to stop)\n", root)

	<-ctx.Done()
	return c.StopWatching()
}
