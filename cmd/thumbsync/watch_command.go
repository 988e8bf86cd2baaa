package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediasync/internal/pipeline"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the automatic sync scheduler in the foreground",
		Long: "Run the automatic sync scheduler in the foreground. The scheduler holds " +
			pipeline.LockFileName + " in the staging root while it runs; when another process " +
			"(such as the API server) already holds it, watch stands by and takes over once it is released.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := ctx.ensureSync()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %s (next check %s)\n",
				s.Store.BasePath(), cfg.SyncInterval, s.Scheduler.NextRun().Local().Format("15:04:05"))
			err = s.Scheduler.Run(runCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
