package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFileFlag string
	var jsonFlag bool

	ctx := newCommandContext(&envFileFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "thumbsync",
		Short:         "Operate the thumbnail derivative pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load environment variables from this file before reading configuration")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Write machine readable JSON output")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newRegenerateCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newMarkSyncedCommand(ctx))
	rootCmd.AddCommand(newTriggerCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd
}
