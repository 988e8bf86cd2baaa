package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediasync/internal/pipeline"
	"mediasync/internal/thumbnails"
)

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var id int64
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Regenerate thumbnail and large derivatives for catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := ctx.ensureSync()
			if err != nil {
				return err
			}
			regen, pool, err := pipeline.NewRegenerator(cmd.Context(), cfg.Config, &cfg.logger, s.Store)
			if err != nil {
				return err
			}
			defer pool.Close()

			req := thumbnails.Request{Force: force}
			if cmd.Flags().Changed("id") {
				if id <= 0 {
					return fmt.Errorf("--id must be positive")
				}
				req.MediaItemID = &id
			}
			summary, err := regen.Regenerate(cmd.Context(), req)
			if summary == nil {
				return err
			}
			if ctx.JSONMode() {
				if werr := writeJSON(cmd, summary); werr != nil {
					return werr
				}
				return err
			}

			out := cmd.OutOrStdout()
			if len(summary.Results) > 0 {
				rows := make([][]string, 0, len(summary.Results))
				for _, r := range summary.Results {
					rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Title, string(r.Status), r.Message})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Message"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
			}
			fmt.Fprintln(out, summary.Message)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate items that already have derivatives")
	cmd.Flags().Int64Var(&id, "id", 0, "Regenerate only this media item")
	return cmd
}
