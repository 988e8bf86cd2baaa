package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediasync/internal/domain"
)

var classTitle = cases.Title(language.English)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many derivatives are waiting in staging",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSync()
			if err != nil {
				return err
			}
			status, err := s.Controller.Status(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging root: %s\n\n", s.Store.BasePath())
			rows := [][]string{
				{classTitle.String(string(domain.ClassThumbnails)), strconv.Itoa(status.PendingThumbnails)},
				{classTitle.String(string(domain.ClassLarge)), strconv.Itoa(status.PendingLarge)},
				{"Total", strconv.Itoa(status.TotalPending)},
			}
			fmt.Fprintln(out, renderTable([]string{"Class", "Pending"}, rows, []columnAlignment{alignLeft, alignRight}))
			if !status.HasUnsyncedFiles {
				fmt.Fprintln(out, "Nothing waiting to sync")
			}
			return nil
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Write every staged file into a zip archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSync()
			if err != nil {
				return err
			}
			data, err := s.Controller.DownloadPending(cmd.Context())
			if errors.Is(err, domain.ErrNothingStaged) {
				return errors.New("no pending thumbnails to download")
			}
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = fmt.Sprintf("pending-thumbnails-%s.zip", time.Now().UTC().Format("20060102-150405"))
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"path": path, "size_bytes": len(data)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", humanize.Bytes(uint64(len(data))), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default pending-thumbnails-<timestamp>.zip)")
	return cmd
}

func newMarkSyncedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-synced",
		Short: "Delete every staged file after the external copy is confirmed",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSync()
			if err != nil {
				return err
			}
			result, err := s.Controller.MarkSynced(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
}

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask the external CI to sync staged files now",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.ensureSync()
			if err != nil {
				return err
			}
			result, err := s.Controller.TriggerManual(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			if result.DispatchID != "" {
				fmt.Fprintf(out, "Dispatch ID: %s\n", result.DispatchID)
			}
			return nil
		},
	}
}
