// Package syncctl implements the operator actions on the staging area:
// status, download, mark-synced and manual trigger.
package syncctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediasync/internal/dispatch"
	"mediasync/internal/domain"
	"mediasync/internal/infra"
	"mediasync/internal/staging"
)

// Notifier receives manual-dispatch notifications; scheduler.Scheduler
// satisfies it. Notify restarts a countdown of Interval. Active reports
// whether that countdown runs in this process.
type Notifier interface {
	Notify()
	Interval() time.Duration
	Active() bool
}

// Status is a point-in-time snapshot of the staging area.
type Status struct {
	PendingThumbnails int       `json:"pendingThumbnails"`
	PendingLarge      int       `json:"pendingLarge"`
	TotalPending      int       `json:"totalPending"`
	HasUnsyncedFiles  bool      `json:"hasUnsyncedFiles"`
	LastChecked       time.Time `json:"lastChecked"`
}

// MarkSyncedResult reports a purge.
type MarkSyncedResult struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

// TriggerResult reports a manual trigger.
type TriggerResult struct {
	Message      string     `json:"message"`
	Triggered    bool       `json:"triggered"`
	PendingCount int        `json:"pendingCount"`
	NextAutoSync *time.Time `json:"nextAutoSync,omitempty"`
	DispatchID   string     `json:"dispatchId,omitempty"`
}

// Options wires a Controller.
type Options struct {
	Store      staging.Store
	Dispatcher dispatch.Dispatcher
	Notifier   Notifier
	Logger     *infra.Logger
	Now        func() time.Time
}

// Controller is the operator-facing sync surface. Calls are not serialized;
// concurrent identical requests each run.
type Controller struct {
	store      staging.Store
	dispatcher dispatch.Dispatcher
	notifier   Notifier
	logger     infra.Logger
	now        func() time.Time
}

// New validates opts. Notifier is optional.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil || opts.Dispatcher == nil {
		return nil, errors.New("syncctl: store and dispatcher are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		notifier:   opts.Notifier,
		logger:     infra.LoggerOrDiscard(opts.Logger),
		now:        now,
	}, nil
}

// Status counts staged files without changing anything.
func (c *Controller) Status(ctx context.Context) (*Status, error) {
	counts, err := staging.Count(ctx, c.store)
	if err != nil {
		return nil, fmt.Errorf("syncctl: status: %w", err)
	}
	return &Status{
		PendingThumbnails: counts.Thumbnails,
		PendingLarge:      counts.Large,
		TotalPending:      counts.Total(),
		HasUnsyncedFiles:  counts.Total() > 0,
		LastChecked:       c.now().UTC(),
	}, nil
}

// DownloadPending returns a zip of every staged file, or
// domain.ErrNothingStaged. Files stay staged.
func (c *Controller) DownloadPending(ctx context.Context) ([]byte, error) {
	data, err := c.store.Bundle(ctx)
	if errors.Is(err, staging.ErrNothingToBundle) {
		return nil, domain.ErrNothingStaged
	}
	if err != nil {
		return nil, fmt.Errorf("syncctl: bundle: %w", err)
	}
	return data, nil
}

// MarkSynced deletes every staged file. The caller is trusted to have
// confirmed the external copy first.
func (c *Controller) MarkSynced(ctx context.Context) (*MarkSyncedResult, error) {
	deleted, err := c.store.Purge(ctx)
	if err != nil {
		return nil, fmt.Errorf("syncctl: purge after %d deletions: %w", deleted, err)
	}
	c.logger.Info().Int("deleted", deleted).Msg("syncctl: staged files marked as synced")
	msg := "No staged files to remove"
	if deleted > 0 {
		msg = fmt.Sprintf("Removed %d synced files from staging", deleted)
	}
	return &MarkSyncedResult{Message: msg, DeletedCount: deleted}, nil
}

// TriggerManual dispatches a manual sync when files are staged and restarts
// the automatic countdown.
func (c *Controller) TriggerManual(ctx context.Context) (*TriggerResult, error) {
	counts, err := staging.Count(ctx, c.store)
	if err != nil {
		return nil, fmt.Errorf("syncctl: count staged files: %w", err)
	}
	pending := counts.Total()
	if pending == 0 {
		return &TriggerResult{Message: "No pending files to sync; nothing was triggered", Triggered: false}, nil
	}

	receipt, err := c.dispatcher.Dispatch(ctx, dispatch.Event{Source: domain.SyncSourceManual, PendingCount: pending})
	if err != nil {
		return nil, err
	}

	result := &TriggerResult{
		Message:      fmt.Sprintf("Sync triggered for %d pending files", pending),
		Triggered:    true,
		PendingCount: pending,
		DispatchID:   receipt.DispatchID,
	}
	if c.notifier != nil {
		c.notifier.Notify()
		if c.notifier.Active() {
			next := c.now().Add(c.notifier.Interval()).UTC()
			result.NextAutoSync = &next
		}
	}
	c.logger.Info().Int("pending", pending).Str("dispatch_id", receipt.DispatchID).Msg("syncctl: manual sync triggered")
	return result, nil
}
