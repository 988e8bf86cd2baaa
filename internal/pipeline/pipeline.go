// Package pipeline assembles the derivative pipeline from configuration for
// the API server and the operator CLI.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediasync/internal/adapter/repo"
	"mediasync/internal/dispatch"
	"mediasync/internal/imaging"
	"mediasync/internal/infra"
	"mediasync/internal/scheduler"
	"mediasync/internal/staging"
	"mediasync/internal/syncctl"
	"mediasync/internal/thumbnails"
)

const (
	// LockFileName is created at the staging root and held by the scheduler
	// loop that owns automatic syncs.
	LockFileName = ".sync.lock"
	// ManualMarkFileName records the time of the last manual sync so every
	// process postpones its automatic one.
	ManualMarkFileName = ".sync.manual"
)

// Sync is the staging side of the pipeline. It needs no database.
type Sync struct {
	Store      *staging.FileStore
	Dispatcher *dispatch.Client
	Scheduler  *scheduler.Scheduler
	Controller *syncctl.Controller
}

// NewSync wires the staging store, dispatcher, scheduler and controller.
func NewSync(cfg *infra.Config, logger *infra.Logger) (*Sync, error) {
	store, err := staging.NewFileStore(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: staging store: %w", err)
	}

	dispatcher := dispatch.NewClient(dispatch.Options{
		Token:     cfg.GitHubToken,
		Owner:     cfg.GitHubRepoOwner,
		Repo:      cfg.GitHubRepoName,
		BaseURL:   cfg.GitHubAPIBaseURL,
		EventType: cfg.GitHubDispatchEvent,
		Logger:    logger,
	})
	if missing := dispatcher.MissingSettings(); len(missing) > 0 && logger != nil {
		logger.Warn().Strs("missing", missing).Msg("pipeline: dispatch not configured, sync requests will fail")
	}

	sched, err := scheduler.New(scheduler.Options{
		Store:          store,
		Dispatcher:     dispatcher,
		Interval:       cfg.SyncInterval,
		LockPath:       filepath.Join(store.BasePath(), LockFileName),
		ManualMarkPath: filepath.Join(store.BasePath(), ManualMarkFileName),
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: scheduler: %w", err)
	}

	controller, err := syncctl.New(syncctl.Options{
		Store:      store,
		Dispatcher: dispatcher,
		Notifier:   sched,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: controller: %w", err)
	}

	return &Sync{Store: store, Dispatcher: dispatcher, Scheduler: sched, Controller: controller}, nil
}

// NewRegenerator connects to the catalog and builds the regeneration
// orchestrator writing into store. The returned pool must be closed by the caller.
func NewRegenerator(ctx context.Context, cfg *infra.Config, logger *infra.Logger, store staging.Store) (*thumbnails.Regenerator, *pgxpool.Pool, error) {
	encoder, err := imaging.NewVipsEncoder(imaging.Options{
		ThumbnailMaxSize: cfg.ThumbnailMaxSize,
		LargeMaxSize:     cfg.LargeMaxSize,
		JPEGQuality:      cfg.JPEGQuality,
		WebPQuality:      cfg.WebPQuality,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: encoder: %w", err)
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	runner := infra.NewSQLRunner(pool, infra.LoggerOrDiscard(logger))

	regen, err := thumbnails.NewRegenerator(thumbnails.RegeneratorOptions{
		Repo:          repo.NewMediaRepository(runner),
		Generator:     thumbnails.NewGenerator(encoder, store, cfg.ThumbnailPublicPrefix),
		PublicBaseURL: cfg.PublicBaseURL,
		HTTPClient:    &http.Client{Timeout: cfg.FetchTimeout},
		Logger:        logger,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pipeline: regenerator: %w", err)
	}
	return regen, pool, nil
}
