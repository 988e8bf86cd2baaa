package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mediasync/internal/domain"
	"mediasync/internal/infra"
	"mediasync/internal/sqlinline"
)

// MediaRepositoryPG implements domain.MediaRepository using PostgreSQL.
type MediaRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewMediaRepository constructs a catalog repository on top of a SQL executor.
func NewMediaRepository(sql infra.SQLExecutor) *MediaRepositoryPG {
	return &MediaRepositoryPG{sql: sql}
}

// GetByID returns domain.ErrNotFound when no media item has the id.
func (r *MediaRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.MediaItem, error) {
	var item domain.MediaItem
	err := r.sql.QueryRow(ctx, sqlinline.QSelectMediaItemByID, id).Scan(scanTargets(&item)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repo: load media item %d: %w", id, err)
	}
	return &item, nil
}

// ListAll returns every media item ordered by id.
func (r *MediaRepositoryPG) ListAll(ctx context.Context) ([]domain.MediaItem, error) {
	return r.list(ctx, sqlinline.QListMediaItems)
}

// ListMissingDerivatives returns items lacking a WebP thumbnail or WebP large variant.
func (r *MediaRepositoryPG) ListMissingDerivatives(ctx context.Context) ([]domain.MediaItem, error) {
	return r.list(ctx, sqlinline.QListMediaItemsMissingDerivatives)
}

func (r *MediaRepositoryPG) list(ctx context.Context, query string) ([]domain.MediaItem, error) {
	rows, err := r.sql.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repo: list media items: %w", err)
	}
	defer rows.Close()

	var items []domain.MediaItem
	for rows.Next() {
		var item domain.MediaItem
		if err := rows.Scan(scanTargets(&item)...); err != nil {
			return nil, fmt.Errorf("repo: scan media item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list media items: %w", err)
	}
	return items, nil
}

// SaveDerivatives writes all items in a single batch.
func (r *MediaRepositoryPG) SaveDerivatives(ctx context.Context, items []domain.MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(sqlinline.QUpdateMediaDerivatives,
			item.ID,
			item.ThumbnailURL,
			item.ThumbnailWebpURL,
			item.LargeURL,
			item.LargeWebpURL,
		)
	}

	results := r.sql.SendBatch(ctx, batch)
	for _, item := range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("repo: update media item %d: %w", item.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("repo: close batch: %w", err)
	}
	return nil
}

func scanTargets(item *domain.MediaItem) []any {
	return []any{
		&item.ID,
		&item.Title,
		&item.OriginalURL,
		&item.ThumbnailURL,
		&item.ThumbnailWebpURL,
		&item.LargeURL,
		&item.LargeWebpURL,
		&item.UpdatedAt,
	}
}

var _ domain.MediaRepository = (*MediaRepositoryPG)(nil)
