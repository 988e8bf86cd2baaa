package domain

import "context"

// MediaRepository is the catalog access needed by derivative regeneration.
type MediaRepository interface {
	GetByID(ctx context.Context, id int64) (*MediaItem, error)
	ListAll(ctx context.Context) ([]MediaItem, error)
	ListMissingDerivatives(ctx context.Context) ([]MediaItem, error)
	// SaveDerivatives persists the four derivative fields of every item in
	// one batch; either all rows are written or none.
	SaveDerivatives(ctx context.Context, items []MediaItem) error
}
