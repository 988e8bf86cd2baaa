// Package staging holds generated derivatives on local disk until an
// external sync copies them into the deployed asset repository.
//
// A file present in a class directory is pending. Nothing records whether a
// dispatch already asked for it, so Purge after a dispatch also removes files
// generated after that dispatch was sent.
package staging

import (
	"context"
	"errors"

	"mediasync/internal/domain"
)

// ErrNothingToBundle is returned by Bundle when both classes are empty.
var ErrNothingToBundle = errors.New("staging: nothing to bundle")

// Store is the staging area shared by generation, the scheduler and the
// operator surface.
type Store interface {
	List(ctx context.Context, class domain.StagingClass) ([]string, error)
	Write(ctx context.Context, class domain.StagingClass, name string, data []byte) error
	Bundle(ctx context.Context) ([]byte, error)
	Purge(ctx context.Context) (int, error)
}

// Counts is the number of pending files per class.
type Counts struct {
	Thumbnails int
	Large      int
}

// Total sums both classes.
func (c Counts) Total() int {
	return c.Thumbnails + c.Large
}

// Count lists both classes of s.
func Count(ctx context.Context, s Store) (Counts, error) {
	thumbs, err := s.List(ctx, domain.ClassThumbnails)
	if err != nil {
		return Counts{}, err
	}
	large, err := s.List(ctx, domain.ClassLarge)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Thumbnails: len(thumbs), Large: len(large)}, nil
}
