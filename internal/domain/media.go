package domain

import "time"

// MediaItem is the slice of a catalog media record that derivative
// generation reads and writes.
type MediaItem struct {
	ID               int64
	Title            string
	OriginalURL      string
	ThumbnailURL     string
	ThumbnailWebpURL string
	LargeURL         string
	LargeWebpURL     string
	UpdatedAt        time.Time
}

// NeedsDerivatives reports whether either WebP variant is missing.
func (m MediaItem) NeedsDerivatives() bool {
	return m.ThumbnailWebpURL == "" || m.LargeWebpURL == ""
}

// ApplyDerivatives overwrites all four derivative fields.
func (m *MediaItem) ApplyDerivatives(p DerivativePaths) {
	m.ThumbnailURL = p.Thumbnail
	m.ThumbnailWebpURL = p.ThumbnailWebp
	m.LargeURL = p.Large
	m.LargeWebpURL = p.LargeWebp
}

// DerivativePaths are the public paths of one generated derivative set.
type DerivativePaths struct {
	Thumbnail     string
	ThumbnailWebp string
	Large         string
	LargeWebp     string
}

func (p DerivativePaths) all() []string {
	return []string{p.Thumbnail, p.ThumbnailWebp, p.Large, p.LargeWebp}
}

// Complete reports whether every path is set.
func (p DerivativePaths) Complete() bool {
	for _, v := range p.all() {
		if v == "" {
			return false
		}
	}
	return true
}

// DistinctFrom reports whether no path equals original.
func (p DerivativePaths) DistinctFrom(original string) bool {
	for _, v := range p.all() {
		if v == original {
			return false
		}
	}
	return true
}

// StagingClass names one of the two staging directories.
type StagingClass string

const (
	ClassThumbnails StagingClass = "thumbnails"
	ClassLarge      StagingClass = "large"
)

// StagingClasses lists the classes in bundle order.
var StagingClasses = []StagingClass{ClassThumbnails, ClassLarge}

// Valid reports whether c is a known class.
func (c StagingClass) Valid() bool {
	return c == ClassThumbnails || c == ClassLarge
}

// SyncSource tags who asked for an external sync.
type SyncSource string

const (
	SyncSourceManual    SyncSource = "manual"
	SyncSourceAutomatic SyncSource = "automatic"
)
