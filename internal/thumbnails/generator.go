package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"mediasync/internal/domain"
	"mediasync/internal/imaging"
	"mediasync/internal/staging"
)

// DefaultMaxSourceBytes caps how much of an original is read into memory.
const DefaultMaxSourceBytes int64 = 64 << 20

// ErrSourceTooLarge is returned when an original exceeds the read cap.
var ErrSourceTooLarge = errors.New("thumbnails: source image too large")

// DerivativeGenerator writes the derivative set for one original.
type DerivativeGenerator interface {
	Generate(ctx context.Context, src io.Reader, base string) (domain.DerivativePaths, error)
}

// Generator encodes originals and stages the results. It never reads or
// writes catalog records and always regenerates.
type Generator struct {
	encoder        imaging.Encoder
	store          staging.Store
	publicPrefix   string
	maxSourceBytes int64
}

// NewGenerator builds a generator whose returned paths start with publicPrefix.
func NewGenerator(encoder imaging.Encoder, store staging.Store, publicPrefix string) *Generator {
	prefix := "/" + strings.Trim(strings.TrimSpace(publicPrefix), "/")
	return &Generator{
		encoder:        encoder,
		store:          store,
		publicPrefix:   prefix,
		maxSourceBytes: DefaultMaxSourceBytes,
	}
}

// Generate decodes src and stages <base>.jpg and <base>.webp in both classes.
func (g *Generator) Generate(ctx context.Context, src io.Reader, base string) (domain.DerivativePaths, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return domain.DerivativePaths{}, errors.New("thumbnails: base name is required")
	}
	data, err := io.ReadAll(io.LimitReader(src, g.maxSourceBytes+1))
	if err != nil {
		return domain.DerivativePaths{}, fmt.Errorf("thumbnails: read source: %w", err)
	}
	if int64(len(data)) > g.maxSourceBytes {
		return domain.DerivativePaths{}, ErrSourceTooLarge
	}

	encoded, err := g.encoder.Encode(data)
	if err != nil {
		return domain.DerivativePaths{}, err
	}

	var paths domain.DerivativePaths
	outputs := []struct {
		class domain.StagingClass
		name  string
		data  []byte
		dest  *string
	}{
		{domain.ClassThumbnails, base + ".jpg", encoded.ThumbnailJPEG, &paths.Thumbnail},
		{domain.ClassThumbnails, base + ".webp", encoded.ThumbnailWebP, &paths.ThumbnailWebp},
		{domain.ClassLarge, base + ".jpg", encoded.LargeJPEG, &paths.Large},
		{domain.ClassLarge, base + ".webp", encoded.LargeWebP, &paths.LargeWebp},
	}

	for _, out := range outputs {
		if len(out.data) == 0 {
			return domain.DerivativePaths{}, fmt.Errorf("thumbnails: encoder produced empty %s/%s", out.class, out.name)
		}
		if err := g.store.Write(ctx, out.class, out.name, out.data); err != nil {
			return domain.DerivativePaths{}, err
		}
		*out.dest = path.Join(g.publicPrefix, string(out.class), out.name)
	}
	return paths, nil
}

// BaseName derives the staged file stem for item: its id followed by the
// slugged stem of the original file name.
func BaseName(item domain.MediaItem) string {
	stem := path.Base(strings.SplitN(strings.SplitN(item.OriginalURL, "?", 2)[0], "#", 2)[0])
	if ext := path.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
	}
	slug := slugify(stem)
	if slug == "" {
		slug = "media"
	}
	return strconv.FormatInt(item.ID, 10) + "-" + slug
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
		if b.Len() >= 80 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

var _ DerivativeGenerator = (*Generator)(nil)
