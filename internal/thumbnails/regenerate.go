package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediasync/internal/domain"
	"mediasync/internal/infra"
)

// Outcome is the per-item result of a regeneration batch.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Request selects what to regenerate. MediaItemID wins over Force.
type Request struct {
	MediaItemID *int64
	Force       bool
}

// Result describes one processed media item.
type Result struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Status  Outcome `json:"status"`
	Message string  `json:"message"`
}

// Summary is returned to the admin surface as-is.
type Summary struct {
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Errors    int      `json:"errors"`
	Results   []Result `json:"results"`
}

// RegeneratorOptions wires the orchestrator's collaborators.
type RegeneratorOptions struct {
	Repo          domain.MediaRepository
	Generator     DerivativeGenerator
	PublicBaseURL string
	HTTPClient    *http.Client
	Logger        *infra.Logger
}

// Regenerator runs bulk derivative regeneration against the catalog.
type Regenerator struct {
	repo          domain.MediaRepository
	generator     DerivativeGenerator
	publicBaseURL string
	httpClient    *http.Client
	logger        infra.Logger
}

// NewRegenerator validates opts and applies defaults.
func NewRegenerator(opts RegeneratorOptions) (*Regenerator, error) {
	if opts.Repo == nil || opts.Generator == nil {
		return nil, errors.New("thumbnails: regenerator requires a repository and a generator")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Regenerator{
		repo:          opts.Repo,
		generator:     opts.Generator,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
		httpClient:    httpClient,
		logger:        infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

// Regenerate processes the selected items one after another. Failures of a
// single item are recorded in the summary and never stop the batch; only the
// final catalog save can fail the whole call, wrapped in domain.ErrPersistence.
// The summary collected so far is returned alongside that error.
// The batch ignores cancellation of ctx once selection has completed.
func (r *Regenerator) Regenerate(ctx context.Context, req Request) (*Summary, error) {
	items, err := r.selectItems(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		msg := "All media items already have thumbnail and WebP derivatives"
		if req.Force {
			msg = "No media items found to regenerate"
		}
		return &Summary{Message: msg, Results: []Result{}}, nil
	}

	ctx = context.WithoutCancel(ctx)
	summary := &Summary{Results: make([]Result, 0, len(items))}
	updated := make([]domain.MediaItem, 0, len(items))

	r.logger.Info().Int("candidates", len(items)).Bool("force", req.Force).Msg("thumbnails: regeneration started")
	for _, item := range items {
		paths, err := r.regenerateOne(ctx, item)
		if err != nil {
			summary.Errors++
			summary.Results = append(summary.Results, Result{ID: item.ID, Title: item.Title, Status: OutcomeError, Message: err.Error()})
			r.logger.Warn().Err(err).Int64("media_id", item.ID).Msg("thumbnails: item failed")
			continue
		}
		item.ApplyDerivatives(paths)
		updated = append(updated, item)
		summary.Processed++
		summary.Results = append(summary.Results, Result{ID: item.ID, Title: item.Title, Status: OutcomeSuccess, Message: "Derivatives regenerated"})
		r.logger.Debug().Int64("media_id", item.ID).Str("thumbnail_webp", paths.ThumbnailWebp).Msg("thumbnails: item regenerated")
	}

	if err := r.repo.SaveDerivatives(ctx, updated); err != nil {
		r.logger.Error().Err(err).Int("items", len(updated)).Msg("thumbnails: saving derivatives failed")
		summary.Message = fmt.Sprintf("Generated derivatives for %d of %d media items but the catalog update failed", summary.Processed, len(items))
		return summary, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	summary.Message = fmt.Sprintf("Regenerated derivatives for %d of %d media items", summary.Processed, len(items))
	if summary.Errors > 0 {
		summary.Message += fmt.Sprintf(" (%d failed)", summary.Errors)
	}
	r.logger.Info().Int("processed", summary.Processed).Int("errors", summary.Errors).Msg("thumbnails: regeneration finished")
	return summary, nil
}

func (r *Regenerator) selectItems(ctx context.Context, req Request) ([]domain.MediaItem, error) {
	switch {
	case req.MediaItemID != nil:
		item, err := r.repo.GetByID(ctx, *req.MediaItemID)
		if err != nil {
			return nil, err
		}
		return []domain.MediaItem{*item}, nil
	case req.Force:
		return r.repo.ListAll(ctx)
	default:
		items, err := r.repo.ListMissingDerivatives(ctx)
		if err != nil {
			return nil, err
		}
		// the query already filters; keep the invariant local too
		filtered := items[:0]
		for _, item := range items {
			if item.NeedsDerivatives() {
				filtered = append(filtered, item)
			}
		}
		return filtered, nil
	}
}

func (r *Regenerator) regenerateOne(ctx context.Context, item domain.MediaItem) (domain.DerivativePaths, error) {
	sourceURL, err := r.sourceURL(item.OriginalURL)
	if err != nil {
		return domain.DerivativePaths{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return domain.DerivativePaths{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return domain.DerivativePaths{}, fmt.Errorf("download original: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.DerivativePaths{}, fmt.Errorf("download original: status %d from %s", resp.StatusCode, sourceURL)
	}

	paths, err := r.generator.Generate(ctx, resp.Body, BaseName(item))
	if err != nil {
		return domain.DerivativePaths{}, fmt.Errorf("generate derivatives: %w", err)
	}
	if !paths.Complete() || !paths.DistinctFrom(item.OriginalURL) {
		return domain.DerivativePaths{}, errors.New("generate derivatives: generator returned incomplete or conflicting paths")
	}
	return paths, nil
}

// sourceURL resolves a catalog original against the public host; absolute
// originals are fetched as stored.
func (r *Regenerator) sourceURL(original string) (string, error) {
	original = strings.TrimSpace(original)
	if original == "" {
		return "", errors.New("original URL is empty")
	}
	if parsed, err := url.Parse(original); err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		return parsed.String(), nil
	}
	if r.publicBaseURL == "" {
		return "", errors.New("public base URL is not configured")
	}
	return r.publicBaseURL + "/" + strings.TrimLeft(original, "/"), nil
}
