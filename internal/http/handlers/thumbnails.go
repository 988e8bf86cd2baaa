package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mediasync/internal/domain"
	"mediasync/internal/middleware"
	"mediasync/internal/thumbnails"
)

type regenerateRequest struct {
	Force       bool   `json:"force"`
	MediaItemID *int64 `json:"mediaItemId"`
}

// persistenceFailure carries the per-item results of a batch whose final
// catalog save failed.
type persistenceFailure struct {
	Error   errorBody           `json:"error"`
	Summary *thumbnails.Summary `json:"summary"`
}

// RegenerateThumbnails runs a regeneration batch and returns its summary.
// The request blocks until every selected item has been processed.
func (a *App) RegenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	if req.MediaItemID != nil && *req.MediaItemID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "mediaItemId must be positive")
		return
	}

	summary, err := a.Thumbnails.Regenerate(r.Context(), thumbnails.Request{MediaItemID: req.MediaItemID, Force: req.Force})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "media item not found")
		return
	case errors.Is(err, domain.ErrPersistence) && summary != nil:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Int("processed", summary.Processed).
			Msg("regenerate thumbnails: catalog update failed")
		a.json(w, http.StatusInternalServerError, persistenceFailure{
			Error:   errorBody{Code: "persistence_failed", Message: "derivatives were generated but the catalog update failed"},
			Summary: summary,
		})
		return
	case err != nil:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("regenerate thumbnails failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to regenerate thumbnails")
		return
	}
	a.json(w, http.StatusOK, summary)
}
