package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mediasync/internal/domain"
	"mediasync/internal/middleware"
)

func (a *App) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.Sync.Status(r.Context())
	if err != nil {
		a.internal(w, r, err, "failed to read staging status")
		return
	}
	a.json(w, http.StatusOK, status)
}

// DownloadPending streams every staged file as one zip archive. Nothing is
// removed from staging.
func (a *App) DownloadPending(w http.ResponseWriter, r *http.Request) {
	data, err := a.Sync.DownloadPending(r.Context())
	if errors.Is(err, domain.ErrNothingStaged) {
		a.error(w, http.StatusNotFound, "not_found", "no pending thumbnails to download")
		return
	}
	if err != nil {
		a.internal(w, r, err, "failed to bundle staged files")
		return
	}
	name := fmt.Sprintf("pending-thumbnails-%s.zip", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) MarkSynced(w http.ResponseWriter, r *http.Request) {
	result, err := a.Sync.MarkSynced(r.Context())
	if err != nil {
		a.internal(w, r, err, "failed to clear staging")
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) TriggerManual(w http.ResponseWriter, r *http.Request) {
	result, err := a.Sync.TriggerManual(r.Context())
	switch {
	case err == nil:
		a.json(w, http.StatusOK, result)
	case errors.Is(err, domain.ErrDispatchNotConfigured):
		a.error(w, http.StatusServiceUnavailable, "dispatch_not_configured", err.Error())
	case errors.Is(err, domain.ErrDispatchRepoNotFound):
		a.error(w, http.StatusBadGateway, "dispatch_repo_not_found", err.Error())
	case errors.Is(err, domain.ErrDispatchFailed):
		a.error(w, http.StatusBadGateway, "dispatch_failed", err.Error())
	default:
		a.internal(w, r, err, "failed to trigger sync")
	}
}

func (a *App) internal(w http.ResponseWriter, r *http.Request, err error, message string) {
	a.Logger.Error().Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Msg(message)
	a.error(w, http.StatusInternalServerError, "internal", message)
}
