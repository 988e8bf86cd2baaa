package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"mediasync/internal/infra"
	"mediasync/internal/syncctl"
	"mediasync/internal/thumbnails"
)

// Regenerator runs a derivative regeneration batch.
type Regenerator interface {
	Regenerate(ctx context.Context, req thumbnails.Request) (*thumbnails.Summary, error)
}

// SyncController is the staging surface exposed to operators.
type SyncController interface {
	Status(ctx context.Context) (*syncctl.Status, error)
	DownloadPending(ctx context.Context) ([]byte, error)
	MarkSynced(ctx context.Context) (*syncctl.MarkSyncedResult, error)
	TriggerManual(ctx context.Context) (*syncctl.TriggerResult, error)
}

type App struct {
	Thumbnails Regenerator
	Sync       SyncController
	Logger     infra.Logger
}

func NewApp(regen Regenerator, sync SyncController, logger *infra.Logger) *App {
	return &App{Thumbnails: regen, Sync: sync, Logger: infra.LoggerOrDiscard(logger)}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}
