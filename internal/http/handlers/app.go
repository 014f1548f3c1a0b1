package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
	"storyreel/internal/render"
	"storyreel/internal/session"
	"storyreel/internal/storage"
	"storyreel/internal/timeline"
)

// SessionService is the slice of the session service the HTTP surface needs.
type SessionService interface {
	Create(ctx context.Context, in session.CreateInput) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, *timeline.Timeline, error)
	Artifacts(ctx context.Context, id string) ([]domain.MergedArtifact, error)
	SelectMode(ctx context.Context, id string) (render.Selection, error)
	Dispatch(ctx context.Context, id, modeOverride string) (map[int]*domain.RenderJob, error)
	Status(ctx context.Context, id string) (render.PollResult, error)
	Regenerate(ctx context.Context, id string, shotIndex int, overridePrompt string) (*domain.RenderJob, error)
	ReorderTimeline(ctx context.Context, id string, order []int) (*timeline.Timeline, error)
	InsertClip(ctx context.Context, id string, track timeline.TrackKind, uri string, durationSec, atSeconds float64) (timeline.Clip, error)
	RemoveClip(ctx context.Context, id string, track timeline.TrackKind, clipID string) (*timeline.Timeline, error)
	SetAudio(ctx context.Context, id string, track timeline.TrackKind, volume *float64, muted *bool) (*timeline.Timeline, error)
	Merge(ctx context.Context, id string, transitions bool) (*domain.MergedArtifact, error)
}

type App struct {
	Sessions       SessionService
	Uploads        *storage.FileStore
	StorageBaseURL string
	// EventPollInterval paces the websocket status stream. Zero means the
	// default of two seconds.
	EventPollInterval time.Duration
	Logger            zerolog.Logger
}

func NewApp(sessions SessionService, uploads *storage.FileStore, storageBaseURL string, logger zerolog.Logger) *App {
	return &App{
		Sessions:       sessions,
		Uploads:        uploads,
		StorageBaseURL: storageBaseURL,
		Logger:         logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]string{"error": slug, "message": msg})
}

// serviceError translates domain errors into the HTTP vocabulary.
func (a *App) serviceError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		a.json(w, http.StatusBadRequest, map[string]any{
			"error":   "validation",
			"message": ve.Reason,
			"indices": ve.Indices,
		})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrShotNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, domain.ErrNotReady):
		a.error(w, http.StatusConflict, "not_ready", err.Error())
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "provider_failure", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("http: unhandled service error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
