package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"storyreel/pkg/zip"
)

// Export bundles the session into a zip: a manifest with the storyboard,
// timeline and merge history, plus every stored file belonging to the
// session (uploads and backed up render segments).
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, tl, err := a.Sessions.Get(r.Context(), id)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	artifacts, err := a.Sessions.Artifacts(r.Context(), id)
	if err != nil {
		a.serviceError(w, err)
		return
	}

	manifest, err := json.MarshalIndent(map[string]any{
		"session":   newSessionResponse(sess, tl),
		"artifacts": artifacts,
	}, "", "  ")
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build manifest")
		return
	}
	assets := []zip.Asset{{Filename: "manifest.json", MIME: "application/json", Data: manifest}}

	if a.Uploads != nil {
		keys, err := a.Uploads.List(r.Context(), path.Join("sessions", id))
		if err != nil {
			a.Logger.Error().Err(err).Str("session_id", id).Msg("http: list session files")
			a.error(w, http.StatusInternalServerError, "internal", "failed to collect session files")
			return
		}
		for _, key := range keys {
			data, err := a.Uploads.Read(r.Context(), key)
			if err != nil {
				a.Logger.Warn().Err(err).Str("key", key).Msg("http: skip unreadable session file")
				continue
			}
			assets = append(assets, zip.Asset{Filename: key, Data: data})
		}
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", id).Msg("http: build export archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.zip", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
