package handlers

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"storyreel/internal/timeline"
)

const maxUploadBytes = 256 << 20

// Upload stores a local media file for the session and, when a target track
// is named in the form, drops it onto the timeline in the same request.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, _, err := a.Sessions.Get(r.Context(), id); err != nil {
		a.serviceError(w, err)
		return
	}
	if a.Uploads == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "upload storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	ext := strings.ToLower(path.Ext(header.Filename))
	key := path.Join("sessions", id, "uploads", uuid.NewString()+ext)
	storedKey, err := a.Uploads.Write(r.Context(), key, data)
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", id).Msg("http: store upload")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}
	uri := strings.TrimRight(a.StorageBaseURL, "/") + "/" + storedKey

	resp := map[string]any{"key": storedKey, "uri": uri, "bytes": len(data)}
	if track := r.FormValue("track"); track != "" {
		duration, err := strconv.ParseFloat(r.FormValue("duration_seconds"), 64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "duration_seconds is required to place the clip")
			return
		}
		atSeconds := 0.0
		if at := r.FormValue("at_seconds"); at != "" {
			if atSeconds, err = strconv.ParseFloat(at, 64); err != nil {
				a.error(w, http.StatusBadRequest, "bad_request", "at_seconds must be a number")
				return
			}
		}
		clip, err := a.Sessions.InsertClip(r.Context(), id, timeline.TrackKind(track), uri, duration, atSeconds)
		if err != nil {
			a.serviceError(w, err)
			return
		}
		resp["clip"] = clip
	}
	a.json(w, http.StatusCreated, resp)
}
