package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storyreel/internal/timeline"
)

type reorderRequest struct {
	Order []int `json:"order"`
}

func (a *App) TimelineReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	tl, err := a.Sessions.ReorderTimeline(r.Context(), chi.URLParam(r, "id"), req.Order)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, tl)
}

type insertClipRequest struct {
	Track           string  `json:"track"`
	URI             string  `json:"uri"`
	DurationSeconds float64 `json:"duration_seconds"`
	AtSeconds       float64 `json:"at_seconds"`
}

func (a *App) TimelineInsertClip(w http.ResponseWriter, r *http.Request) {
	var req insertClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	clip, err := a.Sessions.InsertClip(r.Context(), chi.URLParam(r, "id"),
		timeline.TrackKind(req.Track), req.URI, req.DurationSeconds, req.AtSeconds)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusCreated, clip)
}

// TimelineRemoveClip deletes a clip by id. The owning track may be named in
// the `track` query parameter; otherwise it is resolved from the timeline.
func (a *App) TimelineRemoveClip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clipID := chi.URLParam(r, "clip_id")
	track := timeline.TrackKind(r.URL.Query().Get("track"))
	if track == "" {
		_, tl, err := a.Sessions.Get(r.Context(), id)
		if err != nil {
			a.serviceError(w, err)
			return
		}
		found, ok := trackOfClip(tl, clipID)
		if !ok {
			a.error(w, http.StatusNotFound, "not_found", "clip not found on any track")
			return
		}
		track = found
	}
	tl, err := a.Sessions.RemoveClip(r.Context(), id, track, clipID)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, tl)
}

func trackOfClip(tl *timeline.Timeline, clipID string) (timeline.TrackKind, bool) {
	for _, clip := range tl.Video {
		if clip.ID == clipID {
			return timeline.TrackVideo, true
		}
	}
	for _, lane := range tl.Audio {
		for _, clip := range lane.Clips {
			if clip.ID == clipID {
				return lane.Kind, true
			}
		}
	}
	return "", false
}

type audioPropsRequest struct {
	Track  string   `json:"track"`
	Volume *float64 `json:"volume"`
	Muted  *bool    `json:"muted"`
}

func (a *App) TimelineSetAudio(w http.ResponseWriter, r *http.Request) {
	var req audioPropsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	tl, err := a.Sessions.SetAudio(r.Context(), chi.URLParam(r, "id"),
		timeline.TrackKind(req.Track), req.Volume, req.Muted)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, tl)
}
