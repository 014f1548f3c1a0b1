package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storyreel/internal/domain"
)

type jobResponse struct {
	JobID        string `json:"job_id"`
	ShotIndex    int    `json:"shot_index"`
	Mode         string `json:"mode"`
	Status       string `json:"status"`
	ResultURI    string `json:"result_uri,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func newJobResponse(job *domain.RenderJob) jobResponse {
	return jobResponse{
		JobID:        job.ID,
		ShotIndex:    job.ShotIndex,
		Mode:         string(job.Mode),
		Status:       string(job.Status),
		ResultURI:    job.ResultURI,
		ErrorMessage: job.ErrorMessage,
	}
}

// ModeSelect runs strategy selection without dispatching anything.
func (a *App) ModeSelect(w http.ResponseWriter, r *http.Request) {
	selection, err := a.Sessions.SelectMode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, selection)
}

type dispatchRequest struct {
	Mode string `json:"mode"`
}

func (a *App) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	dispatched, err := a.Sessions.Dispatch(r.Context(), chi.URLParam(r, "id"), req.Mode)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	jobs := make([]jobResponse, 0, len(dispatched))
	for _, job := range dispatched {
		jobs = append(jobs, newJobResponse(job))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ShotIndex < jobs[j].ShotIndex })
	a.json(w, http.StatusAccepted, map[string]any{"jobs": jobs})
}

// Status runs one poll round trip and reports every tracked shot's state.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	result, err := a.Sessions.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

type regenerateRequest struct {
	Prompt string `json:"prompt"`
}

func (a *App) Regenerate(w http.ResponseWriter, r *http.Request) {
	shotIndex, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || shotIndex < 1 {
		a.error(w, http.StatusBadRequest, "bad_request", "shot index must be a positive integer")
		return
	}
	var req regenerateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	job, err := a.Sessions.Regenerate(r.Context(), chi.URLParam(r, "id"), shotIndex, req.Prompt)
	if err != nil {
		// A failed submission still yields an audit job record.
		if job != nil {
			a.json(w, http.StatusBadGateway, map[string]any{
				"error":   "provider_failure",
				"message": err.Error(),
				"job":     newJobResponse(job),
			})
			return
		}
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, newJobResponse(job))
}
