package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type mergeRequest struct {
	Transitions bool `json:"transitions"`
}

func (a *App) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	artifact, err := a.Sessions.Merge(r.Context(), chi.URLParam(r, "id"), req.Transitions)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusCreated, artifact)
}

func (a *App) Artifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := a.Sessions.Artifacts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"artifacts": artifacts})
}
