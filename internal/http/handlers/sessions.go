package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storyreel/internal/domain"
	"storyreel/internal/session"
	"storyreel/internal/timeline"
)

type referencePayload struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	ImageBase64 string `json:"image_base64"`
	StorageKey  string `json:"storage_key"`
}

type sessionCreateRequest struct {
	Title      string             `json:"title"`
	Pipeline   string             `json:"pipeline"`
	Summary    string             `json:"summary"`
	RawText    string             `json:"raw_text"`
	Locale     string             `json:"locale"`
	Storyboard domain.Storyboard  `json:"storyboard"`
	References []referencePayload `json:"references"`
}

type sessionResponse struct {
	ID         string                  `json:"id"`
	Title      string                  `json:"title"`
	Pipeline   string                  `json:"pipeline,omitempty"`
	Summary    string                  `json:"summary,omitempty"`
	Storyboard domain.Storyboard       `json:"storyboard"`
	References []domain.ReferenceAsset `json:"references,omitempty"`
	Timeline   *timeline.Timeline      `json:"timeline"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

func newSessionResponse(sess *domain.Session, tl *timeline.Timeline) sessionResponse {
	return sessionResponse{
		ID:         sess.ID,
		Title:      sess.Title,
		Pipeline:   sess.Pipeline,
		Summary:    sess.Summary,
		Storyboard: sess.Storyboard,
		References: sess.References,
		Timeline:   tl,
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
	}
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	in := session.CreateInput{
		Title:      req.Title,
		Pipeline:   req.Pipeline,
		Summary:    req.Summary,
		RawText:    req.RawText,
		Locale:     req.Locale,
		Storyboard: req.Storyboard,
	}
	for _, ref := range req.References {
		asset := domain.ReferenceAsset{
			ID:          ref.ID,
			Role:        domain.ReferenceRole(ref.Role),
			DisplayName: ref.DisplayName,
			StorageKey:  ref.StorageKey,
		}
		if ref.ImageBase64 != "" {
			image, err := base64.StdEncoding.DecodeString(ref.ImageBase64)
			if err != nil {
				a.error(w, http.StatusBadRequest, "bad_request", "reference image is not valid base64")
				return
			}
			asset.Image = image
		}
		in.References = append(in.References, asset)
	}
	sess, err := a.Sessions.Create(r.Context(), in)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusCreated, newSessionResponse(sess, timeline.New()))
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, tl, err := a.Sessions.Get(r.Context(), id)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.json(w, http.StatusOK, newSessionResponse(sess, tl))
}
