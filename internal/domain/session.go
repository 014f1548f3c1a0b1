package domain

import "time"

// Session is the explicit creation-session context passed into every
// operation. All mutable session state lives here, never in globals.
type Session struct {
	ID         string
	Title      string
	Pipeline   string
	Summary    string
	Storyboard Storyboard
	References []ReferenceAsset
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Reference returns the reference asset with the given id, or nil.
func (s *Session) Reference(id string) *ReferenceAsset {
	for i := range s.References {
		if s.References[i].ID == id {
			return &s.References[i]
		}
	}
	return nil
}

// SharedReference returns the asset every consistency critical job in the
// session must carry: the first subject reference, else the first product
// reference, else nil.
func (s *Session) SharedReference() *ReferenceAsset {
	for i := range s.References {
		if s.References[i].Role == RefRoleSubject {
			return &s.References[i]
		}
	}
	for i := range s.References {
		if s.References[i].Role == RefRoleProduct {
			return &s.References[i]
		}
	}
	return nil
}

// MergedArtifact is one finished multi-shot video. A new merge always yields
// a new artifact; existing artifacts are never mutated.
type MergedArtifact struct {
	URI             string    `json:"uri"`
	SourceOrder     []int     `json:"source_order"`
	AudioMixApplied bool      `json:"audio_mix_applied"`
	CreatedAt       time.Time `json:"created_at"`
}
