package render

import (
	"context"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

// Advisor is an optional external capability that recommends a render mode
// for a storyboard. A nil Advisor means the capability is absent.
type Advisor interface {
	Recommend(ctx context.Context, storyboard domain.Storyboard, summary, pipeline string) (domain.RenderMode, string, error)
}

// SelectionInput carries everything the selector needs. The selector never
// mutates it.
type SelectionInput struct {
	Storyboard domain.Storyboard
	Summary    string
	Pipeline   string
	References []domain.ReferenceAsset
}

// Selection is the chosen mode plus a one-sentence rationale.
type Selection struct {
	Mode      domain.RenderMode `json:"mode"`
	Rationale string            `json:"rationale"`
}

// Selector decides the generation strategy for a storyboard. The decision is
// pure: advisory failure is logged and degraded, never propagated.
type Selector struct {
	advisor Advisor
	logger  zerolog.Logger
}

func NewSelector(advisor Advisor, logger zerolog.Logger) *Selector {
	return &Selector{advisor: advisor, logger: logger}
}

// Select applies the fixed decision order: reference assets force subject
// consistency, a single shot forces single-shot generation, then a validated
// advisory recommendation, then the deterministic rule table.
func (s *Selector) Select(ctx context.Context, in SelectionInput) Selection {
	if len(in.References) > 0 {
		return Selection{
			Mode:      domain.ModeSubjectReference,
			Rationale: "a subject or product reference is attached, so every shot renders against the same reference image",
		}
	}
	if len(in.Storyboard) == 1 {
		return Selection{
			Mode:      domain.ModeSingleShot,
			Rationale: "the storyboard has a single shot, so one text-to-video job covers it",
		}
	}
	if s.advisor != nil {
		mode, rationale, err := s.advisor.Recommend(ctx, in.Storyboard, in.Summary, in.Pipeline)
		if err != nil {
			s.logger.Debug().Err(err).Msg("render: advisory unavailable, using rule table")
		} else if _, ok := domain.AdvisoryModes[mode]; ok {
			return Selection{Mode: mode, Rationale: rationale}
		} else {
			s.logger.Debug().Str("mode", string(mode)).Msg("render: advisory returned unknown mode, using rule table")
		}
	}
	for _, shot := range in.Storyboard {
		if shot.MethodHint == domain.HintImageToVideo {
			return Selection{
				Mode:      domain.ModeImagePerShot,
				Rationale: "shots ask for controlled composition, so each shot renders from a generated keyframe image",
			}
		}
	}
	return Selection{
		Mode:      domain.ModeMultiShotConcat,
		Rationale: "independent shots with no reference image render as separate text-to-video segments and concatenate",
	}
}
