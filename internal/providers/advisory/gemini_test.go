package advisory

import (
	"strings"
	"testing"

	"storyreel/internal/domain"
)

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantMode domain.RenderMode
		wantErr  bool
	}{
		{
			name:     "plain answer",
			text:     "multi_shot_t2v_concat|shots are visually independent",
			wantMode: domain.ModeMultiShotConcat,
		},
		{
			name:     "padded with whitespace and trailing lines",
			text:     "  image_per_shot | composition needs keyframe control \nextra commentary",
			wantMode: domain.ModeImagePerShot,
		},
		{
			name:     "mode without rationale",
			text:     "keyframe_transition",
			wantMode: domain.ModeKeyframeTransition,
		},
		{
			name:    "subject_reference is never advisory-selectable",
			text:    "subject_reference|there might be a character",
			wantErr: true,
		},
		{
			name:    "unknown mode",
			text:    "cinematic_mega_mode|because",
			wantErr: true,
		},
		{
			name:    "empty answer",
			text:    "   \n",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mode, rationale, err := ParseRecommendation(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseRecommendation(%q) succeeded with %s", tc.text, mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecommendation(%q) error: %v", tc.text, err)
			}
			if mode != tc.wantMode {
				t.Fatalf("mode = %s, want %s", mode, tc.wantMode)
			}
			if rationale == "" {
				t.Fatalf("rationale should never be empty")
			}
		})
	}
}

func TestBuildPromptListsShotsAndModes(t *testing.T) {
	storyboard := domain.Storyboard{
		{Index: 1, VisualDescription: "a lighthouse at dusk", Dialogue: "we made it"},
		{Index: 2, VisualDescription: "waves crash on rocks"},
	}
	prompt := buildPrompt(storyboard, "a rescue at sea", "drama")

	for _, want := range []string{
		"single_shot_t2v", "multi_shot_t2v_concat", "image_per_shot", "keyframe_transition",
		"1. a lighthouse at dusk", "(dialogue: we made it)", "2. waves crash on rocks",
		"a rescue at sea", "drama",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "subject_reference") {
		t.Fatalf("prompt must not offer subject_reference to the advisor")
	}
}
