package render

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

type fakeAdvisor struct {
	mode      domain.RenderMode
	rationale string
	err       error
	calls     int
}

func (f *fakeAdvisor) Recommend(ctx context.Context, sb domain.Storyboard, summary, pipeline string) (domain.RenderMode, string, error) {
	f.calls++
	return f.mode, f.rationale, f.err
}

func storyboardOf(n int) domain.Storyboard {
	sb := make(domain.Storyboard, 0, n)
	for i := 1; i <= n; i++ {
		sb = append(sb, domain.ShotDescriptor{Index: i, VisualDescription: "scene", DurationSeconds: 4})
	}
	return sb
}

func TestSelectorDecisionOrder(t *testing.T) {
	ref := domain.ReferenceAsset{ID: "ref-1", Role: domain.RefRoleSubject}
	tests := []struct {
		name    string
		input   SelectionInput
		advisor *fakeAdvisor
		want    domain.RenderMode
	}{
		{
			name:    "reference asset overrides advisory",
			input:   SelectionInput{Storyboard: storyboardOf(2), References: []domain.ReferenceAsset{ref}},
			advisor: &fakeAdvisor{mode: domain.ModeKeyframeTransition, rationale: "ignored"},
			want:    domain.ModeSubjectReference,
		},
		{
			name:  "single shot",
			input: SelectionInput{Storyboard: storyboardOf(1)},
			want:  domain.ModeSingleShot,
		},
		{
			name:    "advisory accepted when valid",
			input:   SelectionInput{Storyboard: storyboardOf(3)},
			advisor: &fakeAdvisor{mode: domain.ModeKeyframeTransition, rationale: "keyframes chain well"},
			want:    domain.ModeKeyframeTransition,
		},
		{
			name:    "advisory returning subject reference is rejected",
			input:   SelectionInput{Storyboard: storyboardOf(3)},
			advisor: &fakeAdvisor{mode: domain.ModeSubjectReference},
			want:    domain.ModeMultiShotConcat,
		},
		{
			name:    "advisory error degrades to fallback",
			input:   SelectionInput{Storyboard: storyboardOf(3)},
			advisor: &fakeAdvisor{err: errors.New("upstream down")},
			want:    domain.ModeMultiShotConcat,
		},
		{
			name: "controlled composition hint picks image per shot",
			input: SelectionInput{Storyboard: domain.Storyboard{
				{Index: 1, VisualDescription: "a"},
				{Index: 2, VisualDescription: "b", MethodHint: domain.HintImageToVideo},
				{Index: 3, VisualDescription: "c"},
			}},
			want: domain.ModeImagePerShot,
		},
		{
			name:  "no advisor falls back to concat",
			input: SelectionInput{Storyboard: storyboardOf(3)},
			want:  domain.ModeMultiShotConcat,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var advisor Advisor
			if tc.advisor != nil {
				advisor = tc.advisor
			}
			sel := NewSelector(advisor, zerolog.Nop())
			got := sel.Select(context.Background(), tc.input)
			if got.Mode != tc.want {
				t.Fatalf("Select() mode = %q, want %q", got.Mode, tc.want)
			}
			if got.Rationale == "" {
				t.Fatalf("Select() returned empty rationale")
			}
		})
	}
}

func TestSelectorReferenceSkipsAdvisoryEntirely(t *testing.T) {
	advisor := &fakeAdvisor{mode: domain.ModeMultiShotConcat}
	sel := NewSelector(advisor, zerolog.Nop())
	in := SelectionInput{
		Storyboard: storyboardOf(2),
		References: []domain.ReferenceAsset{{ID: "r", Role: domain.RefRoleProduct}},
	}
	got := sel.Select(context.Background(), in)
	if got.Mode != domain.ModeSubjectReference {
		t.Fatalf("Select() mode = %q, want %q", got.Mode, domain.ModeSubjectReference)
	}
	if advisor.calls != 0 {
		t.Fatalf("advisor consulted %d times, want 0", advisor.calls)
	}
}
