package merge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

type fakeComposer struct {
	calls int
	uri   string
	err   error
}

func (f *fakeComposer) Compose(ctx context.Context, req Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.uri != "" {
		return f.uri, nil
	}
	return "https://cdn/merged-" + strings.Join(req.OrderedURIs, "-") + ".mp4", nil
}

func TestMergeCountMismatchFailsBeforeProvider(t *testing.T) {
	composer := &fakeComposer{}
	engine := NewEngine(composer, zerolog.Nop())

	_, err := engine.Merge(context.Background(), Request{OrderedURIs: []string{"u1", "u2"}}, 3)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if composer.calls != 0 {
		t.Fatalf("provider called %d times, want 0", composer.calls)
	}
}

func TestMergeEmptyURIsNameOffendingIndices(t *testing.T) {
	composer := &fakeComposer{}
	engine := NewEngine(composer, zerolog.Nop())

	_, err := engine.Merge(context.Background(), Request{OrderedURIs: []string{"u1", "", "  "}}, 3)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *domain.ValidationError", err)
	}
	if len(verr.Indices) != 2 || verr.Indices[0] != 2 || verr.Indices[1] != 3 {
		t.Fatalf("indices = %v, want [2 3]", verr.Indices)
	}
	if composer.calls != 0 {
		t.Fatalf("provider called %d times, want 0", composer.calls)
	}
}

func TestMergeProducesArtifactWithSourceOrder(t *testing.T) {
	engine := NewEngine(&fakeComposer{uri: "https://cdn/final.mp4"}, zerolog.Nop())
	req := Request{
		OrderedURIs: []string{"u3", "u1", "u2"},
		SourceOrder: []int{3, 1, 2},
	}
	artifact, err := engine.Merge(context.Background(), req, 3)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if artifact.URI != "https://cdn/final.mp4" {
		t.Fatalf("uri = %q", artifact.URI)
	}
	if len(artifact.SourceOrder) != 3 || artifact.SourceOrder[0] != 3 {
		t.Fatalf("sourceOrder = %v, want [3 1 2]", artifact.SourceOrder)
	}
	if artifact.AudioMixApplied {
		t.Fatalf("AudioMixApplied = true without audio tracks")
	}
}

func TestMergeIdenticalInputsYieldNewArtifacts(t *testing.T) {
	engine := NewEngine(&fakeComposer{uri: "https://cdn/final.mp4"}, zerolog.Nop())
	req := Request{OrderedURIs: []string{"u1", "u2"}, SourceOrder: []int{1, 2}}

	first, err := engine.Merge(context.Background(), req, 2)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	second, err := engine.Merge(context.Background(), req, 2)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if first == second {
		t.Fatalf("merge returned the same artifact twice")
	}
	if !intsEqual(first.SourceOrder, second.SourceOrder) {
		t.Fatalf("sourceOrder differs for identical inputs: %v vs %v", first.SourceOrder, second.SourceOrder)
	}
}

func TestMergeAudioMixApplied(t *testing.T) {
	engine := NewEngine(&fakeComposer{uri: "u"}, zerolog.Nop())
	tests := []struct {
		name  string
		audio []AudioTrackDescriptor
		want  bool
	}{
		{name: "audible music", audio: []AudioTrackDescriptor{{Kind: "music", URI: "bgm.mp3", Volume: 0.8}}, want: true},
		{name: "muted track", audio: []AudioTrackDescriptor{{Kind: "music", URI: "bgm.mp3", Volume: 0.8, Muted: true}}, want: false},
		{name: "zero volume", audio: []AudioTrackDescriptor{{Kind: "music", URI: "bgm.mp3"}}, want: false},
		{name: "no uri", audio: []AudioTrackDescriptor{{Kind: "music", Volume: 1}}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			artifact, err := engine.Merge(context.Background(), Request{OrderedURIs: []string{"u1"}, SourceOrder: []int{1}, Audio: tc.audio}, 1)
			if err != nil {
				t.Fatalf("Merge returned error: %v", err)
			}
			if artifact.AudioMixApplied != tc.want {
				t.Fatalf("AudioMixApplied = %v, want %v", artifact.AudioMixApplied, tc.want)
			}
		})
	}
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
