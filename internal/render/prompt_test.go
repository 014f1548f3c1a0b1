package render

import (
	"strings"
	"testing"
)

func TestShotPrompt(t *testing.T) {
	tests := []struct {
		name   string
		visual string
		prefix string
		want   string
	}{
		{
			name:   "normalizes whitespace and newlines",
			visual: "a woman  walks\ninto the rain",
			want:   "a woman walks into the rain",
		},
		{
			name:   "style prefix leads",
			visual: "close-up of hands",
			prefix: "Cinematic, natural light.",
			want:   "Cinematic, natural light. close-up of hands",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShotPrompt(tc.visual, tc.prefix); got != tc.want {
				t.Fatalf("ShotPrompt() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestShotPromptTruncation(t *testing.T) {
	long := strings.Repeat("x", maxPromptLen+200)
	got := ShotPrompt(long, "")
	if len(got) != maxPromptLen {
		t.Fatalf("len = %d, want %d", len(got), maxPromptLen)
	}
}

func TestClipSeconds(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		dialogue string
		want     int
	}{
		{name: "short shot", duration: 4, want: 5},
		{name: "boundary leans up", duration: 7, want: 10},
		{name: "long shot", duration: 9.5, want: 10},
		{name: "no duration estimates from dialogue", duration: 0, dialogue: "a very long monologue that keeps going on and on with many extra words that we need to say right here today my friend", want: 10},
		{name: "no duration short line", duration: 0, dialogue: "Hi.", want: 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClipSeconds(tc.duration, tc.dialogue); got != tc.want {
				t.Fatalf("ClipSeconds(%v, %q) = %d, want %d", tc.duration, tc.dialogue, got, tc.want)
			}
		})
	}
}

func TestEstimateSpeechSeconds(t *testing.T) {
	if got := EstimateSpeechSeconds(""); got != 0 {
		t.Fatalf("empty line = %v, want 0", got)
	}
	if got := EstimateSpeechSeconds("Ok"); got != 0.8 {
		t.Fatalf("floor = %v, want 0.8", got)
	}
	withPrefix := EstimateSpeechSeconds("Narrator: the storm arrives tonight")
	bare := EstimateSpeechSeconds("the storm arrives tonight")
	if withPrefix != bare {
		t.Fatalf("speaker prefix should be stripped: %v != %v", withPrefix, bare)
	}
	long := EstimateSpeechSeconds("she hesitates at the door, then finally knocks twice and waits")
	if long <= bare {
		t.Fatalf("longer line should take longer: %v <= %v", long, bare)
	}
}
