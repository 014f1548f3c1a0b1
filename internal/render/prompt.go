package render

import (
	"regexp"
	"strings"
	"unicode"
)

// Render providers reject prompts past roughly 1700 characters; keep margin.
const maxPromptLen = 1600

// ConsistencyDirective is prefixed to every subject-reference prompt so the
// provider keeps the referenced subject identical across shots.
const ConsistencyDirective = "Keep the referenced subject visually identical in every shot."

var (
	newlineRe = regexp.MustCompile(`[\r\n]+`)
	spacesRe  = regexp.MustCompile(`  +`)
)

// ShotPrompt assembles the submission prompt for one shot: scene and action
// first, style and camera brief last. Dialogue is excluded; it only feeds
// captions and voiceover downstream.
func ShotPrompt(visualDescription, stylePrefix string) string {
	base := strings.TrimSpace(visualDescription)
	if stylePrefix = strings.TrimSpace(stylePrefix); stylePrefix != "" {
		base = stylePrefix + " " + base
	}
	base = newlineRe.ReplaceAllString(base, " ")
	base = strings.TrimSpace(spacesRe.ReplaceAllString(base, " "))
	if len(base) > maxPromptLen {
		base = base[:maxPromptLen]
	}
	return base
}

// ClipSeconds buckets a shot's target duration into the clip lengths the
// provider supports (5 or 10 seconds). The threshold leans up so a 6-7s line
// is not squeezed into a 5s clip.
func ClipSeconds(durationSeconds float64, dialogue string) int {
	d := durationSeconds
	if d <= 0 {
		d = EstimateSpeechSeconds(dialogue)
	}
	if d >= 7.0 {
		return 10
	}
	return 5
}

// EstimateSpeechSeconds approximates how long a dialogue line takes to speak:
// CJK characters and latin words at fixed rates plus short pauses at
// punctuation, floored at 0.8s for any non-empty line.
func EstimateSpeechSeconds(text string) float64 {
	t := strings.Join(strings.Fields(text), " ")
	if t == "" {
		return 0
	}
	// Strip a short speaker prefix such as "Narrator:" so the name does not
	// inflate the estimate.
	for _, sep := range []string{"：", ":"} {
		if i := strings.Index(t, sep); i > 0 && i <= 18 {
			rest := strings.TrimSpace(t[i+len(sep):])
			if rest != "" {
				t = rest
			}
			break
		}
	}
	var cjk, latinWords, punct int
	inWord := false
	for _, r := range t {
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				latinWords++
				inWord = true
			}
		case unicode.IsPunct(r):
			punct++
			inWord = false
		default:
			inWord = false
		}
	}
	const (
		cjkCharsPerSec   = 4.5
		latinWordsPerSec = 2.8
		punctPauseSec    = 0.10
	)
	sec := float64(cjk)/cjkCharsPerSec + float64(latinWords)/latinWordsPerSec + float64(punct)*punctPauseSec
	if sec < 0.8 {
		sec = 0.8
	}
	return sec
}
