package script

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyreel/internal/domain"
)

const (
	geminiProviderName = "gemini"
	staticProviderName = "static"

	defaultMaxShots = 8
)

// Request carries the raw material a storyboard is written from.
type Request struct {
	Title    string
	RawText  string
	Pipeline string
	Locale   string
	MaxShots int
}

// Script is a generated storyboard plus its framing.
type Script struct {
	Title      string            `json:"title"`
	Summary    string            `json:"summary"`
	Storyboard domain.Storyboard `json:"storyboard"`
	Provider   string            `json:"-"`
}

// Generator turns raw input text into a storyboard.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Script, error)
}

// StaticGenerator is the deterministic fallback used when no LLM is
// configured or the LLM call fails. It splits the raw text into sentences
// and makes each sentence a shot.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (s *StaticGenerator) Generate(ctx context.Context, req Request) (*Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sentences := splitSentences(req.RawText)
	maxShots := req.MaxShots
	if maxShots <= 0 {
		maxShots = defaultMaxShots
	}
	if len(sentences) > maxShots {
		sentences = sentences[:maxShots]
	}
	if len(sentences) == 0 {
		return nil, fmt.Errorf("script: input text has no usable sentences: %w", domain.ErrValidation)
	}

	storyboard := make(domain.Storyboard, 0, len(sentences))
	for i, sentence := range sentences {
		storyboard = append(storyboard, domain.ShotDescriptor{
			Index:             i + 1,
			VisualDescription: sentence,
		})
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = cases.Title(language.Und).String(firstWords(sentences[0], 5))
	}
	return &Script{
		Title:      title,
		Summary:    firstWords(req.RawText, 40),
		Storyboard: storyboard,
		Provider:   staticProviderName,
	}, nil
}

func splitSentences(text string) []string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil
	}
	var out []string
	var current strings.Builder
	for _, r := range cleaned {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func firstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ")
}
