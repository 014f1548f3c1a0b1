package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

const geminiDefaultModel = "gemini-2.5-flash"

type GeminiOptions struct {
	APIKey   string
	Model    string
	Fallback Generator
	Logger   *infra.Logger
}

// GeminiGenerator writes a storyboard with Gemini and falls back to the
// static generator when the call fails, so session creation keeps working
// without LLM availability.
type GeminiGenerator struct {
	apiKey   string
	model    string
	fallback Generator
	logger   *infra.Logger

	// call is the model invocation, replaceable in tests.
	call func(ctx context.Context, prompt string) (string, error)
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("script: gemini api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	g := &GeminiGenerator{
		apiKey:   opts.APIKey,
		model:    model,
		fallback: opts.Fallback,
		logger:   opts.Logger,
	}
	g.call = g.invokeModel
	return g, nil
}

type geminiScriptPayload struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Shots   []struct {
		Visual   string  `json:"visual"`
		Dialogue string  `json:"dialogue"`
		Duration float64 `json:"duration_seconds"`
	} `json:"shots"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Script, error) {
	script, err := g.generate(ctx, req)
	if err != nil {
		if g.fallback != nil {
			if g.logger != nil {
				g.logger.Warn().Err(err).Msg("script: gemini failed, using static generator")
			}
			return g.fallback.Generate(ctx, req)
		}
		return nil, err
	}
	return script, nil
}

func (g *GeminiGenerator) generate(ctx context.Context, req Request) (*Script, error) {
	text, err := g.call(ctx, buildScriptPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseScript(text, req)
}

func (g *GeminiGenerator) invokeModel(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("script: create client: %w", err)
	}
	result, err := client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("script: generate: %w", err)
	}
	text := firstText(result)
	if text == "" {
		return "", fmt.Errorf("script: empty model response")
	}
	return text, nil
}

func firstText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// parseScript reads the JSON answer, tolerating markdown fences some models
// wrap JSON in, and renumbers shots densely from 1.
func parseScript(text string, req Request) (*Script, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var payload geminiScriptPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &payload); err != nil {
		return nil, fmt.Errorf("script: decode model answer: %w", err)
	}
	if len(payload.Shots) == 0 {
		return nil, fmt.Errorf("script: model answer has no shots")
	}
	maxShots := req.MaxShots
	if maxShots <= 0 {
		maxShots = defaultMaxShots
	}
	if len(payload.Shots) > maxShots {
		payload.Shots = payload.Shots[:maxShots]
	}

	storyboard := make(domain.Storyboard, 0, len(payload.Shots))
	for i, shot := range payload.Shots {
		visual := strings.TrimSpace(shot.Visual)
		if visual == "" {
			continue
		}
		storyboard = append(storyboard, domain.ShotDescriptor{
			Index:             i + 1,
			VisualDescription: visual,
			Dialogue:          strings.TrimSpace(shot.Dialogue),
			DurationSeconds:   shot.Duration,
		})
	}
	if len(storyboard) == 0 {
		return nil, fmt.Errorf("script: model answer has no usable shots")
	}
	for i := range storyboard {
		storyboard[i].Index = i + 1
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = strings.TrimSpace(req.Title)
	}
	return &Script{
		Title:      title,
		Summary:    strings.TrimSpace(payload.Summary),
		Storyboard: storyboard,
		Provider:   geminiProviderName,
	}, nil
}

func buildScriptPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Write a video storyboard from the input below. ")
	fmt.Fprintf(&b, "Use at most %d shots. ", maxShotsOf(req))
	b.WriteString("Answer with JSON only, shaped as ")
	b.WriteString(`{"title":"...","summary":"...","shots":[{"visual":"...","dialogue":"...","duration_seconds":5}]}.`)
	b.WriteString("\n\n")
	if req.Pipeline != "" {
		fmt.Fprintf(&b, "Pipeline: %s\n", req.Pipeline)
	}
	if req.Locale != "" {
		fmt.Fprintf(&b, "Write dialogue in locale %s.\n", req.Locale)
	}
	if req.Title != "" {
		fmt.Fprintf(&b, "Working title: %s\n", req.Title)
	}
	fmt.Fprintf(&b, "Input:\n%s\n", req.RawText)
	return b.String()
}

func maxShotsOf(req Request) int {
	if req.MaxShots > 0 {
		return req.MaxShots
	}
	return defaultMaxShots
}

var _ Generator = (*GeminiGenerator)(nil)
var _ Generator = (*StaticGenerator)(nil)
