package advisory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/render"
)

const (
	defaultModel = "gemini-2.5-flash"
	maxAttempts  = 3
	retryDelay   = 2 * time.Second
)

type Options struct {
	APIKey string
	Model  string
	Logger *infra.Logger
}

// GeminiAdvisor asks Gemini which render mode fits a storyboard. Any
// failure surfaces as domain.ErrAdvisoryUnavailable so callers degrade to
// their deterministic rules instead of failing the request.
type GeminiAdvisor struct {
	apiKey string
	model  string
	logger *infra.Logger
}

func NewGeminiAdvisor(opts Options) (*GeminiAdvisor, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("advisory: gemini api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &GeminiAdvisor{apiKey: opts.APIKey, model: model, logger: opts.Logger}, nil
}

func (g *GeminiAdvisor) Recommend(ctx context.Context, storyboard domain.Storyboard, summary, pipeline string) (domain.RenderMode, string, error) {
	text, err := g.generate(ctx, buildPrompt(storyboard, summary, pipeline))
	if err != nil {
		return "", "", fmt.Errorf("advisory: %v: %w", err, domain.ErrAdvisoryUnavailable)
	}
	mode, rationale, err := ParseRecommendation(text)
	if err != nil {
		return "", "", fmt.Errorf("advisory: %v: %w", err, domain.ErrAdvisoryUnavailable)
	}
	return mode, rationale, nil
}

func (g *GeminiAdvisor) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return "", err
		}
		result, err := client.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)},
		)
		if err == nil {
			return firstText(result), nil
		}
		lastErr = err
		if !isRateLimited(err) || attempt == maxAttempts {
			return "", err
		}
		if g.logger != nil {
			g.logger.Debug().Err(err).Int("attempt", attempt).Msg("advisory: rate limited, retrying")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return "", lastErr
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

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}

// ParseRecommendation reads the "mode|rationale" answer format. The mode must
// be one the advisory is allowed to pick; subject_reference in particular is
// decided by attached assets, never by the model.
func ParseRecommendation(text string) (domain.RenderMode, string, error) {
	line := strings.TrimSpace(text)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return "", "", fmt.Errorf("empty recommendation")
	}
	modePart, rationale, _ := strings.Cut(line, "|")
	mode, ok := domain.ParseRenderMode(strings.TrimSpace(modePart))
	if !ok {
		return "", "", fmt.Errorf("unrecognized mode %q", modePart)
	}
	if _, ok := domain.AdvisoryModes[mode]; !ok {
		return "", "", fmt.Errorf("mode %s is not advisory-selectable", mode)
	}
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		rationale = "recommended by the storyboard advisor"
	}
	return mode, rationale, nil
}

func buildPrompt(storyboard domain.Storyboard, summary, pipeline string) string {
	var b strings.Builder
	b.WriteString("You plan how a storyboard becomes video clips. Pick exactly one generation mode:\n")
	b.WriteString("- single_shot_t2v: one continuous clip covers the whole story\n")
	b.WriteString("- multi_shot_t2v_concat: independent clips per shot, concatenated\n")
	b.WriteString("- image_per_shot: generate a keyframe image per shot, then animate it\n")
	b.WriteString("- keyframe_transition: generate clips that morph between adjacent shots\n\n")
	if pipeline != "" {
		fmt.Fprintf(&b, "Pipeline: %s\n", pipeline)
	}
	if summary != "" {
		fmt.Fprintf(&b, "Story summary: %s\n", summary)
	}
	b.WriteString("Shots:\n")
	for _, shot := range storyboard {
		fmt.Fprintf(&b, "%d. %s", shot.Index, shot.VisualDescription)
		if shot.Dialogue != "" {
			fmt.Fprintf(&b, " (dialogue: %s)", shot.Dialogue)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nAnswer with a single line: <mode>|<one sentence reason>. No other text.")
	return b.String()
}

var _ render.Advisor = (*GeminiAdvisor)(nil)
