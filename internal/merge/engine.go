package merge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

// AudioTrackDescriptor describes one pre-produced audio layer to overlay.
type AudioTrackDescriptor struct {
	Kind           string  `json:"kind"`
	URI            string  `json:"uri"`
	Volume         float64 `json:"volume"`
	Muted          bool    `json:"muted"`
	StartAtSeconds float64 `json:"start_at_seconds"`
}

// Request is one merge call: ordered segments plus optional audio layers.
type Request struct {
	OrderedURIs []string
	SourceOrder []int
	Audio       []AudioTrackDescriptor
	Transitions bool
}

// Provider concatenates ordered segments and mixes audio into one artifact.
// It is a black box reached over the network.
type Provider interface {
	Compose(ctx context.Context, req Request) (string, error)
}

// Engine validates merge preconditions before any external call and produces
// immutable artifacts. Identical inputs yield a new artifact each time.
type Engine struct {
	provider Provider
	logger   zerolog.Logger
	now      func() time.Time
}

func NewEngine(provider Provider, logger zerolog.Logger) *Engine {
	return &Engine{provider: provider, logger: logger, now: time.Now}
}

// Merge checks that the segment list covers every live shot with a non-empty
// URI, then hands the ordered list to the provider. Precondition violations
// fail fast naming the offending positions and never reach the provider.
func (e *Engine) Merge(ctx context.Context, req Request, liveShotCount int) (*domain.MergedArtifact, error) {
	if len(req.OrderedURIs) != liveShotCount {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("segment count %d does not match live shot count %d", len(req.OrderedURIs), liveShotCount),
		}
	}
	var empty []int
	for i, uri := range req.OrderedURIs {
		if strings.TrimSpace(uri) == "" {
			empty = append(empty, i+1)
		}
	}
	if len(empty) > 0 {
		return nil, &domain.ValidationError{Reason: "segments missing result URIs", Indices: empty}
	}

	uri, err := e.provider.Compose(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	artifact := &domain.MergedArtifact{
		URI:             uri,
		SourceOrder:     append([]int(nil), req.SourceOrder...),
		AudioMixApplied: hasAudibleTrack(req.Audio),
		CreatedAt:       e.now(),
	}
	e.logger.Info().Str("uri", uri).Ints("source_order", artifact.SourceOrder).Msg("merge: artifact produced")
	return artifact, nil
}

func hasAudibleTrack(tracks []AudioTrackDescriptor) bool {
	for _, track := range tracks {
		if !track.Muted && track.Volume > 0 && strings.TrimSpace(track.URI) != "" {
			return true
		}
	}
	return false
}
