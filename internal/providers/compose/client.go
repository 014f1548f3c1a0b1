package compose

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/merge"
)

const (
	defaultTimeout  = 5 * time.Minute
	composeEndpoint = "/v1/compose"
)

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client posts merge requests to the external composition service. The
// service concatenates segments, applies transitions and mixes audio; the
// client only relays the descriptor set and reads back the artifact URI.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("compose: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

type composePayload struct {
	Segments    []string                     `json:"segments"`
	Audio       []merge.AudioTrackDescriptor `json:"audio,omitempty"`
	Transitions bool                         `json:"transitions"`
}

type composeResult struct {
	URI   string `json:"uri"`
	Error string `json:"error,omitempty"`
}

func (c *Client) Compose(ctx context.Context, req merge.Request) (string, error) {
	body, err := json.Marshal(composePayload{
		Segments:    req.OrderedURIs,
		Audio:       req.Audio,
		Transitions: req.Transitions,
	})
	if err != nil {
		return "", fmt.Errorf("compose: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+composeEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("compose: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("compose: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("compose: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("compose: http %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}
	var result composeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("compose: decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("compose: %s: %w", result.Error, domain.ErrProviderFailure)
	}
	if result.URI == "" {
		return "", fmt.Errorf("compose: service returned no artifact uri: %w", domain.ErrProviderFailure)
	}
	if c.logger != nil {
		c.logger.Debug().Str("uri", result.URI).Int("segments", len(req.OrderedURIs)).Msg("compose: artifact produced")
	}
	return result.URI, nil
}

// Synthetic is the in-process composer for local and CI environments. The
// artifact URI is a digest of the ordered inputs, so the same cut yields the
// same URI while any reorder yields a new one.
type Synthetic struct{}

func (Synthetic) Compose(ctx context.Context, req merge.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h := sha256.New()
	for _, uri := range req.OrderedURIs {
		io.WriteString(h, uri)
		io.WriteString(h, "\n")
	}
	for _, track := range req.Audio {
		fmt.Fprintf(h, "%s|%s|%v|%v\n", track.Kind, track.URI, track.Volume, track.Muted)
	}
	return fmt.Sprintf("synthetic://merged/%s.mp4", hex.EncodeToString(h.Sum(nil)[:12])), nil
}

var (
	_ merge.Provider = (*Client)(nil)
	_ merge.Provider = Synthetic{}
)
