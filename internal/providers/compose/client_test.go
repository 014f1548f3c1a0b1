package compose

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"storyreel/internal/domain"
	"storyreel/internal/merge"
)

type stubTransport struct {
	status   int
	body     string
	lastBody []byte
	lastReq  *http.Request
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.lastReq = req
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		req.Body.Close()
		s.lastBody = body
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func TestComposeSendsSegmentsAndAudio(t *testing.T) {
	transport := &stubTransport{body: `{"uri":"https://cdn/final.mp4"}`}
	client, err := NewClient(Options{
		BaseURL:    "https://composer.test",
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	uri, err := client.Compose(context.Background(), merge.Request{
		OrderedURIs: []string{"u1", "u2"},
		Audio:       []merge.AudioTrackDescriptor{{Kind: "music", URI: "bgm.mp3", Volume: 0.5}},
		Transitions: true,
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if uri != "https://cdn/final.mp4" {
		t.Fatalf("uri = %q", uri)
	}
	if got := transport.lastReq.Header.Get("Authorization"); got != "Bearer key" {
		t.Fatalf("authorization = %q", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	segments := payload["segments"].([]any)
	if len(segments) != 2 || segments[0] != "u1" {
		t.Fatalf("segments = %v", segments)
	}
	if payload["transitions"] != true {
		t.Fatalf("transitions not forwarded")
	}
	audio := payload["audio"].([]any)
	if len(audio) != 1 {
		t.Fatalf("audio = %v", audio)
	}
}

func TestComposeErrorsAreProviderFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusBadGateway, body: "upstream down"},
		{name: "service error field", body: `{"error":"segment 2 unreadable"}`},
		{name: "missing uri", body: `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(Options{
				BaseURL:    "https://composer.test",
				HTTPClient: &http.Client{Transport: &stubTransport{status: tc.status, body: tc.body}},
			})
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			if _, err := client.Compose(context.Background(), merge.Request{OrderedURIs: []string{"u1"}}); !errors.Is(err, domain.ErrProviderFailure) {
				t.Fatalf("err = %v, want provider failure", err)
			}
		})
	}
}

func TestSyntheticComposeDeterministicPerCut(t *testing.T) {
	var composer Synthetic
	first, err := composer.Compose(context.Background(), merge.Request{OrderedURIs: []string{"u1", "u2"}})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	same, _ := composer.Compose(context.Background(), merge.Request{OrderedURIs: []string{"u1", "u2"}})
	if first != same {
		t.Fatalf("same cut produced different URIs: %q vs %q", first, same)
	}
	reordered, _ := composer.Compose(context.Background(), merge.Request{OrderedURIs: []string{"u2", "u1"}})
	if first == reordered {
		t.Fatalf("reordered cut produced the same URI")
	}
}
