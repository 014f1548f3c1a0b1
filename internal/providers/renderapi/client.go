package renderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/render"
)

const (
	defaultBaseURL    = "https://api-singapore.klingai.com"
	defaultModel      = "kling-video-o1"
	defaultTimeout    = 60 * time.Second
	defaultRetries    = 4
	defaultRetryDelay = 2 * time.Second

	endpointText2Video = "/v1/videos/text2video"
	endpointOmniVideo  = "/v1/videos/omni-video"
)

// Options configures the render provider client.
type Options struct {
	AccessKey       string
	SecretKey       string
	BaseURL         string
	Model           string
	AspectRatio     string
	HTTPClient      *http.Client
	Logger          *infra.Logger
	QueryRetries    int
	QueryRetryDelay time.Duration
}

// Client talks to the external render provider through its generic
// submit/poll contract. Submissions go to the endpoint the mode calls for;
// polls retry transient transport errors with a linear delay.
type Client struct {
	accessKey   string
	secretKey   string
	baseURL     string
	model       string
	aspectRatio string
	httpClient  *http.Client
	logger      *infra.Logger
	retries     int
	retryDelay  time.Duration

	// endpoints remembers which endpoint a job was submitted to so a poll
	// does not have to probe. Misses fall back to probing both.
	endpoints sync.Map
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.AccessKey) == "" || strings.TrimSpace(opts.SecretKey) == "" {
		return nil, errors.New("renderapi: access key and secret key are required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	aspect := strings.TrimSpace(opts.AspectRatio)
	if aspect == "" {
		aspect = "16:9"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	retries := opts.QueryRetries
	if retries <= 0 {
		retries = defaultRetries
	}
	delay := opts.QueryRetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &Client{
		accessKey:   opts.AccessKey,
		secretKey:   opts.SecretKey,
		baseURL:     baseURL,
		model:       model,
		aspectRatio: aspect,
		httpClient:  httpClient,
		logger:      opts.Logger,
		retries:     retries,
		retryDelay:  delay,
	}, nil
}

type submitPayload struct {
	ModelName   string      `json:"model_name"`
	Prompt      string      `json:"prompt"`
	Duration    string      `json:"duration"`
	AspectRatio string      `json:"aspect_ratio"`
	Mode        string      `json:"mode,omitempty"`
	ImageList   []imageItem `json:"image_list,omitempty"`
}

type imageItem struct {
	ID string `json:"id"`
}

type taskEnvelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    taskData `json:"data"`
}

type taskData struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	TaskMsg    string `json:"task_status_msg"`
	TaskResult struct {
		Videos []struct {
			URL      string `json:"url"`
			Duration string `json:"duration"`
		} `json:"videos"`
	} `json:"task_result"`
}

// Submit creates one render task and returns the provider task id. A
// concurrency-limit rejection is wrapped in render.ErrConcurrencyLimit so the
// dispatcher can wait and retry.
func (c *Client) Submit(ctx context.Context, req render.SubmitRequest) (string, error) {
	endpoint := endpointText2Video
	payload := submitPayload{
		ModelName:   c.model,
		Prompt:      req.Prompt,
		Duration:    strconv.Itoa(req.ClipSeconds),
		AspectRatio: c.aspectRatio,
		Mode:        "pro",
	}
	if req.Mode == domain.ModeSubjectReference && req.ReferenceAssetID != "" {
		endpoint = endpointOmniVideo
		payload.Prompt = "<<<image_1>>>" + req.Prompt
		payload.ImageList = []imageItem{{ID: req.ReferenceAssetID}}
		payload.Mode = ""
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("renderapi: encode submit: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("renderapi: build submit request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("renderapi: submit: %w", err)
	}
	defer resp.Body.Close()

	envelope, err := decodeEnvelope(resp)
	if err != nil {
		return "", err
	}
	if envelope.Code != 0 {
		if strings.Contains(strings.ToLower(envelope.Message), "parallel task over resource pack limit") {
			return "", fmt.Errorf("renderapi: %s: %w", envelope.Message, render.ErrConcurrencyLimit)
		}
		return "", fmt.Errorf("renderapi: submit rejected (code %d): %s: %w", envelope.Code, envelope.Message, domain.ErrProviderFailure)
	}
	if envelope.Data.TaskID == "" {
		return "", fmt.Errorf("renderapi: submit returned no task id: %w", domain.ErrProviderFailure)
	}
	c.endpoints.Store(envelope.Data.TaskID, endpoint)
	if c.logger != nil {
		c.logger.Debug().Str("task_id", envelope.Data.TaskID).Int("shot", req.ShotIndex).Msg("renderapi: task created")
	}
	return envelope.Data.TaskID, nil
}

// Poll fetches the current status of one task. Transient transport errors
// are retried a bounded number of times with a linearly growing delay;
// provider-side statuses map onto the unified job state machine.
func (c *Client) Poll(ctx context.Context, jobID string) (render.PollStatus, error) {
	endpoint, probed := c.endpointFor(jobID)
	data, err := c.query(ctx, endpoint, jobID)
	if err != nil && !probed {
		// Unknown job, e.g. after a restart: probe the other endpoint.
		other := endpointOmniVideo
		if endpoint == endpointOmniVideo {
			other = endpointText2Video
		}
		if alt, altErr := c.query(ctx, other, jobID); altErr == nil {
			c.endpoints.Store(jobID, other)
			data, err = alt, nil
		}
	}
	if err != nil {
		return render.PollStatus{}, err
	}

	switch strings.ToLower(data.TaskStatus) {
	case "succeed", "success":
		uri := ""
		if len(data.TaskResult.Videos) > 0 {
			uri = data.TaskResult.Videos[0].URL
		}
		if uri == "" {
			return render.PollStatus{Status: domain.JobStatusFailed, ErrorMessage: "task succeeded without a result video"}, nil
		}
		return render.PollStatus{Status: domain.JobStatusSucceeded, ResultURI: uri}, nil
	case "failed", "fail":
		msg := data.TaskMsg
		if msg == "" {
			msg = "render task failed"
		}
		return render.PollStatus{Status: domain.JobStatusFailed, ErrorMessage: msg}, nil
	default:
		return render.PollStatus{Status: domain.JobStatusProcessing}, nil
	}
}

// FetchResultURI re-resolves a fresh download URL for a finished task.
// Providers expire result URLs; export and backup paths call this instead of
// trusting a stored link.
func (c *Client) FetchResultURI(ctx context.Context, jobID string) (string, error) {
	st, err := c.Poll(ctx, jobID)
	if err != nil {
		return "", err
	}
	if st.Status != domain.JobStatusSucceeded {
		return "", fmt.Errorf("renderapi: task %s is %s: %w", jobID, st.Status, domain.ErrNotReady)
	}
	return st.ResultURI, nil
}

func (c *Client) endpointFor(jobID string) (string, bool) {
	if v, ok := c.endpoints.Load(jobID); ok {
		return v.(string), true
	}
	return endpointText2Video, false
}

func (c *Client) query(ctx context.Context, endpoint, jobID string) (taskData, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"/"+jobID, nil)
		if err != nil {
			return taskData{}, fmt.Errorf("renderapi: build query request: %w", err)
		}
		c.setHeaders(httpReq)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			if attempt < c.retries {
				select {
				case <-ctx.Done():
					return taskData{}, ctx.Err()
				case <-time.After(c.retryDelay * time.Duration(attempt)):
				}
				continue
			}
			break
		}
		envelope, decodeErr := decodeEnvelope(resp)
		resp.Body.Close()
		if decodeErr != nil {
			return taskData{}, decodeErr
		}
		if envelope.Code != 0 {
			return taskData{}, fmt.Errorf("renderapi: query rejected (code %d): %s: %w", envelope.Code, envelope.Message, domain.ErrProviderFailure)
		}
		return envelope.Data, nil
	}
	return taskData{}, fmt.Errorf("renderapi: query %s: %w", jobID, lastErr)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+bearerToken(c.accessKey, c.secretKey, time.Now()))
	req.Header.Set("Content-Type", "application/json")
}

func decodeEnvelope(resp *http.Response) (taskEnvelope, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return taskEnvelope{}, fmt.Errorf("renderapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return taskEnvelope{}, fmt.Errorf("renderapi: http %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrProviderFailure)
	}
	var envelope taskEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return taskEnvelope{}, fmt.Errorf("renderapi: decode response: %w", err)
	}
	return envelope, nil
}

var (
	_ render.Submitter = (*Client)(nil)
	_ render.Poller    = (*Client)(nil)
)
