package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

// ErrConcurrencyLimit marks a submission rejected because the provider's
// parallel task quota is exhausted. Submissions wrapping it are retried.
var ErrConcurrencyLimit = errors.New("provider concurrency limit reached")

// SubmitRequest describes one render job submission.
type SubmitRequest struct {
	SessionID        string
	ShotIndex        int
	Mode             domain.RenderMode
	Prompt           string
	ClipSeconds      int
	ReferenceAssetID string
	// PairEndIndex is set in keyframe-transition mode: the job synthesizes
	// motion from ShotIndex's keyframe to PairEndIndex's keyframe.
	PairEndIndex int
}

// Submitter submits one render job and returns the provider job id.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
}

// DispatcherOptions tune submission retry behavior.
type DispatcherOptions struct {
	StylePrefix   string
	RetryAttempts int
	RetryDelay    time.Duration
}

// Dispatcher fans a chosen render mode out into provider jobs. A failed
// submission yields a failed job for that shot only and never aborts the
// siblings.
type Dispatcher struct {
	provider Submitter
	opts     DispatcherOptions
	logger   zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(provider Submitter, opts DispatcherOptions, logger zerolog.Logger) *Dispatcher {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}
	return &Dispatcher{provider: provider, opts: opts, logger: logger, now: time.Now}
}

// Dispatch submits the jobs the mode calls for and returns them keyed by shot
// index. Every returned job is either processing with a provider id or failed
// with the submission error.
func (d *Dispatcher) Dispatch(ctx context.Context, session *domain.Session, mode domain.RenderMode) (map[int]*domain.RenderJob, error) {
	if len(session.Storyboard) == 0 {
		return nil, &domain.ValidationError{Reason: "storyboard is empty"}
	}
	refID := ""
	if mode == domain.ModeSubjectReference {
		ref := session.SharedReference()
		if ref == nil {
			return nil, &domain.ValidationError{Reason: "subject reference mode requires a reference asset"}
		}
		refID = ref.ID
	}

	jobs := make(map[int]*domain.RenderJob)
	for _, req := range d.plan(session, mode, refID) {
		job := &domain.RenderJob{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			ShotIndex: req.ShotIndex,
			Mode:      mode,
			Status:    domain.JobStatusProcessing,
			CreatedAt: d.now(),
			UpdatedAt: d.now(),
		}
		providerID, err := d.submitWithRetry(ctx, req)
		if err != nil {
			job.Status = domain.JobStatusFailed
			job.ErrorMessage = err.Error()
			d.logger.Warn().Err(err).Int("shot", req.ShotIndex).Msg("render: submission failed")
		} else {
			job.ID = providerID
		}
		jobs[req.ShotIndex] = job
	}
	return jobs, nil
}

// plan expands the mode into per-shot submissions: one job for single-shot
// mode, one per shot for the multi-shot modes, one per adjacent keyframe pair
// for the transition mode.
func (d *Dispatcher) plan(session *domain.Session, mode domain.RenderMode, refID string) []SubmitRequest {
	shots := session.Storyboard
	base := func(shot domain.ShotDescriptor) SubmitRequest {
		return SubmitRequest{
			SessionID:   session.ID,
			ShotIndex:   shot.Index,
			Mode:        mode,
			Prompt:      ShotPrompt(shot.VisualDescription, d.opts.StylePrefix),
			ClipSeconds: ClipSeconds(shot.DurationSeconds, shot.Dialogue),
		}
	}

	switch mode {
	case domain.ModeSingleShot:
		req := base(shots[0])
		if session.Summary != "" {
			req.Prompt = ShotPrompt(session.Summary+" "+shots[0].VisualDescription, d.opts.StylePrefix)
		}
		return []SubmitRequest{req}
	case domain.ModeSubjectReference:
		reqs := make([]SubmitRequest, 0, len(shots))
		for _, shot := range shots {
			req := base(shot)
			req.Prompt = ConsistencyDirective + " " + req.Prompt
			req.ReferenceAssetID = refID
			reqs = append(reqs, req)
		}
		return reqs
	case domain.ModeKeyframeTransition:
		if len(shots) == 1 {
			return []SubmitRequest{base(shots[0])}
		}
		reqs := make([]SubmitRequest, 0, len(shots)-1)
		for i := 0; i+1 < len(shots); i++ {
			req := base(shots[i])
			req.Prompt = ShotPrompt(
				fmt.Sprintf("From: %s. To: %s.", shots[i].VisualDescription, shots[i+1].VisualDescription),
				d.opts.StylePrefix,
			)
			req.PairEndIndex = shots[i+1].Index
			reqs = append(reqs, req)
		}
		return reqs
	default:
		reqs := make([]SubmitRequest, 0, len(shots))
		for _, shot := range shots {
			reqs = append(reqs, base(shot))
		}
		return reqs
	}
}

// submitWithRetry retries only concurrency-limit rejections, with a linearly
// growing delay between attempts.
func (d *Dispatcher) submitWithRetry(ctx context.Context, req SubmitRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.opts.RetryAttempts; attempt++ {
		id, err := d.provider.Submit(ctx, req)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !errors.Is(err, ErrConcurrencyLimit) {
			return "", err
		}
		delay := d.opts.RetryDelay * time.Duration(attempt)
		d.logger.Warn().Int("shot", req.ShotIndex).Dur("delay", delay).Int("attempt", attempt).
			Msg("render: provider at concurrency limit, waiting before retry")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", lastErr
}
