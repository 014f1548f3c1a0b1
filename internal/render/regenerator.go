package render

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

// SubmitPoller is the provider surface regeneration needs.
type SubmitPoller interface {
	Submitter
	Poller
}

// ClipUpdater replaces one shot clip's URI in place without disturbing the
// ordering or timing of the other clips.
type ClipUpdater interface {
	ReplaceShotClipURI(shotIndex int, uri string) error
}

// Regenerator re-issues a single shot's job and drives it to a terminal
// state. Sibling jobs are never touched, and a consistency critical shot
// always reuses the exact reference asset its siblings used.
type Regenerator struct {
	provider   SubmitPoller
	dispatcher *Dispatcher
	interval   time.Duration
	logger     zerolog.Logger
}

func NewRegenerator(provider SubmitPoller, dispatcher *Dispatcher, interval time.Duration, logger zerolog.Logger) *Regenerator {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Regenerator{provider: provider, dispatcher: dispatcher, interval: interval, logger: logger}
}

// Regenerate submits a replacement job for the shot, polls it to a terminal
// state on the configured cadence, and on success updates the matching
// timeline clip in place. The returned job is the new active job for the
// shot; persisting the supersede mapping is the caller's concern.
func (r *Regenerator) Regenerate(
	ctx context.Context,
	session *domain.Session,
	shotIndex int,
	overridePrompt string,
	mode domain.RenderMode,
	clips ClipUpdater,
) (*domain.RenderJob, error) {
	shot := session.Storyboard.ByIndex(shotIndex)
	if shot == nil {
		return nil, fmt.Errorf("shot %d: %w", shotIndex, domain.ErrShotNotFound)
	}

	visual := shot.VisualDescription
	if overridePrompt != "" {
		visual = overridePrompt
	}
	req := SubmitRequest{
		SessionID:   session.ID,
		ShotIndex:   shotIndex,
		Mode:        mode,
		Prompt:      ShotPrompt(visual, r.dispatcher.opts.StylePrefix),
		ClipSeconds: ClipSeconds(shot.DurationSeconds, shot.Dialogue),
	}
	if mode == domain.ModeSubjectReference {
		// Never re-derive the reference: the replacement must carry the
		// identical asset shared by its sibling jobs.
		ref := session.SharedReference()
		if ref == nil {
			return nil, &domain.ValidationError{Reason: "subject reference mode requires the session reference asset"}
		}
		req.ReferenceAssetID = ref.ID
		req.Prompt = ConsistencyDirective + " " + req.Prompt
	}

	providerID, err := r.dispatcher.submitWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("regenerate shot %d: %w", shotIndex, err)
	}
	job := &domain.RenderJob{
		ID:        providerID,
		SessionID: session.ID,
		ShotIndex: shotIndex,
		Mode:      mode,
		Status:    domain.JobStatusProcessing,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		st, err := r.provider.Poll(ctx, providerID)
		if err != nil {
			r.logger.Warn().Err(err).Str("job_id", providerID).Msg("render: regeneration poll failed, retrying")
		} else if st.Status.Terminal() {
			job.Status = st.Status
			job.ResultURI = st.ResultURI
			job.ErrorMessage = st.ErrorMessage
			job.UpdatedAt = time.Now()
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	if job.Status == domain.JobStatusFailed {
		return job, fmt.Errorf("regenerate shot %d: %s: %w", shotIndex, job.ErrorMessage, domain.ErrProviderFailure)
	}
	if clips != nil {
		if err := clips.ReplaceShotClipURI(shotIndex, job.ResultURI); err != nil {
			return job, fmt.Errorf("regenerate shot %d: update clip: %w", shotIndex, err)
		}
	}
	return job, nil
}
