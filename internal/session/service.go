package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storyreel/internal/domain"
	"storyreel/internal/merge"
	"storyreel/internal/providers/script"
	"storyreel/internal/render"
	"storyreel/internal/timeline"
)

// Deps wires the service. Every collaborator is explicit; the service holds
// no global state and every operation receives the session by id.
type Deps struct {
	Sessions    domain.SessionRepository
	Jobs        domain.JobRepository
	Selector    *render.Selector
	Dispatcher  *render.Dispatcher
	Tracker     *render.Tracker
	Regenerator *render.Regenerator
	Merger      *merge.Engine
	Scripts     script.Generator
	Logger      zerolog.Logger
}

// Service orchestrates the storyboard-to-video flow: session lifecycle,
// strategy selection, job dispatch and tracking, timeline edits with their
// cascades, and the final merge.
type Service struct {
	sessions    domain.SessionRepository
	jobs        domain.JobRepository
	selector    *render.Selector
	dispatcher  *render.Dispatcher
	tracker     *render.Tracker
	regenerator *render.Regenerator
	merger      *merge.Engine
	scripts     script.Generator
	logger      zerolog.Logger
}

func NewService(deps Deps) *Service {
	return &Service{
		sessions:    deps.Sessions,
		jobs:        deps.Jobs,
		selector:    deps.Selector,
		dispatcher:  deps.Dispatcher,
		tracker:     deps.Tracker,
		regenerator: deps.Regenerator,
		merger:      deps.Merger,
		scripts:     deps.Scripts,
		logger:      deps.Logger,
	}
}

// CreateInput is the material for a new session. Either a storyboard is
// given directly or RawText is turned into one by the script generator.
type CreateInput struct {
	Title      string
	Pipeline   string
	Summary    string
	RawText    string
	Locale     string
	Storyboard domain.Storyboard
	References []domain.ReferenceAsset
}

// Create validates or generates the storyboard, renumbers it densely from 1
// and persists the session with an empty timeline.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Session, error) {
	storyboard := in.Storyboard
	title := strings.TrimSpace(in.Title)
	summary := strings.TrimSpace(in.Summary)

	if len(storyboard) == 0 {
		if strings.TrimSpace(in.RawText) == "" {
			return nil, &domain.ValidationError{Reason: "either a storyboard or raw input text is required"}
		}
		if s.scripts == nil {
			return nil, &domain.ValidationError{Reason: "no storyboard given and no script generator is configured"}
		}
		generated, err := s.scripts.Generate(ctx, script.Request{
			Title:    title,
			RawText:  in.RawText,
			Pipeline: in.Pipeline,
			Locale:   in.Locale,
		})
		if err != nil {
			return nil, fmt.Errorf("session: generate storyboard: %w", err)
		}
		storyboard = generated.Storyboard
		if title == "" {
			title = generated.Title
		}
		if summary == "" {
			summary = generated.Summary
		}
	}

	var blank []int
	for i := range storyboard {
		if strings.TrimSpace(storyboard[i].VisualDescription) == "" {
			blank = append(blank, i+1)
		}
	}
	if len(blank) > 0 {
		return nil, &domain.ValidationError{Reason: "shots missing visual descriptions", Indices: blank}
	}
	for i := range storyboard {
		storyboard[i].Index = i + 1
	}

	now := time.Now()
	sess := &domain.Session{
		ID:         uuid.NewString(),
		Title:      title,
		Pipeline:   in.Pipeline,
		Summary:    summary,
		Storyboard: storyboard,
		References: in.References,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	timelineJSON, err := json.Marshal(timeline.New())
	if err != nil {
		return nil, fmt.Errorf("session: encode timeline: %w", err)
	}
	if err := s.sessions.Create(ctx, sess, timelineJSON); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	s.logger.Info().Str("session_id", sess.ID).Int("shots", len(storyboard)).Msg("session: created")
	return sess, nil
}

// Get loads the session and its decoded timeline.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, *timeline.Timeline, error) {
	sess, timelineJSON, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tl := timeline.New()
	if len(timelineJSON) > 0 {
		tl = &timeline.Timeline{}
		if err := json.Unmarshal(timelineJSON, tl); err != nil {
			return nil, nil, fmt.Errorf("session: decode timeline: %w", err)
		}
	}
	return sess, tl, nil
}

// Artifacts lists the merge artifacts produced so far, newest last.
func (s *Service) Artifacts(ctx context.Context, id string) ([]domain.MergedArtifact, error) {
	if _, _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.sessions.ListArtifacts(ctx, id)
}

// SelectMode runs strategy selection for the session's current storyboard.
func (s *Service) SelectMode(ctx context.Context, id string) (render.Selection, error) {
	sess, _, err := s.Get(ctx, id)
	if err != nil {
		return render.Selection{}, err
	}
	return s.selector.Select(ctx, render.SelectionInput{
		Storyboard: sess.Storyboard,
		Summary:    sess.Summary,
		Pipeline:   sess.Pipeline,
		References: sess.References,
	}), nil
}

// Dispatch fans the chosen mode out into render jobs and persists them as
// the active job set. An explicit mode overrides selection; re-dispatching a
// shot supersedes its previous job.
func (s *Service) Dispatch(ctx context.Context, id, modeOverride string) (map[int]*domain.RenderJob, error) {
	sess, _, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var mode domain.RenderMode
	if modeOverride != "" {
		parsed, ok := domain.ParseRenderMode(modeOverride)
		if !ok {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown render mode %q", modeOverride)}
		}
		mode = parsed
	} else {
		selection := s.selector.Select(ctx, render.SelectionInput{
			Storyboard: sess.Storyboard,
			Summary:    sess.Summary,
			Pipeline:   sess.Pipeline,
			References: sess.References,
		})
		mode = selection.Mode
	}

	previous, err := s.jobs.ActiveBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: load active jobs: %w", err)
	}
	dispatched, err := s.dispatcher.Dispatch(ctx, sess, mode)
	if err != nil {
		return nil, err
	}
	for shotIndex, job := range dispatched {
		if err := s.jobs.Create(ctx, job); err != nil {
			return nil, fmt.Errorf("session: persist job for shot %d: %w", shotIndex, err)
		}
		if old, ok := previous[shotIndex]; ok && old.Active() {
			if err := s.jobs.Supersede(ctx, old.ID, job.ID); err != nil {
				return nil, fmt.Errorf("session: supersede job for shot %d: %w", shotIndex, err)
			}
		}
	}
	s.logger.Info().Str("session_id", id).Str("mode", string(mode)).Int("jobs", len(dispatched)).Msg("session: dispatched")
	return dispatched, nil
}

// Status runs one tracker poll round trip over the active jobs, persists
// state transitions and places newly finished clips on the timeline.
func (s *Service) Status(ctx context.Context, id string) (render.PollResult, error) {
	sess, tl, err := s.Get(ctx, id)
	if err != nil {
		return render.PollResult{}, err
	}
	active, err := s.jobs.ActiveBySession(ctx, id)
	if err != nil {
		return render.PollResult{}, fmt.Errorf("session: load active jobs: %w", err)
	}

	before := make(map[string]domain.JobStatus, len(active))
	for _, job := range active {
		before[job.ID] = job.Status
	}
	result := s.tracker.PollAll(ctx, active)

	timelineDirty := false
	for _, item := range result.Items {
		if before[item.JobID] == item.Status {
			continue
		}
		if err := s.jobs.UpdateStatus(ctx, item.JobID, item.Status, item.URI, item.ErrorMessage); err != nil {
			return render.PollResult{}, fmt.Errorf("session: persist job %s: %w", item.JobID, err)
		}
		if item.Status == domain.JobStatusSucceeded && item.URI != "" {
			duration := 0.0
			if shot := sess.Storyboard.ByIndex(item.ShotIndex); shot != nil {
				duration = float64(render.ClipSeconds(shot.DurationSeconds, shot.Dialogue))
			}
			tl.SetShotClip(item.ShotIndex, duration, item.URI)
			timelineDirty = true
		}
	}
	if timelineDirty {
		if err := s.saveTimeline(ctx, id, tl); err != nil {
			return render.PollResult{}, err
		}
	}
	return result, nil
}

// Regenerate replaces one shot's render with a fresh job in the shot's
// current mode. The old job is kept and marked superseded; the timeline clip
// swaps its URI in place with sibling timing untouched.
func (s *Service) Regenerate(ctx context.Context, id string, shotIndex int, overridePrompt string) (*domain.RenderJob, error) {
	sess, tl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.jobs.ActiveBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: load active jobs: %w", err)
	}
	old, ok := active[shotIndex]
	if !ok {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("shot %d has no dispatched job to regenerate", shotIndex)}
	}

	job, regenErr := s.regenerator.Regenerate(ctx, sess, shotIndex, overridePrompt, old.Mode, tl)
	if job != nil {
		if err := s.jobs.Create(ctx, job); err != nil {
			return nil, fmt.Errorf("session: persist replacement job: %w", err)
		}
		if err := s.jobs.Supersede(ctx, old.ID, job.ID); err != nil {
			return nil, fmt.Errorf("session: supersede job %s: %w", old.ID, err)
		}
	}
	if regenErr != nil {
		return job, regenErr
	}
	if err := s.saveTimeline(ctx, id, tl); err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", id).Int("shot", shotIndex).Str("job_id", job.ID).Msg("session: shot regenerated")
	return job, nil
}

// ReorderTimeline applies a new video-track order and persists the restacked
// timeline.
func (s *Service) ReorderTimeline(ctx context.Context, id string, order []int) (*timeline.Timeline, error) {
	_, tl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tl.Reorder(order); err != nil {
		return nil, err
	}
	if err := s.saveTimeline(ctx, id, tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// InsertClip drops an uploaded or external clip onto a track at a time
// position.
func (s *Service) InsertClip(ctx context.Context, id string, track timeline.TrackKind, uri string, durationSec, atSeconds float64) (timeline.Clip, error) {
	if strings.TrimSpace(uri) == "" {
		return timeline.Clip{}, &domain.ValidationError{Reason: "clip uri is required"}
	}
	if durationSec <= 0 {
		return timeline.Clip{}, &domain.ValidationError{Reason: "clip duration must be positive"}
	}
	_, tl, err := s.Get(ctx, id)
	if err != nil {
		return timeline.Clip{}, err
	}
	clip, err := tl.InsertFromDrop(track, timeline.Clip{URI: uri, DurationSec: durationSec}, atSeconds)
	if err != nil {
		return timeline.Clip{}, err
	}
	if err := s.saveTimeline(ctx, id, tl); err != nil {
		return timeline.Clip{}, err
	}
	return clip, nil
}

// RemoveClip deletes a timeline clip. Removing a generation-derived video
// clip cascades: the shot leaves the storyboard, later shots renumber, the
// timeline's segment indexes shift down and the shot's active job mapping is
// dropped.
func (s *Service) RemoveClip(ctx context.Context, id string, track timeline.TrackKind, clipID string) (*timeline.Timeline, error) {
	sess, tl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	shotIndex, err := tl.RemoveClip(track, clipID)
	if err != nil {
		return nil, err
	}
	if shotIndex > 0 {
		sess.Storyboard.Remove(shotIndex)
		tl.RemoveShot(shotIndex)
		if err := s.sessions.SaveStoryboard(ctx, id, sess.Storyboard); err != nil {
			return nil, fmt.Errorf("session: persist storyboard: %w", err)
		}
		if err := s.jobs.DeleteForShot(ctx, id, shotIndex); err != nil {
			return nil, fmt.Errorf("session: drop job mapping for shot %d: %w", shotIndex, err)
		}
		s.logger.Info().Str("session_id", id).Int("shot", shotIndex).Msg("session: shot deleted via timeline")
	}
	if err := s.saveTimeline(ctx, id, tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// SetAudio updates an audio lane's volume or mute flag.
func (s *Service) SetAudio(ctx context.Context, id string, track timeline.TrackKind, volume *float64, muted *bool) (*timeline.Timeline, error) {
	_, tl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tl.SetAudioTrackProps(track, volume, muted); err != nil {
		return nil, err
	}
	if err := s.saveTimeline(ctx, id, tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// Merge produces a new artifact from the timeline's current video order and
// audio lanes. The artifact is appended to the session history; nothing
// existing is mutated.
func (s *Service) Merge(ctx context.Context, id string, transitions bool) (*domain.MergedArtifact, error) {
	sess, tl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req := merge.Request{
		OrderedURIs: tl.SegmentURIs(),
		SourceOrder: tl.Order(),
		Transitions: transitions,
	}
	for _, lane := range tl.Audio {
		for _, clip := range lane.Clips {
			req.Audio = append(req.Audio, merge.AudioTrackDescriptor{
				Kind:           string(lane.Kind),
				URI:            clip.URI,
				Volume:         lane.Volume,
				Muted:          lane.Muted,
				StartAtSeconds: clip.StartAtSeconds,
			})
		}
	}
	artifact, err := s.merger.Merge(ctx, req, len(sess.Storyboard))
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AppendArtifact(ctx, id, *artifact); err != nil {
		return nil, fmt.Errorf("session: persist artifact: %w", err)
	}
	return artifact, nil
}

func (s *Service) saveTimeline(ctx context.Context, id string, tl *timeline.Timeline) error {
	timelineJSON, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("session: encode timeline: %w", err)
	}
	if err := s.sessions.SaveTimeline(ctx, id, timelineJSON); err != nil {
		return fmt.Errorf("session: persist timeline: %w", err)
	}
	return nil
}
