package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

type fakeProvider struct {
	fakeSubmitter
	fakePoller
	// succeedAfter is how many polls a job stays processing before it
	// succeeds.
	succeedAfter int
	resultURI    string
}

func (f *fakeProvider) Poll(ctx context.Context, jobID string) (PollStatus, error) {
	f.fakePoller.calls[jobID]++
	if f.fakePoller.calls[jobID] <= f.succeedAfter {
		return PollStatus{Status: domain.JobStatusProcessing}, nil
	}
	if st, ok := f.fakePoller.statuses[jobID]; ok {
		return st, nil
	}
	return PollStatus{Status: domain.JobStatusSucceeded, ResultURI: f.resultURI}, nil
}

type fakeClips struct {
	replaced map[int]string
	err      error
}

func (f *fakeClips) ReplaceShotClipURI(shotIndex int, uri string) error {
	if f.err != nil {
		return f.err
	}
	if f.replaced == nil {
		f.replaced = make(map[int]string)
	}
	f.replaced[shotIndex] = uri
	return nil
}

func newTestRegenerator(p SubmitPoller) *Regenerator {
	d := NewDispatcher(p, DispatcherOptions{RetryAttempts: 2, RetryDelay: time.Millisecond}, zerolog.Nop())
	return NewRegenerator(p, d, time.Millisecond, zerolog.Nop())
}

func TestRegenerateReplacesOnlyTargetClip(t *testing.T) {
	provider := &fakeProvider{fakePoller: *newFakePoller(), succeedAfter: 2, resultURI: "https://cdn/v2-new.mp4"}
	clips := &fakeClips{}

	job, err := newTestRegenerator(provider).Regenerate(
		context.Background(), sessionOf(3), 2, "", domain.ModeMultiShotConcat, clips)
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded || job.ResultURI != "https://cdn/v2-new.mp4" {
		t.Fatalf("job = %+v, want succeeded with new uri", job)
	}
	if len(clips.replaced) != 1 || clips.replaced[2] != "https://cdn/v2-new.mp4" {
		t.Fatalf("replaced = %v, want only shot 2", clips.replaced)
	}
}

func TestRegenerateReusesExactReferenceAsset(t *testing.T) {
	provider := &fakeProvider{fakePoller: *newFakePoller(), resultURI: "u"}
	ref := domain.ReferenceAsset{ID: "ref-shared", Role: domain.RefRoleSubject}

	_, err := newTestRegenerator(provider).Regenerate(
		context.Background(), sessionOf(2, ref), 1, "different framing", domain.ModeSubjectReference, &fakeClips{})
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	if len(provider.fakeSubmitter.requests) != 1 {
		t.Fatalf("submissions = %d, want 1", len(provider.fakeSubmitter.requests))
	}
	req := provider.fakeSubmitter.requests[0]
	if req.ReferenceAssetID != "ref-shared" {
		t.Fatalf("reference id = %q, want the shared session asset", req.ReferenceAssetID)
	}
}

func TestRegenerateOverridePromptUsed(t *testing.T) {
	provider := &fakeProvider{fakePoller: *newFakePoller(), resultURI: "u"}
	_, err := newTestRegenerator(provider).Regenerate(
		context.Background(), sessionOf(2), 1, "storm breaks over the harbor", domain.ModeMultiShotConcat, &fakeClips{})
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	if got := provider.fakeSubmitter.requests[0].Prompt; got != "storm breaks over the harbor" {
		t.Fatalf("prompt = %q, want override", got)
	}
}

func TestRegenerateUnknownShot(t *testing.T) {
	provider := &fakeProvider{fakePoller: *newFakePoller(), resultURI: "u"}
	_, err := newTestRegenerator(provider).Regenerate(
		context.Background(), sessionOf(2), 9, "", domain.ModeMultiShotConcat, &fakeClips{})
	if !errors.Is(err, domain.ErrShotNotFound) {
		t.Fatalf("err = %v, want shot not found", err)
	}
}

func TestRegenerateSurfacesProviderFailure(t *testing.T) {
	provider := &fakeProvider{fakePoller: *newFakePoller()}
	provider.fakePoller.statuses["task-1-1"] = PollStatus{Status: domain.JobStatusFailed, ErrorMessage: "content rejected"}

	job, err := newTestRegenerator(provider).Regenerate(
		context.Background(), sessionOf(2), 1, "", domain.ModeMultiShotConcat, &fakeClips{})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want provider failure", err)
	}
	if job == nil || job.Status != domain.JobStatusFailed {
		t.Fatalf("job = %+v, want failed job returned for audit", job)
	}
}
