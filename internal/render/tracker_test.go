package render

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

type fakePoller struct {
	statuses map[string]PollStatus
	errs     map[string]error
	calls    map[string]int
}

func newFakePoller() *fakePoller {
	return &fakePoller{
		statuses: make(map[string]PollStatus),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakePoller) Poll(ctx context.Context, jobID string) (PollStatus, error) {
	f.calls[jobID]++
	if err, ok := f.errs[jobID]; ok {
		return PollStatus{}, err
	}
	if st, ok := f.statuses[jobID]; ok {
		return st, nil
	}
	return PollStatus{Status: domain.JobStatusProcessing}, nil
}

func processingJobs(ids ...string) map[int]*domain.RenderJob {
	jobs := make(map[int]*domain.RenderJob, len(ids))
	for i, id := range ids {
		jobs[i+1] = &domain.RenderJob{ID: id, ShotIndex: i + 1, Status: domain.JobStatusProcessing}
	}
	return jobs
}

func TestPollAllIndependentFates(t *testing.T) {
	poller := newFakePoller()
	poller.statuses["j1"] = PollStatus{Status: domain.JobStatusSucceeded, ResultURI: "https://cdn/v1.mp4"}
	poller.statuses["j2"] = PollStatus{Status: domain.JobStatusFailed, ErrorMessage: "render rejected"}
	poller.statuses["j3"] = PollStatus{Status: domain.JobStatusSucceeded, ResultURI: "https://cdn/v3.mp4"}

	tracker := NewTracker(poller, nil, zerolog.Nop())
	res := tracker.PollAll(context.Background(), processingJobs("j1", "j2", "j3"))

	if res.AllSucceeded {
		t.Fatalf("AllSucceeded = true with a failed shot")
	}
	if len(res.Items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(res.Items))
	}
	if res.Items[0].Status != domain.JobStatusSucceeded || res.Items[2].Status != domain.JobStatusSucceeded {
		t.Fatalf("shots 1 and 3 should succeed despite shot 2 failing: %+v", res.Items)
	}
	if res.Items[1].Status != domain.JobStatusFailed || res.Items[1].ErrorMessage != "render rejected" {
		t.Fatalf("shot 2 = %+v, want failed with provider message", res.Items[1])
	}
}

func TestPollAllSucceeded(t *testing.T) {
	poller := newFakePoller()
	poller.statuses["j1"] = PollStatus{Status: domain.JobStatusSucceeded, ResultURI: "u1"}
	poller.statuses["j2"] = PollStatus{Status: domain.JobStatusSucceeded, ResultURI: "u2"}

	tracker := NewTracker(poller, nil, zerolog.Nop())
	res := tracker.PollAll(context.Background(), processingJobs("j1", "j2"))
	if !res.AllSucceeded {
		t.Fatalf("AllSucceeded = false, want true")
	}
}

func TestPollTerminalIsIdempotent(t *testing.T) {
	poller := newFakePoller()
	poller.statuses["j1"] = PollStatus{Status: domain.JobStatusSucceeded, ResultURI: "u1"}
	tracker := NewTracker(poller, nil, zerolog.Nop())

	jobs := processingJobs("j1")
	first := tracker.PollAll(context.Background(), jobs)
	second := tracker.PollAll(context.Background(), jobs)

	if first.Items[0].Status != second.Items[0].Status || first.Items[0].URI != second.Items[0].URI {
		t.Fatalf("terminal re-poll differs: %+v vs %+v", first.Items[0], second.Items[0])
	}
	if poller.calls["j1"] != 1 {
		t.Fatalf("provider polled %d times for a terminal job, want 1", poller.calls["j1"])
	}
}

func TestPollTerminalCacheSkipsProvider(t *testing.T) {
	poller := newFakePoller()
	cache := NewMemoryTerminalCache()
	cache.Put(context.Background(), "j1", PollStatus{Status: domain.JobStatusSucceeded, ResultURI: "u1"})

	tracker := NewTracker(poller, cache, zerolog.Nop())
	res := tracker.PollAll(context.Background(), processingJobs("j1"))
	if res.Items[0].URI != "u1" {
		t.Fatalf("uri = %q, want cached u1", res.Items[0].URI)
	}
	if poller.calls["j1"] != 0 {
		t.Fatalf("provider polled %d times, want 0 (cache hit)", poller.calls["j1"])
	}
}

func TestPollTransientErrorLeavesProcessing(t *testing.T) {
	poller := newFakePoller()
	poller.errs["j1"] = errors.New("tls handshake reset")
	tracker := NewTracker(poller, nil, zerolog.Nop())

	res := tracker.PollAll(context.Background(), processingJobs("j1"))
	if res.Items[0].Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q, want processing after transient poll error", res.Items[0].Status)
	}
	if res.AllSucceeded {
		t.Fatalf("AllSucceeded = true, want false")
	}
}

func TestPollAllEmptySetIsNotAllSucceeded(t *testing.T) {
	tracker := NewTracker(newFakePoller(), nil, zerolog.Nop())
	res := tracker.PollAll(context.Background(), nil)
	if res.AllSucceeded {
		t.Fatalf("AllSucceeded = true for empty job set")
	}
}
