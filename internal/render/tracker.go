package render

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"storyreel/internal/domain"
)

// PollStatus is the provider-side view of one job after a poll round trip.
type PollStatus struct {
	Status       domain.JobStatus `json:"status"`
	ResultURI    string           `json:"result_uri,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// Poller fetches the current status of one provider job.
type Poller interface {
	Poll(ctx context.Context, jobID string) (PollStatus, error)
}

// TerminalCache remembers terminal poll results so re-polling a finished job
// never reaches the provider again. Implementations must be safe for
// concurrent use; a miss is (zero, false).
type TerminalCache interface {
	Get(ctx context.Context, jobID string) (PollStatus, bool)
	Put(ctx context.Context, jobID string, status PollStatus)
}

// StatusItem is one shot's fate in a poll batch.
type StatusItem struct {
	ShotIndex    int              `json:"shot_index"`
	JobID        string           `json:"job_id"`
	Status       domain.JobStatus `json:"status"`
	URI          string           `json:"uri,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// PollResult is the aggregate of one poll tick across all tracked jobs.
type PollResult struct {
	Items        []StatusItem `json:"items"`
	AllSucceeded bool         `json:"all_succeeded"`
}

// Tracker advances a set of independently progressing jobs in one batched
// call per tick. Each job's fate is independent; a failure never blocks the
// siblings. Terminal states are memoized and idempotent.
type Tracker struct {
	provider Poller
	cache    TerminalCache
	logger   zerolog.Logger
}

func NewTracker(provider Poller, cache TerminalCache, logger zerolog.Logger) *Tracker {
	if cache == nil {
		cache = NewMemoryTerminalCache()
	}
	return &Tracker{provider: provider, cache: cache, logger: logger}
}

// PollAll resolves the current status of every job in one round trip per
// still-processing job. Jobs already terminal are returned as-is; a transient
// poll error leaves the job processing for the next tick.
func (t *Tracker) PollAll(ctx context.Context, jobs map[int]*domain.RenderJob) PollResult {
	items := make([]StatusItem, 0, len(jobs))
	all := len(jobs) > 0
	for shotIndex, job := range jobs {
		item := StatusItem{ShotIndex: shotIndex, JobID: job.ID, Status: job.Status, URI: job.ResultURI, ErrorMessage: job.ErrorMessage}
		if !job.Status.Terminal() {
			st, ok := t.resolve(ctx, job.ID)
			if ok {
				item.Status = st.Status
				item.URI = st.ResultURI
				item.ErrorMessage = st.ErrorMessage
				// Terminal states never regress.
				job.Status = st.Status
				job.ResultURI = st.ResultURI
				job.ErrorMessage = st.ErrorMessage
			}
		}
		if item.Status != domain.JobStatusSucceeded {
			all = false
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ShotIndex < items[j].ShotIndex })
	return PollResult{Items: items, AllSucceeded: all}
}

// resolve consults the terminal cache first and only then the provider. It
// reports ok=false when the job is still processing or the poll failed
// transiently.
func (t *Tracker) resolve(ctx context.Context, jobID string) (PollStatus, bool) {
	if st, ok := t.cache.Get(ctx, jobID); ok {
		return st, true
	}
	st, err := t.provider.Poll(ctx, jobID)
	if err != nil {
		t.logger.Warn().Err(err).Str("job_id", jobID).Msg("render: poll failed, will retry next tick")
		return PollStatus{}, false
	}
	if !st.Status.Terminal() {
		return PollStatus{}, false
	}
	t.cache.Put(ctx, jobID, st)
	return st, true
}

// MemoryTerminalCache is the in-process TerminalCache used when no shared
// cache is configured.
type MemoryTerminalCache struct {
	mu sync.RWMutex
	m  map[string]PollStatus
}

func NewMemoryTerminalCache() *MemoryTerminalCache {
	return &MemoryTerminalCache{m: make(map[string]PollStatus)}
}

func (c *MemoryTerminalCache) Get(ctx context.Context, jobID string) (PollStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.m[jobID]
	return st, ok
}

func (c *MemoryTerminalCache) Put(ctx context.Context, jobID string, status PollStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[jobID] = status
}

var _ TerminalCache = (*MemoryTerminalCache)(nil)
