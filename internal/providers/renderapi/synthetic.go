package renderapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"storyreel/internal/domain"
	"storyreel/internal/render"
)

// Synthetic is a deterministic in-process provider used in local and CI
// environments where no render credentials exist. A task succeeds after a
// fixed number of polls with a URI derived from the submitted prompt, so
// repeated runs produce stable results.
type Synthetic struct {
	// SucceedAfterPolls is how many polls a task stays processing. Zero
	// means the first poll already reports success.
	SucceedAfterPolls int

	mu    sync.Mutex
	tasks map[string]*syntheticTask
}

type syntheticTask struct {
	promptDigest string
	polls        int
}

func NewSynthetic(succeedAfterPolls int) *Synthetic {
	return &Synthetic{
		SucceedAfterPolls: succeedAfterPolls,
		tasks:             map[string]*syntheticTask{},
	}
}

func (s *Synthetic) Submit(ctx context.Context, req render.SubmitRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(req.Prompt))
	id := "syn-" + uuid.NewString()
	s.mu.Lock()
	s.tasks[id] = &syntheticTask{promptDigest: hex.EncodeToString(sum[:8])}
	s.mu.Unlock()
	return id, nil
}

func (s *Synthetic) Poll(ctx context.Context, jobID string) (render.PollStatus, error) {
	if err := ctx.Err(); err != nil {
		return render.PollStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[jobID]
	if !ok {
		return render.PollStatus{}, fmt.Errorf("synthetic: unknown task %s: %w", jobID, domain.ErrNotFound)
	}
	task.polls++
	if task.polls <= s.SucceedAfterPolls {
		return render.PollStatus{Status: domain.JobStatusProcessing}, nil
	}
	return render.PollStatus{
		Status:    domain.JobStatusSucceeded,
		ResultURI: fmt.Sprintf("synthetic://clips/%s.mp4", task.promptDigest),
	}, nil
}

var (
	_ render.Submitter = (*Synthetic)(nil)
	_ render.Poller    = (*Synthetic)(nil)
)
