package domain

import "context"

// SessionRepository persists creation sessions, including their storyboard
// and serialized timeline state.
type SessionRepository interface {
	Create(ctx context.Context, session *Session, timelineJSON []byte) error
	Get(ctx context.Context, id string) (*Session, []byte, error)
	SaveStoryboard(ctx context.Context, id string, storyboard Storyboard) error
	SaveTimeline(ctx context.Context, id string, timelineJSON []byte) error
	AppendArtifact(ctx context.Context, id string, artifact MergedArtifact) error
	ListArtifacts(ctx context.Context, id string) ([]MergedArtifact, error)
}

// JobRepository persists render jobs. Exactly one non-superseded job exists
// per (session, shotIndex) at any time.
type JobRepository interface {
	Create(ctx context.Context, job *RenderJob) error
	GetByID(ctx context.Context, jobID string) (*RenderJob, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, resultURI, errMsg string) error
	// Supersede marks oldID as replaced by newID, keeping the old record
	// for audit only.
	Supersede(ctx context.Context, oldID, newID string) error
	// ActiveBySession returns the non-superseded jobs for a session keyed
	// by shot index.
	ActiveBySession(ctx context.Context, sessionID string) (map[int]*RenderJob, error)
	// DeleteForShot removes the active mapping for a shot that was deleted
	// from the storyboard and decrements the shot index of the remaining
	// active jobs above it, mirroring the storyboard renumbering.
	DeleteForShot(ctx context.Context, sessionID string, shotIndex int) error
}
