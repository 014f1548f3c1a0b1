package domain

import "time"

// RenderMode enumerates the generation strategies a storyboard can be
// rendered with.
type RenderMode string

const (
	ModeSingleShot         RenderMode = "single_shot_t2v"
	ModeMultiShotConcat    RenderMode = "multi_shot_t2v_concat"
	ModeImagePerShot       RenderMode = "image_per_shot"
	ModeSubjectReference   RenderMode = "subject_reference"
	ModeKeyframeTransition RenderMode = "keyframe_transition"
)

// ParseRenderMode validates an externally supplied mode string.
func ParseRenderMode(s string) (RenderMode, bool) {
	switch RenderMode(s) {
	case ModeSingleShot, ModeMultiShotConcat, ModeImagePerShot, ModeSubjectReference, ModeKeyframeTransition:
		return RenderMode(s), true
	}
	return "", false
}

// AdvisoryModes lists the modes an advisory recommendation may legally
// return. Subject consistency is decided by rule, never by the advisory.
var AdvisoryModes = map[RenderMode]struct{}{
	ModeSingleShot:         {},
	ModeMultiShotConcat:    {},
	ModeImagePerShot:       {},
	ModeKeyframeTransition: {},
}

// JobStatus enumerates render job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// RenderJob is one asynchronous unit of work at an external render provider.
// It is created by the dispatcher, advanced only by polling, and superseded,
// never mutated, when a shot is regenerated.
type RenderJob struct {
	ID           string
	SessionID    string
	ShotIndex    int
	Mode         RenderMode
	Status       JobStatus
	ResultURI    string
	ErrorMessage string
	// SupersededBy holds the replacement job id after a regeneration. A
	// superseded job is retained for audit and no longer consulted.
	SupersededBy string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the job is the one consulted for its shot.
func (j *RenderJob) Active() bool {
	return j != nil && j.SupersededBy == ""
}
