package domain

// GenerationHint carries a shot's preferred generation method from the
// storyboard author.
type GenerationHint string

const (
	HintTextToVideo    GenerationHint = "t2v"
	HintImageToVideo   GenerationHint = "i2v"
	HintFirstLastFrame GenerationHint = "fl2v"
)

// ShotDescriptor is the immutable per-shot unit of work. Index is 1-based and
// dense within a storyboard; Renumber restores density after a deletion.
type ShotDescriptor struct {
	Index             int            `json:"index"`
	VisualDescription string         `json:"visual_description"`
	Dialogue          string         `json:"dialogue,omitempty"`
	DurationSeconds   float64        `json:"duration_seconds"`
	MethodHint        GenerationHint `json:"method_hint,omitempty"`
	SubjectRefIDs     []string       `json:"subject_ref_ids,omitempty"`
}

// Storyboard is the ordered list of shots for one session.
type Storyboard []ShotDescriptor

// ByIndex returns the shot with the given 1-based index, or nil.
func (sb Storyboard) ByIndex(index int) *ShotDescriptor {
	for i := range sb {
		if sb[i].Index == index {
			return &sb[i]
		}
	}
	return nil
}

// Indexes returns the live shot indexes in storyboard order.
func (sb Storyboard) Indexes() []int {
	out := make([]int, 0, len(sb))
	for _, s := range sb {
		out = append(out, s.Index)
	}
	return out
}

// Remove deletes the shot with the given index and renumbers the remaining
// shots to a dense 1..N-1 sequence preserving relative order. It reports
// whether a shot was removed.
func (sb *Storyboard) Remove(index int) bool {
	shots := *sb
	pos := -1
	for i := range shots {
		if shots[i].Index == index {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	shots = append(shots[:pos], shots[pos+1:]...)
	for i := range shots {
		shots[i].Index = i + 1
	}
	*sb = shots
	return true
}

// ReferenceRole distinguishes what a reference asset keeps consistent.
type ReferenceRole string

const (
	RefRoleSubject ReferenceRole = "subject"
	RefRoleProduct ReferenceRole = "product"
)

// ReferenceAsset is an image shared byte-identical by every consistency
// critical job in a session. It is owned by the session and never regenerated
// per shot.
type ReferenceAsset struct {
	ID          string        `json:"id"`
	Role        ReferenceRole `json:"role"`
	DisplayName string        `json:"display_name,omitempty"`
	Image       []byte        `json:"-"`
	StorageKey  string        `json:"storage_key,omitempty"`
}
