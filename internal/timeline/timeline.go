package timeline

import (
	"fmt"

	"github.com/google/uuid"

	"storyreel/internal/domain"
)

// TrackKind distinguishes the single video track from the audio lanes.
type TrackKind string

const (
	TrackVideo     TrackKind = "video"
	TrackMusic     TrackKind = "music"
	TrackNarration TrackKind = "narration"
)

// Clip is one timeline segment. SegmentIndex maps a generation-derived clip
// to its live shot; it is zero for user-uploaded clips.
type Clip struct {
	ID             string  `json:"id"`
	SegmentIndex   int     `json:"segment_index,omitempty"`
	StartAtSeconds float64 `json:"start_at_seconds"`
	DurationSec    float64 `json:"duration_seconds"`
	URI            string  `json:"uri,omitempty"`
}

// AudioTrack is one audio lane. Its clips are positioned independently of
// the video track.
type AudioTrack struct {
	ID     string    `json:"id"`
	Kind   TrackKind `json:"kind"`
	Volume float64   `json:"volume"`
	Muted  bool      `json:"muted"`
	Clips  []Clip    `json:"clips"`
}

// Timeline is the user-directed multi-track model whose video-track order
// drives the final merge. The video track partitions time without gaps:
// start offsets always equal the prefix sum of durations in current order.
type Timeline struct {
	Video []Clip       `json:"video"`
	Audio []AudioTrack `json:"audio"`
}

// New builds an empty timeline with the standard audio lanes.
func New() *Timeline {
	return &Timeline{
		Audio: []AudioTrack{
			{ID: uuid.NewString(), Kind: TrackMusic, Volume: 1},
			{ID: uuid.NewString(), Kind: TrackNarration, Volume: 1},
		},
	}
}

// SetShotClip creates or refreshes the video clip for a shot, keeping the
// clip's position if it already exists. New clips append at the end.
func (t *Timeline) SetShotClip(shotIndex int, durationSec float64, uri string) {
	for i := range t.Video {
		if t.Video[i].SegmentIndex == shotIndex {
			t.Video[i].URI = uri
			if durationSec > 0 {
				t.Video[i].DurationSec = durationSec
			}
			t.restack()
			return
		}
	}
	t.Video = append(t.Video, Clip{
		ID:           uuid.NewString(),
		SegmentIndex: shotIndex,
		DurationSec:  durationSec,
		URI:          uri,
	})
	t.restack()
}

// Order returns the live shot indexes in current video-track order, skipping
// uploaded clips. This is the order consumed at merge time.
func (t *Timeline) Order() []int {
	out := make([]int, 0, len(t.Video))
	for _, c := range t.Video {
		if c.SegmentIndex > 0 {
			out = append(out, c.SegmentIndex)
		}
	}
	return out
}

// SegmentURIs returns the clip URIs for the current Order.
func (t *Timeline) SegmentURIs() []string {
	out := make([]string, 0, len(t.Video))
	for _, c := range t.Video {
		if c.SegmentIndex > 0 {
			out = append(out, c.URI)
		}
	}
	return out
}

// Reorder resequences the generated video clips to newOrder and recomputes
// start offsets as the prefix sum of durations in the new order. The order
// must contain exactly the current live shot indexes; uploaded clips keep
// their slice positions.
func (t *Timeline) Reorder(newOrder []int) error {
	current := t.Order()
	if !sameIndexSet(current, newOrder) {
		return &domain.ValidationError{Reason: "reorder set differs from live shots", Indices: newOrder}
	}
	byIndex := make(map[int]Clip, len(newOrder))
	for _, c := range t.Video {
		if c.SegmentIndex > 0 {
			byIndex[c.SegmentIndex] = c
		}
	}
	next := 0
	out := make([]Clip, len(t.Video))
	for i, c := range t.Video {
		if c.SegmentIndex > 0 {
			out[i] = byIndex[newOrder[next]]
			next++
		} else {
			out[i] = c
		}
	}
	t.Video = out
	t.restack()
	return nil
}

// InsertFromDrop places a clip on a track at the drop time. On the video
// track the clip lands before the first existing clip whose end exceeds the
// drop time, else it appends; audio clips keep the drop time as their start.
func (t *Timeline) InsertFromDrop(track TrackKind, clip Clip, atTimeSeconds float64) (Clip, error) {
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	if track == TrackVideo {
		durations := make([]float64, len(t.Video))
		for i, c := range t.Video {
			durations[i] = c.DurationSec
		}
		pos := ComputeInsertIndex(durations, atTimeSeconds)
		t.Video = append(t.Video, Clip{})
		copy(t.Video[pos+1:], t.Video[pos:])
		t.Video[pos] = clip
		t.restack()
		return clip, nil
	}
	for i := range t.Audio {
		if t.Audio[i].Kind == track {
			clip.StartAtSeconds = atTimeSeconds
			t.Audio[i].Clips = append(t.Audio[i].Clips, clip)
			return clip, nil
		}
	}
	return Clip{}, fmt.Errorf("track %q: %w", track, domain.ErrNotFound)
}

// RemoveClip drops a clip. For a generation-derived video clip it returns the
// shot index so the caller can cascade the storyboard deletion; uploaded and
// audio clips are simply dropped.
func (t *Timeline) RemoveClip(track TrackKind, clipID string) (int, error) {
	if track == TrackVideo {
		for i, c := range t.Video {
			if c.ID == clipID {
				t.Video = append(t.Video[:i], t.Video[i+1:]...)
				t.restack()
				return c.SegmentIndex, nil
			}
		}
		return 0, fmt.Errorf("clip %q: %w", clipID, domain.ErrNotFound)
	}
	for i := range t.Audio {
		if t.Audio[i].Kind != track {
			continue
		}
		clips := t.Audio[i].Clips
		for j, c := range clips {
			if c.ID == clipID {
				t.Audio[i].Clips = append(clips[:j], clips[j+1:]...)
				return 0, nil
			}
		}
	}
	return 0, fmt.Errorf("clip %q: %w", clipID, domain.ErrNotFound)
}

// RemoveShot cascades a storyboard deletion into the timeline: the shot's
// clip is dropped and higher segment indexes shift down to mirror the dense
// renumbering.
func (t *Timeline) RemoveShot(shotIndex int) {
	for i, c := range t.Video {
		if c.SegmentIndex == shotIndex {
			t.Video = append(t.Video[:i], t.Video[i+1:]...)
			break
		}
	}
	for i := range t.Video {
		if t.Video[i].SegmentIndex > shotIndex {
			t.Video[i].SegmentIndex--
		}
	}
	t.restack()
}

// SetAudioTrackProps updates an audio lane's volume and mute flag. Nil means
// leave unchanged. No reordering side effects.
func (t *Timeline) SetAudioTrackProps(track TrackKind, volume *float64, muted *bool) error {
	for i := range t.Audio {
		if t.Audio[i].Kind != track {
			continue
		}
		if volume != nil {
			v := *volume
			if v < 0 || v > 1 {
				return &domain.ValidationError{Reason: fmt.Sprintf("volume %v out of range [0,1]", v)}
			}
			t.Audio[i].Volume = v
		}
		if muted != nil {
			t.Audio[i].Muted = *muted
		}
		return nil
	}
	return fmt.Errorf("track %q: %w", track, domain.ErrNotFound)
}

// ReplaceShotClipURI swaps one shot clip's URI in place. Ordering and timing
// of every other clip is untouched.
func (t *Timeline) ReplaceShotClipURI(shotIndex int, uri string) error {
	for i := range t.Video {
		if t.Video[i].SegmentIndex == shotIndex {
			t.Video[i].URI = uri
			return nil
		}
	}
	return fmt.Errorf("shot %d clip: %w", shotIndex, domain.ErrNotFound)
}

// restack recomputes video-track start offsets as the prefix sum of
// durations in current order.
func (t *Timeline) restack() {
	at := 0.0
	for i := range t.Video {
		t.Video[i].StartAtSeconds = at
		at += t.Video[i].DurationSec
	}
}

// VideoDurationSeconds is the duration basis audio tracks mix against.
func (t *Timeline) VideoDurationSeconds() float64 {
	total := 0.0
	for _, c := range t.Video {
		total += c.DurationSec
	}
	return total
}

func sameIndexSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
