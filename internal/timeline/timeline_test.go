package timeline

import (
	"errors"
	"math"
	"testing"

	"storyreel/internal/domain"
)

func threeShotTimeline(t *testing.T) *Timeline {
	t.Helper()
	tl := New()
	tl.SetShotClip(1, 4, "u1")
	tl.SetShotClip(2, 4, "u2")
	tl.SetShotClip(3, 4, "u3")
	return tl
}

func offsets(tl *Timeline) []float64 {
	out := make([]float64, len(tl.Video))
	for i, c := range tl.Video {
		out[i] = c.StartAtSeconds
	}
	return out
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReorderRecomputesPrefixSumOffsets(t *testing.T) {
	tl := threeShotTimeline(t)
	if err := tl.Reorder([]int{3, 1, 2}); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if got := tl.Order(); !intsEqual(got, []int{3, 1, 2}) {
		t.Fatalf("Order() = %v, want [3 1 2]", got)
	}
	if got := offsets(tl); !floatsEqual(got, []float64{0, 4, 8}) {
		t.Fatalf("offsets = %v, want [0 4 8]", got)
	}
}

func TestReorderIdentityIsNoOp(t *testing.T) {
	tl := threeShotTimeline(t)
	before := offsets(tl)
	if err := tl.Reorder([]int{1, 2, 3}); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if got := offsets(tl); !floatsEqual(got, before) {
		t.Fatalf("identity reorder changed offsets: %v -> %v", before, got)
	}
}

func TestReorderRejectsSetMismatch(t *testing.T) {
	tl := threeShotTimeline(t)
	tests := [][]int{
		{1, 2},       // missing member
		{1, 2, 3, 4}, // extra member
		{1, 2, 2},    // duplicate
		{1, 2, 9},    // unknown index
	}
	for _, order := range tests {
		if err := tl.Reorder(order); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Reorder(%v) err = %v, want validation error", order, err)
		}
	}
	if got := tl.Order(); !intsEqual(got, []int{1, 2, 3}) {
		t.Fatalf("rejected reorder mutated order: %v", got)
	}
}

func TestReorderUnevenDurations(t *testing.T) {
	tl := New()
	tl.SetShotClip(1, 2.5, "u1")
	tl.SetShotClip(2, 7, "u2")
	tl.SetShotClip(3, 1.5, "u3")
	if err := tl.Reorder([]int{2, 3, 1}); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if got := offsets(tl); !floatsEqual(got, []float64{0, 7, 8.5}) {
		t.Fatalf("offsets = %v, want [0 7 8.5]", got)
	}
}

func TestInsertFromDropVideo(t *testing.T) {
	tl := threeShotTimeline(t)
	clip, err := tl.InsertFromDrop(TrackVideo, Clip{DurationSec: 2, URI: "upload.mp4"}, 5)
	if err != nil {
		t.Fatalf("InsertFromDrop returned error: %v", err)
	}
	if clip.SegmentIndex != 0 {
		t.Fatalf("uploaded clip has segment index %d, want 0", clip.SegmentIndex)
	}
	// Drop at t=5 lands before the clip covering [4,8).
	if tl.Video[1].ID != clip.ID {
		t.Fatalf("clip inserted at position %v, want 1", tl.Video)
	}
	if got := offsets(tl); !floatsEqual(got, []float64{0, 4, 6, 10}) {
		t.Fatalf("offsets = %v, want restacked [0 4 6 10]", got)
	}
}

func TestInsertFromDropAppendsPastEnd(t *testing.T) {
	tl := threeShotTimeline(t)
	clip, err := tl.InsertFromDrop(TrackVideo, Clip{DurationSec: 2, URI: "upload.mp4"}, 99)
	if err != nil {
		t.Fatalf("InsertFromDrop returned error: %v", err)
	}
	if tl.Video[len(tl.Video)-1].ID != clip.ID {
		t.Fatalf("clip should append at the end")
	}
}

func TestInsertFromDropAudioKeepsStart(t *testing.T) {
	tl := threeShotTimeline(t)
	clip, err := tl.InsertFromDrop(TrackMusic, Clip{DurationSec: 12, URI: "bgm.mp3"}, 0)
	if err != nil {
		t.Fatalf("InsertFromDrop returned error: %v", err)
	}
	if clip.StartAtSeconds != 0 {
		t.Fatalf("audio clip start = %v, want 0", clip.StartAtSeconds)
	}
	if got := offsets(tl); !floatsEqual(got, []float64{0, 4, 8}) {
		t.Fatalf("audio insert disturbed video offsets: %v", got)
	}
}

func TestRemoveClipCascadesShot(t *testing.T) {
	tl := threeShotTimeline(t)
	clipID := tl.Video[1].ID
	shotIndex, err := tl.RemoveClip(TrackVideo, clipID)
	if err != nil {
		t.Fatalf("RemoveClip returned error: %v", err)
	}
	if shotIndex != 2 {
		t.Fatalf("shotIndex = %d, want 2 for cascade", shotIndex)
	}
}

func TestRemoveUploadedClipNoCascade(t *testing.T) {
	tl := threeShotTimeline(t)
	clip, _ := tl.InsertFromDrop(TrackVideo, Clip{DurationSec: 2, URI: "upload.mp4"}, 0)
	shotIndex, err := tl.RemoveClip(TrackVideo, clip.ID)
	if err != nil {
		t.Fatalf("RemoveClip returned error: %v", err)
	}
	if shotIndex != 0 {
		t.Fatalf("shotIndex = %d, want 0 for uploaded clip", shotIndex)
	}
	if got := tl.Order(); !intsEqual(got, []int{1, 2, 3}) {
		t.Fatalf("Order() = %v, want untouched [1 2 3]", got)
	}
}

func TestRemoveShotShiftsSegmentIndexes(t *testing.T) {
	tl := threeShotTimeline(t)
	tl.RemoveShot(2)
	if got := tl.Order(); !intsEqual(got, []int{1, 2}) {
		t.Fatalf("Order() = %v, want renumbered [1 2]", got)
	}
	if got := tl.SegmentURIs(); len(got) != 2 || got[0] != "u1" || got[1] != "u3" {
		t.Fatalf("uris = %v, want [u1 u3]", got)
	}
	if got := offsets(tl); !floatsEqual(got, []float64{0, 4}) {
		t.Fatalf("offsets = %v, want [0 4]", got)
	}
}

func TestSetAudioTrackProps(t *testing.T) {
	tl := New()
	vol := 0.3
	muted := true
	if err := tl.SetAudioTrackProps(TrackMusic, &vol, &muted); err != nil {
		t.Fatalf("SetAudioTrackProps returned error: %v", err)
	}
	for _, track := range tl.Audio {
		if track.Kind == TrackMusic {
			if track.Volume != 0.3 || !track.Muted {
				t.Fatalf("music track = %+v, want volume 0.3 muted", track)
			}
		} else if track.Volume != 1 || track.Muted {
			t.Fatalf("other track changed: %+v", track)
		}
	}

	bad := 1.5
	if err := tl.SetAudioTrackProps(TrackMusic, &bad, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("volume out of range err = %v, want validation error", err)
	}
}

func TestReplaceShotClipURIKeepsTiming(t *testing.T) {
	tl := threeShotTimeline(t)
	before := offsets(tl)
	if err := tl.ReplaceShotClipURI(2, "u2-new"); err != nil {
		t.Fatalf("ReplaceShotClipURI returned error: %v", err)
	}
	if got := tl.SegmentURIs(); got[1] != "u2-new" || got[0] != "u1" || got[2] != "u3" {
		t.Fatalf("uris = %v, want only clip 2 replaced", got)
	}
	if got := offsets(tl); !floatsEqual(got, before) {
		t.Fatalf("timing changed: %v -> %v", before, got)
	}
}
