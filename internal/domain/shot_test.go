package domain

import "testing"

func TestStoryboardRemoveRenumbersDensely(t *testing.T) {
	sb := Storyboard{
		{Index: 1, VisualDescription: "a"},
		{Index: 2, VisualDescription: "b"},
		{Index: 3, VisualDescription: "c"},
		{Index: 4, VisualDescription: "d"},
	}
	if !sb.Remove(2) {
		t.Fatal("Remove(2) = false")
	}
	if len(sb) != 3 {
		t.Fatalf("len = %d", len(sb))
	}
	wantVisuals := []string{"a", "c", "d"}
	for i, shot := range sb {
		if shot.Index != i+1 {
			t.Fatalf("shot %d has index %d", i, shot.Index)
		}
		if shot.VisualDescription != wantVisuals[i] {
			t.Fatalf("shot %d visual = %q, want %q", i, shot.VisualDescription, wantVisuals[i])
		}
	}
}

func TestStoryboardRemoveUnknownIndex(t *testing.T) {
	sb := Storyboard{{Index: 1, VisualDescription: "a"}}
	if sb.Remove(9) {
		t.Fatal("Remove(9) = true")
	}
	if len(sb) != 1 || sb[0].Index != 1 {
		t.Fatalf("storyboard mutated: %+v", sb)
	}
}

func TestStoryboardByIndex(t *testing.T) {
	sb := Storyboard{{Index: 1}, {Index: 2}}
	if shot := sb.ByIndex(2); shot == nil || shot.Index != 2 {
		t.Fatalf("ByIndex(2) = %+v", shot)
	}
	if shot := sb.ByIndex(3); shot != nil {
		t.Fatalf("ByIndex(3) = %+v, want nil", shot)
	}
}

func TestParseRenderMode(t *testing.T) {
	if _, ok := ParseRenderMode("subject_reference"); !ok {
		t.Fatal("subject_reference should parse")
	}
	if _, ok := ParseRenderMode("freestyle"); ok {
		t.Fatal("unknown mode should not parse")
	}
}
