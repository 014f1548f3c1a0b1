package timeline

// ComputeInsertIndex returns the position a dropped clip takes on a
// gap-free track: before the first existing clip whose end exceeds the drop
// time, else appended at the end. Pure so drag-and-drop plumbing stays out of
// the model.
func ComputeInsertIndex(durations []float64, dropTimeSeconds float64) int {
	at := 0.0
	for i, d := range durations {
		if at+d > dropTimeSeconds {
			return i
		}
		at += d
	}
	return len(durations)
}

// ComputeReorder returns the order that results from moving one member of
// oldOrder to newPosition, clamping the position into range. The input slice
// is not modified.
func ComputeReorder(oldOrder []int, movedID int, newPosition int) []int {
	out := make([]int, 0, len(oldOrder))
	found := false
	for _, id := range oldOrder {
		if id == movedID {
			found = true
			continue
		}
		out = append(out, id)
	}
	if !found {
		return append([]int(nil), oldOrder...)
	}
	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > len(out) {
		newPosition = len(out)
	}
	out = append(out, 0)
	copy(out[newPosition+1:], out[newPosition:])
	out[newPosition] = movedID
	return out
}
