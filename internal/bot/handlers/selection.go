package handlers

import (
	"strconv"
	"strings"
)

// maxComparable is how many growth log entries can be selected for comparison
const maxComparable = 2

// ToggleSelection flips one entry in the comparison selection. Selecting an
// already selected entry removes it; selecting a third entry is a no-op, the
// existing pair stays.
func ToggleSelection(selected []int, id int) []int {
	for i, s := range selected {
		if s == id {
			return append(selected[:i:i], selected[i+1:]...)
		}
	}
	if len(selected) >= maxComparable {
		return selected
	}
	return append(selected, id)
}

// encodeSelection serializes the selection for temp data storage
func encodeSelection(selected []int) string {
	parts := make([]string, 0, len(selected))
	for _, id := range selected {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}

// decodeSelection parses a selection stored in temp data
func decodeSelection(raw string) []int {
	if raw == "" {
		return nil
	}
	var selected []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		selected = append(selected, id)
	}
	return selected
}
