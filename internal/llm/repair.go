package llm

import "strings"

// RepairJSON makes one lightweight attempt to salvage JSON embedded in
// a chatty response: trim everything outside the outermost brace (or
// bracket) span. If no span exists the input is returned unchanged and
// the caller falls back to an empty container.
func RepairJSON(s string) string {
	trimmed := strings.TrimSpace(s)

	objStart := strings.Index(trimmed, "{")
	arrStart := strings.Index(trimmed, "[")

	start, closer := objStart, "}"
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start, closer = arrStart, "]"
	}
	if start < 0 {
		return trimmed
	}

	end := strings.LastIndex(trimmed, closer)
	if end <= start {
		return trimmed
	}
	return trimmed[start : end+1]
}
