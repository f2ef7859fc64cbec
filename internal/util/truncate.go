package util

// truncationMarker separates preserved head and tail segments.
const truncationMarker = "\n... (truncated) ...\n"

// TruncateHeadTail bounds s to roughly limit bytes, preserving the head and
// tail halves around a marker. Strings at or under the limit pass through
// unchanged.
func TruncateHeadTail(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	half := limit / 2
	return s[:half] + truncationMarker + s[len(s)-half:]
}

// TruncateHead bounds s to limit bytes keeping only the head. Used for
// summaries reported upstream where the opening matters most.
func TruncateHead(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
