package timetable

import "strings"

// MergeUniqueText merges two pipe-delimited annotation strings into a
// deduplicated union. Segments already present in current keep their
// position; new segments from incoming are appended in their original
// relative order. Either side being empty returns the other unchanged.
func MergeUniqueText(current, incoming string) string {
	if current == "" {
		return incoming
	}
	if incoming == "" {
		return current
	}

	segments := splitSegments(current)
	seen := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		seen[s] = struct{}{}
	}

	for _, s := range splitSegments(incoming) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		segments = append(segments, s)
	}

	return strings.Join(segments, " | ")
}

// splitSegments splits on the pipe character, trims each segment and
// drops the empty ones.
func splitSegments(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
