package ai

import "strings"

// ParseLabels cleans a label_suggestion answer into a list: lowercased,
// split on commas, trimmed, blanks dropped, duplicates removed keeping the
// first occurrence.
func ParseLabels(s string) []string {
	parts := strings.Split(strings.ToLower(s), ",")
	seen := make(map[string]struct{}, len(parts))
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		labels = append(labels, p)
	}
	return labels
}
