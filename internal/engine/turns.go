package engine

import "sort"

// CountSpeakers returns the number of distinct labels in turns.
func CountSpeakers(turns []Turn) int {
	return len(Speakers(turns))
}

// Speakers returns the distinct labels in turns, sorted.
func Speakers(turns []Turn) []string {
	seen := make(map[string]struct{}, len(turns))
	for _, t := range turns {
		seen[t.Label] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// SpeakingTime sums turn durations per label.
func SpeakingTime(turns []Turn) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range turns {
		if d := t.End - t.Start; d > 0 {
			out[t.Label] += d
		}
	}
	return out
}
