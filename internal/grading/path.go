package grading

import "sort"

// AssignPath returns the category with the strictly greatest score.
//
// Categories are visited in the declared order first, then any undeclared
// categories in lexicographic order; on a tie the first one visited wins.
// Map iteration order never influences the result.
func AssignPath(scores map[string]float64, declared []string) (string, bool) {
	if len(scores) == 0 {
		return "", false
	}
	best, bestScore, found := "", 0.0, false
	for _, cat := range rankOrder(scores, declared) {
		v := scores[cat]
		if !found || v > bestScore {
			best, bestScore, found = cat, v, true
		}
	}
	return best, found
}

func rankOrder(scores map[string]float64, declared []string) []string {
	order := make([]string, 0, len(scores))
	seen := make(map[string]struct{}, len(scores))
	for _, cat := range declared {
		if _, ok := scores[cat]; !ok {
			continue
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		order = append(order, cat)
	}
	var rest []string
	for cat := range scores {
		if _, ok := seen[cat]; !ok {
			rest = append(rest, cat)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}
