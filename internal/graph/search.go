package graph

import (
	"sort"
	"strings"
)

// SearchResult holds a scored search hit.
type SearchResult struct {
	Node  Node `json:"node"`
	Score int  `json:"score"`
}

// Search finds nodes matching a query string.
// Scored: label(100 exact, 50 contains) > category(20/15) > description or metadata(10).
func (m *Model) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, n := range m.order {
		score := 0
		labelLower := strings.ToLower(n.Label)
		catLower := strings.ToLower(string(n.Category))

		if labelLower == q || strings.ToLower(n.ID) == q {
			score += 100
		} else if strings.Contains(labelLower, q) {
			score += 50
		}

		if catLower == q {
			score += 20
		} else if strings.Contains(catLower, q) {
			score += 15
		}

		if strings.Contains(strings.ToLower(n.Description), q) {
			score += 10
		} else {
			for _, v := range n.Metadata {
				if strings.Contains(strings.ToLower(v), q) {
					score += 10
					break
				}
			}
		}

		if score > 0 {
			results = append(results, SearchResult{Node: *n, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
