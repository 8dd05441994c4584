package canvas

import (
	"slices"

	"github.com/soyeahso/swarmdeck/internal/domain"
)

// Adjacency derives the pairs of ids whose Euclidean distance is strictly
// below threshold. It is a pure function of the given positions: the result
// is a cache to be recomputed whenever a position changes, never a second
// authoritative relation. The returned lists are sorted and symmetric — if
// a appears in b's list, b appears in a's.
func Adjacency(points map[string]domain.Position, threshold float64) map[string][]string {
	ids := make([]string, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	adj := make(map[string][]string, len(ids))
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if points[a].Distance(points[b]) < threshold {
				adj[a] = append(adj[a], b)
				adj[b] = append(adj[b], a)
			}
		}
	}
	for id := range adj {
		slices.Sort(adj[id])
	}
	return adj
}
