package canvas

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAdjacencyWithinThreshold(t *testing.T) {
	points := map[string]domain.Position{
		"a": {X: 0, Y: 0},
		"b": {X: 30, Y: 40}, // distance 50
	}

	adj := Adjacency(points, 150)
	assert.Equal(t, []string{"b"}, adj["a"])
	assert.Equal(t, []string{"a"}, adj["b"])
}

func TestAdjacencyBeyondThreshold(t *testing.T) {
	points := map[string]domain.Position{
		"a": {X: 0, Y: 0},
		"b": {X: 300, Y: 400}, // distance 500
	}

	adj := Adjacency(points, 150)
	assert.Empty(t, adj)
}

func TestAdjacencyThresholdIsExclusive(t *testing.T) {
	points := map[string]domain.Position{
		"a": {X: 0, Y: 0},
		"b": {X: 150, Y: 0},
	}

	assert.Empty(t, Adjacency(points, 150))
	assert.NotEmpty(t, Adjacency(points, 150.01))
}

func TestAdjacencyListsAreSorted(t *testing.T) {
	points := map[string]domain.Position{
		"c": {X: 0, Y: 0},
		"a": {X: 1, Y: 0},
		"b": {X: 2, Y: 0},
	}

	adj := Adjacency(points, 10)
	assert.Equal(t, []string{"a", "b"}, adj["c"])
	assert.Equal(t, []string{"b", "c"}, adj["a"])
}

func TestAdjacencyProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100

	properties := gopter.NewProperties(params)

	genPositions := gen.SliceOfN(12, gen.Float64Range(0, 1000)).Map(func(coords []float64) map[string]domain.Position {
		points := make(map[string]domain.Position, len(coords)/2)
		for i := 0; i+1 < len(coords); i += 2 {
			points[fmt.Sprintf("p%d", i/2)] = domain.Position{X: coords[i], Y: coords[i+1]}
		}
		return points
	})

	properties.Property("adjacency is symmetric", prop.ForAll(
		func(points map[string]domain.Position) bool {
			adj := Adjacency(points, 200)
			for a, neighbors := range adj {
				for _, b := range neighbors {
					if !contains(adj[b], a) {
						return false
					}
				}
			}
			return true
		},
		genPositions,
	))

	properties.Property("adjacency is irreflexive", prop.ForAll(
		func(points map[string]domain.Position) bool {
			adj := Adjacency(points, 200)
			for a, neighbors := range adj {
				if contains(neighbors, a) {
					return false
				}
			}
			return true
		},
		genPositions,
	))

	properties.TestingRun(t)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
