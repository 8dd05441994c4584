package canvas

import (
	"fmt"
	"sync"
	"testing"

	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissiveUpsertOnUnknownID(t *testing.T) {
	s := NewPositionStore(PolicyPermissive)

	err := s.SetPosition("ghost", domain.Position{X: 10, Y: 20})
	require.NoError(t, err)

	e, ok := s.Get("ghost")
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, e.Position)
	assert.Equal(t, domain.AgentActive, e.Status)
}

func TestStrictRejectsUnknownID(t *testing.T) {
	s := NewPositionStore(PolicyStrict)

	err := s.SetPosition("nobody", domain.Position{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrUnknownAgent)
	assert.Equal(t, 0, s.Len())
}

func TestStrictAcceptsRegisteredID(t *testing.T) {
	s := NewPositionStore(PolicyStrict)
	s.Register("a1", Entry{Status: domain.AgentActive})

	require.NoError(t, s.SetPosition("a1", domain.Position{X: 5, Y: 6}))

	e, ok := s.Get("a1")
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 5, Y: 6}, e.Position)
}

func TestEmptyPolicyDefaultsToPermissive(t *testing.T) {
	s := NewPositionStore("")
	assert.Equal(t, PolicyPermissive, s.Policy())
	assert.NoError(t, s.SetPosition("x", domain.Position{}))
}

func TestSetStatusPreservesPosition(t *testing.T) {
	s := NewPositionStore(PolicyPermissive)
	require.NoError(t, s.SetPosition("a1", domain.Position{X: 3, Y: 4}))
	require.NoError(t, s.SetStatus("a1", domain.AgentBusy))

	e, _ := s.Get("a1")
	assert.Equal(t, domain.Position{X: 3, Y: 4}, e.Position)
	assert.Equal(t, domain.AgentBusy, e.Status)
}

func TestRemove(t *testing.T) {
	s := NewPositionStore(PolicyPermissive)
	require.NoError(t, s.SetPosition("a1", domain.Position{X: 1, Y: 1}))

	s.Remove("a1")
	_, ok := s.Get("a1")
	assert.False(t, ok)

	// Removing a missing id is a no-op
	s.Remove("a1")
}

func TestSnapshotDoesNotAliasStore(t *testing.T) {
	s := NewPositionStore(PolicyPermissive)
	require.NoError(t, s.SetPosition("a1", domain.Position{X: 1, Y: 1}))

	snap := s.Snapshot()

	// Mutating the store after the snapshot must not change the snapshot
	require.NoError(t, s.SetPosition("a1", domain.Position{X: 99, Y: 99}))
	assert.Equal(t, domain.Position{X: 1, Y: 1}, snap["a1"].Position)

	// Mutating the snapshot must not change the store
	snap["a2"] = Entry{Position: domain.Position{X: 7, Y: 7}}
	_, ok := s.Get("a2")
	assert.False(t, ok)
}

func TestConcurrentUpdates(t *testing.T) {
	s := NewPositionStore(PolicyPermissive)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("agent-%d", n)
			for j := 0; j < 100; j++ {
				_ = s.SetPosition(id, domain.Position{X: float64(j), Y: float64(j)})
				s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
	for i := 0; i < 8; i++ {
		e, ok := s.Get(fmt.Sprintf("agent-%d", i))
		require.True(t, ok)
		assert.Equal(t, domain.Position{X: 99, Y: 99}, e.Position)
	}
}
