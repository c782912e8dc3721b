package registry_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsreactor/registry"
)

func TestEmptyTableOperations(t *testing.T) {
	tbl := registry.New[int, string](registry.IntHasher())

	_, ok := tbl.Get(7)
	assert.False(t, ok)
	tbl.Remove(7)
	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Cap())
}

func TestPutReportsInsertOrUpdate(t *testing.T) {
	tbl := registry.New[int, string](registry.IntHasher())

	require.True(t, tbl.Put(3, "a"))
	require.False(t, tbl.Put(3, "b"))

	v, ok := tbl.Get(3)
	require.True(t, ok)
	assert.Equal(t, "b", *v)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, registry.GrowthStep, tbl.Cap())
}

func TestZeroKeyIsLegal(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	tbl.Put(0, 42)

	v, ok := tbl.Get(0)
	require.True(t, ok)
	assert.Equal(t, 42, *v)

	tbl.Remove(0)
	_, ok = tbl.Get(0)
	assert.False(t, ok)
}

func TestGetReturnsReference(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	tbl.Put(1, 10)

	v, _ := tbl.Get(1)
	*v = 11

	v2, _ := tbl.Get(1)
	assert.Equal(t, 11, *v2)
}

func TestRemoveKeepsProbeChain(t *testing.T) {
	// Every key collides, so they all share one probe chain.
	h := registry.Hasher[int]{
		Hash:  func(int) uint32 { return 5 },
		Equal: func(a, b int) bool { return a == b },
	}
	tbl := registry.New[int, int](h)
	for i := 1; i <= 4; i++ {
		tbl.Put(i, i*100)
	}

	tbl.Remove(2)
	assert.Equal(t, 1, tbl.Tombstones())

	for _, k := range []int{1, 3, 4} {
		v, ok := tbl.Get(k)
		require.True(t, ok, "key %d lost after remove", k)
		assert.Equal(t, k*100, *v)
	}

	// The tombstone is reused by the next insert on the chain.
	tbl.Put(9, 900)
	assert.Equal(t, 0, tbl.Tombstones())
	v, ok := tbl.Get(9)
	require.True(t, ok)
	assert.Equal(t, 900, *v)
}

func TestGrowthKeepsEntries(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	const n = 500
	for i := 1; i <= n; i++ {
		require.True(t, tbl.Put(i, -i))
	}
	assert.Equal(t, n, tbl.Len())
	assert.Less(t, float64(tbl.Len()), float64(tbl.Cap())*registry.MaxLoad+1)

	for i := 1; i <= n; i++ {
		v, ok := tbl.Get(i)
		require.True(t, ok)
		assert.Equal(t, -i, *v)
	}
}

func TestShrinkAfterMassRemoval(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	for i := 0; i < 200; i++ {
		tbl.Put(i, i)
	}
	grown := tbl.Cap()
	for i := 0; i < 198; i++ {
		tbl.Remove(i)
	}
	// Shrinking is evaluated on Put.
	tbl.Put(1000, 1000)
	assert.Less(t, tbl.Cap(), grown)
	assert.Equal(t, 0, tbl.Tombstones())

	for _, k := range []int{198, 199, 1000} {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, k, *v)
	}
}

func TestNeverShrinksToZero(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	tbl.Put(1, 1)
	tbl.Remove(1)
	tbl.Put(2, 2)
	assert.Equal(t, registry.GrowthStep, tbl.Cap())
}

func TestTombstoneChurnTerminates(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	for i := 1; i <= 10000; i++ {
		tbl.Put(i, i)
		tbl.Remove(i)
	}
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Get(123456)
	assert.False(t, ok)
}

func TestStringKeysRequireExactMatch(t *testing.T) {
	tbl := registry.New[string, int](registry.StringHasher())
	tbl.Put("/chat", 1)

	_, ok := tbl.Get("/chatroom")
	assert.False(t, ok)
	_, ok = tbl.Get("/cha")
	assert.False(t, ok)
	v, ok := tbl.Get("/chat")
	require.True(t, ok)
	assert.Equal(t, 1, *v)
}

func TestForEachAndDestroy(t *testing.T) {
	tbl := registry.New[string, int](registry.StringHasher())
	for i := 0; i < 40; i++ {
		tbl.Put(fmt.Sprintf("k%d", i), i)
	}
	tbl.Remove("k3")

	seen := map[string]int{}
	tbl.ForEach(func(k string, v *int) { seen[k] = *v })
	assert.Len(t, seen, 39)
	assert.NotContains(t, seen, "k3")

	released := 0
	tbl.Destroy(func(string, *int) { released++ })
	assert.Equal(t, 39, released)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.Cap())
}

func TestClearKeepsCapacity(t *testing.T) {
	tbl := registry.New[int, int](registry.IntHasher())
	for i := 0; i < 50; i++ {
		tbl.Put(i, i)
	}
	c := tbl.Cap()
	tbl.Clear()
	assert.Equal(t, c, tbl.Cap())
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Get(10)
	assert.False(t, ok)
}

// TestMatchesMapModel replays random put/remove sequences against a Go map.
func TestMatchesMapModel(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		tbl := registry.New[int, int](registry.IntHasher())
		model := map[int]int{}

		for step := 0; step < 5000; step++ {
			k := rng.Intn(300) - 20
			if rng.Intn(3) == 0 {
				tbl.Remove(k)
				delete(model, k)
				_, ok := tbl.Get(k)
				require.False(t, ok, "seed %d step %d: key %d present after remove", seed, step, k)
				continue
			}
			v := rng.Int()
			_, existed := model[k]
			require.Equal(t, !existed, tbl.Put(k, v))
			model[k] = v
			got, ok := tbl.Get(k)
			require.True(t, ok)
			require.Equal(t, v, *got)
		}

		require.Equal(t, len(model), tbl.Len())
		for k, v := range model {
			got, ok := tbl.Get(k)
			require.True(t, ok)
			require.Equal(t, v, *got)
		}
	}
}
