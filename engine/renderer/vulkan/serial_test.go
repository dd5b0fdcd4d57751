package vulkan

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialFactoryIsMonotonic(t *testing.T) {
	factory := &SerialFactory{}
	previous := factory.Generate()
	for i := 0; i < 100; i++ {
		next := factory.Generate()
		assert.Greater(t, next, previous)
		previous = next
	}
}

func TestSerialFactoryUnderContention(t *testing.T) {
	factory := &SerialFactory{}

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	results := make([][]Serial, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				results[g] = append(results[g], factory.Generate())
			}
		}(g)
	}
	wg.Wait()

	var all []Serial
	for g := 0; g < goroutines; g++ {
		all = append(all, results[g]...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	require.Len(t, all, goroutines*perGoroutine)
	for i := range all {
		// No duplicates, no gaps.
		assert.Equal(t, Serial(i+1), all[i])
	}
}

func TestSerialSentinels(t *testing.T) {
	assert.False(t, SerialZero.Valid())
	assert.True(t, SerialInfinite.Valid())

	factory := &SerialFactory{}
	s := factory.Generate()
	assert.True(t, s.Valid())
	assert.Less(t, s, SerialInfinite)
}
