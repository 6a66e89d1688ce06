package engine

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnceGuard_FirstClaimWins(t *testing.T) {
	g := NewOnceGuard()

	assert.True(t, g.TryAcquire(1, "initial"))
	assert.False(t, g.TryAcquire(1, "initial"))
	assert.True(t, g.Claimed(1, "initial"))

	// Other keys and epochs are independent.
	assert.True(t, g.TryAcquire(1, "other"))
	assert.True(t, g.TryAcquire(2, "initial"))
	assert.Equal(t, 2, g.Size())
}

func TestOnceGuard_Clear(t *testing.T) {
	g := NewOnceGuard()
	g.TryAcquire(1, "initial")
	g.Clear(1)

	assert.False(t, g.Claimed(1, "initial"))
	assert.Equal(t, 0, g.Size())
	assert.True(t, g.TryAcquire(1, "initial"))
}

func TestOnceGuard_Concurrent(t *testing.T) {
	g := NewOnceGuard()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire(7, "initial") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
