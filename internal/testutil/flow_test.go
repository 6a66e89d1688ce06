package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDs_Sequential(t *testing.T) {
	ids := NewSequenceIDs("req")

	assert.Equal(t, "req-0001", ids.Next())
	assert.Equal(t, "req-0002", ids.Generate())

	ids.Reset()
	assert.Equal(t, "req-0001", ids.Next())
}

func TestSequenceIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "id-0001", NewSequenceIDs("").Next())
}

func TestSequenceIDs_ConcurrentUnique(t *testing.T) {
	ids := NewSequenceIDs("c")
	const n = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}
