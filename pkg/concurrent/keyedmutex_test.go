// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var inCritical, maxInCritical int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.LockAll([]string{"user-1"})
			defer unlock()

			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInCritical, "only one goroutine may hold the same key")
}

func TestKeyedMutex_OverlappingKeySetsDoNotDeadlock(t *testing.T) {
	km := NewKeyedMutex()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		// Opposite orderings of the same keys; sorted acquisition must
		// prevent lock-order inversion.
		for range 50 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				unlock := km.LockAll([]string{"a", "b", "c"})
				unlock()
			}()
			go func() {
				defer wg.Done()
				unlock := km.LockAll([]string{"c", "b", "a"})
				unlock()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock between overlapping key sets")
	}
}

func TestKeyedMutex_DuplicateKeys(t *testing.T) {
	km := NewKeyedMutex()

	// Duplicate keys must be collapsed, otherwise this would self-deadlock.
	unlock := km.LockAll([]string{"x", "x", "x"})
	unlock()
}
