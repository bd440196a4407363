// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"slices"
	"sync"
)

// KeyedMutex serializes critical sections per string key. The scheduling
// service uses it to hold advisory locks on every participant affected by a
// mutation, so that a conflict check and the write it guards execute as one
// unit with respect to other mutations touching the same participants.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

func (km *KeyedMutex) lockFor(key string) *sync.Mutex {
	km.mu.Lock()
	defer km.mu.Unlock()

	lock, ok := km.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[key] = lock
	}
	return lock
}

// LockAll acquires the locks for every key and returns a function releasing
// them in reverse order. Keys are deduplicated and locked in sorted order so
// that overlapping key sets cannot deadlock against each other.
func (km *KeyedMutex) LockAll(keys []string) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	acquired := make([]*sync.Mutex, 0, len(sorted))
	for _, key := range sorted {
		lock := km.lockFor(key)
		lock.Lock()
		acquired = append(acquired, lock)
	}

	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}
