// Copyright 2026 The fspotfs Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"sync"
)

// opKind identifies the logical operation a memo entry belongs to.
// Keys are typed tuples of (operation, arguments) so that distinct
// operations whose arguments coincide can never collide.
type opKind uint8

const (
	opTagID opKind = iota
	opTagNames
	opChildNames
	opDescendants
	opAllPhotos
	opTagPhotos
	opLink
)

// memoKey is the cache key: the operation plus its positional
// arguments. Unused argument slots stay at their zero value. Tag ids
// in the database start at 1, so id 0 doubles as "no tag".
type memoKey struct {
	op   opKind
	id   int64
	name string
}

// memo is an unbounded process-lifetime cache. There is no eviction,
// no TTL, and no invalidation: entries are valid as long as the
// backing database does not change, which holds for one mounted
// session of a read-only store.
type memo struct {
	mu      sync.RWMutex
	entries map[memoKey]any
}

func newMemo() *memo {
	return &memo{entries: make(map[memoKey]any)}
}

// len reports the number of cached entries.
func (m *memo) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// memoized returns the cached value for key, computing and storing it
// on a miss. Errors are never cached.
//
// Concurrent calls with the same key may each run compute (the results
// are pure, so the redundancy is harmless), but only the first value
// stored is ever returned: callers racing on one key all observe the
// same result object.
func memoized[V any](ctx context.Context, m *memo, key memoKey, compute func(context.Context) (V, error)) (V, error) {
	m.mu.RLock()
	cached, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return cached.(V), nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prior, ok := m.entries[key]; ok {
		return prior.(V), nil
	}
	m.entries[key] = value
	return value, nil
}
