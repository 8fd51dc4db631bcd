// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package stash implements the durable store for contract graph data:
// schemata, genesis, transitions, extensions, anchors, bundles, and derived
// indices. A raw key-value substrate (LevelDB, SQLite, or in-memory) is
// wrapped by a typed layer providing point get/put, value-merge-on-store for
// idempotent replay of the same proof data from different peers, and
// set-valued merge-insert for the type indices.
package stash

import (
	"sort"
	"sync"

	"github.com/0xsoniclabs/stashd/common"
)

const (
	// ErrNotFound is returned by KVStore.Get for absent keys.
	ErrNotFound = common.ConstError("not found")
)

// KVStore is the raw key-value substrate the stash is built on. Point
// operations are atomic; multi-key sequences are serialized by the caller.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error
	Keys(prefix []byte) ([][]byte, error)
	Close() error
}

// memoryStore is an in-memory KVStore for tests and ephemeral use.
type memoryStore struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemoryStore creates an empty in-memory KVStore.
func NewMemoryStore() KVStore {
	return &memoryStore{store: make(map[string][]byte)}
}

func (s *memoryStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.store[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *memoryStore) Set(key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(value))
	copy(copied, value)
	s.store[string(key)] = copied
	return nil
}

func (s *memoryStore) Keys(prefix []byte) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys [][]byte
	for key := range s.store {
		if len(key) >= len(prefix) && key[:len(prefix)] == string(prefix) {
			keys = append(keys, []byte(key))
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i]) < string(keys[j])
	})
	return keys, nil
}

func (s *memoryStore) Close() error {
	// No resources to clean up for in-memory store.
	return nil
}
