// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package stash

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDbStore is the primary durable KVStore implementation using LevelDB.
type levelDbStore struct {
	db *leveldb.DB
}

// NewLevelDbStore opens (or creates) a LevelDB-backed store at the given
// directory. A non-positive cache size leaves LevelDB's default in place.
func NewLevelDbStore(path string, cacheBytes int) (KVStore, error) {
	options := &opt.Options{}
	if cacheBytes > 0 {
		options.BlockCacheCapacity = cacheBytes
	}
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, err
	}
	return &levelDbStore{db: db}, nil
}

func (s *levelDbStore) Get(key []byte) ([]byte, error) {
	data, err := s.db.Get(key, &opt.ReadOptions{})
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *levelDbStore) Set(key []byte, value []byte) error {
	return s.db.Put(key, value, &opt.WriteOptions{})
}

func (s *levelDbStore) Keys(prefix []byte) ([][]byte, error) {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), &opt.ReadOptions{})
	defer iter.Release()
	var keys [][]byte
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		keys = append(keys, key)
	}
	return keys, iter.Error()
}

func (s *levelDbStore) Close() error {
	return s.db.Close()
}
