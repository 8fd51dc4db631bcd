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
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Table names a logical table of the stash. Tables share one KVStore; each
// key is prefixed by its table tag.
type Table byte

const (
	// TableSchemata stores schema declarations keyed by schema id.
	TableSchemata Table = iota + 1
	// TableGenesis stores contract genesis nodes keyed by contract id.
	TableGenesis
	// TableAnchors stores full-block anchors keyed by witness txid.
	TableAnchors
	// TableBundles stores concealed transition bundles keyed by witness txid.
	TableBundles
	// TableTransitions stores transitions keyed by node id.
	TableTransitions
	// TableTransitionWitness maps transition node ids to their witness txid.
	TableTransitionWitness
	// TableContractTransitions indexes transition ids by contract id and
	// transition type.
	TableContractTransitions
	// TableContracts stores folded contract state keyed by contract id.
	TableContracts
	// TableExtensions stores state extensions keyed by node id.
	TableExtensions
)

func (t Table) String() string {
	switch t {
	case TableSchemata:
		return "schemata"
	case TableGenesis:
		return "genesis"
	case TableAnchors:
		return "anchors"
	case TableBundles:
		return "bundles"
	case TableTransitions:
		return "transitions"
	case TableTransitionWitness:
		return "transition-witness"
	case TableContractTransitions:
		return "contract-transitions"
	case TableContracts:
		return "contracts"
	case TableExtensions:
		return "extensions"
	}
	return fmt.Sprintf("table(%d)", byte(t))
}

func (t Table) key(key []byte) []byte {
	out := make([]byte, 0, len(key)+1)
	out = append(out, byte(t))
	return append(out, key...)
}

// IndexKey builds the composite key of the per-contract-per-type transition
// index.
func IndexKey(contract common.ContractId, kind uint16) []byte {
	key := make([]byte, 34)
	copy(key, contract[:])
	binary.BigEndian.PutUint16(key[32:], kind)
	return key
}

// DB is the typed stash layer over a raw KVStore.
type DB struct {
	kv KVStore
}

// NewDB wraps a KVStore into a typed stash handle.
func NewDB(kv KVStore) *DB {
	return &DB{kv: kv}
}

// Close releases the underlying store.
func (db *DB) Close() error {
	return db.kv.Close()
}

// KeysOf lists all keys of a table, table prefix stripped, in byte order.
func (db *DB) KeysOf(table Table) ([][]byte, error) {
	prefixed, err := db.kv.Keys([]byte{byte(table)})
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, len(prefixed))
	for i, key := range prefixed {
		keys[i] = key[1:]
	}
	return keys, nil
}

// Retrieve loads and decodes the value stored under (table, key). The second
// return is false when the key is absent.
func Retrieve[T any](db *DB, table Table, key []byte) (*T, bool, error) {
	data, err := db.kv.Get(table.key(key))
	if err == ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value := new(T)
	if err := rlp.DecodeBytes(data, value); err != nil {
		return nil, false, fmt.Errorf("decoding %s value: %w", table, err)
	}
	return value, true, nil
}

// Store encodes and stores the value under (table, key), overwriting any
// prior value.
func Store[T any](db *DB, table Table, key []byte, value *T) error {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("encoding %s value: %w", table, err)
	}
	return db.kv.Set(table.key(key), data)
}

// Mergeable is implemented by values that can combine two revelations of the
// same content into one.
type Mergeable[T any] interface {
	MergeReveal(other T) (T, error)
}

// StoreMerge stores the value under (table, key), combining it with any prior
// value so replays of the same proof data from different peers never regress
// stored content.
func StoreMerge[T Mergeable[T]](db *DB, table Table, key []byte, value T) error {
	prior, found, err := Retrieve[T](db, table, key)
	if err != nil {
		return err
	}
	if found {
		value, err = value.MergeReveal(*prior)
		if err != nil {
			return fmt.Errorf("merging %s value: %w", table, err)
		}
	}
	return Store(db, table, key, &value)
}

// nodeIdSet is the stored form of an id set: sorted, duplicate-free.
type nodeIdSet struct {
	Ids []common.NodeId
}

// InsertIntoSet inserts the id into the set stored under (table, key).
// Idempotent set union.
func InsertIntoSet(db *DB, table Table, key []byte, id common.NodeId) error {
	set, found, err := Retrieve[nodeIdSet](db, table, key)
	if err != nil {
		return err
	}
	if !found {
		set = &nodeIdSet{}
	}
	pos := sort.Search(len(set.Ids), func(i int) bool {
		return common.CompareNodeIds(set.Ids[i], id) >= 0
	})
	if pos < len(set.Ids) && set.Ids[pos] == id {
		return nil
	}
	set.Ids = append(set.Ids, common.NodeId{})
	copy(set.Ids[pos+1:], set.Ids[pos:])
	set.Ids[pos] = id
	return Store(db, table, key, set)
}

// RetrieveSet loads the id set stored under (table, key); absent keys yield
// an empty set.
func RetrieveSet(db *DB, table Table, key []byte) ([]common.NodeId, error) {
	set, found, err := Retrieve[nodeIdSet](db, table, key)
	if err != nil || !found {
		return nil, err
	}
	return set.Ids, nil
}
