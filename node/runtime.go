// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package node is the state-processing core of the stash daemon: it ingests
// incoming consignments into the stash and the per-contract state projection,
// and composes outgoing consignments proving provenance of selected outputs
// while concealing unrelated branches.
package node

import (
	"sort"
	"sync"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/stash"
	"github.com/0xsoniclabs/stashd/state"
	"github.com/0xsoniclabs/stashd/validation"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// stateCacheSize bounds the number of contract state projections kept in
// memory.
const stateCacheSize = 128

// Runtime owns all stash access of the node. Operations against the same
// contract are serialized by a per-contract lock: ingest and compose both run
// read-then-merge sequences over multiple keys, and the store only guarantees
// atomic point operations. Different contracts proceed fully in parallel.
type Runtime struct {
	db        *stash.DB
	validator validation.Validator
	chain     validation.ChainAccess
	states    *lru.Cache[common.ContractId, *state.ContractState]
	locks     sync.Map // common.ContractId -> *sync.Mutex
	log       log.Logger
}

// NewRuntime creates a runtime over the given stash. The chain access handle
// may be nil when no base-ledger source is available; it is only ever passed
// through to the validator.
func NewRuntime(db *stash.DB, validator validation.Validator, chain validation.ChainAccess) (*Runtime, error) {
	states, err := lru.New[common.ContractId, *state.ContractState](stateCacheSize)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		db:        db,
		validator: validator,
		chain:     chain,
		states:    states,
		log:       log.New("module", "stashd"),
	}, nil
}

// Close releases the underlying stash.
func (r *Runtime) Close() error {
	return r.db.Close()
}

func (r *Runtime) lockContract(id common.ContractId) func() {
	entry, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu := entry.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Contracts lists all known contract ids in byte order.
func (r *Runtime) Contracts() ([]common.ContractId, error) {
	keys, err := r.db.KeysOf(stash.TableContracts)
	if err != nil {
		return nil, err
	}
	ids := make([]common.ContractId, 0, len(keys))
	for _, key := range keys {
		if len(key) != 32 {
			continue
		}
		ids = append(ids, common.ContractId(key))
	}
	sort.Slice(ids, func(i, j int) bool {
		return common.CompareNodeIds(common.NodeId(ids[i]), common.NodeId(ids[j])) < 0
	})
	return ids, nil
}

// ContractState returns the folded state projection of a contract. The
// returned snapshot must be treated as read-only.
func (r *Runtime) ContractState(id common.ContractId) (*state.ContractState, error) {
	unlock := r.lockContract(id)
	defer unlock()

	contractState, err := r.loadState(id)
	if err != nil {
		return nil, err
	}
	if contractState == nil {
		return nil, ErrGenesisAbsent
	}
	return contractState, nil
}

// loadState fetches the contract state through the cache; nil when the
// contract is unknown.
func (r *Runtime) loadState(id common.ContractId) (*state.ContractState, error) {
	if cached, ok := r.states.Get(id); ok {
		return cached, nil
	}
	stored, found, err := stash.Retrieve[state.ContractState](r.db, stash.TableContracts, id[:])
	if err != nil || !found {
		return nil, err
	}
	r.states.Add(id, stored)
	return stored, nil
}
