// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state maintains the folded projection of a contract: genesis plus
// every transition and extension merged so far. The fold is a keyed set
// union, so it is commutative and idempotent; folding the nodes of
// independent branches in any order yields the same snapshot.
package state

import (
	"sort"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
)

// OwnedState is one materialized owned-state entry: the producing node
// output, the right type, the seal it is assigned to (with witness-relative
// seals resolved to their concrete txid where known), and the opaque state
// payload.
type OwnedState struct {
	Node       common.NodeId
	Index      uint16 // owned-rights position within the node
	Allocation uint16 // allocation position within the assignment
	Type       graph.OwnedRightType
	Seal       graph.Seal
	State      []byte
}

func (o OwnedState) key() [36]byte {
	var key [36]byte
	copy(key[:32], o.Node[:])
	key[32] = byte(o.Index >> 8)
	key[33] = byte(o.Index)
	key[34] = byte(o.Allocation >> 8)
	key[35] = byte(o.Allocation)
	return key
}

// ContractState is the folded projection of a contract, persisted keyed by
// contract id. Entries are kept sorted by producing outpoint so the encoding
// is deterministic.
type ContractState struct {
	ContractId common.ContractId
	SchemaId   common.SchemaId
	Metadata   []byte
	Owned      []OwnedState
}

// NewContractState initializes the projection from a contract genesis; used
// on first sight of a contract.
func NewContractState(contractId common.ContractId, genesis graph.Genesis) *ContractState {
	state := &ContractState{
		ContractId: contractId,
		SchemaId:   genesis.SchemaId,
		Metadata:   genesis.Metadata,
	}
	state.fold(common.NodeId(contractId), genesis.OwnedRights, nil)
	return state
}

// AddTransition folds one transition into the snapshot. Witness-relative
// seals are resolved against the anchoring witness transaction.
func (s *ContractState) AddTransition(witness common.Txid, transition graph.Transition) {
	s.fold(transition.NodeId(), transition.OwnedRights, &witness)
}

// AddExtension folds one state extension into the snapshot. Extensions carry
// no witness transaction, so witness-relative seals stay unresolved.
func (s *ContractState) AddExtension(extension graph.Extension) {
	s.fold(extension.NodeId(), extension.OwnedRights, nil)
}

func (s *ContractState) fold(node common.NodeId, rights []graph.Assignment, witness *common.Txid) {
	for index, assignment := range rights {
		for allocation, entry := range assignment.Allocations {
			seal := entry.Seal
			if witness != nil && seal.Kind == graph.SealRevealedWitness {
				seal = graph.NewTxoutSeal(*witness, seal.Vout, seal.Blinding)
			}
			s.insert(OwnedState{
				Node:       node,
				Index:      uint16(index),
				Allocation: uint16(allocation),
				Type:       assignment.Type,
				Seal:       seal,
				State:      entry.State,
			})
		}
	}
}

// insert adds the entry unless its outpoint key is already present; a
// re-folded node with more revealed seal data replaces the prior entry.
func (s *ContractState) insert(entry OwnedState) {
	key := entry.key()
	pos := sort.Search(len(s.Owned), func(i int) bool {
		existing := s.Owned[i].key()
		return string(existing[:]) >= string(key[:])
	})
	if pos < len(s.Owned) && s.Owned[pos].key() == key {
		if entry.Seal.IsRevealed() && !s.Owned[pos].Seal.IsRevealed() {
			s.Owned[pos] = entry
		}
		return
	}
	s.Owned = append(s.Owned, OwnedState{})
	copy(s.Owned[pos+1:], s.Owned[pos:])
	s.Owned[pos] = entry
}

// Copy returns a snapshot-independent copy of the projection. Folding into
// the copy leaves the original untouched.
func (s *ContractState) Copy() *ContractState {
	return &ContractState{
		ContractId: s.ContractId,
		SchemaId:   s.SchemaId,
		Metadata:   s.Metadata,
		Owned:      append([]OwnedState(nil), s.Owned...),
	}
}

// OwnedByType returns the entries of one right type, in storage order.
func (s *ContractState) OwnedByType(t graph.OwnedRightType) []OwnedState {
	var out []OwnedState
	for _, entry := range s.Owned {
		if entry.Type == t {
			out = append(out, entry)
		}
	}
	return out
}

// MergeReveal combines two snapshots of the same contract; used by the stash
// merge path when independently derived states are stored.
func (s ContractState) MergeReveal(other ContractState) (ContractState, error) {
	if s.ContractId != other.ContractId {
		return ContractState{}, graph.ErrNodeMergeConflict
	}
	merged := ContractState{
		ContractId: s.ContractId,
		SchemaId:   s.SchemaId,
		Metadata:   s.Metadata,
		Owned:      append([]OwnedState(nil), s.Owned...),
	}
	for _, entry := range other.Owned {
		merged.insert(entry)
	}
	return merged, nil
}
