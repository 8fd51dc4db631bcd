// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"testing"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
	"github.com/stretchr/testify/require"
)

func testGenesis() graph.Genesis {
	return graph.Genesis{
		SchemaId: common.SchemaId(common.TaggedHash("test:schema", nil)),
		Metadata: []byte("asset"),
		OwnedRights: []graph.Assignment{{
			Type: 1,
			Allocations: []graph.Allocation{{
				Seal:  graph.NewTxoutSeal(common.Txid{1}, 0, 7),
				State: []byte{100},
			}},
		}},
	}
}

func testStateTransition(i byte) graph.Transition {
	return graph.Transition{
		Type:     1,
		Metadata: []byte{i},
		OwnedRights: []graph.Assignment{{
			Type: 1,
			Allocations: []graph.Allocation{{
				Seal:  graph.NewWitnessSeal(0, uint64(i)),
				State: []byte{i},
			}},
		}},
	}
}

func TestContractState_InitializedFromGenesis(t *testing.T) {
	require := require.New(t)

	genesis := testGenesis()
	state := NewContractState(genesis.ContractId(), genesis)

	require.Equal(genesis.ContractId(), state.ContractId)
	require.Equal(genesis.SchemaId, state.SchemaId)
	require.Len(state.Owned, 1)
	require.Equal(common.NodeId(genesis.ContractId()), state.Owned[0].Node)
}

func TestContractState_FoldResolvesWitnessSeals(t *testing.T) {
	require := require.New(t)

	genesis := testGenesis()
	state := NewContractState(genesis.ContractId(), genesis)

	witness := common.Txid(common.TaggedHash("test:txid", []byte{1}))
	transition := testStateTransition(1)
	state.AddTransition(witness, transition)

	owned := state.OwnedByType(1)
	require.Len(owned, 2)
	for _, entry := range owned {
		if entry.Node != transition.NodeId() {
			continue
		}
		require.Equal(graph.SealRevealedTxout, entry.Seal.Kind)
		require.Equal(witness, entry.Seal.Txid)
	}
}

func TestContractState_FoldIsIdempotent(t *testing.T) {
	require := require.New(t)

	genesis := testGenesis()
	state := NewContractState(genesis.ContractId(), genesis)

	witness := common.Txid{9}
	transition := testStateTransition(1)
	state.AddTransition(witness, transition)
	before := len(state.Owned)
	state.AddTransition(witness, transition)
	require.Equal(before, len(state.Owned))
}

func TestContractState_FoldIsOrderIndependent(t *testing.T) {
	require := require.New(t)

	genesis := testGenesis()
	witness := common.Txid{9}
	t1 := testStateTransition(1)
	t2 := testStateTransition(2)

	a := NewContractState(genesis.ContractId(), genesis)
	a.AddTransition(witness, t1)
	a.AddTransition(witness, t2)

	b := NewContractState(genesis.ContractId(), genesis)
	b.AddTransition(witness, t2)
	b.AddTransition(witness, t1)

	require.Equal(a.Owned, b.Owned)
}

func TestContractState_ExtensionsFoldWithoutWitness(t *testing.T) {
	require := require.New(t)

	genesis := testGenesis()
	state := NewContractState(genesis.ContractId(), genesis)

	extension := graph.Extension{
		Type: 1,
		OwnedRights: []graph.Assignment{{
			Type: 2,
			Allocations: []graph.Allocation{{
				Seal:  graph.NewWitnessSeal(1, 3),
				State: []byte{5},
			}},
		}},
	}
	state.AddExtension(extension)

	owned := state.OwnedByType(2)
	require.Len(owned, 1)
	require.Equal(graph.SealRevealedWitness, owned[0].Seal.Kind)
}

func TestContractState_MergeUnionsSnapshots(t *testing.T) {
	require := require.New(t)

	genesis := testGenesis()
	witness := common.Txid{9}

	a := NewContractState(genesis.ContractId(), genesis)
	a.AddTransition(witness, testStateTransition(1))

	b := NewContractState(genesis.ContractId(), genesis)
	b.AddTransition(witness, testStateTransition(2))

	merged, err := a.MergeReveal(*b)
	require.NoError(err)
	require.Len(merged.Owned, 3) // genesis + both transitions

	other := NewContractState(common.ContractId{42}, testGenesis())
	_, err = a.MergeReveal(*other)
	require.ErrorIs(err, graph.ErrNodeMergeConflict)
}
