// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package node

import (
	"testing"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
	"github.com/0xsoniclabs/stashd/stash"
	"github.com/0xsoniclabs/stashd/validation"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testTxid(i byte) common.Txid {
	return common.Txid(common.TaggedHash("test:txid", []byte{i}))
}

// testRuntime is a runtime over an in-memory stash, with a handle on the raw
// store for byte-level assertions.
type testRuntime struct {
	*Runtime
	kv stash.KVStore
}

func newTestRuntime(t *testing.T, validator validation.Validator, chain validation.ChainAccess) testRuntime {
	t.Helper()
	kv := stash.NewMemoryStore()
	runtime, err := NewRuntime(stash.NewDB(kv), validator, chain)
	require.NoError(t, err)
	t.Cleanup(func() { _ = runtime.Close() })
	return testRuntime{Runtime: runtime, kv: kv}
}

// newValidRuntime is a runtime whose validator accepts everything.
func newValidRuntime(t *testing.T) testRuntime {
	t.Helper()
	ctrl := gomock.NewController(t)
	validator := validation.NewMockValidator(ctrl)
	validator.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(validation.Status{}).AnyTimes()
	return newTestRuntime(t, validator, nil)
}

// dump snapshots the full raw content of a store.
func dump(t *testing.T, kv stash.KVStore) map[string]string {
	t.Helper()
	keys, err := kv.Keys(nil)
	require.NoError(t, err)
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := kv.Get(key)
		require.NoError(t, err)
		out[string(key)] = string(value)
	}
	return out
}

// testContract is a small contract fixture: a genesis assigning one right to
// an explicit outpoint, and helpers to chain transitions off it.
type testContract struct {
	schema   graph.Schema
	genesis  graph.Genesis
	contract common.ContractId
}

func newTestContract() *testContract {
	schema := graph.Schema{
		TransitionTypes: []graph.TransitionType{1, 2, 3},
		OwnedRightTypes: []graph.OwnedRightType{1},
	}
	genesis := graph.Genesis{
		SchemaId: schema.SchemaId(),
		Metadata: []byte("test token"),
		OwnedRights: []graph.Assignment{{
			Type: 1,
			Allocations: []graph.Allocation{
				{Seal: graph.NewTxoutSeal(testTxid(100), 0, 1), State: []byte{100}},
			},
		}},
	}
	return &testContract{
		schema:   schema,
		genesis:  genesis,
		contract: genesis.ContractId(),
	}
}

// transition builds a transition of the given kind consuming the listed
// parent outputs and producing one witness-relative allocation per state
// value, at increasing vouts.
func (c *testContract) transition(kind graph.TransitionType, parents []graph.NodeOutpoint, states ...byte) graph.Transition {
	allocations := make([]graph.Allocation, len(states))
	for i, value := range states {
		allocations[i] = graph.Allocation{
			Seal:  graph.NewWitnessSeal(uint32(i), uint64(value)),
			State: []byte{value},
		}
	}
	return graph.Transition{
		Type:          kind,
		ParentOutputs: parents,
		OwnedRights:   []graph.Assignment{{Type: 1, Allocations: allocations}},
	}
}

func (c *testContract) genesisOutput() []graph.NodeOutpoint {
	return []graph.NodeOutpoint{{Node: common.NodeId(c.contract), Index: 0}}
}

// anchoredBundle bundles the transitions under one witness transaction and
// anchors the bundle for the fixture's contract, revealing every transition.
func (c *testContract) anchoredBundle(t *testing.T, witness common.Txid, transitions ...graph.Transition) graph.AnchoredBundle {
	t.Helper()
	entries := make([]graph.ConcealedEntry, len(transitions))
	for i, transition := range transitions {
		entries[i] = graph.ConcealedEntry{NodeId: transition.NodeId(), Inputs: []uint16{uint16(i)}}
	}
	bundle, err := graph.NewConcealedBundle(entries)
	require.NoError(t, err)
	for _, transition := range transitions {
		require.NoError(t, bundle.RevealTransition(transition))
	}
	anchor, err := graph.NewAnchor(witness, map[common.ContractId]common.BundleId{
		c.contract: bundle.BundleId(),
	})
	require.NoError(t, err)
	proof, err := anchor.ToProof(c.contract)
	require.NoError(t, err)
	return graph.AnchoredBundle{Anchor: proof, Bundle: *bundle}
}

// consignment wraps the anchored bundles into a transfer consignment without
// endpoints; ingest does not depend on them.
func (c *testContract) consignment(t *testing.T, bundles ...graph.AnchoredBundle) *graph.Consignment {
	t.Helper()
	consignment, err := graph.NewConsignment(graph.TransferConsignment,
		c.schema, nil, c.genesis, nil, nil, bundles, nil)
	require.NoError(t, err)
	return consignment
}
