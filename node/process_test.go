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

func TestProcessConsignment_ImportsContract(t *testing.T) {
	require := require.New(t)
	runtime := newValidRuntime(t)
	fixture := newTestContract()

	witness := testTxid(1)
	t1 := fixture.transition(1, fixture.genesisOutput(), 60, 40)
	consignment := fixture.consignment(t, fixture.anchoredBundle(t, witness, t1))

	status, err := runtime.ProcessConsignment(consignment, false)
	require.NoError(err)
	require.Equal(validation.Valid, status.Validity())

	contracts, err := runtime.Contracts()
	require.NoError(err)
	require.Equal([]common.ContractId{fixture.contract}, contracts)

	state, err := runtime.ContractState(fixture.contract)
	require.NoError(err)
	require.Equal(fixture.genesis.Metadata, state.Metadata)
	require.Len(state.Owned, 3) // one genesis output, two from t1

	// Witness-relative seals are resolved against the anchoring witness.
	for _, owned := range state.OwnedByType(1) {
		require.True(owned.Seal.IsRevealed())
		outpoint, ok := owned.Seal.Outpoint(common.Txid{})
		require.True(ok)
		if owned.Node == t1.NodeId() {
			require.Equal(witness, outpoint.Txid)
		}
	}
}

func TestProcessConsignment_StoresBundleConcealed(t *testing.T) {
	require := require.New(t)
	runtime := newValidRuntime(t)
	fixture := newTestContract()

	witness := testTxid(1)
	t1 := fixture.transition(1, fixture.genesisOutput(), 60)
	anchored := fixture.anchoredBundle(t, witness, t1)

	_, err := runtime.ProcessConsignment(fixture.consignment(t, anchored), false)
	require.NoError(err)

	stored, found, err := stash.Retrieve[graph.TransitionBundle](runtime.db, stash.TableBundles, witness[:])
	require.NoError(err)
	require.True(found)
	require.Empty(stored.Revealed)
	require.Equal(anchored.Bundle.BundleId(), stored.BundleId())

	// The full transition content lives in the transition table instead.
	nodeId := t1.NodeId()
	transition, found, err := stash.Retrieve[graph.Transition](runtime.db, stash.TableTransitions, nodeId[:])
	require.NoError(err)
	require.True(found)
	require.Equal(nodeId, transition.NodeId())
	require.NotEmpty(transition.OwnedRights)
}

func TestProcessConsignment_IsIdempotent(t *testing.T) {
	require := require.New(t)
	runtime := newValidRuntime(t)
	fixture := newTestContract()

	t1 := fixture.transition(1, fixture.genesisOutput(), 60)
	consignment := fixture.consignment(t, fixture.anchoredBundle(t, testTxid(1), t1))

	_, err := runtime.ProcessConsignment(consignment, false)
	require.NoError(err)
	first := dump(t, runtime.kv)

	_, err = runtime.ProcessConsignment(consignment, false)
	require.NoError(err)
	require.Equal(first, dump(t, runtime.kv))
}

func TestProcessConsignment_UnresolvedIsRejectedWithoutForce(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	fixture := newTestContract()
	witness := testTxid(1)

	validator := validation.NewMockValidator(ctrl)
	validator.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(validation.Status{UnresolvedTxids: []common.Txid{witness}}).AnyTimes()
	runtime := newTestRuntime(t, validator, nil)

	t1 := fixture.transition(1, fixture.genesisOutput(), 60)
	consignment := fixture.consignment(t, fixture.anchoredBundle(t, witness, t1))

	status, err := runtime.ProcessConsignment(consignment, false)
	require.NoError(err)
	require.Equal(validation.UnresolvedTransactions, status.Validity())
	require.Empty(dump(t, runtime.kv)) // nothing persisted

	status, err = runtime.ProcessConsignment(consignment, true)
	require.NoError(err)
	require.Equal(validation.UnresolvedTransactions, status.Validity())
	require.NotEmpty(dump(t, runtime.kv))
}

func TestProcessConsignment_InvalidIsRejected(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	fixture := newTestContract()

	validator := validation.NewMockValidator(ctrl)
	validator.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(validation.Status{Failures: []string{"schema mismatch"}}).AnyTimes()
	runtime := newTestRuntime(t, validator, nil)

	t1 := fixture.transition(1, fixture.genesisOutput(), 60)
	consignment := fixture.consignment(t, fixture.anchoredBundle(t, testTxid(1), t1))

	status, err := runtime.ProcessConsignment(consignment, true)
	require.NoError(err)
	require.Equal(validation.Invalid, status.Validity())
	require.Empty(dump(t, runtime.kv))
}

func TestProcessConsignment_RejectsUnrelatedAnchor(t *testing.T) {
	require := require.New(t)
	runtime := newValidRuntime(t)
	fixture := newTestContract()

	t1 := fixture.transition(1, fixture.genesisOutput(), 60)
	t2 := fixture.transition(2, fixture.genesisOutput(), 40)
	anchored := fixture.anchoredBundle(t, testTxid(1), t1)
	foreign := fixture.anchoredBundle(t, testTxid(1), t2)

	// The anchor of one bundle claimed for another does not restore.
	anchored.Anchor = foreign.Anchor
	_, err := runtime.ProcessConsignment(fixture.consignment(t, anchored), false)
	require.ErrorIs(err, ErrUnrelatedAnchor)
}

func TestProcessConsignment_MergesPartialReveals(t *testing.T) {
	require := require.New(t)
	runtime := newValidRuntime(t)
	fixture := newTestContract()

	witness := testTxid(1)
	t1 := fixture.transition(1, fixture.genesisOutput(), 60)
	t2 := fixture.transition(2, fixture.genesisOutput(), 40)
	full := fixture.anchoredBundle(t, witness, t1, t2)

	// Two independent imports, each revealing only one of the bundle's
	// transitions.
	revealOnly := func(keep graph.Transition) graph.AnchoredBundle {
		bundle := *full.Bundle.ConcealAll()
		require.NoError(bundle.RevealTransition(keep))
		return graph.AnchoredBundle{Anchor: full.Anchor, Bundle: bundle}
	}

	_, err := runtime.ProcessConsignment(fixture.consignment(t, revealOnly(t1)), false)
	require.NoError(err)
	_, err = runtime.ProcessConsignment(fixture.consignment(t, revealOnly(t2)), false)
	require.NoError(err)

	state, err := runtime.ContractState(fixture.contract)
	require.NoError(err)
	require.Len(state.Owned, 3) // genesis output plus one from each transition

	for _, transition := range []graph.Transition{t1, t2} {
		nodeId := transition.NodeId()
		_, found, err := stash.Retrieve[graph.Transition](runtime.db, stash.TableTransitions, nodeId[:])
		require.NoError(err)
		require.True(found)
	}
}

func TestContractState_UnknownContract(t *testing.T) {
	runtime := newValidRuntime(t)
	_, err := runtime.ContractState(newTestContract().contract)
	require.ErrorIs(t, err, ErrGenesisAbsent)
}
