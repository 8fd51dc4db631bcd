// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package validation

import (
	"testing"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testConsignment(t *testing.T) *graph.Consignment {
	t.Helper()
	require := require.New(t)

	schema := graph.Schema{
		TransitionTypes: []graph.TransitionType{1},
		OwnedRightTypes: []graph.OwnedRightType{1},
	}
	genesis := graph.Genesis{
		SchemaId: schema.SchemaId(),
		OwnedRights: []graph.Assignment{{
			Type: 1,
			Allocations: []graph.Allocation{{
				Seal:  graph.NewTxoutSeal(common.Txid{1}, 0, 1),
				State: []byte{10},
			}},
		}},
	}
	transition := graph.Transition{
		Type: 1,
		OwnedRights: []graph.Assignment{{
			Type:        1,
			Allocations: []graph.Allocation{{Seal: graph.NewWitnessSeal(0, 2), State: []byte{10}}},
		}},
	}

	bundle, err := graph.NewConcealedBundle([]graph.ConcealedEntry{
		{NodeId: transition.NodeId(), Inputs: []uint16{0}},
	})
	require.NoError(err)
	require.NoError(bundle.RevealTransition(transition))

	witness := common.Txid(common.TaggedHash("test:witness", []byte{1}))
	anchor, err := graph.NewAnchor(witness, map[common.ContractId]common.BundleId{
		genesis.ContractId(): bundle.BundleId(),
	})
	require.NoError(err)
	proof, err := anchor.ToProof(genesis.ContractId())
	require.NoError(err)

	consignment, err := graph.NewConsignment(
		graph.TransferConsignment,
		schema,
		nil,
		genesis,
		[]graph.NodeOutpoint{{Node: transition.NodeId(), Index: 0}},
		[]graph.Endpoint{{BundleId: bundle.BundleId(), Seal: graph.SealEndpointFrom(graph.NewWitnessSeal(0, 2))}},
		[]graph.AnchoredBundle{{Anchor: proof, Bundle: *bundle}},
		nil,
	)
	require.NoError(err)
	return consignment
}

func TestOfflineValidator_StructurallySoundWithoutChainIsUnresolved(t *testing.T) {
	status := NewOfflineValidator().Validate(testConsignment(t), nil)
	require.Equal(t, UnresolvedTransactions, status.Validity())
	require.Len(t, status.UnresolvedTxids, 1)
}

func TestOfflineValidator_ConfirmedWitnessesAreValid(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	chain := NewMockChainAccess(ctrl)
	chain.EXPECT().Confirmations(gomock.Any()).Return(6, nil).AnyTimes()

	status := NewOfflineValidator().Validate(testConsignment(t), chain)
	require.Equal(Valid, status.Validity())
}

func TestOfflineValidator_UnknownWitnessesStayUnresolved(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	chain := NewMockChainAccess(ctrl)
	chain.EXPECT().Confirmations(gomock.Any()).Return(0, ErrTxUnknown).AnyTimes()

	status := NewOfflineValidator().Validate(testConsignment(t), chain)
	require.Equal(UnresolvedTransactions, status.Validity())
}

func TestOfflineValidator_DetectsSchemaMismatch(t *testing.T) {
	require := require.New(t)

	consignment := testConsignment(t)
	consignment.Schema.TransitionTypes = append(consignment.Schema.TransitionTypes, 9)

	status := NewOfflineValidator().Validate(consignment, nil)
	require.Equal(Invalid, status.Validity())
	require.NotEmpty(status.Failures)
}

func TestOfflineValidator_DetectsEndpointToUnknownBundle(t *testing.T) {
	require := require.New(t)

	consignment := testConsignment(t)
	consignment.Endpoints[0].BundleId = common.BundleId{0xde, 0xad}

	status := NewOfflineValidator().Validate(consignment, nil)
	require.Equal(Invalid, status.Validity())
}

func TestOfflineValidator_DetectsUndeclaredTransitionType(t *testing.T) {
	require := require.New(t)

	consignment := testConsignment(t)
	consignment.AnchoredBundles[0].Bundle.Revealed[0].Transition.Type = 99

	status := NewOfflineValidator().Validate(consignment, nil)
	require.Equal(Invalid, status.Validity())
}

func TestStatus_ValidityClassification(t *testing.T) {
	require := require.New(t)
	require.Equal(Valid, Status{}.Validity())
	require.Equal(UnresolvedTransactions, Status{UnresolvedTxids: []common.Txid{{1}}}.Validity())
	require.Equal(Invalid, Status{
		Failures:        []string{"broken"},
		UnresolvedTxids: []common.Txid{{1}},
	}.Validity())
}
