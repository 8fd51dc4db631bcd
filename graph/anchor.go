// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package graph

import (
	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/mpc"
)

// Anchor is the stored, full-block form of a multi-protocol commitment
// binding a witness transaction to bundle ids across possibly many contracts.
type Anchor struct {
	WitnessTxid common.Txid
	Block       *mpc.MerkleBlock
}

// AnchorProof is the consignment form of an anchor: a single-contract Merkle
// proof binding one bundle to the commitment root.
type AnchorProof struct {
	WitnessTxid common.Txid
	Root        [32]byte
	Proof       mpc.MerkleProof
}

// NewAnchor builds a fully revealed anchor committing each contract to its
// bundle under the given witness transaction.
func NewAnchor(witness common.Txid, bundles map[common.ContractId]common.BundleId) (Anchor, error) {
	messages := make(map[mpc.ProtocolId]mpc.Message, len(bundles))
	for contract, bundle := range bundles {
		messages[mpc.ProtocolId(contract)] = mpc.Message(bundle)
	}
	block, err := mpc.NewMerkleBlock(messages)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{WitnessTxid: witness, Block: block}, nil
}

// AnchorId identifies the anchor by its witness transaction and commitment
// root.
func (a Anchor) AnchorId() [32]byte {
	root := a.Block.Root()
	return common.TaggedHash("stashd:anchor", a.WitnessTxid[:], root[:])
}

// ToProof narrows the anchor to the single-contract proof form used inside
// outgoing consignments. Fails with mpc.ErrLeafNotKnown when the contract is
// not covered by the commitment.
func (a Anchor) ToProof(contract common.ContractId) (AnchorProof, error) {
	proof, err := a.Block.ToProof(mpc.ProtocolId(contract))
	if err != nil {
		return AnchorProof{}, err
	}
	return AnchorProof{
		WitnessTxid: a.WitnessTxid,
		Root:        a.Block.Root(),
		Proof:       *proof,
	}, nil
}

// RestoreBlock converts the proof back into a (partially concealed) block
// form scoped to the given contract and bundle. It fails when the proof does
// not actually bind that pair to the commitment root.
func (p AnchorProof) RestoreBlock(contract common.ContractId, bundle common.BundleId) (Anchor, error) {
	block, err := mpc.BlockFromProof(mpc.ProtocolId(contract), mpc.Message(bundle), &p.Proof)
	if err != nil {
		return Anchor{}, err
	}
	if block.Root() != p.Root {
		return Anchor{}, mpc.ErrInvalidProof
	}
	return Anchor{WitnessTxid: p.WitnessTxid, Block: block}, nil
}

// MergeReveal combines the revealed knowledge of two stored forms of the same
// anchor.
func (a Anchor) MergeReveal(other Anchor) (Anchor, error) {
	if a.WitnessTxid != other.WitnessTxid {
		return Anchor{}, ErrNodeMergeConflict
	}
	block, err := a.Block.MergeReveal(other.Block)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{WitnessTxid: a.WitnessTxid, Block: block}, nil
}

// CoveredBundle returns the bundle id the anchor commits to for the given
// contract, if that leaf is revealed.
func (a Anchor) CoveredBundle(contract common.ContractId) (common.BundleId, bool) {
	message, ok := a.Block.Known(mpc.ProtocolId(contract))
	return common.BundleId(message), ok
}
