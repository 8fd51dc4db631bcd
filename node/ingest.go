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
	"fmt"

	"github.com/0xsoniclabs/stashd/graph"
	"github.com/0xsoniclabs/stashd/stash"
	"github.com/0xsoniclabs/stashd/state"
	"github.com/0xsoniclabs/stashd/validation"
)

// ProcessConsignment validates an incoming consignment and, if it is
// accepted, merges its content into the stash and the contract state
// projection. The consignment is rejected without any stash modification when
// validation fails, or when witness transactions remain unresolved and force
// is false. The returned status is always the validator's verdict; a non-nil
// error signals a stash fault, in which case partially persisted data is
// consistent but the state projection may not yet reflect all of it and will
// be completed by a replay of the same consignment.
func (r *Runtime) ProcessConsignment(consignment *graph.Consignment, force bool) (validation.Status, error) {
	contractId := consignment.ContractId()
	unlock := r.lockContract(contractId)
	defer unlock()

	r.log.Info("Processing consignment",
		"consignment", consignment.Id(),
		"contract", contractId,
		"purpose", consignment.Purpose,
	)

	status := r.validator.Validate(consignment, r.chain)
	switch status.Validity() {
	case validation.Valid:
	case validation.UnresolvedTransactions:
		if !force {
			r.log.Warn("Rejecting consignment with unresolved transactions",
				"consignment", consignment.Id(),
				"unresolved", len(status.UnresolvedTxids),
			)
			return status, nil
		}
		r.log.Warn("Forced import of consignment with unresolved transactions",
			"consignment", consignment.Id(),
			"unresolved", len(status.UnresolvedTxids),
		)
	default:
		r.log.Error("Rejecting invalid consignment",
			"consignment", consignment.Id(),
			"status", status,
		)
		return status, nil
	}

	contractState, err := r.loadState(contractId)
	if err != nil {
		return status, err
	}
	if contractState == nil {
		contractState = state.NewContractState(contractId, consignment.Genesis)
	} else {
		// Fold into a copy; the cache keeps the prior snapshot until the
		// whole consignment is persisted.
		contractState = contractState.Copy()
	}

	schemaId := consignment.Schema.SchemaId()
	if err := stash.Store(r.db, stash.TableSchemata, schemaId[:], &consignment.Schema); err != nil {
		return status, err
	}
	if consignment.RootSchema != nil {
		rootId := consignment.RootSchema.SchemaId()
		if err := stash.Store(r.db, stash.TableSchemata, rootId[:], consignment.RootSchema); err != nil {
			return status, err
		}
	}
	if err := stash.StoreMerge(r.db, stash.TableGenesis, contractId[:], consignment.Genesis); err != nil {
		return status, err
	}

	for _, anchored := range consignment.AnchoredBundles {
		bundleId := anchored.Bundle.BundleId()
		anchor, err := anchored.Anchor.RestoreBlock(contractId, bundleId)
		if err != nil {
			return status, fmt.Errorf("%w: witness %s bundle %s",
				ErrUnrelatedAnchor, anchored.Anchor.WitnessTxid, bundleId)
		}
		witness := anchor.WitnessTxid
		r.log.Debug("Processing anchored bundle",
			"witness", witness,
			"bundle", bundleId,
			"revealed", len(anchored.Bundle.Revealed),
			"concealed", len(anchored.Bundle.Concealed),
		)
		if err := stash.StoreMerge(r.db, stash.TableAnchors, witness[:], anchor); err != nil {
			return status, err
		}
		for _, entry := range anchored.Bundle.Revealed {
			transition := entry.Transition
			nodeId := transition.NodeId()
			contractState.AddTransition(witness, transition)
			if err := stash.StoreMerge(r.db, stash.TableTransitions, nodeId[:], transition); err != nil {
				return status, err
			}
			if err := stash.Store(r.db, stash.TableTransitionWitness, nodeId[:], &witness); err != nil {
				return status, err
			}
			index := stash.IndexKey(contractId, uint16(transition.Type))
			if err := stash.InsertIntoSet(r.db, stash.TableContractTransitions, index, nodeId); err != nil {
				return status, err
			}
		}
		if err := stash.Store(r.db, stash.TableBundles, witness[:], anchored.Bundle.ConcealAll()); err != nil {
			return status, err
		}
	}

	for _, extension := range consignment.Extensions {
		nodeId := extension.NodeId()
		contractState.AddExtension(extension)
		if err := stash.StoreMerge(r.db, stash.TableExtensions, nodeId[:], extension); err != nil {
			return status, err
		}
	}

	if err := stash.Store(r.db, stash.TableContracts, contractId[:], contractState); err != nil {
		return status, err
	}
	r.states.Add(contractId, contractState)

	r.log.Info("Consignment imported",
		"consignment", consignment.Id(),
		"contract", contractId,
		"bundles", len(consignment.AnchoredBundles),
	)
	return status, nil
}
