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
	"fmt"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
)

// OfflineValidator performs the structural part of consignment validation:
// schema references, anchor coverage, endpoint consistency, and declared
// transition types. Witness transactions are resolved against the chain
// source when one is given; without one every witness transaction is reported
// unresolved, so an honest verdict for a structurally sound consignment is
// UnresolvedTransactions rather than Valid.
type OfflineValidator struct{}

// NewOfflineValidator creates a structural validator.
func NewOfflineValidator() *OfflineValidator {
	return &OfflineValidator{}
}

func (v *OfflineValidator) Validate(consignment *graph.Consignment, chain ChainAccess) Status {
	var status Status
	fail := func(format string, args ...any) {
		status.Failures = append(status.Failures, fmt.Sprintf(format, args...))
	}

	contractId := consignment.ContractId()

	if got := consignment.Schema.SchemaId(); got != consignment.Genesis.SchemaId {
		fail("genesis references schema %s but consignment carries %s",
			consignment.Genesis.SchemaId, got)
	}
	rootId := consignment.Schema.RootId
	switch {
	case rootId.IsZero() && consignment.RootSchema != nil:
		fail("consignment carries a root schema the schema does not declare")
	case !rootId.IsZero() && consignment.RootSchema == nil:
		fail("root schema %s is missing from the consignment", rootId)
	case consignment.RootSchema != nil && consignment.RootSchema.SchemaId() != rootId:
		fail("root schema id mismatch: declared %s, carried %s",
			rootId, consignment.RootSchema.SchemaId())
	}

	bundleIds := make(map[common.BundleId]bool, len(consignment.AnchoredBundles))
	for _, anchored := range consignment.AnchoredBundles {
		bundleId := anchored.Bundle.BundleId()
		bundleIds[bundleId] = true

		if _, err := anchored.Anchor.RestoreBlock(contractId, bundleId); err != nil {
			fail("anchor for txid %s does not cover bundle %s",
				anchored.Anchor.WitnessTxid, bundleId)
		}
		for _, entry := range anchored.Bundle.Revealed {
			if !consignment.Schema.DeclaresTransitionType(entry.Transition.Type) {
				fail("transition %s has undeclared type %d",
					entry.Transition.NodeId(), entry.Transition.Type)
			}
		}
	}

	for _, endpoint := range consignment.Endpoints {
		if !bundleIds[endpoint.BundleId] {
			fail("endpoint references unknown bundle %s", endpoint.BundleId)
		}
	}

	for _, anchored := range consignment.AnchoredBundles {
		txid := anchored.Anchor.WitnessTxid
		if chain == nil {
			status.UnresolvedTxids = append(status.UnresolvedTxids, txid)
			continue
		}
		confirmations, err := chain.Confirmations(txid)
		if err != nil || confirmations == 0 {
			status.UnresolvedTxids = append(status.UnresolvedTxids, txid)
		}
	}

	return status
}
