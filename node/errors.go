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
	"github.com/0xsoniclabs/stashd/common"
)

// Stash consistency faults. Each one signals a missing or mismatched graph
// dependency in the stash, so it indicates either a bug or tampered storage,
// never a condition a retry can recover from. They abort the whole ingest or
// compose operation and are wrapped with the offending identifier.
const (
	// ErrGenesisAbsent: the contract is unknown; it has likely not been
	// imported yet.
	ErrGenesisAbsent = common.ConstError("contract is unknown")

	// ErrSchemaAbsent: a referenced schema is missing from the stash.
	ErrSchemaAbsent = common.ConstError("schema is unknown")

	// ErrTransitionAbsent: an indexed or referenced transition is missing
	// from the stash.
	ErrTransitionAbsent = common.ConstError("transition is absent")

	// ErrWitnessAbsent: no witness txid is recorded for a transition.
	ErrWitnessAbsent = common.ConstError("witness txid is not known for transition")

	// ErrAnchorAbsent: no anchor is stored for a witness txid.
	ErrAnchorAbsent = common.ConstError("anchor is absent")

	// ErrBundleAbsent: no bundle data is stored for a witness txid.
	ErrBundleAbsent = common.ConstError("bundle data is absent")

	// ErrUnrelatedAnchor: an anchor's Merkle commitment does not cover the
	// bundle it is claimed to anchor.
	ErrUnrelatedAnchor = common.ConstError("anchor is not related to the contract")
)
