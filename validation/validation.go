// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package validation defines the validity verdict model for consignments and
// the interfaces toward the schema-level validator and the chain data source.
// Validation failures are result values, not errors: the state-processing
// core treats an Invalid verdict as a normal outcome to report, distinct from
// stash consistency faults.
package validation

import (
	"fmt"
	"strings"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
)

// Validity classifies the outcome of validating a consignment.
type Validity uint8

const (
	// Valid means every node checked out and every witness transaction is
	// confirmed on the base ledger.
	Valid Validity = iota
	// UnresolvedTransactions means the consignment is structurally valid but
	// some witness transactions could not be resolved (yet).
	UnresolvedTransactions
	// Invalid means the consignment failed validation; details are in the
	// status failures.
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case UnresolvedTransactions:
		return "unresolved transactions"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("validity(%d)", uint8(v))
}

// Status is the detailed validation verdict for one consignment.
type Status struct {
	Failures        []string
	Warnings        []string
	UnresolvedTxids []common.Txid
}

// Validity reduces the status to its classification.
func (s Status) Validity() Validity {
	if len(s.Failures) > 0 {
		return Invalid
	}
	if len(s.UnresolvedTxids) > 0 {
		return UnresolvedTransactions
	}
	return Valid
}

func (s Status) String() string {
	v := s.Validity()
	if v == Invalid {
		return fmt.Sprintf("%s: %s", v, strings.Join(s.Failures, "; "))
	}
	return v.String()
}

const (
	// ErrTxUnknown is returned by a ChainAccess for transactions it does not
	// know about.
	ErrTxUnknown = common.ConstError("transaction is not known to the chain source")
)

// ChainAccess is the handle to a base-ledger data source consulted during
// validation.
type ChainAccess interface {
	// Confirmations returns how many confirmations the transaction has, zero
	// if it is known but unconfirmed, or ErrTxUnknown.
	Confirmations(txid common.Txid) (int, error)
}

// Validator decides per-consignment validity. Implementations may consult the
// chain source; the call has no timeout of its own, callers imposing
// deadlines must wrap it.
type Validator interface {
	Validate(consignment *graph.Consignment, chain ChainAccess) Status
}
