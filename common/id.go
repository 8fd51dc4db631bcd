// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Identifiers used throughout the stash are 32-byte content hashes. Equality
// is byte equality; ordering is only used for deterministic iteration.

// ContractId identifies a contract; it is derived from the contract genesis.
type ContractId [32]byte

// SchemaId identifies a schema by the hash of its declaration.
type SchemaId [32]byte

// NodeId identifies a single graph node (genesis, transition, or extension).
type NodeId [32]byte

// BundleId identifies a transition bundle independently of how many of its
// transitions are revealed.
type BundleId [32]byte

// Txid identifies a witness transaction on the base ledger.
type Txid [32]byte

func (id ContractId) String() string { return hex.EncodeToString(id[:]) }
func (id SchemaId) String() string   { return hex.EncodeToString(id[:]) }
func (id NodeId) String() string     { return hex.EncodeToString(id[:]) }
func (id BundleId) String() string   { return hex.EncodeToString(id[:]) }
func (id Txid) String() string       { return hex.EncodeToString(id[:]) }

// IsZero reports whether the identifier is all zero bytes. A zero SchemaId
// marks the absence of a root schema reference.
func (id SchemaId) IsZero() bool {
	return id == SchemaId{}
}

// CompareNodeIds orders node identifiers lexicographically. The order carries
// no protocol meaning, it only makes iteration deterministic.
func CompareNodeIds(a, b NodeId) int {
	return bytes.Compare(a[:], b[:])
}

// CompareTxids orders witness transaction ids lexicographically.
func CompareTxids(a, b Txid) int {
	return bytes.Compare(a[:], b[:])
}

func parseId(s string) ([32]byte, error) {
	var id [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("invalid identifier %q: expected 32 bytes, got %d", s, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// ParseContractId decodes a hex-encoded contract identifier.
func ParseContractId(s string) (ContractId, error) {
	id, err := parseId(s)
	return ContractId(id), err
}

// ParseTxid decodes a hex-encoded transaction identifier.
func ParseTxid(s string) (Txid, error) {
	id, err := parseId(s)
	return Txid(id), err
}

// TaggedHash computes a BIP-340 style tagged SHA-256 hash over the given data
// chunks. All content-addressed identifiers of the graph are derived this way,
// each with its own domain tag, so commitments to different object kinds can
// never collide.
func TaggedHash(tag string, data ...[]byte) [32]byte {
	t := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(t[:])
	h.Write(t[:])
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
