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
	"encoding/binary"
	"fmt"

	"github.com/0xsoniclabs/stashd/common"
)

// SealKind discriminates the representation of a single-use seal.
type SealKind uint8

const (
	// SealRevealedTxout is a revealed seal over an explicit transaction output.
	SealRevealedTxout SealKind = iota
	// SealRevealedWitness is a revealed seal over an output of the witness
	// transaction anchoring the node; the txid is implied by the bundle.
	SealRevealedWitness
	// SealConcealed carries only the commitment to the seal.
	SealConcealed
)

// Seal commits a produced assignment to a specific transaction output. A seal
// is either revealed, naming the output it commits to, or concealed, carrying
// the commitment hash only.
type Seal struct {
	Kind       SealKind
	Txid       common.Txid // SealRevealedTxout only
	Vout       uint32      // revealed kinds
	Blinding   uint64      // revealed kinds
	Commitment [32]byte    // SealConcealed only
}

// NewTxoutSeal creates a revealed seal over an explicit output.
func NewTxoutSeal(txid common.Txid, vout uint32, blinding uint64) Seal {
	return Seal{Kind: SealRevealedTxout, Txid: txid, Vout: vout, Blinding: blinding}
}

// NewWitnessSeal creates a revealed seal over an output of the (yet unnamed)
// witness transaction.
func NewWitnessSeal(vout uint32, blinding uint64) Seal {
	return Seal{Kind: SealRevealedWitness, Vout: vout, Blinding: blinding}
}

// IsRevealed reports whether the concrete output of the seal is known.
func (s Seal) IsRevealed() bool {
	return s.Kind != SealConcealed
}

// Outpoint resolves the concrete chain output the seal commits to, defaulting
// to the witness transaction for witness-relative seals. The second return is
// false for concealed seals.
func (s Seal) Outpoint(witness common.Txid) (Outpoint, bool) {
	switch s.Kind {
	case SealRevealedTxout:
		return Outpoint{Txid: s.Txid, Vout: s.Vout}, true
	case SealRevealedWitness:
		return Outpoint{Txid: witness, Vout: s.Vout}, true
	}
	return Outpoint{}, false
}

// Conceal reduces the seal to its commitment-only form. The commitment is
// stable across reveal states, making node ids reveal-invariant.
func (s Seal) Conceal() Seal {
	if s.Kind == SealConcealed {
		return s
	}
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], s.Vout)
	binary.BigEndian.PutUint64(buf[4:], s.Blinding)
	var commitment [32]byte
	if s.Kind == SealRevealedTxout {
		commitment = common.TaggedHash("stashd:seal:txout", s.Txid[:], buf[:])
	} else {
		commitment = common.TaggedHash("stashd:seal:witness", buf[:])
	}
	return Seal{Kind: SealConcealed, Commitment: commitment}
}

// mergeSeals combines the reveal information of two forms of the same seal.
func mergeSeals(a, b Seal) (Seal, error) {
	if a.Conceal() != b.Conceal() {
		return Seal{}, ErrNodeMergeConflict
	}
	if a.IsRevealed() {
		return a, nil
	}
	return b, nil
}

// SealEndpoint is the consignment-side form of a disclosed seal: either the
// concealed commitment, or an output of the recipient's witness transaction.
type SealEndpoint struct {
	Concealed  bool
	Commitment [32]byte // concealed form
	Vout       uint32   // witness-relative form
	Blinding   uint64
}

// SealEndpointFrom derives the endpoint disclosed to a counterparty from a
// revealed seal. Witness-relative seals stay structural, explicit outputs are
// disclosed by commitment only.
func SealEndpointFrom(seal Seal) SealEndpoint {
	if seal.Kind == SealRevealedWitness {
		return SealEndpoint{Vout: seal.Vout, Blinding: seal.Blinding}
	}
	concealed := seal.Conceal()
	return SealEndpoint{Concealed: true, Commitment: concealed.Commitment}
}

// Outpoint addresses one output of a base-ledger transaction.
type Outpoint struct {
	Txid common.Txid
	Vout uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid, o.Vout)
}

// ParseOutpoint decodes the "txid:vout" form used on the command line.
func ParseOutpoint(s string) (Outpoint, error) {
	var out Outpoint
	sep := -1
	for i, c := range s {
		if c == ':' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return out, fmt.Errorf("invalid outpoint %q: expected txid:vout", s)
	}
	txid, err := common.ParseTxid(s[:sep])
	if err != nil {
		return out, err
	}
	var vout uint32
	if _, err := fmt.Sscanf(s[sep+1:], "%d", &vout); err != nil {
		return out, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	return Outpoint{Txid: txid, Vout: vout}, nil
}

// NodeOutpoint addresses one produced assignment of a graph node.
type NodeOutpoint struct {
	Node  common.NodeId
	Index uint16
}

func (o NodeOutpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Node, o.Index)
}

// OutpointSelection is a predicate over chain outpoints deciding which
// produced outputs become disclosure endpoints during composition.
type OutpointSelection struct {
	all       bool
	outpoints map[Outpoint]struct{}
}

// SelectAll matches every outpoint.
func SelectAll() OutpointSelection {
	return OutpointSelection{all: true}
}

// SelectOutpoints matches exactly the given outpoints.
func SelectOutpoints(outpoints ...Outpoint) OutpointSelection {
	set := make(map[Outpoint]struct{}, len(outpoints))
	for _, o := range outpoints {
		set[o] = struct{}{}
	}
	return OutpointSelection{outpoints: set}
}

// Includes reports whether the outpoint is part of the selection.
func (s OutpointSelection) Includes(o Outpoint) bool {
	if s.all {
		return true
	}
	_, ok := s.outpoints[o]
	return ok
}
