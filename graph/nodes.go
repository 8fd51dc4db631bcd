// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package graph defines the node graph model of client-side-validated
// contracts: genesis, schemata, state transitions and extensions, single-use
// seals, witness-anchored transition bundles, and the consignment container
// exchanged between peers. All structures encode deterministically (slices
// kept sorted, no map-shaped fields) and all content identifiers are computed
// over the concealed canonical form, so revealing seal data never changes an
// id.
package graph

import (
	"github.com/0xsoniclabs/stashd/common"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	// ErrNodeMergeConflict is returned when merging two revelations of what
	// should be the same node and their content diverges.
	ErrNodeMergeConflict = common.ConstError("node revelations have diverging content")
)

// TransitionType classifies a state transition within its schema.
type TransitionType uint16

// ExtensionType classifies a state extension within its schema.
type ExtensionType uint16

// OwnedRightType classifies an owned-state assignment within its schema.
type OwnedRightType uint16

// Allocation attaches an opaque, schema-defined state payload to a seal.
type Allocation struct {
	Seal  Seal
	State []byte
}

// Assignment is one produced owned-state entry of a node: a right type and
// the allocations assigning it to seals.
type Assignment struct {
	Type        OwnedRightType
	Allocations []Allocation
}

// RevealedSeals returns the seals of the assignment whose concrete output is
// known.
func (a Assignment) RevealedSeals() []Seal {
	var seals []Seal
	for _, allocation := range a.Allocations {
		if allocation.Seal.IsRevealed() {
			seals = append(seals, allocation.Seal)
		}
	}
	return seals
}

func concealAssignments(assignments []Assignment) []Assignment {
	out := make([]Assignment, len(assignments))
	for i, assignment := range assignments {
		allocations := make([]Allocation, len(assignment.Allocations))
		for j, allocation := range assignment.Allocations {
			allocations[j] = Allocation{
				Seal:  allocation.Seal.Conceal(),
				State: allocation.State,
			}
		}
		out[i] = Assignment{Type: assignment.Type, Allocations: allocations}
	}
	return out
}

func mergeAssignments(a, b []Assignment) ([]Assignment, error) {
	if len(a) != len(b) {
		return nil, ErrNodeMergeConflict
	}
	out := make([]Assignment, len(a))
	for i := range a {
		if a[i].Type != b[i].Type || len(a[i].Allocations) != len(b[i].Allocations) {
			return nil, ErrNodeMergeConflict
		}
		allocations := make([]Allocation, len(a[i].Allocations))
		for j := range a[i].Allocations {
			seal, err := mergeSeals(a[i].Allocations[j].Seal, b[i].Allocations[j].Seal)
			if err != nil {
				return nil, err
			}
			allocations[j] = Allocation{Seal: seal, State: a[i].Allocations[j].State}
		}
		out[i] = Assignment{Type: a[i].Type, Allocations: allocations}
	}
	return out, nil
}

// Genesis is the immutable root node of a contract.
type Genesis struct {
	SchemaId    common.SchemaId
	Metadata    []byte
	OwnedRights []Assignment
}

// NodeId returns the content id of the genesis node.
func (g Genesis) NodeId() common.NodeId {
	encoded, err := rlp.EncodeToBytes(Genesis{
		SchemaId:    g.SchemaId,
		Metadata:    g.Metadata,
		OwnedRights: concealAssignments(g.OwnedRights),
	})
	if err != nil {
		panic(err) // the structure is always encodable
	}
	return common.NodeId(common.TaggedHash("stashd:genesis", encoded))
}

// ContractId derives the contract identifier from the genesis content.
func (g Genesis) ContractId() common.ContractId {
	return common.ContractId(g.NodeId())
}

// MergeReveal combines two revelations of the same genesis.
func (g Genesis) MergeReveal(other Genesis) (Genesis, error) {
	if g.NodeId() != other.NodeId() {
		return Genesis{}, ErrNodeMergeConflict
	}
	rights, err := mergeAssignments(g.OwnedRights, other.OwnedRights)
	if err != nil {
		return Genesis{}, err
	}
	return Genesis{SchemaId: g.SchemaId, Metadata: g.Metadata, OwnedRights: rights}, nil
}

// Schema declares the permissible node kinds and state encodings of a
// contract. Immutable once stored, keyed by its own content hash.
type Schema struct {
	// RootId references the schema this one extends; zero when standalone.
	RootId          common.SchemaId
	TransitionTypes []TransitionType
	ExtensionTypes  []ExtensionType
	OwnedRightTypes []OwnedRightType
}

// SchemaId returns the content id of the schema declaration.
func (s Schema) SchemaId() common.SchemaId {
	encoded, err := rlp.EncodeToBytes(s)
	if err != nil {
		panic(err)
	}
	return common.SchemaId(common.TaggedHash("stashd:schema", encoded))
}

// DeclaresTransitionType reports whether the schema permits the given
// transition kind.
func (s Schema) DeclaresTransitionType(t TransitionType) bool {
	for _, declared := range s.TransitionTypes {
		if declared == t {
			return true
		}
	}
	return false
}

// Transition is a graph node consuming parent outputs and producing new
// owned-state assignments. Transitions are immutable; a node never exists in
// two different revealed forms.
type Transition struct {
	Type          TransitionType
	Metadata      []byte
	ParentOutputs []NodeOutpoint
	OwnedRights   []Assignment
}

// NodeId returns the content id of the transition, computed over the
// concealed canonical form.
func (t Transition) NodeId() common.NodeId {
	encoded, err := rlp.EncodeToBytes(Transition{
		Type:          t.Type,
		Metadata:      t.Metadata,
		ParentOutputs: t.ParentOutputs,
		OwnedRights:   concealAssignments(t.OwnedRights),
	})
	if err != nil {
		panic(err)
	}
	return common.NodeId(common.TaggedHash("stashd:transition", encoded))
}

// MergeReveal combines two revelations of the same transition.
func (t Transition) MergeReveal(other Transition) (Transition, error) {
	if t.NodeId() != other.NodeId() {
		return Transition{}, ErrNodeMergeConflict
	}
	rights, err := mergeAssignments(t.OwnedRights, other.OwnedRights)
	if err != nil {
		return Transition{}, err
	}
	return Transition{
		Type:          t.Type,
		Metadata:      t.Metadata,
		ParentOutputs: t.ParentOutputs,
		OwnedRights:   rights,
	}, nil
}

// Extension is a graph node extending contract state without consuming a
// chain output; it has no witness transaction.
type Extension struct {
	Type        ExtensionType
	Metadata    []byte
	Parents     []common.NodeId
	OwnedRights []Assignment
}

// NodeId returns the content id of the extension, computed over the concealed
// canonical form.
func (e Extension) NodeId() common.NodeId {
	encoded, err := rlp.EncodeToBytes(Extension{
		Type:        e.Type,
		Metadata:    e.Metadata,
		Parents:     e.Parents,
		OwnedRights: concealAssignments(e.OwnedRights),
	})
	if err != nil {
		panic(err)
	}
	return common.NodeId(common.TaggedHash("stashd:extension", encoded))
}

// MergeReveal combines two revelations of the same extension.
func (e Extension) MergeReveal(other Extension) (Extension, error) {
	if e.NodeId() != other.NodeId() {
		return Extension{}, ErrNodeMergeConflict
	}
	rights, err := mergeAssignments(e.OwnedRights, other.OwnedRights)
	if err != nil {
		return Extension{}, err
	}
	return Extension{
		Type:        e.Type,
		Metadata:    e.Metadata,
		Parents:     e.Parents,
		OwnedRights: rights,
	}, nil
}
