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
	"sort"

	"github.com/0xsoniclabs/stashd/common"
)

const (
	// MaxBundleTransitions bounds the number of transitions a single witness
	// transaction may anchor.
	MaxBundleTransitions = 1 << 16

	// ErrBundleTooLarge is returned when a bundle exceeds
	// MaxBundleTransitions.
	ErrBundleTooLarge = common.ConstError("transition bundle exceeds maximum size")

	// ErrRevealUnrelated is returned when revealing a transition inside a
	// bundle that does not contain its node id.
	ErrRevealUnrelated = common.ConstError("transition does not belong to the bundle")
)

// RevealedEntry is a bundle entry carrying the full transition content plus
// the witness input indexes committing to it.
type RevealedEntry struct {
	Transition Transition
	Inputs     []uint16
}

// ConcealedEntry is a bundle entry carrying only the transition id and the
// witness input indexes committing to it.
type ConcealedEntry struct {
	NodeId common.NodeId
	Inputs []uint16
}

// TransitionBundle is the set of all transitions anchored by one witness
// transaction, with per-transition reveal/conceal granularity. Entries are
// kept sorted by node id so the encoding is deterministic. Every transition
// of a bundle shares the same witness transaction; the stash enforces this by
// keying anchors and bundles by the witness txid.
type TransitionBundle struct {
	Revealed  []RevealedEntry
	Concealed []ConcealedEntry
}

// NewConcealedBundle builds the concealed form of a bundle from transition
// ids and their witness input indexes. This is the form bundles take in the
// stash; transitions are revealed back into it on demand.
func NewConcealedBundle(entries []ConcealedEntry) (*TransitionBundle, error) {
	if len(entries) > MaxBundleTransitions {
		return nil, ErrBundleTooLarge
	}
	sorted := make([]ConcealedEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return common.CompareNodeIds(sorted[i].NodeId, sorted[j].NodeId) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].NodeId == sorted[i-1].NodeId {
			return nil, fmt.Errorf("duplicate transition %s in bundle", sorted[i].NodeId)
		}
	}
	return &TransitionBundle{Concealed: sorted}, nil
}

// Len returns the total number of transitions in the bundle.
func (b *TransitionBundle) Len() int {
	return len(b.Revealed) + len(b.Concealed)
}

// ContainsNode reports whether the bundle covers the given transition id, in
// either revealed or concealed form.
func (b *TransitionBundle) ContainsNode(id common.NodeId) bool {
	for _, entry := range b.Revealed {
		if entry.Transition.NodeId() == id {
			return true
		}
	}
	for _, entry := range b.Concealed {
		if entry.NodeId == id {
			return true
		}
	}
	return false
}

// entries returns the concealed canonical view of all bundle entries, sorted
// by node id.
func (b *TransitionBundle) entries() []ConcealedEntry {
	all := make([]ConcealedEntry, 0, b.Len())
	for _, entry := range b.Revealed {
		all = append(all, ConcealedEntry{NodeId: entry.Transition.NodeId(), Inputs: entry.Inputs})
	}
	all = append(all, b.Concealed...)
	sort.Slice(all, func(i, j int) bool {
		return common.CompareNodeIds(all[i].NodeId, all[j].NodeId) < 0
	})
	return all
}

// BundleId returns the bundle identifier, computed over the concealed
// canonical form so it is invariant under revealing.
func (b *TransitionBundle) BundleId() common.BundleId {
	data := make([]byte, 0, b.Len()*40)
	for _, entry := range b.entries() {
		data = append(data, entry.NodeId[:]...)
		var count [2]byte
		binary.BigEndian.PutUint16(count[:], uint16(len(entry.Inputs)))
		data = append(data, count[:]...)
		for _, input := range entry.Inputs {
			var buf [2]byte
			binary.BigEndian.PutUint16(buf[:], input)
			data = append(data, buf[:]...)
		}
	}
	return common.BundleId(common.TaggedHash("stashd:bundle", data))
}

// RevealTransition replaces the concealed entry for the transition with its
// full content. Revealing a transition that is already revealed is a no-op
// (the contents are merged); revealing a transition the bundle does not
// contain fails with ErrRevealUnrelated.
func (b *TransitionBundle) RevealTransition(t Transition) error {
	id := t.NodeId()

	for i, entry := range b.Revealed {
		if entry.Transition.NodeId() != id {
			continue
		}
		merged, err := entry.Transition.MergeReveal(t)
		if err != nil {
			return err
		}
		b.Revealed[i].Transition = merged
		return nil
	}

	for i, entry := range b.Concealed {
		if entry.NodeId != id {
			continue
		}
		b.Concealed = append(b.Concealed[:i], b.Concealed[i+1:]...)
		b.Revealed = append(b.Revealed, RevealedEntry{Transition: t, Inputs: entry.Inputs})
		sort.Slice(b.Revealed, func(i, j int) bool {
			return common.CompareNodeIds(
				b.Revealed[i].Transition.NodeId(), b.Revealed[j].Transition.NodeId()) < 0
		})
		return nil
	}

	return fmt.Errorf("%w: %s", ErrRevealUnrelated, id)
}

// ConcealAll returns the fully concealed form of the bundle, the shape stored
// in the stash.
func (b *TransitionBundle) ConcealAll() *TransitionBundle {
	return &TransitionBundle{Concealed: b.entries()}
}
