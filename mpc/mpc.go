// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package mpc implements multi-protocol Merkle commitments: a single Merkle
// root committing to at most one message per protocol. A commitment exists in
// two forms, a MerkleBlock carrying the full tree with per-subtree
// reveal/conceal granularity, and a MerkleProof carrying only the path for a
// single protocol. Narrowing a block to a proof is one-way; a proof can be
// restored into a partially concealed block, and blocks of the same root can
// be merged to combine their revealed knowledge.
package mpc

import (
	"encoding/binary"
	"io"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ProtocolId identifies the protocol (in this system: the contract) a message
// is committed under. Each protocol owns one slot of the commitment tree.
type ProtocolId [32]byte

// Message is the 32-byte commitment stored under a protocol slot.
type Message [32]byte

const (
	// ErrLeafNotKnown is returned when narrowing a block to a proof for a
	// protocol whose leaf is concealed or absent.
	ErrLeafNotKnown = common.ConstError("protocol is not known to the commitment block")

	// ErrBlockMismatch is returned when merging two blocks that do not
	// describe the same commitment tree.
	ErrBlockMismatch = common.ConstError("commitment blocks have diverging content")

	// ErrInvalidProof is returned when a proof is structurally inconsistent
	// with the protocol it claims to cover.
	ErrInvalidProof = common.ConstError("merkle proof does not match protocol slot")

	// ErrTooManyProtocols is returned when no collision-free slot assignment
	// exists within the maximum tree depth.
	ErrTooManyProtocols = common.ConstError("too many protocols for commitment tree")

	// maxDepth bounds the tree to 2^16 slots.
	maxDepth = 16
)

// MerkleBlock is the full form of a multi-protocol commitment. Subtrees that
// are not relevant to the holder are kept as concealed hashes only.
type MerkleBlock struct {
	depth uint8
	root  node
}

// MerkleProof is the narrowed, single-protocol form of a commitment: the slot
// position and the sibling hashes from the leaf up to the root.
type MerkleProof struct {
	Pos  uint32
	Path [][32]byte
}

// ---- Nodes ----

type node interface {
	hash() [32]byte
}

// leaf is a revealed protocol slot. Leaves only occur at the bottom level.
type leaf struct {
	protocol ProtocolId
	message  Message
}

// concealed stands in for any subtree whose content is not known.
type concealed struct {
	h [32]byte
}

type branch struct {
	left, right node
}

func (l leaf) hash() [32]byte {
	return common.TaggedHash("mpc:leaf", l.protocol[:], l.message[:])
}

func (c concealed) hash() [32]byte {
	return c.h
}

func (b branch) hash() [32]byte {
	l := b.left.hash()
	r := b.right.hash()
	return common.TaggedHash("mpc:branch", l[:], r[:])
}

// slot maps a protocol to its leaf position in a tree of the given width.
func slot(protocol ProtocolId, width uint32) uint32 {
	return uint32(binary.BigEndian.Uint64(protocol[24:]) % uint64(width))
}

// absentLeaf fills unused slots so the tree width never leaks which slots
// carry real commitments.
func absentLeaf(pos uint32) concealed {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], pos)
	return concealed{h: common.TaggedHash("mpc:absent", buf[:])}
}

// ---- Construction ----

// NewMerkleBlock builds a fully revealed block committing to the given
// protocol messages. The tree width is doubled until every protocol maps to
// its own slot.
func NewMerkleBlock(messages map[ProtocolId]Message) (*MerkleBlock, error) {
	for depth := uint8(minDepth(len(messages))); depth <= maxDepth; depth++ {
		width := uint32(1) << depth
		slots := make(map[uint32]leaf, len(messages))
		collision := false
		for protocol, message := range messages {
			pos := slot(protocol, width)
			if _, taken := slots[pos]; taken {
				collision = true
				break
			}
			slots[pos] = leaf{protocol: protocol, message: message}
		}
		if collision {
			continue
		}
		return &MerkleBlock{depth: depth, root: buildSubtree(slots, 0, width)}, nil
	}
	return nil, ErrTooManyProtocols
}

func minDepth(leaves int) int {
	depth := 0
	for 1<<depth < leaves {
		depth++
	}
	return depth
}

func buildSubtree(slots map[uint32]leaf, offset, width uint32) node {
	if width == 1 {
		if l, ok := slots[offset]; ok {
			return l
		}
		return absentLeaf(offset)
	}
	half := width / 2
	return branch{
		left:  buildSubtree(slots, offset, half),
		right: buildSubtree(slots, offset+half, half),
	}
}

// Root returns the Merkle root the block commits to.
func (b *MerkleBlock) Root() [32]byte {
	return b.root.hash()
}

// Width returns the number of protocol slots of the tree.
func (b *MerkleBlock) Width() uint32 {
	return uint32(1) << b.depth
}

// Known returns the committed message for the protocol if its leaf is
// revealed in this block.
func (b *MerkleBlock) Known(protocol ProtocolId) (Message, bool) {
	n := b.root
	pos := slot(protocol, b.Width())
	for level := int(b.depth) - 1; level >= 0; level-- {
		br, ok := n.(branch)
		if !ok {
			return Message{}, false
		}
		if pos&(1<<level) == 0 {
			n = br.left
		} else {
			n = br.right
		}
	}
	l, ok := n.(leaf)
	if !ok || l.protocol != protocol {
		return Message{}, false
	}
	return l.message, true
}

// ---- Narrowing and restoring ----

// ToProof narrows the block to a single-protocol proof. It fails with
// ErrLeafNotKnown if the protocol's leaf is concealed or absent.
func (b *MerkleBlock) ToProof(protocol ProtocolId) (*MerkleProof, error) {
	pos := slot(protocol, b.Width())
	path := make([][32]byte, 0, b.depth)

	n := b.root
	for level := int(b.depth) - 1; level >= 0; level-- {
		br, ok := n.(branch)
		if !ok {
			return nil, ErrLeafNotKnown
		}
		if pos&(1<<level) == 0 {
			path = append(path, br.right.hash())
			n = br.left
		} else {
			path = append(path, br.left.hash())
			n = br.right
		}
	}
	l, ok := n.(leaf)
	if !ok || l.protocol != protocol {
		return nil, ErrLeafNotKnown
	}

	// Reorder the collected siblings leaf-to-root.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return &MerkleProof{Pos: pos, Path: path}, nil
}

// Root computes the Merkle root the proof resolves to for the given protocol
// message.
func (p *MerkleProof) Root(protocol ProtocolId, message Message) [32]byte {
	h := leaf{protocol: protocol, message: message}.hash()
	for level, sibling := range p.Path {
		if p.Pos&(1<<level) == 0 {
			h = common.TaggedHash("mpc:branch", h[:], sibling[:])
		} else {
			h = common.TaggedHash("mpc:branch", sibling[:], h[:])
		}
	}
	return h
}

// BlockFromProof restores a partially concealed block from a single-protocol
// proof. Everything off the proof path stays concealed.
func BlockFromProof(protocol ProtocolId, message Message, proof *MerkleProof) (*MerkleBlock, error) {
	depth := len(proof.Path)
	if depth > maxDepth {
		return nil, ErrInvalidProof
	}
	if slot(protocol, uint32(1)<<depth) != proof.Pos {
		return nil, ErrInvalidProof
	}

	var n node = leaf{protocol: protocol, message: message}
	for level, sibling := range proof.Path {
		other := concealed{h: sibling}
		if proof.Pos&(1<<level) == 0 {
			n = branch{left: n, right: other}
		} else {
			n = branch{left: other, right: n}
		}
	}
	return &MerkleBlock{depth: uint8(depth), root: n}, nil
}

// ---- Merging ----

// MergeReveal combines the revealed knowledge of two blocks describing the
// same commitment. The result reveals every subtree either input reveals.
func (b *MerkleBlock) MergeReveal(other *MerkleBlock) (*MerkleBlock, error) {
	if b.depth != other.depth || b.Root() != other.Root() {
		return nil, ErrBlockMismatch
	}
	root, err := mergeNodes(b.root, other.root)
	if err != nil {
		return nil, err
	}
	return &MerkleBlock{depth: b.depth, root: root}, nil
}

func mergeNodes(a, b node) (node, error) {
	if ca, ok := a.(concealed); ok {
		if ca.h != b.hash() {
			return nil, ErrBlockMismatch
		}
		return b, nil
	}
	if cb, ok := b.(concealed); ok {
		if cb.h != a.hash() {
			return nil, ErrBlockMismatch
		}
		return a, nil
	}
	if la, ok := a.(leaf); ok {
		if lb, ok := b.(leaf); ok && la == lb {
			return a, nil
		}
		return nil, ErrBlockMismatch
	}
	ba, aOk := a.(branch)
	bb, bOk := b.(branch)
	if !aOk || !bOk {
		return nil, ErrBlockMismatch
	}
	left, err := mergeNodes(ba.left, bb.left)
	if err != nil {
		return nil, err
	}
	right, err := mergeNodes(ba.right, bb.right)
	if err != nil {
		return nil, err
	}
	return branch{left: left, right: right}, nil
}

// ---- Wire encoding ----

// The tree is serialized as its left-to-right cross-section of maximal
// subtrees: revealed leaves at height zero and concealed subtree hashes at
// their height. Branch structure is rebuilt from the heights.

type wireNode struct {
	Kind     uint8 // 0: revealed leaf, 1: concealed subtree
	Height   uint8 // levels above the leaf layer; always 0 for revealed leaves
	Protocol [32]byte
	Message  [32]byte
}

type wireBlock struct {
	Depth uint8
	Nodes []wireNode
}

const (
	wireKindLeaf      = 0
	wireKindConcealed = 1
)

func flatten(n node, height uint8, out []wireNode) []wireNode {
	switch v := n.(type) {
	case leaf:
		return append(out, wireNode{Kind: wireKindLeaf, Protocol: v.protocol, Message: v.message})
	case concealed:
		return append(out, wireNode{Kind: wireKindConcealed, Height: height, Protocol: v.h})
	case branch:
		out = flatten(v.left, height-1, out)
		return flatten(v.right, height-1, out)
	}
	return out
}

func (b *MerkleBlock) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, wireBlock{
		Depth: b.depth,
		Nodes: flatten(b.root, b.depth, nil),
	})
}

func (b *MerkleBlock) DecodeRLP(s *rlp.Stream) error {
	var wire wireBlock
	if err := s.Decode(&wire); err != nil {
		return err
	}
	if wire.Depth > maxDepth {
		return ErrInvalidProof
	}
	nodes := wire.Nodes
	root, rest, err := consume(nodes, wire.Depth)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return ErrInvalidProof
	}
	b.depth = wire.Depth
	b.root = root
	return nil
}

func consume(nodes []wireNode, height uint8) (node, []wireNode, error) {
	if len(nodes) == 0 {
		return nil, nil, ErrInvalidProof
	}
	next := nodes[0]
	if next.Kind == wireKindConcealed && next.Height == height {
		return concealed{h: next.Protocol}, nodes[1:], nil
	}
	if height == 0 {
		if next.Kind != wireKindLeaf {
			return nil, nil, ErrInvalidProof
		}
		return leaf{protocol: ProtocolId(next.Protocol), message: Message(next.Message)}, nodes[1:], nil
	}
	left, rest, err := consume(nodes, height-1)
	if err != nil {
		return nil, nil, err
	}
	right, rest, err := consume(rest, height-1)
	if err != nil {
		return nil, nil, err
	}
	return branch{left: left, right: right}, rest, nil
}
