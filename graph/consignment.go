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
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
)

// ConsignmentPurpose tags what a consignment is meant to convey. Collection
// and assembly are identical for all purposes; only the initial transition
// filter and outpoint selection differ.
type ConsignmentPurpose uint8

const (
	// TransferConsignment is a minimal transfer proof disclosing selected
	// outputs to a counterparty.
	TransferConsignment ConsignmentPurpose = iota
	// ContractConsignment is a full contract export covering every known
	// transition kind.
	ContractConsignment
)

func (p ConsignmentPurpose) String() string {
	switch p {
	case TransferConsignment:
		return "transfer"
	case ContractConsignment:
		return "contract"
	}
	return fmt.Sprintf("purpose(%d)", uint8(p))
}

// MaxConsignmentBundles bounds the anchored-bundle collection of a single
// consignment.
const MaxConsignmentBundles = 255

const (
	// ErrTooManyBundles is returned when an assembled consignment would
	// exceed MaxConsignmentBundles.
	ErrTooManyBundles = common.ConstError("consignment exceeds maximum anchored bundle count")

	// ErrBadContainer is returned when parsing a byte stream that is not a
	// consignment container.
	ErrBadContainer = common.ConstError("not a consignment container")
)

// ConsignmentId is the content id of a consignment package.
type ConsignmentId [32]byte

func (id ConsignmentId) String() string {
	return hex.EncodeToString(id[:])
}

// Endpoint is one disclosed output of a consignment: the bundle anchoring the
// node producing it and the seal the recipient will own.
type Endpoint struct {
	BundleId common.BundleId
	Seal     SealEndpoint
}

// AnchoredBundle pairs a single-contract anchor proof with the bundle it
// anchors.
type AnchoredBundle struct {
	Anchor AnchorProof
	Bundle TransitionBundle
}

// Consignment is the self-contained proof package transferring or declaring
// contract state. It is built once per transfer request and immutable after
// construction.
type Consignment struct {
	Purpose         ConsignmentPurpose
	Schema          Schema
	RootSchema      *Schema `rlp:"nil"`
	Genesis         Genesis
	Tips            []NodeOutpoint
	Endpoints       []Endpoint
	AnchoredBundles []AnchoredBundle
	Extensions      []Extension
}

// NewConsignment assembles a consignment, enforcing the anchored-bundle
// bound.
func NewConsignment(
	purpose ConsignmentPurpose,
	schema Schema,
	rootSchema *Schema,
	genesis Genesis,
	tips []NodeOutpoint,
	endpoints []Endpoint,
	anchoredBundles []AnchoredBundle,
	extensions []Extension,
) (*Consignment, error) {
	if len(anchoredBundles) > MaxConsignmentBundles {
		return nil, ErrTooManyBundles
	}
	return &Consignment{
		Purpose:         purpose,
		Schema:          schema,
		RootSchema:      rootSchema,
		Genesis:         genesis,
		Tips:            tips,
		Endpoints:       endpoints,
		AnchoredBundles: anchoredBundles,
		Extensions:      extensions,
	}, nil
}

// ContractId returns the contract the consignment belongs to.
func (c *Consignment) ContractId() common.ContractId {
	return c.Genesis.ContractId()
}

// Id returns the content id of the consignment package.
func (c *Consignment) Id() ConsignmentId {
	encoded, err := rlp.EncodeToBytes(c)
	if err != nil {
		panic(err)
	}
	return ConsignmentId(common.TaggedHash("stashd:consignment", encoded))
}

// Container format: magic, format version, then the snappy-compressed RLP
// encoding of the consignment.
var containerMagic = []byte("STCN")

const containerVersion = 1

// Serialize encodes the consignment into its binary container form.
func (c *Consignment) Serialize() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(c)
	if err != nil {
		return nil, err
	}
	compressed := snappy.Encode(nil, encoded)
	out := make([]byte, 0, len(containerMagic)+1+len(compressed))
	out = append(out, containerMagic...)
	out = append(out, containerVersion)
	return append(out, compressed...), nil
}

// ParseConsignment decodes a binary consignment container.
func ParseConsignment(data []byte) (*Consignment, error) {
	if len(data) < len(containerMagic)+1 || !bytes.HasPrefix(data, containerMagic) {
		return nil, ErrBadContainer
	}
	if data[len(containerMagic)] != containerVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadContainer, data[len(containerMagic)])
	}
	encoded, err := snappy.Decode(nil, data[len(containerMagic)+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	consignment := new(Consignment)
	if err := rlp.DecodeBytes(encoded, consignment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadContainer, err)
	}
	// The protocol bounds hold for peer-supplied containers, not just for
	// locally assembled consignments.
	if len(consignment.AnchoredBundles) > MaxConsignmentBundles {
		return nil, ErrTooManyBundles
	}
	for _, anchored := range consignment.AnchoredBundles {
		if anchored.Bundle.Len() > MaxBundleTransitions {
			return nil, ErrBundleTooLarge
		}
	}
	return consignment, nil
}
