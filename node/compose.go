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
	"sort"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
	"github.com/0xsoniclabs/stashd/stash"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/maps"
)

// ComposeConsignment assembles a consignment proving the provenance of the
// selected outputs of a contract. The include set names the transition kinds
// whose outputs are candidates for disclosure; every transition of an
// included kind whose outputs match the selection is disclosed in full, and
// its ancestry is pulled in concealed down to the contract genesis.
func (r *Runtime) ComposeConsignment(
	contractId common.ContractId,
	include []graph.TransitionType,
	selection graph.OutpointSelection,
	purpose graph.ConsignmentPurpose,
) (*graph.Consignment, error) {
	unlock := r.lockContract(contractId)
	defer unlock()

	r.log.Info("Composing consignment",
		"contract", contractId,
		"kinds", len(include),
		"purpose", purpose,
	)

	c := newCollector(r.db, contractId, selection)
	seen := make(map[graph.TransitionType]bool, len(include))
	for _, kind := range include {
		if seen[kind] {
			continue
		}
		seen[kind] = true
		ids, err := stash.RetrieveSet(r.db, stash.TableContractTransitions,
			stash.IndexKey(contractId, uint16(kind)))
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			transition, err := c.loadTransition(id)
			if err != nil {
				return nil, err
			}
			if err := c.process(*transition, true); err != nil {
				return nil, err
			}
		}
	}
	if err := c.iterate(); err != nil {
		return nil, err
	}

	consignment, err := c.consignment(purpose)
	if err != nil {
		return nil, err
	}
	r.log.Info("Consignment composed",
		"contract", contractId,
		"consignment", consignment.Id(),
		"bundles", len(consignment.AnchoredBundles),
		"endpoints", len(consignment.Endpoints),
	)
	return consignment, nil
}

// ContractSource exports the full history of a contract: every transition
// kind its schema declares, every output disclosed.
func (r *Runtime) ContractSource(contractId common.ContractId) (*graph.Consignment, error) {
	schema, err := r.contractSchema(contractId)
	if err != nil {
		return nil, err
	}
	return r.ComposeConsignment(contractId, schema.TransitionTypes,
		graph.SelectAll(), graph.ContractConsignment)
}

// contractSchema reads the schema declaration of a contract. Genesis and
// schema entries are immutable once stored, so no contract lock is needed.
func (r *Runtime) contractSchema(contractId common.ContractId) (*graph.Schema, error) {
	genesis, found, err := stash.Retrieve[graph.Genesis](r.db, stash.TableGenesis, contractId[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrGenesisAbsent, contractId)
	}
	schema, found, err := stash.Retrieve[graph.Schema](r.db, stash.TableSchemata, genesis.SchemaId[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSchemaAbsent, genesis.SchemaId)
	}
	return schema, nil
}

// collectedBundle is the in-progress consignment form of one witness
// transaction: the single-contract anchor proof and the bundle with the
// transitions revealed so far.
type collectedBundle struct {
	anchor graph.AnchorProof
	bundle *graph.TransitionBundle
}

// collector walks the contract graph backwards from the disclosed frontier,
// accumulating anchored bundles until the ancestry is closed under parent
// references.
type collector struct {
	db        *stash.DB
	contract  common.ContractId
	genesisId common.NodeId
	selection graph.OutpointSelection

	bundles   map[common.Txid]*collectedBundle
	bundleIds map[common.Txid]common.BundleId
	endpoints []graph.Endpoint
	tips      []graph.NodeOutpoint
	tipSeen   map[graph.NodeOutpoint]bool
	visited   mapset.Set[common.NodeId]
	queue     []common.NodeId
}

func newCollector(db *stash.DB, contract common.ContractId, selection graph.OutpointSelection) *collector {
	return &collector{
		db:        db,
		contract:  contract,
		genesisId: common.NodeId(contract),
		selection: selection,
		bundles:   make(map[common.Txid]*collectedBundle),
		bundleIds: make(map[common.Txid]common.BundleId),
		tipSeen:   make(map[graph.NodeOutpoint]bool),
		visited:   mapset.NewThreadUnsafeSet[common.NodeId](),
	}
}

func (c *collector) loadTransition(id common.NodeId) (*graph.Transition, error) {
	transition, found, err := stash.Retrieve[graph.Transition](c.db, stash.TableTransitions, id[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTransitionAbsent, id)
	}
	return transition, nil
}

// process reveals one transition inside its anchored bundle. When disclose is
// set the transition belongs to the disclosed frontier and its selected
// outputs are recorded as endpoints and tips; its parents join the closure
// queue only when at least one output matched the selection, so the ancestry
// of unselected outputs never enters the consignment. Ancestry pulled in for
// closure reveals content and always keeps walking.
func (c *collector) process(transition graph.Transition, disclose bool) error {
	nodeId := transition.NodeId()

	witness, found, err := stash.Retrieve[common.Txid](c.db, stash.TableTransitionWitness, nodeId[:])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrWitnessAbsent, nodeId)
	}

	collected, err := c.bundleFor(*witness)
	if err != nil {
		return err
	}
	if err := collected.bundle.RevealTransition(transition); err != nil {
		return err
	}

	if disclose {
		matched := false
		bundleId := c.bundleIds[*witness]
		for index, assignment := range transition.OwnedRights {
			for _, seal := range assignment.RevealedSeals() {
				outpoint, ok := seal.Outpoint(*witness)
				if !ok || !c.selection.Includes(outpoint) {
					continue
				}
				matched = true
				c.endpoints = append(c.endpoints, graph.Endpoint{
					BundleId: bundleId,
					Seal:     graph.SealEndpointFrom(seal),
				})
				tip := graph.NodeOutpoint{Node: nodeId, Index: uint16(index)}
				if !c.tipSeen[tip] {
					c.tipSeen[tip] = true
					c.tips = append(c.tips, tip)
				}
			}
		}
		if !matched {
			// The transition stays revealed but its ancestry is not walked.
			// It is deliberately not marked visited: a later closure pass
			// through it must still enqueue its parents.
			return nil
		}
	}

	c.visited.Add(nodeId)
	for _, parent := range transition.ParentOutputs {
		if parent.Node == c.genesisId || c.visited.Contains(parent.Node) {
			continue
		}
		c.queue = append(c.queue, parent.Node)
	}
	return nil
}

// iterate drains the ancestry queue until the collected graph is closed
// under parent references.
func (c *collector) iterate() error {
	for len(c.queue) > 0 {
		id := c.queue[0]
		c.queue = c.queue[1:]
		if c.visited.Contains(id) {
			continue
		}
		transition, err := c.loadTransition(id)
		if err != nil {
			return err
		}
		if err := c.process(*transition, false); err != nil {
			return err
		}
	}
	return nil
}

// bundleFor returns the collected bundle of a witness transaction, loading
// the stored anchor and the concealed bundle on first sight.
func (c *collector) bundleFor(witness common.Txid) (*collectedBundle, error) {
	if collected, ok := c.bundles[witness]; ok {
		return collected, nil
	}
	anchor, found, err := stash.Retrieve[graph.Anchor](c.db, stash.TableAnchors, witness[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: witness %s", ErrAnchorAbsent, witness)
	}
	bundle, found, err := stash.Retrieve[graph.TransitionBundle](c.db, stash.TableBundles, witness[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: witness %s", ErrBundleAbsent, witness)
	}
	proof, err := anchor.ToProof(c.contract)
	if err != nil {
		return nil, fmt.Errorf("%w: witness %s: %v", ErrUnrelatedAnchor, witness, err)
	}
	collected := &collectedBundle{anchor: proof, bundle: bundle}
	c.bundles[witness] = collected
	c.bundleIds[witness] = bundle.BundleId()
	return collected, nil
}

// consignment assembles the collected graph into the final package: genesis
// and schemata from the stash, bundles in witness txid order.
func (c *collector) consignment(purpose graph.ConsignmentPurpose) (*graph.Consignment, error) {
	genesis, found, err := stash.Retrieve[graph.Genesis](c.db, stash.TableGenesis, c.contract[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrGenesisAbsent, c.contract)
	}
	schema, found, err := stash.Retrieve[graph.Schema](c.db, stash.TableSchemata, genesis.SchemaId[:])
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSchemaAbsent, genesis.SchemaId)
	}
	var rootSchema *graph.Schema
	if !schema.RootId.IsZero() {
		rootSchema, found, err = stash.Retrieve[graph.Schema](c.db, stash.TableSchemata, schema.RootId[:])
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrSchemaAbsent, schema.RootId)
		}
	}

	witnesses := maps.Keys(c.bundles)
	sort.Slice(witnesses, func(i, j int) bool {
		return common.CompareTxids(witnesses[i], witnesses[j]) < 0
	})
	anchoredBundles := make([]graph.AnchoredBundle, 0, len(witnesses))
	for _, witness := range witnesses {
		collected := c.bundles[witness]
		anchoredBundles = append(anchoredBundles, graph.AnchoredBundle{
			Anchor: collected.anchor,
			Bundle: *collected.bundle,
		})
	}

	tips := append([]graph.NodeOutpoint(nil), c.tips...)
	sort.Slice(tips, func(i, j int) bool {
		if cmp := common.CompareNodeIds(tips[i].Node, tips[j].Node); cmp != 0 {
			return cmp < 0
		}
		return tips[i].Index < tips[j].Index
	})

	return graph.NewConsignment(purpose, *schema, rootSchema, *genesis,
		tips, c.endpoints, anchoredBundles, nil)
}
