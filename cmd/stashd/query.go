// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/urfave/cli/v2"
)

var Contracts = cli.Command{
	Action: listContracts,
	Name:   "contracts",
	Usage:  "lists all contracts known to the stash",
}

var State = cli.Command{
	Action:    showState,
	Name:      "state",
	Usage:     "prints the folded state of a contract",
	ArgsUsage: "<contract-id>",
}

func listContracts(context *cli.Context) error {
	runtime, err := openRuntime(context)
	if err != nil {
		return err
	}
	defer runtime.Close()

	ids, err := runtime.Contracts()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func showState(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing contract id")
	}
	contractId, err := common.ParseContractId(context.Args().Get(0))
	if err != nil {
		return err
	}

	runtime, err := openRuntime(context)
	if err != nil {
		return err
	}
	defer runtime.Close()

	state, err := runtime.ContractState(contractId)
	if err != nil {
		return err
	}
	fmt.Printf("Contract: %s\n", state.ContractId)
	fmt.Printf("Schema:   %s\n", state.SchemaId)
	fmt.Printf("Metadata: %x\n", state.Metadata)
	fmt.Printf("Owned state (%d entries):\n", len(state.Owned))
	for _, owned := range state.Owned {
		seal := "concealed"
		if outpoint, ok := owned.Seal.Outpoint(common.Txid{}); ok {
			seal = outpoint.String()
		}
		fmt.Printf("  %s:%d type=%d seal=%s state=%x\n",
			owned.Node, owned.Index, owned.Type, seal, owned.State)
	}
	return nil
}
