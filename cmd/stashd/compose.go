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
	"os"

	"github.com/0xsoniclabs/stashd/common"
	"github.com/0xsoniclabs/stashd/graph"
	"github.com/urfave/cli/v2"
)

var Contract = cli.Command{
	Action:    exportContract,
	Name:      "contract",
	Usage:     "exports the full history of a contract as a consignment",
	ArgsUsage: "<contract-id>",
	Flags: []cli.Flag{
		&outputFlag,
	},
}

var Compose = cli.Command{
	Action:    compose,
	Name:      "compose",
	Usage:     "composes a transfer consignment for selected outpoints",
	ArgsUsage: "<contract-id>",
	Flags: []cli.Flag{
		&outputFlag,
		&cli.Uint64SliceFlag{
			Name:  "type",
			Usage: "transition kind to disclose; repeatable",
		},
		&cli.StringSliceFlag{
			Name:  "outpoint",
			Usage: "outpoint <txid>:<vout> to disclose; all when omitted",
		},
	},
}

var outputFlag = cli.StringFlag{
	Name:    "out",
	Aliases: []string{"o"},
	Usage:   "file to write the consignment container to",
	Value:   "consignment.stcn",
}

func exportContract(context *cli.Context) error {
	contractId, err := contractArg(context)
	if err != nil {
		return err
	}
	runtime, err := openRuntime(context)
	if err != nil {
		return err
	}
	defer runtime.Close()

	consignment, err := runtime.ContractSource(contractId)
	if err != nil {
		return err
	}
	return writeConsignment(context, consignment)
}

func compose(context *cli.Context) error {
	contractId, err := contractArg(context)
	if err != nil {
		return err
	}

	var kinds []graph.TransitionType
	for _, kind := range context.Uint64Slice("type") {
		kinds = append(kinds, graph.TransitionType(kind))
	}
	if len(kinds) == 0 {
		return fmt.Errorf("at least one --type is required")
	}

	selection := graph.SelectAll()
	if outpoints := context.StringSlice("outpoint"); len(outpoints) > 0 {
		parsed := make([]graph.Outpoint, len(outpoints))
		for i, raw := range outpoints {
			if parsed[i], err = graph.ParseOutpoint(raw); err != nil {
				return err
			}
		}
		selection = graph.SelectOutpoints(parsed...)
	}

	runtime, err := openRuntime(context)
	if err != nil {
		return err
	}
	defer runtime.Close()

	consignment, err := runtime.ComposeConsignment(contractId, kinds,
		selection, graph.TransferConsignment)
	if err != nil {
		return err
	}
	return writeConsignment(context, consignment)
}

func contractArg(context *cli.Context) (common.ContractId, error) {
	if context.Args().Len() != 1 {
		return common.ContractId{}, fmt.Errorf("missing contract id")
	}
	return common.ParseContractId(context.Args().Get(0))
}

func writeConsignment(context *cli.Context, consignment *graph.Consignment) error {
	data, err := consignment.Serialize()
	if err != nil {
		return err
	}
	path := context.String(outputFlag.Name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Consignment %s written to %s (%d bundles, %d endpoints)\n",
		consignment.Id(), path, len(consignment.AnchoredBundles), len(consignment.Endpoints))
	return nil
}
