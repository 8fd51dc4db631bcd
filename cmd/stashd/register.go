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
	"errors"
	"fmt"
	"os"

	"github.com/0xsoniclabs/stashd/graph"
	"github.com/0xsoniclabs/stashd/validation"
	"github.com/urfave/cli/v2"
)

var Register = cli.Command{
	Action:    register,
	Name:      "register",
	Usage:     "validates a consignment file and merges it into the stash",
	ArgsUsage: "<consignment-file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "import even when witness transactions cannot be resolved",
		},
	},
}

func register(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing consignment file")
	}
	data, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return err
	}
	consignment, err := graph.ParseConsignment(data)
	if err != nil {
		return err
	}

	runtime, err := openRuntime(context)
	if err != nil {
		return err
	}
	status, err := runtime.ProcessConsignment(consignment, context.Bool("force"))
	if err != nil {
		return errors.Join(err, runtime.Close())
	}
	if err := runtime.Close(); err != nil {
		return err
	}

	fmt.Printf("Validation: %s\n", status)
	switch status.Validity() {
	case validation.Valid:
		fmt.Printf("Contract %s imported\n", consignment.ContractId())
	case validation.UnresolvedTransactions:
		if context.Bool("force") {
			fmt.Printf("Contract %s imported (forced)\n", consignment.ContractId())
		} else {
			return fmt.Errorf("consignment not imported; use --force to import with unresolved transactions")
		}
	default:
		return fmt.Errorf("consignment rejected")
	}
	return nil
}
