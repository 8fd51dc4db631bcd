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

	"github.com/0xsoniclabs/stashd/node"
	"github.com/0xsoniclabs/stashd/stash"
	"github.com/0xsoniclabs/stashd/validation"
	"github.com/pbnjay/memory"
	"github.com/urfave/cli/v2"
)

var (
	stashDirFlag = cli.StringFlag{
		Name:  "stash",
		Usage: "directory holding the stash database",
		Value: "stash.db",
	}
	sqliteFlag = cli.BoolFlag{
		Name:  "sqlite",
		Usage: "use a SQLite stash instead of LevelDB",
	}
)

func main() {
	app := &cli.App{
		Name:      "stashd",
		Usage:     "client-side-validation stash tool",
		Copyright: "(c) 2025 Sonic Operations Ltd",
		Flags: []cli.Flag{
			&stashDirFlag,
			&sqliteFlag,
		},
		Commands: []*cli.Command{
			&Register,
			&Contracts,
			&State,
			&Contract,
			&Compose,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openRuntime opens the stash named by the global flags and wraps it into a
// node runtime with offline validation. Without a base-ledger source witness
// transactions always remain unresolved; imports need the force flag.
func openRuntime(context *cli.Context) (*node.Runtime, error) {
	dir := context.String(stashDirFlag.Name)
	var (
		kv  stash.KVStore
		err error
	)
	if context.Bool(sqliteFlag.Name) {
		kv, err = stash.NewSqliteStore(dir)
	} else {
		// Block cache sized to a sixteenth of system memory.
		kv, err = stash.NewLevelDbStore(dir, int(memory.TotalMemory()/16))
	}
	if err != nil {
		return nil, fmt.Errorf("opening stash at %s: %w", dir, err)
	}
	return node.NewRuntime(stash.NewDB(kv), validation.NewOfflineValidator(), nil)
}
