// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// pgreset performs an unattended credential reset on a local
// PostgreSQL service, restoring the original authentication
// configuration if the reset cannot be completed safely.
package main

import (
	"fmt"
	"os"

	"github.com/juju/cmd/v4"
)

const helpDoc = `
pgreset resets the administrative credential of the local PostgreSQL
service. It temporarily relaxes host-based authentication to open an
administrative window, changes the credential, then installs a hardened
configuration and verifies the service end to end with the new
credential. If anything fails while the relaxed configuration might be
live, the original configuration is restored from a verified backup.
`

// Main runs the pgreset command and returns the process exit code.
func Main(args []string) int {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	super := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    "pgreset",
		Doc:     helpDoc,
		Purpose: "reset the local PostgreSQL administrative credential",
		Log:     &cmd.Log{},
	})
	super.Register(newResetCommand())
	super.Register(newBenchSummaryCommand())
	return cmd.Main(super, ctx, args[1:])
}

func main() {
	os.Exit(Main(os.Args))
}
