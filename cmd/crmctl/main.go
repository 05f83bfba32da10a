// Command crmctl is the operator CLI: schema migrations, bootstrap users and
// offline lead imports against the same database the API uses.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "crmctl",
		Usage: "Operate a leadflow database",
		Commands: []*cli.Command{
			migrateCommand(),
			createUserCommand(),
			importLeadsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
