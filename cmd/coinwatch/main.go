// Command coinwatch inspects the ledger and runs valuations from the shell.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&holdingsCmd{}, "ledger")
	commander.Register(&reportCmd{}, "valuation")
	commander.Register(&runCmd{}, "valuation")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
