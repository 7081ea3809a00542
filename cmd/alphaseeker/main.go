// Command alphaseeker manages the portfolio snapshot from the terminal.
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
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&summaryCmd{}, "reports")
	commander.Register(&holdingsCmd{}, "reports")
	commander.Register(&allocationCmd{}, "reports")
	commander.Register(&settleCmd{}, "reports")
	commander.Register(&reportCmd{}, "reports")

	commander.Register(&buyCmd{}, "transactions")
	commander.Register(&sellCmd{}, "transactions")
	commander.Register(&cashCmd{}, "transactions")
	commander.Register(&lossCmd{}, "transactions")
	commander.Register(&importCmd{}, "transactions")
	commander.Register(&refreshCmd{}, "transactions")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
