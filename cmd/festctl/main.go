package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/fsdevblog/festwallet/internal/festctl"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	opts := new(festctl.Options)
	opts.SetFlags(flag.CommandLine)
	festctl.Register(commander, opts)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
