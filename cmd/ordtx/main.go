// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/config"
)

// command is ordtx subcommand.
type command interface {
	Register(parser *flags.Parser) error
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes ordtx with args and returns process exit code.
func run(args []string) int {
	cfg, rest, err := config.Load(args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ecc.Init()

	logs, err := initLogging(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = logs.Close() }()

	parser := flags.NewNamedParser("ordtx", flags.Default)

	// global options are parsed by config, the group is registered for help output only.
	helpCfg := *cfg
	if _, err = parser.AddGroup("Application Options", "", &helpCfg); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}

	commands := []command{
		newEstimateCommand(cfg),
		newSplitCommand(cfg),
		newRevealCommand(cfg),
		newCheckpointsCommand(cfg),
	}
	for _, c := range commands {
		if err = c.Register(parser); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	// parser prints errors itself.
	if _, err = parser.ParseArgs(rest); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}

		return 1
	}

	return 0
}
