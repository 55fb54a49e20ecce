// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"os"

	"github.com/btcsuite/btclog"

	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/splitter"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
	"github.com/BoostyLabs/ordtx/bitcoin/wallet"
	"github.com/BoostyLabs/ordtx/config"
	"github.com/BoostyLabs/ordtx/internal/logging"
)

// mainSubsystem defines the logging code of the command line tool.
const mainSubsystem = "OTXC"

var mainLog = btclog.Disabled

// initLogging creates log backend of config and assigns subsystem loggers to every package.
func initLogging(cfg *config.Config) (*logging.Logging, error) {
	logs, err := logging.New(logging.Config{
		LogFile:        cfg.LogFile(),
		MaxLogFiles:    cfg.MaxLogFiles,
		MaxLogFileSize: cfg.MaxLogFileSize,
		Stdout:         os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	mainLog = logs.Logger(mainSubsystem)
	txbuilder.UseLogger(logs.Logger(txbuilder.Subsystem))
	signer.UseLogger(logs.Logger(signer.Subsystem))
	inscriptions.UseLogger(logs.Logger(inscriptions.Subsystem))
	splitter.UseLogger(logs.Logger(splitter.Subsystem))
	wallet.UseLogger(logs.Logger(wallet.Subsystem))

	if err = logs.SetLevel(cfg.DebugLevel); err != nil {
		_ = logs.Close()
		return nil, err
	}

	return logs, nil
}
