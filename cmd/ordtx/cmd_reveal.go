// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/config"
)

type revealCommand struct {
	cfg *config.Config

	CommitTxID string `long:"commit" description:"Id of the commit transaction" required:"true"`
}

func newRevealCommand(cfg *config.Config) *revealCommand {
	return &revealCommand{cfg: cfg}
}

func (x *revealCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"reveal",
		"Rebuild reveal transaction from the checkpoint store",
		"Build and sign the reveal transaction of a stored commit "+
			"checkpoint and print it hex encoded, ready to be "+
			"broadcast",
		x,
	)
	return err
}

func (x *revealCommand) Execute(_ []string) error {
	store, err := inscriptions.OpenRevealStore(x.cfg.StorePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	checkpoint, err := store.Get(x.CommitTxID)
	if err != nil {
		return err
	}

	params, err := checkpoint.RevealParams()
	if err != nil {
		return err
	}

	revealTx, err := inscriptions.BuildReveal(context.Background(), params)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = revealTx.Serialize(&buf); err != nil {
		return err
	}

	fmt.Printf("txid: %s\n", revealTx.TxHash())
	fmt.Printf("hex:  %s\n", hex.EncodeToString(buf.Bytes()))

	return nil
}

type checkpointsCommand struct {
	cfg *config.Config
}

func newCheckpointsCommand(cfg *config.Config) *checkpointsCommand {
	return &checkpointsCommand{cfg: cfg}
}

func (x *checkpointsCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"checkpoints",
		"List pending reveal checkpoints",
		"Print commit transactions whose reveal was not broadcast yet",
		x,
	)
	return err
}

func (x *checkpointsCommand) Execute(_ []string) error {
	store, err := inscriptions.OpenRevealStore(x.cfg.StorePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	checkpoints, err := store.List()
	if err != nil {
		return err
	}

	mainLog.Debugf("found %d checkpoints in %s", len(checkpoints), x.cfg.StorePath())

	for _, checkpoint := range checkpoints {
		fmt.Printf("%s %d %s %s\n", checkpoint.CommitTxID, checkpoint.CommitValue, checkpoint.Destination,
			checkpoint.CreatedAt.Format(time.RFC3339))
	}

	return nil
}
