// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"math/big"

	"github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/splitter"
	"github.com/BoostyLabs/ordtx/config"
)

type splitCommand struct {
	cfg *config.Config

	Value   int64   `long:"value" description:"UTXO value in satoshi" required:"true"`
	Offsets []int64 `long:"offset" description:"Inscription offset inside the UTXO, may be repeated"`
}

func newSplitCommand(cfg *config.Config) *splitCommand {
	return &splitCommand{cfg: cfg}
}

func (x *splitCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"split",
		"Preview splitting of an inscription UTXO",
		"Print units the UTXO of --value satoshi with inscriptions "+
			"at every --offset is split into, using the configured "+
			"split value",
		x,
	)
	return err
}

func (x *splitCommand) Execute(_ []string) error {
	utxo := bitcoin.UTXO{Amount: big.NewInt(x.Value)}
	for idx, offset := range x.Offsets {
		utxo.Inscriptions = append(utxo.Inscriptions, bitcoin.InscriptionUTXO{
			ID:     fmt.Sprintf("#%d", idx),
			Offset: offset,
		})
	}

	ordUTXO, err := splitter.Split(utxo, big.NewInt(x.cfg.SplitValue))
	if err != nil {
		return err
	}

	for idx, unit := range ordUTXO.Units {
		ids := make([]string, 0, len(unit.Inscriptions))
		for _, inscription := range unit.Inscriptions {
			ids = append(ids, inscription.ID)
		}

		fmt.Printf("unit %d: %s %v\n", idx, unit.Value, ids)
	}

	return nil
}
