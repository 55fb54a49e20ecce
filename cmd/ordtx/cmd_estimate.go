// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/config"
)

type estimateCommand struct {
	cfg *config.Config

	File        string `long:"file" short:"f" description:"Path to the inscription content" required:"true"`
	ContentType string `long:"contenttype" description:"Inscription content type, detected from the file if empty"`
	Address     string `long:"address" short:"a" description:"Inscription destination address" required:"true"`
	Count       int    `long:"count" description:"Amount of inscriptions of the same size"`
}

func newEstimateCommand(cfg *config.Config) *estimateCommand {
	return &estimateCommand{cfg: cfg, Count: 1}
}

func (x *estimateCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"estimate",
		"Estimate inscription fees",
		"Print commit output value calculated from the file size, "+
			"and the reveal fee measured on a signed reveal "+
			"transaction of the file",
		x,
	)
	return err
}

func (x *estimateCommand) Execute(_ []string) error {
	params, err := x.cfg.Params()
	if err != nil {
		return err
	}

	body, err := os.ReadFile(x.File)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", x.File, err)
	}

	contentType := x.ContentType
	if contentType == "" {
		contentType = detectContentType(x.File, body)
	}

	feeRate := x.cfg.SatoshiPerKVByte()
	commitValue, err := inscriptions.CalculateMultiInscribeFee(x.Count, len(body), x.Address, feeRate)
	if err != nil {
		return err
	}

	inscription := &inscriptions.Inscription{ContentType: contentType, Body: body}
	revealFee, err := inscriptions.EstimateInscribeFee(inscription, x.Address, feeRate, params)
	if err != nil {
		return err
	}

	mainLog.Debugf("estimated %d bytes of %s at %s sat/kvB", len(body), contentType, feeRate)

	fmt.Printf("content type:  %s\n", contentType)
	fmt.Printf("file size:     %d\n", len(body))
	fmt.Printf("commit value:  %s\n", commitValue)
	fmt.Printf("reveal fee:    %s\n", revealFee)

	return nil
}

// detectContentType returns mime type by file extension or content.
func detectContentType(path string, body []byte) string {
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		return contentType
	}

	return http.DetectContentType(body)
}
