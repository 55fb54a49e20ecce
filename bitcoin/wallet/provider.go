// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet

import (
	"context"
	"math/big"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
)

// ChainDataProvider describes chain state source and transactions broadcaster.
// Errors returned by the provider are passed to the caller unchanged.
type ChainDataProvider interface {
	// UTXOs returns unspent outputs of address with linked inscriptions.
	UTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error)
	// FeeRate returns current fee rate estimation in satoshi per kilo virtual byte.
	FeeRate(ctx context.Context) (*big.Int, error)
	// Broadcast sends serialized transaction to the network and returns its id.
	Broadcast(ctx context.Context, rawTxHex string) (string, error)
	// DecodePSBT returns structured view of hex encoded psbt.
	DecodePSBT(ctx context.Context, psbtHex string) (*DecodedPSBT, error)
}

// DecodedPSBT is a structured view of psbt returned by provider.
type DecodedPSBT struct {
	Inputs   []txbuilder.DumpEntry
	Outputs  []txbuilder.DumpEntry
	Fee      *big.Int
	Warnings []string
}
