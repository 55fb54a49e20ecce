// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"context"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
)

// commitOutputIndex defines commit transaction output locked by envelope.
const commitOutputIndex uint32 = 0

// ErrNoCommitValue defines that commit output value is unknown.
var ErrNoCommitValue = errors.New("no commit output value")

// RevealParams describes data needed to build reveal transaction.
type RevealParams struct {
	CommitTxID       string
	Envelope         *Envelope
	Destination      string   // inscription recipient address.
	OutputValue      *big.Int // postage, dust threshold if nil.
	SatoshiPerKVByte *big.Int
	EnableRBF        bool
}

// NewRevealTransaction returns pending reveal transaction spending commit output 0 by inscription leaf.
// Unsigned transaction depends only on provided params.
func NewRevealTransaction(params RevealParams) (*txbuilder.Transaction, error) {
	envelope := params.Envelope
	if envelope.CommitValue == nil {
		return nil, ErrNoCommitValue
	}

	keyStore, err := envelope.KeyStore()
	if err != nil {
		return nil, err
	}

	outputValue := params.OutputValue
	if outputValue == nil {
		outputValue = big.NewInt(bitcoin.DustThreshold)
	}

	tx := txbuilder.NewTransaction(txbuilder.Config{
		Params:           envelope.Params(),
		KeyStore:         keyStore,
		SatoshiPerKVByte: params.SatoshiPerKVByte,
		EnableRBF:        params.EnableRBF,
	})

	err = tx.AddScriptPathInput(bitcoin.UTXO{
		TxHash:      params.CommitTxID,
		Index:       commitOutputIndex,
		Amount:      envelope.CommitValue,
		Script:      envelope.CommitPkScript,
		Address:     envelope.CommitAddress,
		AddressType: bitcoin.AddressTypeP2TR,
	}, txbuilder.ScriptPathSpend{
		InternalKey:  envelope.XOnlyInternalKey(),
		LeafScript:   envelope.LeafScript,
		ControlBlock: envelope.ControlBlock,
		Assembler:    envelope.WitnessAssembler(),
	})
	if err != nil {
		return nil, err
	}

	err = tx.AddOutput(params.Destination, outputValue)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// BuildReveal builds, signs with envelope internal key and finalizes reveal transaction.
func BuildReveal(ctx context.Context, params RevealParams) (*wire.MsgTx, error) {
	tx, err := NewRevealTransaction(params)
	if err != nil {
		return nil, err
	}

	packet, err := tx.CreateSignedPSBT(ctx)
	if err != nil {
		return nil, err
	}

	revealTx, err := txbuilder.ExtractTx(packet)
	if err != nil {
		return nil, err
	}

	log.Infof("reveal transaction %s spends commit %s:%d", revealTx.TxHash(), params.CommitTxID, commitOutputIndex)

	return revealTx, nil
}

// RevealFee returns network fee of reveal transaction of the envelope to destination.
func RevealFee(envelope *Envelope, destination string, satoshiPerKVByte *big.Int) (*big.Int, error) {
	commitValue := envelope.CommitValue
	if commitValue == nil {
		commitValue = big.NewInt(0)
	}

	estimation := *envelope
	estimation.CommitValue = commitValue

	tx, err := NewRevealTransaction(RevealParams{
		CommitTxID:       placeholderCommitTxID,
		Envelope:         &estimation,
		Destination:      destination,
		SatoshiPerKVByte: satoshiPerKVByte,
	})
	if err != nil {
		return nil, err
	}

	return tx.CalNetworkFee()
}
