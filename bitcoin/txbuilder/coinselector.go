// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"math/big"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/internal/numbers"
)

// SelectUTXOs appends candidates to transaction inputs in the given order until
// inputs cover outputs and the network fee of the current transaction size.
// Candidates must not carry inscriptions, order is never changed.
//
// While inputs are below outputs the next candidate is added unconditionally,
// afterwards the fee is recalculated before every next candidate.
// Returns InsufficientError if candidates are exhausted while outputs are not covered.
func SelectUTXOs(tx *Transaction, candidates []bitcoin.UTXO) error {
	for _, candidate := range candidates {
		covered, err := coversOutputsAndFee(tx)
		if err != nil {
			return err
		}
		if covered {
			return nil
		}

		err = tx.AddInput(candidate)
		if err != nil {
			return err
		}
	}

	totalInput, totalOutput := tx.TotalInput(), tx.TotalOutput()
	if numbers.IsLess(totalInput, totalOutput) {
		return NewInsufficientError(totalOutput, totalInput).setCauser(CauserSender)
	}

	log.Debugf("selected %d inputs with %s satoshi to cover %s satoshi", len(tx.inputs), totalInput, totalOutput)

	return nil
}

// coversOutputsAndFee returns true if inputs cover outputs and network fee.
func coversOutputsAndFee(tx *Transaction) (bool, error) {
	totalInput, totalOutput := tx.TotalInput(), tx.TotalOutput()
	if numbers.IsLess(totalInput, totalOutput) {
		return false, nil
	}

	fee, err := tx.CalNetworkFee()
	if err != nil {
		return false, err
	}

	return !numbers.IsLess(totalInput, new(big.Int).Add(totalOutput, fee)), nil
}
