// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/BoostyLabs/ordtx/internal/numbers"
)

// FeePolicy defines who pays the network fee.
type FeePolicy int

const (
	// SenderPaysFee defines that fee is taken from inputs, the rest returns to change address.
	SenderPaysFee FeePolicy = iota
	// ReceiverPaysFee defines that fee is subtracted from the first output.
	ReceiverPaysFee
)

// String returns fee policy name.
func (p FeePolicy) String() string {
	switch p {
	case SenderPaysFee:
		return "sender-pays"
	case ReceiverPaysFee:
		return "receiver-pays"
	default:
		return fmt.Sprintf("FeePolicy(%d)", int(p))
	}
}

// ApplyFeePolicy balances transaction outputs and fee by policy.
func ApplyFeePolicy(tx *Transaction, policy FeePolicy) error {
	switch policy {
	case SenderPaysFee:
		return applySenderPaysFee(tx)
	case ReceiverPaysFee:
		return applyReceiverPaysFee(tx)
	default:
		return fmt.Errorf("unknown fee policy %s", policy)
	}
}

// applySenderPaysFee estimates fee with dummy change output, then sets change to the rest
// or drops it if the rest is below dust.
func applySenderPaysFee(tx *Transaction) error {
	unspent := tx.Unspent()
	if !numbers.IsPositive(unspent) {
		return NewInsufficientError(new(big.Int).Add(tx.TotalOutput(), big.NewInt(1)), tx.TotalInput()).setCauser(CauserSender)
	}

	err := tx.AddChangeOutput(big.NewInt(1))
	if err != nil {
		return err
	}

	fee, err := tx.CalNetworkFee()
	if err != nil {
		tx.RemoveChangeOutput()
		return err
	}

	if numbers.IsLess(unspent, fee) {
		tx.RemoveChangeOutput()
		return NewInsufficientError(new(big.Int).Add(tx.TotalOutput(), fee), tx.TotalInput()).setCauser(CauserSender)
	}

	change := new(big.Int).Sub(unspent, fee)
	if numbers.IsLess(change, dustThreshold) {
		log.Debugf("change %s is below dust, left to miners", change)
		tx.RemoveChangeOutput()

		return nil
	}

	tx.ChangeOutput().Value.Set(change)

	return nil
}

// applyReceiverPaysFee subtracts fee from the first output, inputs surplus is left to fee.
func applyReceiverPaysFee(tx *Transaction) error {
	if len(tx.outputs) == 0 {
		return fmt.Errorf("no recipient output to pay fee from")
	}

	totalInput, totalOutput := tx.TotalInput(), tx.TotalOutput()
	if numbers.IsLess(totalInput, totalOutput) {
		return NewInsufficientError(totalOutput, totalInput).setCauser(CauserSender)
	}

	fee, err := tx.CalNetworkFee()
	if err != nil {
		return err
	}

	recipient := &tx.outputs[0]
	if numbers.IsLess(recipient.Value, fee) {
		return NewInsufficientError(fee, recipient.Value).setCauser(CauserReceiver)
	}

	rest := new(big.Int).Sub(recipient.Value, fee)
	if numbers.IsLess(rest, dustThreshold) {
		return NewInsufficientError(new(big.Int).Add(fee, dustThreshold), recipient.Value).setCauser(CauserReceiver)
	}

	recipient.Value.Set(rest)

	return nil
}
