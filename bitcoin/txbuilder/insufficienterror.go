// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

type causerSign string

const (
	// CauserSender defines that the sender (change owner) caused this error type.
	CauserSender causerSign = "sender"
	// CauserReceiver defines that the receiver caused this error type paying the fee from received value.
	CauserReceiver causerSign = "receiver"
)

// InsufficientError is the error type to describe insufficient funds errors with details.
type InsufficientError struct {
	Need   *big.Int
	Have   *big.Int
	Causer causerSign
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(need, have *big.Int) *InsufficientError {
	return &InsufficientError{need, have, ""}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	var errMsg = bitcoin.ErrInsufficientFunds.Error()

	if e.Have != nil && e.Need != nil {
		errMsg += fmt.Sprintf(": Need - %s, Have - %s", e.Need, e.Have)
	}

	if e.Causer != "" {
		errMsg += " (" + string(e.Causer) + ")"
	}

	return errMsg
}

// Is implements comparator method for [errors] package.
func (e *InsufficientError) Is(target error) bool {
	return target == bitcoin.ErrInsufficientFunds
}

// setCauser updates InsufficientError with provided causer.
func (e *InsufficientError) setCauser(causer causerSign) *InsufficientError {
	e.Causer = causer
	return e
}
