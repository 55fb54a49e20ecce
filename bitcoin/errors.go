// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
)

var (
	// ErrInsufficientFunds defines that no set of utxos covers outputs and fee.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInscriptionNotFound defines that requested inscription is not linked to any of provided utxos.
	ErrInscriptionNotFound = errors.New("inscription not found")
	// ErrInvalidInputSelection defines that selected utxo carries more inscriptions than the operation allows.
	ErrInvalidInputSelection = errors.New("invalid input selection")
	// ErrSigningPrecondition defines that signing can not be started, e.g. private key is missing.
	ErrSigningPrecondition = errors.New("signing precondition failed")
	// ErrMalformedSignRequest defines that sign request does not match wallet or is not parsable.
	ErrMalformedSignRequest = errors.New("malformed sign request")
	// ErrUnknownAddressType defines that address type is not supported.
	ErrUnknownAddressType = errors.New("unknown address type")
	// ErrEccNotInitialized defines that curve library was used before ecc.Init call.
	ErrEccNotInitialized = errors.New("ecc library is not initialized")
)
