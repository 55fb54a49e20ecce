// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package ecc holds process wide secp256k1 setup.
//
// Init must be called once before any address derivation or signing. Constructors that
// depend on the curve check Initialized and fail with bitcoin.ErrEccNotInitialized otherwise.
package ecc

import (
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

var (
	once        sync.Once
	initialized atomic.Bool
)

// Init prepares curve precomputations. Safe to call many times.
func Init() {
	once.Do(func() {
		// forces base point multiplication table load.
		var one secp256k1.ModNScalar
		one.SetInt(1)
		_ = secp256k1.NewPrivateKey(&one).PubKey()
		_ = btcec.S256()

		initialized.Store(true)
	})
}

// Initialized returns true if Init has been called.
func Initialized() bool {
	return initialized.Load()
}

// Check returns bitcoin.ErrEccNotInitialized if Init has not been called.
func Check() error {
	if !Initialized() {
		return bitcoin.ErrEccNotInitialized
	}

	return nil
}
