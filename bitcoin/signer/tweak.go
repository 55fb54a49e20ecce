// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

// TapTweakHash returns BIP341 tagged hash "TapTweak" of x-only public key and optional merkle root.
func TapTweakHash(xOnlyPubKey, merkleRoot []byte) []byte {
	return chainhash.TaggedHash(chainhash.TagTapTweak, xOnlyPubKey, merkleRoot).CloneBytes()
}

// TweakPrivateKey returns private key tweaked for taproot key path spending.
// Private scalar is negated first if the public key has odd Y coordinate.
func TweakPrivateKey(privateKey *btcec.PrivateKey, merkleRoot []byte) (*btcec.PrivateKey, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("%w: no private key to tweak", bitcoin.ErrSigningPrecondition)
	}

	scalar := privateKey.Key
	pubKey := privateKey.PubKey()
	if pubKey.SerializeCompressed()[0] == secp256k1.PubKeyFormatCompressedOdd {
		scalar.Negate()
	}

	var tweak btcec.ModNScalar
	if overflow := tweak.SetByteSlice(TapTweakHash(schnorr.SerializePubKey(pubKey), merkleRoot)); overflow {
		return nil, fmt.Errorf("%w: tweak exceeds curve order", bitcoin.ErrSigningPrecondition)
	}

	scalar.Add(&tweak)
	if scalar.IsZero() {
		return nil, fmt.Errorf("%w: tweaked key is zero", bitcoin.ErrSigningPrecondition)
	}

	return &btcec.PrivateKey{Key: scalar}, nil
}
