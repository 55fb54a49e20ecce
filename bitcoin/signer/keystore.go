// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

// KeyStore describes wallet key holder able to sign psbt inputs.
type KeyStore interface {
	// PublicKey returns compressed public key as hex string.
	PublicKey() string
	// Address returns wallet address.
	Address() string
	// AddressType returns wallet address type.
	AddressType() bitcoin.AddressType
	// SignPSBT signs packet inputs by provided instructions.
	SignPSBT(ctx context.Context, packet *psbt.Packet, inputs []ToSignInput) error
}

// Strategy defines how psbt input is signed and finalized.
type Strategy byte

const (
	// StrategyLegacy defines ECDSA signing of P2PKH input with script sig finalization.
	StrategyLegacy Strategy = iota + 1
	// StrategyNestedSegwit defines segwit v0 signing of P2SH-P2WPKH input.
	StrategyNestedSegwit
	// StrategySegwit defines segwit v0 signing of P2WPKH input.
	StrategySegwit
	// StrategyTaprootKeyPath defines schnorr signing with tweaked key.
	StrategyTaprootKeyPath
	// StrategyTaprootScriptPath defines schnorr signing of tapscript leaf with untweaked key.
	StrategyTaprootScriptPath
)

// String returns strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyLegacy:
		return "legacy"
	case StrategyNestedSegwit:
		return "nested-segwit"
	case StrategySegwit:
		return "segwit"
	case StrategyTaprootKeyPath:
		return "taproot-key-path"
	case StrategyTaprootScriptPath:
		return "taproot-script-path"
	default:
		return fmt.Sprintf("Strategy(%d)", byte(s))
	}
}

// DefaultSighashType returns signature hash type used when none is requested.
func (s Strategy) DefaultSighashType() txscript.SigHashType {
	switch s {
	case StrategyTaprootKeyPath, StrategyTaprootScriptPath:
		return txscript.SigHashDefault
	default:
		return txscript.SigHashAll
	}
}

// StrategyForAddressType returns key path strategy for wallet address type.
func StrategyForAddressType(addressType bitcoin.AddressType) (Strategy, error) {
	switch addressType {
	case bitcoin.AddressTypeP2PKH:
		return StrategyLegacy, nil
	case bitcoin.AddressTypeP2WPKH, bitcoin.AddressTypeM44P2WPKH:
		return StrategySegwit, nil
	case bitcoin.AddressTypeP2SHP2WPKH:
		return StrategyNestedSegwit, nil
	case bitcoin.AddressTypeP2TR, bitcoin.AddressTypeM44P2TR:
		return StrategyTaprootKeyPath, nil
	default:
		return 0, fmt.Errorf("%w: %d", bitcoin.ErrUnknownAddressType, int(addressType))
	}
}

// ToSignInput defines psbt input to be signed with explicit strategy.
type ToSignInput struct {
	Index        int
	Strategy     Strategy
	SighashType  txscript.SigHashType
	DisableTweak bool // key path only, sign with untweaked key.
}
