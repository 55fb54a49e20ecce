// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// AddressType defines closed set of wallet address types.
type AddressType int

const (
	// AddressTypeP2PKH defines legacy pay to public key hash address.
	AddressTypeP2PKH AddressType = iota
	// AddressTypeP2WPKH defines native segwit v0 pay to witness public key hash address.
	AddressTypeP2WPKH
	// AddressTypeP2TR defines taproot address with key path spending.
	AddressTypeP2TR
	// AddressTypeP2SHP2WPKH defines nested segwit address (P2WPKH wrapped into P2SH).
	AddressTypeP2SHP2WPKH
	// AddressTypeM44P2WPKH defines P2WPKH address derived by m/44' path.
	AddressTypeM44P2WPKH
	// AddressTypeM44P2TR defines P2TR address derived by m/44' path.
	AddressTypeM44P2TR
)

// String returns address type name.
func (t AddressType) String() string {
	switch t {
	case AddressTypeP2PKH:
		return "P2PKH"
	case AddressTypeP2WPKH:
		return "P2WPKH"
	case AddressTypeP2TR:
		return "P2TR"
	case AddressTypeP2SHP2WPKH:
		return "P2SH_P2WPKH"
	case AddressTypeM44P2WPKH:
		return "M44_P2WPKH"
	case AddressTypeM44P2TR:
		return "M44_P2TR"
	default:
		return fmt.Sprintf("AddressType(%d)", int(t))
	}
}

// Validate returns ErrUnknownAddressType if address type is out of the defined set.
func (t AddressType) Validate() error {
	switch t {
	case AddressTypeP2PKH, AddressTypeP2WPKH, AddressTypeP2TR,
		AddressTypeP2SHP2WPKH, AddressTypeM44P2WPKH, AddressTypeM44P2TR:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAddressType, int(t))
	}
}

// IsTaproot returns true for taproot address types.
func (t AddressType) IsTaproot() bool {
	switch t {
	case AddressTypeP2TR, AddressTypeM44P2TR:
		return true
	default:
		return false
	}
}

// ParseAddressType parses address type from its name.
func ParseAddressType(name string) (AddressType, error) {
	for _, t := range []AddressType{
		AddressTypeP2PKH, AddressTypeP2WPKH, AddressTypeP2TR,
		AddressTypeP2SHP2WPKH, AddressTypeM44P2WPKH, AddressTypeM44P2TR,
	} {
		if t.String() == name {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownAddressType, name)
}

// PublicKeyToAddress returns address of provided type built over public key.
func PublicKeyToAddress(pubKey *btcec.PublicKey, addressType AddressType, params *chaincfg.Params) (btcutil.Address, error) {
	switch addressType {
	case AddressTypeP2PKH:
		return btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), params)
	case AddressTypeP2WPKH, AddressTypeM44P2WPKH:
		return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), params)
	case AddressTypeP2TR, AddressTypeM44P2TR:
		return btcutil.NewAddressTaproot(schnorr.SerializePubKey(txscript.ComputeTaprootKeyNoScript(pubKey)), params)
	case AddressTypeP2SHP2WPKH:
		redeemScript, err := NestedWitnessRedeemScript(pubKey, params)
		if err != nil {
			return nil, err
		}

		return btcutil.NewAddressScriptHash(redeemScript, params)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAddressType, int(addressType))
	}
}

// NestedWitnessRedeemScript returns P2WPKH witness program used as redeem script by P2SH-P2WPKH address.
func NestedWitnessRedeemScript(pubKey *btcec.PublicKey, params *chaincfg.Params) ([]byte, error) {
	witnessAddress, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), params)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(witnessAddress)
}

// AddressTypeFromAddress returns address type for decoded address.
// P2SH addresses are treated as nested segwit, the only P2SH kind wallet produces.
func AddressTypeFromAddress(address btcutil.Address) (AddressType, error) {
	switch address.(type) {
	case *btcutil.AddressPubKeyHash:
		return AddressTypeP2PKH, nil
	case *btcutil.AddressWitnessPubKeyHash:
		return AddressTypeP2WPKH, nil
	case *btcutil.AddressTaproot:
		return AddressTypeP2TR, nil
	case *btcutil.AddressScriptHash:
		return AddressTypeP2SHP2WPKH, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownAddressType, address)
	}
}
