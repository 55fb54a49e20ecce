// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
)

// ensures that LocalKeyStore implements KeyStore.
var _ KeyStore = (*LocalKeyStore)(nil)

// LocalKeyStore is in-process KeyStore over single private key.
type LocalKeyStore struct {
	privateKey  *btcec.PrivateKey
	addressType bitcoin.AddressType
	address     string
	pkScript    []byte
	params      *chaincfg.Params
}

// NewLocalKeyStore is a constructor for LocalKeyStore.
func NewLocalKeyStore(privateKey *btcec.PrivateKey, addressType bitcoin.AddressType, params *chaincfg.Params) (*LocalKeyStore, error) {
	if err := ecc.Check(); err != nil {
		return nil, err
	}
	if privateKey == nil {
		return nil, fmt.Errorf("%w: no private key", bitcoin.ErrSigningPrecondition)
	}

	address, err := bitcoin.PublicKeyToAddress(privateKey.PubKey(), addressType, params)
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(address)
	if err != nil {
		return nil, err
	}

	return &LocalKeyStore{
		privateKey:  privateKey,
		addressType: addressType,
		address:     address.EncodeAddress(),
		pkScript:    pkScript,
		params:      params,
	}, nil
}

// PublicKey returns compressed public key as hex string.
func (ks *LocalKeyStore) PublicKey() string {
	return hex.EncodeToString(ks.privateKey.PubKey().SerializeCompressed())
}

// XOnlyPublicKey returns 32 bytes x-only public key.
func (ks *LocalKeyStore) XOnlyPublicKey() []byte {
	return schnorr.SerializePubKey(ks.privateKey.PubKey())
}

// Address returns wallet address.
func (ks *LocalKeyStore) Address() string {
	return ks.address
}

// AddressType returns wallet address type.
func (ks *LocalKeyStore) AddressType() bitcoin.AddressType {
	return ks.addressType
}

// PkScript returns locking script of wallet address.
func (ks *LocalKeyStore) PkScript() []byte {
	return ks.pkScript
}

// SignPSBT signs packet inputs by provided instructions.
func (ks *LocalKeyStore) SignPSBT(ctx context.Context, packet *psbt.Packet, inputs []ToSignInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return SignInputs(packet, ks.privateKey, inputs)
}

// SignPSBTRequest validates external sign request, signs and optionally finalizes packet inputs.
func (ks *LocalKeyStore) SignPSBTRequest(ctx context.Context, packet *psbt.Packet, request SignRequest) error {
	inputs, err := ks.FormatToSignInputs(packet, request.ToSignInputs)
	if err != nil {
		return err
	}

	err = ks.restoreInputData(packet, inputs)
	if err != nil {
		return err
	}

	err = ks.SignPSBT(ctx, packet, inputs)
	if err != nil {
		return err
	}

	if !request.AutoFinalize {
		return nil
	}

	for _, input := range inputs {
		err = FinalizeInput(packet, input.Index, input.Strategy, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

// restoreInputData sets missing taproot internal key or nested segwit redeem script of wallet inputs.
func (ks *LocalKeyStore) restoreInputData(packet *psbt.Packet, inputs []ToSignInput) error {
	for _, input := range inputs {
		pInput := &packet.Inputs[input.Index]
		if pInput.WitnessUtxo == nil || !bytes.Equal(pInput.WitnessUtxo.PkScript, ks.pkScript) {
			continue
		}

		switch {
		case input.Strategy == StrategyTaprootKeyPath && len(pInput.TaprootInternalKey) == 0:
			pInput.TaprootInternalKey = ks.XOnlyPublicKey()
		case input.Strategy == StrategyNestedSegwit && len(pInput.RedeemScript) == 0:
			redeemScript, err := bitcoin.NestedWitnessRedeemScript(ks.privateKey.PubKey(), ks.params)
			if err != nil {
				return err
			}

			pInput.RedeemScript = redeemScript
		}
	}

	return nil
}
