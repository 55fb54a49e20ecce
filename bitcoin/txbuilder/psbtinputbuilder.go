// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/bitcoin/utils"
)

// ErrPSBTInputBuilder defines errors class for prepare input data method.
var ErrPSBTInputBuilder = errors.New("prepare psbt input data")

// PSBTInputBuilder is a helping tool to prepare psbt input based on wallet address type and input strategy.
type PSBTInputBuilder struct {
	params       *chaincfg.Params
	addressType  bitcoin.AddressType
	publicKey    *btcec.PublicKey
	xOnlyPubKey  []byte
	redeemScript []byte
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder.
func NewPSBTInputBuilder(pubKey string, addressType bitcoin.AddressType, networkParams *chaincfg.Params) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: networkParams, addressType: addressType}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	if err = addressType.Validate(); err != nil {
		return pib, err
	}

	publicKeyBytes, err := hex.DecodeString(pubKey)
	if err != nil {
		return pib, err
	}

	pib.publicKey, err = btcec.ParsePubKey(publicKeyBytes)
	if err != nil {
		return pib, err
	}

	pib.xOnlyPubKey = schnorr.SerializePubKey(pib.publicKey)

	if addressType == bitcoin.AddressTypeP2SHP2WPKH {
		pib.redeemScript, err = bitcoin.NestedWitnessRedeemScript(pib.publicKey, pib.params)
		if err != nil {
			return pib, err
		}
	}

	return pib, nil
}

// PrepareInput updates psbt input with required data based on input strategy.
func (pib *PSBTInputBuilder) PrepareInput(pInput *psbt.PInput, input *Input) (err error) {
	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	pInput.WitnessUtxo = wire.NewTxOut(input.UTXO.Amount.Int64(), input.PkScript)
	pInput.SighashType = input.Strategy.DefaultSighashType()

	switch input.Strategy {
	case signer.StrategyTaprootKeyPath:
		pInput.TaprootInternalKey = pib.xOnlyPubKey
	case signer.StrategyTaprootScriptPath:
		pInput.TaprootInternalKey = input.ScriptPath.InternalKey
		return utils.UpdatePSBTInputWithTapScriptLeafData(pInput, input.ScriptPath.LeafScript, input.ScriptPath.ControlBlock)
	case signer.StrategyNestedSegwit:
		pInput.RedeemScript = pib.redeemScript
	case signer.StrategyLegacy, signer.StrategySegwit:
	}

	return nil
}

// AddressType returns underlying wallet address type.
func (pib *PSBTInputBuilder) AddressType() bitcoin.AddressType {
	return pib.addressType
}
