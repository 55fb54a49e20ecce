// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

// signInputParams defines parameters for input signing methods.
type signInputParams struct {
	packet     *psbt.Packet
	input      ToSignInput
	sigHashes  *txscript.TxSigHashes
	fetcher    txscript.PrevOutputFetcher
	privateKey *btcec.PrivateKey
}

// SignInputs signs packet inputs by provided instructions with private key.
func SignInputs(packet *psbt.Packet, privateKey *btcec.PrivateKey, inputs []ToSignInput) error {
	if privateKey == nil {
		return fmt.Errorf("%w: no private key", bitcoin.ErrSigningPrecondition)
	}

	fetcher, err := PrevOutputFetcher(packet)
	if err != nil {
		return err
	}

	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)
	for _, input := range inputs {
		if input.Index < 0 || input.Index >= len(packet.Inputs) {
			return fmt.Errorf("%w: invalid input index %d", bitcoin.ErrSigningPrecondition, input.Index)
		}

		params := signInputParams{
			packet:     packet,
			input:      input,
			sigHashes:  sigHashes,
			fetcher:    fetcher,
			privateKey: privateKey,
		}

		switch input.Strategy {
		case StrategyLegacy:
			err = signLegacyInput(params)
		case StrategyNestedSegwit, StrategySegwit:
			err = signWitnessV0Input(params)
		case StrategyTaprootKeyPath:
			err = signTaprootKeyPathInput(params)
		case StrategyTaprootScriptPath:
			err = signTaprootScriptPathInput(params)
		default:
			err = fmt.Errorf("%w: unknown strategy %s", bitcoin.ErrSigningPrecondition, input.Strategy)
		}
		if err != nil {
			return fmt.Errorf("sign input %d: %w", input.Index, err)
		}

		log.Debugf("signed input %d with %s strategy", input.Index, input.Strategy)
	}

	return nil
}

// PrevOutputFetcher returns fetcher over previous outputs of all packet inputs.
func PrevOutputFetcher(packet *psbt.Packet) (*txscript.MultiPrevOutFetcher, error) {
	var (
		tx                   = packet.UnsignedTx
		prevOutputFetcherMap = make(map[wire.OutPoint]*wire.TxOut, len(tx.TxIn))
	)
	for idx := range packet.Inputs {
		prevOut, err := previousOutput(packet, idx)
		if err != nil {
			return nil, err
		}

		prevOutputFetcherMap[tx.TxIn[idx].PreviousOutPoint] = prevOut
	}

	return txscript.NewMultiPrevOutFetcher(prevOutputFetcherMap), nil
}

// previousOutput returns spent output of the input from witness or non-witness utxo data.
func previousOutput(packet *psbt.Packet, idx int) (*wire.TxOut, error) {
	input := packet.Inputs[idx]
	if input.WitnessUtxo != nil {
		return input.WitnessUtxo, nil
	}

	outPoint := packet.UnsignedTx.TxIn[idx].PreviousOutPoint
	if input.NonWitnessUtxo != nil && int(outPoint.Index) < len(input.NonWitnessUtxo.TxOut) {
		return input.NonWitnessUtxo.TxOut[outPoint.Index], nil
	}

	return nil, fmt.Errorf("%w: no previous output for input %d", bitcoin.ErrSigningPrecondition, idx)
}

// sighashType returns requested signature hash type or strategy default.
func (p signInputParams) sighashType() txscript.SigHashType {
	if p.input.SighashType != 0 {
		return p.input.SighashType
	}

	if p.packet.Inputs[p.input.Index].SighashType != 0 {
		return p.packet.Inputs[p.input.Index].SighashType
	}

	return p.input.Strategy.DefaultSighashType()
}

// signLegacyInput adds ECDSA partial signature over legacy sighash.
func signLegacyInput(params signInputParams) error {
	input := &params.packet.Inputs[params.input.Index]
	prevOut, err := params.fetcherOutput()
	if err != nil {
		return err
	}

	sig, err := txscript.RawTxInSignature(params.packet.UnsignedTx, params.input.Index,
		prevOut.PkScript, params.sighashType(), params.privateKey)
	if err != nil {
		return err
	}

	input.PartialSigs = append(input.PartialSigs, &psbt.PartialSig{
		PubKey:    params.privateKey.PubKey().SerializeCompressed(),
		Signature: sig,
	})

	return nil
}

// signWitnessV0Input adds ECDSA partial signature over BIP143 sighash.
// Nested inputs sign the redeem script, native ones the output script.
func signWitnessV0Input(params signInputParams) error {
	input := &params.packet.Inputs[params.input.Index]
	prevOut, err := params.fetcherOutput()
	if err != nil {
		return err
	}

	subScript := prevOut.PkScript
	if params.input.Strategy == StrategyNestedSegwit {
		if len(input.RedeemScript) == 0 {
			return fmt.Errorf("%w: no redeem script for nested segwit input", bitcoin.ErrSigningPrecondition)
		}

		subScript = input.RedeemScript
	}

	sig, err := txscript.RawTxInWitnessSignature(params.packet.UnsignedTx, params.sigHashes, params.input.Index,
		prevOut.Value, subScript, params.sighashType(), params.privateKey)
	if err != nil {
		return err
	}

	input.PartialSigs = append(input.PartialSigs, &psbt.PartialSig{
		PubKey:    params.privateKey.PubKey().SerializeCompressed(),
		Signature: sig,
	})

	return nil
}

// signTaprootKeyPathInput adds schnorr signature made by tweaked key.
func signTaprootKeyPathInput(params signInputParams) error {
	var (
		input       = &params.packet.Inputs[params.input.Index]
		sigHashType = params.sighashType()
		signingKey  = params.privateKey
		err         error
	)

	if !params.input.DisableTweak {
		signingKey, err = TweakPrivateKey(params.privateKey, input.TaprootMerkleRoot)
		if err != nil {
			return err
		}
	}

	sigHash, err := txscript.CalcTaprootSignatureHash(params.sigHashes, sigHashType,
		params.packet.UnsignedTx, params.input.Index, params.fetcher)
	if err != nil {
		return err
	}

	sig, err := schnorr.Sign(signingKey, sigHash)
	if err != nil {
		return err
	}

	input.TaprootKeySpendSig = appendSighashType(sig.Serialize(), sigHashType)

	return nil
}

// signTaprootScriptPathInput adds schnorr signature of the first tapscript leaf made by untweaked key.
func signTaprootScriptPathInput(params signInputParams) error {
	input := &params.packet.Inputs[params.input.Index]
	if len(input.TaprootLeafScript) == 0 {
		return fmt.Errorf("%w: no tapscript leaf for script path input", bitcoin.ErrSigningPrecondition)
	}

	prevOut, err := params.fetcherOutput()
	if err != nil {
		return err
	}

	var (
		leafScript  = input.TaprootLeafScript[0]
		tapLeaf     = txscript.NewTapLeaf(leafScript.LeafVersion, leafScript.Script)
		leafHash    = tapLeaf.TapHash()
		sigHashType = params.sighashType()
	)

	sig, err := txscript.RawTxInTapscriptSignature(params.packet.UnsignedTx, params.sigHashes, params.input.Index,
		prevOut.Value, prevOut.PkScript, tapLeaf, sigHashType, params.privateKey)
	if err != nil {
		return err
	}

	input.TaprootScriptSpendSig = append(input.TaprootScriptSpendSig, &psbt.TaprootScriptSpendSig{
		XOnlyPubKey: schnorr.SerializePubKey(params.privateKey.PubKey()),
		LeafHash:    leafHash.CloneBytes(),
		Signature:   sig[:schnorr.SignatureSize],
		SigHash:     sigHashType,
	})

	return nil
}

// fetcherOutput returns previous output of the signed input.
func (p signInputParams) fetcherOutput() (*wire.TxOut, error) {
	return previousOutput(p.packet, p.input.Index)
}

// appendSighashType appends sighash byte to 64 bytes schnorr signature unless it is default.
func appendSighashType(sig []byte, sigHashType txscript.SigHashType) []byte {
	if sigHashType == txscript.SigHashDefault {
		return sig
	}

	return append(sig, byte(sigHashType))
}
