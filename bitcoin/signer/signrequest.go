// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

// SignRequest describes external request to sign psbt by wallet.
type SignRequest struct {
	AutoFinalize bool              `json:"autoFinalized"`
	ToSignInputs []UserToSignInput `json:"toSignInputs,omitempty"`
}

// UserToSignInput describes one input of external sign request.
// Either Address or PublicKey must identify the wallet.
type UserToSignInput struct {
	Index              string   `json:"index"`
	Address            string   `json:"address,omitempty"`
	PublicKey          string   `json:"publicKey,omitempty"`
	SighashTypes       []string `json:"sighashTypes,omitempty"`
	DisableTweakSigner bool     `json:"disableTweakSigner,omitempty"`
}

// FormatToSignInputs converts external sign request inputs into signing instructions.
// Without provided inputs, packet annotations are used, then every input locked by wallet script.
func (ks *LocalKeyStore) FormatToSignInputs(packet *psbt.Packet, userInputs []UserToSignInput) ([]ToSignInput, error) {
	strategy, err := StrategyForAddressType(ks.addressType)
	if err != nil {
		return nil, err
	}

	if len(userInputs) == 0 {
		return ks.toSignInputsFromPacket(packet, strategy)
	}

	inputs := make([]ToSignInput, 0, len(userInputs))
	for _, userInput := range userInputs {
		idx, err := strconv.Atoi(userInput.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid index %q", bitcoin.ErrMalformedSignRequest, userInput.Index)
		}
		if idx < 0 || idx >= len(packet.Inputs) {
			return nil, fmt.Errorf("%w: index %d out of range", bitcoin.ErrMalformedSignRequest, idx)
		}

		switch {
		case userInput.Address == "" && userInput.PublicKey == "":
			return nil, fmt.Errorf("%w: no address or public key for input %d", bitcoin.ErrMalformedSignRequest, idx)
		case userInput.Address != "" && userInput.Address != ks.Address():
			return nil, fmt.Errorf("%w: address %s does not match wallet", bitcoin.ErrMalformedSignRequest, userInput.Address)
		case userInput.PublicKey != "" && userInput.PublicKey != ks.PublicKey():
			return nil, fmt.Errorf("%w: public key %s does not match wallet", bitcoin.ErrMalformedSignRequest, userInput.PublicKey)
		}

		input := ToSignInput{
			Index:        idx,
			Strategy:     strategy,
			SighashType:  strategy.DefaultSighashType(),
			DisableTweak: userInput.DisableTweakSigner,
		}

		for i, sighashType := range userInput.SighashTypes {
			value, err := strconv.ParseUint(sighashType, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid sighash type %q", bitcoin.ErrMalformedSignRequest, sighashType)
			}

			if i == 0 {
				input.SighashType = txscript.SigHashType(value)
			}
		}

		inputs = append(inputs, input)
	}

	return inputs, nil
}

// toSignInputsFromPacket returns annotated inputs or inputs locked by wallet script.
func (ks *LocalKeyStore) toSignInputsFromPacket(packet *psbt.Packet, strategy Strategy) ([]ToSignInput, error) {
	inputs, err := ToSignInputsFromPSBT(packet)
	if err != nil {
		return nil, err
	}
	if len(inputs) > 0 {
		return inputs, nil
	}

	for idx, pInput := range packet.Inputs {
		prevOut, err := previousOutput(packet, idx)
		if err != nil || !bytes.Equal(prevOut.PkScript, ks.pkScript) {
			continue
		}

		inputs = append(inputs, ToSignInput{
			Index:       idx,
			Strategy:    strategy,
			SighashType: pInput.SighashType,
		})
	}

	return inputs, nil
}
