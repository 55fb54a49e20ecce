// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

// maxWitnessItemSize defines the biggest witness item accepted on extraction.
// Bounded by the block weight, tapscript leaves are not limited to 10000 bytes.
const maxWitnessItemSize = 4_000_000

// WitnessAssembler builds final witness stack for script path input from signed psbt input.
type WitnessAssembler func(input *psbt.PInput) (wire.TxWitness, error)

// ScriptPathWitness is default WitnessAssembler: [signature, leaf script, control block].
func ScriptPathWitness(input *psbt.PInput) (wire.TxWitness, error) {
	if len(input.TaprootScriptSpendSig) == 0 || len(input.TaprootLeafScript) == 0 {
		return nil, fmt.Errorf("%w: script path input is not signed", bitcoin.ErrSigningPrecondition)
	}

	sig := input.TaprootScriptSpendSig[0]
	leaf := input.TaprootLeafScript[0]

	return wire.TxWitness{
		appendSighashType(sig.Signature, sig.SigHash),
		leaf.Script,
		leaf.ControlBlock,
	}, nil
}

// FinalizeInput assembles final script sig and witness of signed input by strategy.
// Assembler is used only for script path inputs, ScriptPathWitness if nil.
func FinalizeInput(packet *psbt.Packet, idx int, strategy Strategy, assembler WitnessAssembler) error {
	if idx < 0 || idx >= len(packet.Inputs) {
		return fmt.Errorf("%w: invalid input index %d", bitcoin.ErrSigningPrecondition, idx)
	}

	var (
		input     = &packet.Inputs[idx]
		sigScript []byte
		witness   wire.TxWitness
		err       error
	)

	switch strategy {
	case StrategyLegacy:
		sig, pubKey, err := firstPartialSig(input)
		if err != nil {
			return err
		}

		sigScript, err = txscript.NewScriptBuilder().AddData(sig).AddData(pubKey).Script()
		if err != nil {
			return err
		}
	case StrategyNestedSegwit:
		sig, pubKey, err := firstPartialSig(input)
		if err != nil {
			return err
		}

		sigScript, err = txscript.NewScriptBuilder().AddData(input.RedeemScript).Script()
		if err != nil {
			return err
		}

		witness = wire.TxWitness{sig, pubKey}
	case StrategySegwit:
		sig, pubKey, err := firstPartialSig(input)
		if err != nil {
			return err
		}

		witness = wire.TxWitness{sig, pubKey}
	case StrategyTaprootKeyPath:
		if len(input.TaprootKeySpendSig) == 0 {
			return fmt.Errorf("%w: input %d is not signed", bitcoin.ErrSigningPrecondition, idx)
		}

		witness = wire.TxWitness{input.TaprootKeySpendSig}
	case StrategyTaprootScriptPath:
		if assembler == nil {
			assembler = ScriptPathWitness
		}

		witness, err = assembler(input)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown strategy %s", bitcoin.ErrSigningPrecondition, strategy)
	}

	input.FinalScriptSig = sigScript
	if len(witness) > 0 {
		var buf bytes.Buffer
		if err = psbt.WriteTxWitness(&buf, witness); err != nil {
			return err
		}

		input.FinalScriptWitness = buf.Bytes()
	}

	clearPartialData(input)

	return nil
}

// firstPartialSig returns the first ECDSA partial signature with its public key.
func firstPartialSig(input *psbt.PInput) ([]byte, []byte, error) {
	if len(input.PartialSigs) == 0 {
		return nil, nil, fmt.Errorf("%w: input is not signed", bitcoin.ErrSigningPrecondition)
	}

	return input.PartialSigs[0].Signature, input.PartialSigs[0].PubKey, nil
}

// clearPartialData removes signing data which is not needed after finalization.
func clearPartialData(input *psbt.PInput) {
	input.PartialSigs = nil
	input.SighashType = 0
	input.RedeemScript = nil
	input.WitnessScript = nil
	input.Bip32Derivation = nil
	input.TaprootKeySpendSig = nil
	input.TaprootScriptSpendSig = nil
	input.TaprootLeafScript = nil
	input.TaprootBip32Derivation = nil
	input.TaprootInternalKey = nil
	input.TaprootMerkleRoot = nil
}

// ExtractTx returns final transaction from fully finalized packet.
func ExtractTx(packet *psbt.Packet) (*wire.MsgTx, error) {
	tx := packet.UnsignedTx.Copy()
	for idx, input := range packet.Inputs {
		if len(input.FinalScriptSig) == 0 && len(input.FinalScriptWitness) == 0 {
			return nil, fmt.Errorf("%w: input %d is not finalized", psbt.ErrIncompletePSBT, idx)
		}

		tx.TxIn[idx].SignatureScript = input.FinalScriptSig
		if len(input.FinalScriptWitness) == 0 {
			continue
		}

		witness, err := readWitness(input.FinalScriptWitness)
		if err != nil {
			return nil, fmt.Errorf("input %d witness: %w", idx, err)
		}

		tx.TxIn[idx].Witness = witness
	}

	return tx, nil
}

// readWitness parses serialized witness stack.
func readWitness(data []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(data)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	if count > uint64(len(data)) {
		return nil, fmt.Errorf("witness items count %d exceeds data size", count)
	}

	witness := make(wire.TxWitness, count)
	for i := range witness {
		witness[i], err = wire.ReadVarBytes(r, 0, maxWitnessItemSize, "witness item")
		if err != nil {
			return nil, err
		}
	}

	return witness, nil
}
