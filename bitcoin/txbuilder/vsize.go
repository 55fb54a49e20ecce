// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
)

const (
	// p2pkhSigScriptSize defines worst-case but standard P2PKH script sig:
	// push of 72 bytes DER signature with sighash and push of 33 bytes public key.
	p2pkhSigScriptSize = 108
	// nestedSigScriptSize defines script sig pushing 22 bytes P2WPKH redeem script.
	nestedSigScriptSize = 23
	// ecdsaSignatureSize defines the biggest DER signature with sighash byte.
	ecdsaSignatureSize = 73
	// compressedPubKeySize defines compressed public key size.
	compressedPubKeySize = 33
	// schnorrSignatureSize defines schnorr signature size with default sighash.
	schnorrSignatureSize = 64
)

// VirtualSize returns transaction virtual size with inputs filled by dummy signing data of maximal standard size.
func (t *Transaction) VirtualSize() (int64, error) {
	tx, err := t.UnsignedTx()
	if err != nil {
		return 0, err
	}

	for idx, input := range t.inputs {
		sigScript, witness, err := dummySigningData(input)
		if err != nil {
			return 0, fmt.Errorf("input %d: %w", idx, err)
		}

		tx.TxIn[idx].SignatureScript = sigScript
		tx.TxIn[idx].Witness = witness
	}

	return mempool.GetTxVirtualSize(btcutil.NewTx(tx)), nil
}

// dummySigningData returns script sig and witness of final input sizes.
func dummySigningData(input Input) ([]byte, wire.TxWitness, error) {
	switch input.Strategy {
	case signer.StrategyLegacy:
		return make([]byte, p2pkhSigScriptSize), nil, nil
	case signer.StrategyNestedSegwit:
		return make([]byte, nestedSigScriptSize), wire.TxWitness{
			make([]byte, ecdsaSignatureSize),
			make([]byte, compressedPubKeySize),
		}, nil
	case signer.StrategySegwit:
		return nil, wire.TxWitness{
			make([]byte, ecdsaSignatureSize),
			make([]byte, compressedPubKeySize),
		}, nil
	case signer.StrategyTaprootKeyPath:
		return nil, wire.TxWitness{make([]byte, schnorrSignatureSize)}, nil
	case signer.StrategyTaprootScriptPath:
		if input.ScriptPath == nil {
			return nil, nil, fmt.Errorf("%w: no script path data", bitcoin.ErrSigningPrecondition)
		}

		return nil, wire.TxWitness{
			make([]byte, schnorrSignatureSize),
			input.ScriptPath.LeafScript,
			input.ScriptPath.ControlBlock,
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown strategy %s", bitcoin.ErrSigningPrecondition, input.Strategy)
	}
}
