// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
)

// NewTapScriptTreeFromRawScripts builds tapScript tree from provided raw leaf scripts.
func NewTapScriptTreeFromRawScripts(leafScripts ...[]byte) (*txscript.IndexedTapScriptTree, error) {
	if len(leafScripts) == 0 {
		return nil, errors.New("no leaf scripts provided")
	}

	var tapLeafs = make([]txscript.TapLeaf, len(leafScripts))
	for i, leafScript := range leafScripts {
		tapLeafs[i] = txscript.NewBaseTapLeaf(leafScript)
	}

	return txscript.AssembleTaprootScriptTree(tapLeafs...), nil
}

// MustTapScriptTreeFromRawScripts uses NewTapScriptTreeFromRawScripts, panics in case of error.
func MustTapScriptTreeFromRawScripts(leafScripts ...[]byte) *txscript.IndexedTapScriptTree {
	tree, err := NewTapScriptTreeFromRawScripts(leafScripts...)
	if err != nil {
		panic(err)
	}

	return tree
}

// ControlBlock returns serialized control block proving leaf with provided index under internal key.
func ControlBlock(tapScriptTree *txscript.IndexedTapScriptTree, leafIdx int, internalKey *btcec.PublicKey) ([]byte, error) {
	if leafIdx < 0 || leafIdx >= len(tapScriptTree.LeafMerkleProofs) {
		return nil, fmt.Errorf("leaf index %d out of range", leafIdx)
	}

	ctrlBlock := tapScriptTree.LeafMerkleProofs[leafIdx].ToControlBlock(internalKey)

	return ctrlBlock.ToBytes()
}

// UpdatePSBTInputWithTapScriptLeafData updates provided psbt input with leaf data needed to sign taproot utxo by script path.
func UpdatePSBTInputWithTapScriptLeafData(input *psbt.PInput, leafScript, controlBlock []byte) error {
	if len(leafScript) == 0 {
		return errors.New("no leaf script provided")
	}

	ctrlBlock, err := txscript.ParseControlBlock(controlBlock)
	if err != nil {
		return err
	}

	tapLeaf := txscript.NewTapLeaf(ctrlBlock.LeafVersion, leafScript)
	input.TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
		ControlBlock: controlBlock,
		Script:       tapLeaf.Script,
		LeafVersion:  tapLeaf.LeafVersion,
	}}

	if len(input.TaprootInternalKey) == 0 {
		input.TaprootInternalKey = ctrlBlock.InternalKey.SerializeCompressed()[1:]
	}

	input.TaprootMerkleRoot = ctrlBlock.RootHash(tapLeaf.Script)

	return nil
}
