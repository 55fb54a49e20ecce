// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/bitcoin/utils"
)

// ephemeralSeedLen defines seed size for ephemeral key master node.
const ephemeralSeedLen = hdkeychain.MaxSeedBytes

// Envelope describes taproot commit output with single inscription leaf
// and data to spend it by script path in the reveal transaction.
type Envelope struct {
	InternalKey    *btcec.PublicKey
	LeafScript     []byte
	ControlBlock   []byte
	CommitAddress  string
	CommitPkScript []byte
	CommitValue    *big.Int // set when commit transaction is built.

	privateKey *btcec.PrivateKey
	params     *chaincfg.Params
}

// NewEphemeralKey returns private key of hd master node derived from random seed.
func NewEphemeralKey(params *chaincfg.Params) (*btcec.PrivateKey, error) {
	seed := make([]byte, ephemeralSeedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, err
	}

	return master.ECPrivKey()
}

// NewEnvelope creates envelope for inscription over new ephemeral internal key.
func NewEnvelope(inscription *Inscription, params *chaincfg.Params) (*Envelope, error) {
	if err := ecc.Check(); err != nil {
		return nil, err
	}

	privateKey, err := NewEphemeralKey(params)
	if err != nil {
		return nil, err
	}

	return NewEnvelopeWithKey(inscription, privateKey, params)
}

// NewEnvelopeWithKey creates envelope for inscription over provided internal key.
func NewEnvelopeWithKey(inscription *Inscription, privateKey *btcec.PrivateKey, params *chaincfg.Params) (*Envelope, error) {
	if err := ecc.Check(); err != nil {
		return nil, err
	}
	if privateKey == nil {
		return nil, fmt.Errorf("%w: no internal private key", bitcoin.ErrSigningPrecondition)
	}

	leafScript, err := inscription.IntoScriptForWitness(schnorr.SerializePubKey(privateKey.PubKey()))
	if err != nil {
		return nil, err
	}

	return newEnvelope(privateKey, leafScript, params)
}

// newEnvelope builds single leaf tree over internal key and derives commit address and control block.
func newEnvelope(privateKey *btcec.PrivateKey, leafScript []byte, params *chaincfg.Params) (*Envelope, error) {
	// internal key is used as x-only, control block commits to even y.
	internalKey, err := schnorr.ParsePubKey(schnorr.SerializePubKey(privateKey.PubKey()))
	if err != nil {
		return nil, err
	}

	tree, err := utils.NewTapScriptTreeFromRawScripts(leafScript)
	if err != nil {
		return nil, err
	}

	address, err := utils.NewTaprootAddressFromTree(params, internalKey, tree)
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(address)
	if err != nil {
		return nil, err
	}

	controlBlock, err := utils.ControlBlock(tree, 0, internalKey)
	if err != nil {
		return nil, err
	}

	log.Debugf("inscription envelope: commit address %s, leaf %d bytes", address.EncodeAddress(), len(leafScript))

	return &Envelope{
		InternalKey:    internalKey,
		LeafScript:     leafScript,
		ControlBlock:   controlBlock,
		CommitAddress:  address.EncodeAddress(),
		CommitPkScript: pkScript,
		privateKey:     privateKey,
		params:         params,
	}, nil
}

// Params returns network params of the envelope.
func (e *Envelope) Params() *chaincfg.Params {
	return e.params
}

// XOnlyInternalKey returns 32 bytes internal key.
func (e *Envelope) XOnlyInternalKey() []byte {
	return schnorr.SerializePubKey(e.InternalKey)
}

// KeyStore returns taproot key store over internal key to sign reveal input.
func (e *Envelope) KeyStore() (*signer.LocalKeyStore, error) {
	return signer.NewLocalKeyStore(e.privateKey, bitcoin.AddressTypeP2TR, e.params)
}

// Inscription parses inscription back from the leaf script.
func (e *Envelope) Inscription() (*Inscription, error) {
	return ParseInscriptionFromWitnessData(e.LeafScript)
}

// WitnessAssembler returns reveal input finalizer: [signature, leaf script, control block].
func (e *Envelope) WitnessAssembler() signer.WitnessAssembler {
	return func(input *psbt.PInput) (wire.TxWitness, error) {
		if len(input.TaprootScriptSpendSig) == 0 {
			return nil, fmt.Errorf("%w: reveal input is not signed", bitcoin.ErrSigningPrecondition)
		}

		sig := input.TaprootScriptSpendSig[0]
		signature := sig.Signature
		if sig.SigHash != txscript.SigHashDefault {
			signature = append(append([]byte{}, signature...), byte(sig.SigHash))
		}

		return wire.TxWitness{signature, e.LeafScript, e.ControlBlock}, nil
	}
}

// RestoreEnvelope recreates envelope from internal private key and leaf script.
func RestoreEnvelope(privateKey *btcec.PrivateKey, leafScript []byte, params *chaincfg.Params) (*Envelope, error) {
	if err := ecc.Check(); err != nil {
		return nil, err
	}
	if privateKey == nil {
		return nil, fmt.Errorf("%w: no internal private key", bitcoin.ErrSigningPrecondition)
	}

	return newEnvelope(privateKey, leafScript, params)
}

// PrivateKeyBytes returns serialized internal private key.
func (e *Envelope) PrivateKeyBytes() []byte {
	return e.privateKey.Serialize()
}
