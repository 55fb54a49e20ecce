// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
)

// DefaultRevealDelay defines pause between commit broadcast and reveal construction.
const DefaultRevealDelay = time.Second

// ErrMalformedPSBT defines that psbt can not be parsed.
var ErrMalformedPSBT = errors.New("malformed psbt")

// Config defines wallet parameters.
type Config struct {
	Builder     BuilderConfig
	OutputValue *big.Int      // inscription output value, dust threshold if nil.
	SplitValue  *big.Int      // split unit value, splitter default if nil.
	RevealDelay time.Duration // pause after commit broadcast, DefaultRevealDelay if not positive.
}

// Wallet builds transactions over utxos of the key store address and broadcasts them by provider.
type Wallet struct {
	config   Config
	builder  *Builder
	provider ChainDataProvider
	store    *inscriptions.RevealStore
}

// New is a constructor for Wallet. Reveal store is optional, without it
// reveal transactions can not be resumed.
func New(config Config, provider ChainDataProvider, store *inscriptions.RevealStore) (*Wallet, error) {
	builder, err := NewBuilder(config.Builder)
	if err != nil {
		return nil, err
	}

	if config.OutputValue == nil {
		config.OutputValue = big.NewInt(bitcoin.DustThreshold)
	}

	return &Wallet{
		config:   config,
		builder:  builder,
		provider: provider,
		store:    store,
	}, nil
}

// Builder returns underlying transactions builder.
func (w *Wallet) Builder() *Builder {
	return w.builder
}

// Address returns wallet address.
func (w *Wallet) Address() string {
	return w.builder.config.KeyStore.Address()
}

// chainState returns wallet utxos and current fee rate.
func (w *Wallet) chainState(ctx context.Context) ([]bitcoin.UTXO, *big.Int, error) {
	utxos, err := w.provider.UTXOs(ctx, w.Address())
	if err != nil {
		return nil, nil, err
	}

	feeRate, err := w.provider.FeeRate(ctx)
	if err != nil {
		return nil, nil, err
	}

	return utxos, feeRate, nil
}

// broadcast serializes transaction and sends it by provider.
func (w *Wallet) broadcast(ctx context.Context, tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}

	txID, err := w.provider.Broadcast(ctx, hex.EncodeToString(buf.Bytes()))
	if err != nil {
		return "", err
	}

	if expected := tx.TxHash().String(); txID != expected {
		log.Warnf("provider returned txid %s for transaction %s", txID, expected)
	}

	log.Infof("broadcast transaction %s", txID)

	return txID, nil
}

// SendBTC sends amount to address and returns transaction id.
func (w *Wallet) SendBTC(ctx context.Context, toAddress string, amount *big.Int, policy txbuilder.FeePolicy) (string, error) {
	utxos, feeRate, err := w.chainState(ctx)
	if err != nil {
		return "", err
	}

	result, err := w.builder.CreateSendBTC(ctx, SendBTCRequest{
		UTXOs:            utxos,
		ToAddress:        toAddress,
		Amount:           amount,
		SatoshiPerKVByte: feeRate,
		FeePolicy:        policy,
	})
	if err != nil {
		return "", err
	}

	return w.broadcast(ctx, result.Tx)
}

// SendMultiBTC pays every receiver by one transaction and returns its id.
func (w *Wallet) SendMultiBTC(ctx context.Context, receivers []bitcoin.Output) (string, error) {
	utxos, feeRate, err := w.chainState(ctx)
	if err != nil {
		return "", err
	}

	result, err := w.builder.CreateSendMultiBTC(ctx, SendMultiBTCRequest{
		UTXOs:            utxos,
		Receivers:        receivers,
		SatoshiPerKVByte: feeRate,
	})
	if err != nil {
		return "", err
	}

	return w.broadcast(ctx, result.Tx)
}

// SendInscription sends inscription to address and returns transaction id.
// Output value defaults to inscription utxo value.
func (w *Wallet) SendInscription(ctx context.Context, toAddress, inscriptionID string, outputValue *big.Int) (string, error) {
	utxos, feeRate, err := w.chainState(ctx)
	if err != nil {
		return "", err
	}

	result, err := w.builder.CreateSendInscription(ctx, SendInscriptionRequest{
		UTXOs:            utxos,
		ToAddress:        toAddress,
		InscriptionID:    inscriptionID,
		OutputValue:      outputValue,
		SatoshiPerKVByte: feeRate,
	})
	if err != nil {
		return "", err
	}

	return w.broadcast(ctx, result.Tx)
}

// SendMultiInscriptions sends all inscriptions to address by one transaction and returns its id.
func (w *Wallet) SendMultiInscriptions(ctx context.Context, toAddress string, inscriptionIDs []string) (string, error) {
	utxos, feeRate, err := w.chainState(ctx)
	if err != nil {
		return "", err
	}

	result, err := w.builder.CreateSendMultiInscriptions(ctx, SendMultiInscriptionsRequest{
		UTXOs:            utxos,
		ToAddress:        toAddress,
		InscriptionIDs:   inscriptionIDs,
		SatoshiPerKVByte: feeRate,
	})
	if err != nil {
		return "", err
	}

	return w.broadcast(ctx, result.Tx)
}

// SplitInscriptionUTXOs splits wallet inscription utxos and returns transaction id
// and amount of inscription outputs.
func (w *Wallet) SplitInscriptionUTXOs(ctx context.Context) (string, int, error) {
	utxos, feeRate, err := w.chainState(ctx)
	if err != nil {
		return "", 0, err
	}

	result, splitCount, err := w.builder.CreateSplitInscriptionUTXOs(ctx, SplitRequest{
		UTXOs:            utxos,
		SplitValue:       w.config.SplitValue,
		SatoshiPerKVByte: feeRate,
	})
	if err != nil {
		return "", 0, err
	}

	txID, err := w.broadcast(ctx, result.Tx)
	if err != nil {
		return "", 0, err
	}

	return txID, splitCount, nil
}

// DecodePSBT checks that psbt is parsable and returns provider view of it.
func (w *Wallet) DecodePSBT(ctx context.Context, psbtHex string) (*DecodedPSBT, error) {
	raw, err := hex.DecodeString(psbtHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPSBT, err)
	}

	if _, err = psbt.NewFromRawBytes(bytes.NewReader(raw), false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPSBT, err)
	}

	return w.provider.DecodePSBT(ctx, psbtHex)
}
