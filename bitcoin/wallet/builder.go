// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/splitter"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
	"github.com/BoostyLabs/ordtx/internal/numbers"
)

var (
	// ErrInvalidAmount defines that requested output value is not positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNoParams defines that network params are not set.
	ErrNoParams = errors.New("network params are not set")
)

var dustThreshold = big.NewInt(bitcoin.DustThreshold)

// BuilderConfig defines parameters shared by all built transactions.
type BuilderConfig struct {
	Params        *chaincfg.Params
	KeyStore      signer.KeyStore
	ChangeAddress string // key store address if empty.
	EnableRBF     bool
	Dump          bool // attach diagnostic dump to results.
}

// Builder creates signed transactions from explicitly provided utxos.
// It performs no network calls.
type Builder struct {
	config BuilderConfig
}

// NewBuilder is a constructor for Builder.
func NewBuilder(config BuilderConfig) (*Builder, error) {
	if config.KeyStore == nil {
		return nil, txbuilder.ErrNoKeyStore
	}
	if config.Params == nil {
		return nil, ErrNoParams
	}
	if config.ChangeAddress == "" {
		config.ChangeAddress = config.KeyStore.Address()
	}

	return &Builder{config: config}, nil
}

// Result describes signed transaction.
type Result struct {
	Packet *psbt.Packet
	Tx     *wire.MsgTx
	Fee    *big.Int
	Dump   *txbuilder.Dump // set if dump is enabled.
}

// SendBTCRequest describes value transfer to one recipient.
type SendBTCRequest struct {
	UTXOs            []bitcoin.UTXO
	ToAddress        string
	Amount           *big.Int
	SatoshiPerKVByte *big.Int
	FeePolicy        txbuilder.FeePolicy
}

// SendMultiBTCRequest describes value transfer to several recipients, sender pays fee.
type SendMultiBTCRequest struct {
	UTXOs            []bitcoin.UTXO
	Receivers        []bitcoin.Output
	SatoshiPerKVByte *big.Int
}

// SendInscriptionRequest describes transfer of one inscription.
type SendInscriptionRequest struct {
	UTXOs            []bitcoin.UTXO
	ToAddress        string
	InscriptionID    string
	OutputValue      *big.Int // inscription utxo value if nil.
	SatoshiPerKVByte *big.Int
}

// SendMultiInscriptionsRequest describes transfer of several inscriptions to one recipient.
type SendMultiInscriptionsRequest struct {
	UTXOs            []bitcoin.UTXO
	ToAddress        string
	InscriptionIDs   []string
	SatoshiPerKVByte *big.Int
}

// SplitRequest describes split of inscription bearing utxos.
type SplitRequest struct {
	UTXOs            []bitcoin.UTXO
	SplitValue       *big.Int // splitter.DefaultSplitValue if nil.
	SatoshiPerKVByte *big.Int
}

// newTransaction returns pending transaction with builder config.
func (b *Builder) newTransaction(satoshiPerKVByte *big.Int) *txbuilder.Transaction {
	return txbuilder.NewTransaction(txbuilder.Config{
		Params:           b.config.Params,
		KeyStore:         b.config.KeyStore,
		SatoshiPerKVByte: satoshiPerKVByte,
		EnableRBF:        b.config.EnableRBF,
		ChangeAddress:    b.config.ChangeAddress,
	})
}

// fund selects plain utxos to cover outputs, failing if there are no candidates at all.
func fund(tx *txbuilder.Transaction, plain []bitcoin.UTXO) error {
	if len(plain) == 0 {
		return &txbuilder.InsufficientError{
			Need:   tx.TotalOutput(),
			Have:   tx.TotalInput(),
			Causer: txbuilder.CauserSender,
		}
	}

	return txbuilder.SelectUTXOs(tx, plain)
}

// validateAmount checks that output value is positive.
func validateAmount(amount *big.Int) error {
	if amount == nil || !numbers.IsPositive(amount) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	return nil
}

// finalize signs transaction and extracts it from the packet.
func (b *Builder) finalize(ctx context.Context, tx *txbuilder.Transaction) (*Result, error) {
	result := new(Result)
	if b.config.Dump {
		dump, err := tx.Dump()
		if err != nil {
			return nil, err
		}

		result.Dump = dump
	}

	packet, err := tx.CreateSignedPSBT(ctx)
	if err != nil {
		return nil, err
	}

	msgTx, err := txbuilder.ExtractTx(packet)
	if err != nil {
		return nil, err
	}

	result.Packet = packet
	result.Tx = msgTx
	result.Fee = tx.Unspent()

	log.Debugf("built transaction %s: %d inputs, %d outputs, fee %s", msgTx.TxHash(), len(msgTx.TxIn),
		len(msgTx.TxOut), result.Fee)

	return result, nil
}

// CreateSendBTC returns signed transaction sending amount to address from plain utxos.
//
// Receiver pays fee mode returns the whole selected surplus as change, then subtracts fee from the recipient.
func (b *Builder) CreateSendBTC(ctx context.Context, req SendBTCRequest) (*Result, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	tx := b.newTransaction(req.SatoshiPerKVByte)
	if err := tx.AddOutput(req.ToAddress, req.Amount); err != nil {
		return nil, err
	}

	_, plain := bitcoin.SplitByInscriptions(req.UTXOs)
	if err := fund(tx, plain); err != nil {
		return nil, err
	}

	if req.FeePolicy == txbuilder.ReceiverPaysFee {
		if unspent := tx.Unspent(); !numbers.IsLess(unspent, dustThreshold) {
			if err := tx.AddChangeOutput(unspent); err != nil {
				return nil, err
			}
		}
	}

	if err := txbuilder.ApplyFeePolicy(tx, req.FeePolicy); err != nil {
		return nil, err
	}

	return b.finalize(ctx, tx)
}

// CreateSendMultiBTC returns signed transaction paying every receiver from plain utxos.
func (b *Builder) CreateSendMultiBTC(ctx context.Context, req SendMultiBTCRequest) (*Result, error) {
	tx, err := b.newSendMultiBTC(req)
	if err != nil {
		return nil, err
	}

	return b.finalize(ctx, tx)
}

// newSendMultiBTC returns balanced pending transaction paying every receiver.
func (b *Builder) newSendMultiBTC(req SendMultiBTCRequest) (*txbuilder.Transaction, error) {
	if len(req.Receivers) == 0 {
		return nil, fmt.Errorf("%w: no receivers", ErrInvalidAmount)
	}

	tx := b.newTransaction(req.SatoshiPerKVByte)
	for _, receiver := range req.Receivers {
		if err := validateAmount(receiver.Value); err != nil {
			return nil, err
		}
		if err := tx.AddOutput(receiver.Address, receiver.Value); err != nil {
			return nil, err
		}
	}

	_, plain := bitcoin.SplitByInscriptions(req.UTXOs)
	if err := fund(tx, plain); err != nil {
		return nil, err
	}

	if err := txbuilder.ApplyFeePolicy(tx, txbuilder.SenderPaysFee); err != nil {
		return nil, err
	}

	return tx, nil
}

// findInscriptionUTXO returns utxo carrying only the inscription.
func findInscriptionUTXO(utxos []bitcoin.UTXO, inscriptionID string) (*bitcoin.UTXO, error) {
	for idx := range utxos {
		if !utxos[idx].HasInscription(inscriptionID) {
			continue
		}

		if len(utxos[idx].Inscriptions) > 1 {
			return nil, fmt.Errorf("%w: utxo %s:%d carries %d inscriptions, split it first", bitcoin.ErrInvalidInputSelection,
				utxos[idx].TxHash, utxos[idx].Index, len(utxos[idx].Inscriptions))
		}

		return &utxos[idx], nil
	}

	return nil, fmt.Errorf("%w: %s", bitcoin.ErrInscriptionNotFound, inscriptionID)
}

// CreateSendInscription returns signed transaction sending inscription utxo to address.
// Missing fee is covered by plain utxos, sender pays fee.
func (b *Builder) CreateSendInscription(ctx context.Context, req SendInscriptionRequest) (*Result, error) {
	inscribed, plain := bitcoin.SplitByInscriptions(req.UTXOs)

	utxo, err := findInscriptionUTXO(inscribed, req.InscriptionID)
	if err != nil {
		return nil, err
	}

	outputValue := utxo.Amount
	if req.OutputValue != nil {
		if err = validateAmount(req.OutputValue); err != nil {
			return nil, err
		}

		// inscription has to stay in the first output.
		if offset := utxo.Inscriptions[0].Offset; offset >= req.OutputValue.Int64() {
			return nil, fmt.Errorf("%w: inscription offset %d is outside of output value %s",
				bitcoin.ErrInvalidInputSelection, offset, req.OutputValue)
		}

		outputValue = req.OutputValue
	}

	tx := b.newTransaction(req.SatoshiPerKVByte)
	if err = tx.AddInput(*utxo); err != nil {
		return nil, err
	}
	if err = tx.AddOutput(req.ToAddress, outputValue); err != nil {
		return nil, err
	}

	if err = txbuilder.SelectUTXOs(tx, plain); err != nil {
		return nil, err
	}
	if err = txbuilder.ApplyFeePolicy(tx, txbuilder.SenderPaysFee); err != nil {
		return nil, err
	}

	return b.finalize(ctx, tx)
}

// CreateSendMultiInscriptions returns signed transaction sending every requested inscription utxo
// to address, one output per utxo with unchanged value.
func (b *Builder) CreateSendMultiInscriptions(ctx context.Context, req SendMultiInscriptionsRequest) (*Result, error) {
	requested := make(map[string]bool, len(req.InscriptionIDs))
	for _, id := range req.InscriptionIDs {
		requested[id] = true
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no inscriptions requested", bitcoin.ErrInscriptionNotFound)
	}

	inscribed, plain := bitcoin.SplitByInscriptions(req.UTXOs)

	tx := b.newTransaction(req.SatoshiPerKVByte)
	found := make(map[string]bool, len(requested))
	for _, utxo := range inscribed {
		var matched bool
		for _, inscription := range utxo.Inscriptions {
			if requested[inscription.ID] {
				matched = true
				found[inscription.ID] = true
			}
		}
		if !matched {
			continue
		}

		if len(utxo.Inscriptions) > 1 {
			return nil, fmt.Errorf("%w: utxo %s:%d carries %d inscriptions, split it first", bitcoin.ErrInvalidInputSelection,
				utxo.TxHash, utxo.Index, len(utxo.Inscriptions))
		}

		if err := tx.AddInput(utxo); err != nil {
			return nil, err
		}
		if err := tx.AddOutput(req.ToAddress, utxo.Amount); err != nil {
			return nil, err
		}
	}

	for _, id := range req.InscriptionIDs {
		if !found[id] {
			return nil, fmt.Errorf("%w: %s", bitcoin.ErrInscriptionNotFound, id)
		}
	}

	if err := txbuilder.SelectUTXOs(tx, plain); err != nil {
		return nil, err
	}
	if err := txbuilder.ApplyFeePolicy(tx, txbuilder.SenderPaysFee); err != nil {
		return nil, err
	}

	return b.finalize(ctx, tx)
}

// CreateSplitInscriptionUTXOs returns signed transaction splitting inscription bearing utxos into
// separate outputs to change address and the amount of outputs carrying inscriptions.
func (b *Builder) CreateSplitInscriptionUTXOs(ctx context.Context, req SplitRequest) (*Result, int, error) {
	splitValue := req.SplitValue
	if splitValue == nil {
		splitValue = big.NewInt(splitter.DefaultSplitValue)
	}

	inscribed, plain := bitcoin.SplitByInscriptions(req.UTXOs)
	if len(inscribed) == 0 {
		return nil, 0, fmt.Errorf("%w: no inscription utxos to split", bitcoin.ErrInscriptionNotFound)
	}

	ordUTXOs, err := splitter.SplitAll(inscribed, splitValue)
	if err != nil {
		return nil, 0, err
	}

	tx := b.newTransaction(req.SatoshiPerKVByte)

	var (
		lastUnit   *splitter.OrdUnit
		splitCount int
	)
	for _, ordUTXO := range ordUTXOs {
		if err = tx.AddInput(ordUTXO.UTXO); err != nil {
			return nil, 0, err
		}

		for idx := range ordUTXO.Units {
			unit := &ordUTXO.Units[idx]
			value := unit.Value
			if unit.HasInscriptions() {
				// inscribed outputs below dust are topped up by selected utxos.
				value = numbers.Max(value, dustThreshold)
				splitCount++
			}
			if err = tx.AddChangeOutput(new(big.Int).Set(value)); err != nil {
				return nil, 0, err
			}

			lastUnit = unit
		}
	}

	// trailing unit without inscriptions returns to the fee balancing.
	if !lastUnit.HasInscriptions() {
		tx.RemoveChangeOutput()
	}

	if err = txbuilder.SelectUTXOs(tx, plain); err != nil {
		return nil, 0, err
	}
	if err = txbuilder.ApplyFeePolicy(tx, txbuilder.SenderPaysFee); err != nil {
		return nil, 0, err
	}

	result, err := b.finalize(ctx, tx)
	if err != nil {
		return nil, 0, err
	}

	log.Infof("split %d utxos into %d inscription outputs", len(ordUTXOs), splitCount)

	return result, splitCount, nil
}
