// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/internal/numbers"
)

// ErrNoRevealStore defines that wallet has no reveal checkpoints store.
var ErrNoRevealStore = errors.New("reveal store is not configured")

// InscribeRequest describes new inscription.
type InscribeRequest struct {
	Inscription       *inscriptions.Inscription
	Destination       string   // wallet address if empty.
	ServiceFeeAddress string   // optional third party fee recipient.
	ServiceFee        *big.Int // paid in commit transaction if address is set.
}

// InscribeResult describes commit and reveal transactions of inscription.
// CommitTxID is set as soon as commit is broadcast, so failed reveal can be resumed.
type InscribeResult struct {
	CommitTxID    string
	CommitAddress string
	CommitValue   *big.Int
	RevealTxID    string
	InscriptionID string
}

// commitValue returns commit output value: closed form estimation, raised to
// the exact reveal fee plus output value if the latter is greater.
func (w *Wallet) commitValue(envelope *inscriptions.Envelope, inscription *inscriptions.Inscription,
	destination string, satoshiPerKVByte *big.Int) (*big.Int, error) {
	estimated, err := inscriptions.CalculateInscribeFee(len(inscription.Body), destination, satoshiPerKVByte)
	if err != nil {
		return nil, err
	}

	revealFee, err := inscriptions.RevealFee(envelope, destination, satoshiPerKVByte)
	if err != nil {
		return nil, err
	}

	required := numbers.Sum(w.config.OutputValue, revealFee)
	log.Debugf("commit value: estimated %s, required %s", estimated, required)

	return numbers.Max(estimated, required), nil
}

// Inscribe creates inscription by commit and reveal transactions.
//
// Reveal checkpoint is stored before commit broadcast. After broadcast the wallet waits
// for reveal delay, then builds and broadcasts reveal spending commit output 0.
// On reveal failure the returned result holds commit txid for Reveal call.
func (w *Wallet) Inscribe(ctx context.Context, req InscribeRequest) (*InscribeResult, error) {
	if req.Inscription == nil {
		return nil, fmt.Errorf("%w: no inscription", inscriptions.ErrMalformedInscription)
	}

	utxos, feeRate, err := w.chainState(ctx)
	if err != nil {
		return nil, err
	}

	destination := req.Destination
	if destination == "" {
		destination = w.Address()
	}

	envelope, err := inscriptions.NewEnvelope(req.Inscription, w.builder.config.Params)
	if err != nil {
		return nil, err
	}

	envelope.CommitValue, err = w.commitValue(envelope, req.Inscription, destination, feeRate)
	if err != nil {
		return nil, err
	}

	receivers := []bitcoin.Output{{Address: envelope.CommitAddress, Value: envelope.CommitValue}}
	if req.ServiceFeeAddress != "" {
		receivers = append(receivers, bitcoin.Output{Address: req.ServiceFeeAddress, Value: req.ServiceFee})
	}

	commit, err := w.builder.CreateSendMultiBTC(ctx, SendMultiBTCRequest{
		UTXOs:            utxos,
		Receivers:        receivers,
		SatoshiPerKVByte: feeRate,
	})
	if err != nil {
		return nil, err
	}

	revealParams := inscriptions.RevealParams{
		CommitTxID:       commit.Tx.TxHash().String(),
		Envelope:         envelope,
		Destination:      destination,
		OutputValue:      w.config.OutputValue,
		SatoshiPerKVByte: feeRate,
		EnableRBF:        w.builder.config.EnableRBF,
	}

	if w.store != nil {
		checkpoint, err := inscriptions.NewCheckpoint(revealParams)
		if err != nil {
			return nil, err
		}

		if err = w.store.Put(checkpoint); err != nil {
			return nil, err
		}
	}

	if _, err = w.broadcast(ctx, commit.Tx); err != nil {
		return nil, err
	}

	result := &InscribeResult{
		CommitTxID:    revealParams.CommitTxID,
		CommitAddress: envelope.CommitAddress,
		CommitValue:   envelope.CommitValue,
	}

	if err = wait(ctx, w.revealDelay()); err != nil {
		return result, err
	}

	result.RevealTxID, err = w.reveal(ctx, revealParams)
	if err != nil {
		return result, err
	}

	revealHash, err := chainhash.NewHashFromStr(result.RevealTxID)
	if err != nil {
		return result, err
	}
	result.InscriptionID = (&inscriptions.ID{TxID: revealHash}).String()

	log.Infof("inscription %s created, commit %s", result.InscriptionID, result.CommitTxID)

	return result, nil
}

// Reveal rebuilds reveal transaction from stored checkpoint of commit transaction,
// broadcasts it and removes the checkpoint.
func (w *Wallet) Reveal(ctx context.Context, commitTxID string) (string, error) {
	if w.store == nil {
		return "", ErrNoRevealStore
	}

	checkpoint, err := w.store.Get(commitTxID)
	if err != nil {
		return "", err
	}

	params, err := checkpoint.RevealParams()
	if err != nil {
		return "", err
	}

	return w.reveal(ctx, params)
}

// reveal builds and broadcasts reveal transaction, then drops its checkpoint.
func (w *Wallet) reveal(ctx context.Context, params inscriptions.RevealParams) (string, error) {
	revealTx, err := inscriptions.BuildReveal(ctx, params)
	if err != nil {
		return "", err
	}

	txID, err := w.broadcast(ctx, revealTx)
	if err != nil {
		return "", err
	}

	if w.store != nil {
		if err = w.store.Delete(params.CommitTxID); err != nil {
			log.Warnf("failed to delete reveal checkpoint of commit %s: %v", params.CommitTxID, err)
		}
	}

	return txID, nil
}

// revealDelay returns configured reveal delay.
func (w *Wallet) revealDelay() time.Duration {
	if w.config.RevealDelay <= 0 {
		return DefaultRevealDelay
	}

	return w.config.RevealDelay
}

// wait blocks for delay or until context is done.
func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
