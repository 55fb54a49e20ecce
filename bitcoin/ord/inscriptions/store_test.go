// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions_test

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
)

func TestRevealStore(t *testing.T) {
	privateKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x03}, 32))

	newCheckpoint := func(t *testing.T, seed string) (*inscriptions.Checkpoint, inscriptions.RevealParams) {
		envelope, err := inscriptions.NewEnvelopeWithKey(&inscriptions.Inscription{
			ContentType: "text/plain",
			Body:        []byte(seed),
		}, privateKey, testParams)
		require.NoError(t, err)
		envelope.CommitValue = big.NewInt(5_000)

		params := inscriptions.RevealParams{
			CommitTxID:       chainhash.DoubleHashH([]byte(seed)).String(),
			Envelope:         envelope,
			Destination:      destinationAddress,
			SatoshiPerKVByte: big.NewInt(3000),
			EnableRBF:        true,
		}

		checkpoint, err := inscriptions.NewCheckpoint(params)
		require.NoError(t, err)
		require.Equal(t, bitcoin.NetworkTestnet, checkpoint.Network)
		require.EqualValues(t, bitcoin.DustThreshold, checkpoint.OutputValue)

		return checkpoint, params
	}

	t.Run("checkpoint restores reveal", func(t *testing.T) {
		checkpoint, params := newCheckpoint(t, "restore")

		restored, err := checkpoint.RevealParams()
		require.NoError(t, err)
		require.Equal(t, params.Envelope.CommitAddress, restored.Envelope.CommitAddress)
		require.EqualValues(t, 5_000, restored.Envelope.CommitValue.Int64())
		require.True(t, restored.EnableRBF)

		original, err := inscriptions.NewRevealTransaction(params)
		require.NoError(t, err)
		rebuilt, err := inscriptions.NewRevealTransaction(restored)
		require.NoError(t, err)

		originalTx, err := original.UnsignedTx()
		require.NoError(t, err)
		rebuiltTx, err := rebuilt.UnsignedTx()
		require.NoError(t, err)
		require.Equal(t, originalTx.TxHash(), rebuiltTx.TxHash())

		checkpoint.CommitPkScript = append([]byte{}, checkpoint.CommitPkScript[:33]...)
		_, err = checkpoint.RevealParams()
		require.ErrorIs(t, err, inscriptions.ErrCheckpointMismatch)
	})

	t.Run("no commit value", func(t *testing.T) {
		_, params := newCheckpoint(t, "value")
		params.Envelope.CommitValue = nil

		_, err := inscriptions.NewCheckpoint(params)
		require.ErrorIs(t, err, inscriptions.ErrNoCommitValue)
	})

	t.Run("memory store", func(t *testing.T) {
		store, err := inscriptions.NewMemRevealStore()
		require.NoError(t, err)
		defer func() { require.NoError(t, store.Close()) }()

		first, _ := newCheckpoint(t, "first")
		second, _ := newCheckpoint(t, "second")
		require.NoError(t, store.Put(first))
		require.NoError(t, store.Put(second))

		stored, err := store.Get(first.CommitTxID)
		require.NoError(t, err)
		require.Equal(t, first.PrivateKey, stored.PrivateKey)
		require.Equal(t, first.LeafScript, stored.LeafScript)
		require.Equal(t, first.CommitValue, stored.CommitValue)
		require.True(t, first.CreatedAt.Equal(stored.CreatedAt))

		list, err := store.List()
		require.NoError(t, err)
		require.Len(t, list, 2)

		require.NoError(t, store.Delete(first.CommitTxID))
		_, err = store.Get(first.CommitTxID)
		require.ErrorIs(t, err, inscriptions.ErrCheckpointNotFound)

		list, err = store.List()
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, second.CommitTxID, list[0].CommitTxID)
	})

	t.Run("file store survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reveals")
		checkpoint, _ := newCheckpoint(t, "reopen")

		store, err := inscriptions.OpenRevealStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Put(checkpoint))
		require.NoError(t, store.Close())

		store, err = inscriptions.OpenRevealStore(path)
		require.NoError(t, err)
		defer func() { require.NoError(t, store.Close()) }()

		stored, err := store.Get(checkpoint.CommitTxID)
		require.NoError(t, err)

		params, err := stored.RevealParams()
		require.NoError(t, err)
		require.Equal(t, destinationAddress, params.Destination)
		require.EqualValues(t, 3000, params.SatoshiPerKVByte.Int64())
	})

	t.Run("file store directory is owner only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testnet", "reveals")
		require.NoError(t, os.MkdirAll(path, 0755))

		store, err := inscriptions.OpenRevealStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})
}
