// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
)

func TestSelectUTXOs(t *testing.T) {
	ecc.Init()

	ks := newKeyStore(t, bitcoin.AddressTypeP2WPKH)
	candidates := []bitcoin.UTXO{
		newUTXO(ks, 0, 5000),
		newUTXO(ks, 1, 3000),
		newUTXO(ks, 2, 100000),
		newUTXO(ks, 3, 546),
	}

	tests := []struct {
		name     string
		output   int64
		selected []int64
		err      error
	}{
		{"first covers", 4000, []int64{5000}, nil},
		{"first covers output but not fee", 4950, []int64{5000, 3000}, nil},
		{"keeps order", 7000, []int64{5000, 3000}, nil},
		{"fee requires third", 7900, []int64{5000, 3000, 100000}, nil},
		{"all", 108400, []int64{5000, 3000, 100000, 546}, nil},
		{"exhausted", 200000, nil, bitcoin.ErrInsufficientFunds},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tx := txbuilder.NewTransaction(txbuilder.Config{Params: testParams, SatoshiPerKVByte: big.NewInt(1000)})
			require.NoError(t, tx.AddOutput(ks.Address(), big.NewInt(test.output)))

			err := txbuilder.SelectUTXOs(tx, candidates)
			if test.err != nil {
				require.ErrorIs(t, err, test.err)

				var insufficientErr *txbuilder.InsufficientError
				require.True(t, errors.As(err, &insufficientErr))
				require.Equal(t, txbuilder.CauserSender, insufficientErr.Causer)
				return
			}
			require.NoError(t, err)

			selected := make([]int64, 0, len(tx.Inputs()))
			for _, input := range tx.Inputs() {
				selected = append(selected, input.UTXO.Amount.Int64())
			}
			require.Equal(t, test.selected, selected)
		})
	}

	t.Run("no candidates", func(t *testing.T) {
		tx := txbuilder.NewTransaction(txbuilder.Config{Params: testParams, SatoshiPerKVByte: big.NewInt(1000)})
		require.NoError(t, tx.AddOutput(ks.Address(), big.NewInt(1000)))
		require.ErrorIs(t, txbuilder.SelectUTXOs(tx, nil), bitcoin.ErrInsufficientFunds)
	})

	t.Run("already covered", func(t *testing.T) {
		tx := txbuilder.NewTransaction(txbuilder.Config{Params: testParams, SatoshiPerKVByte: big.NewInt(1000)})
		require.NoError(t, tx.AddInput(newUTXO(ks, 9, 10000)))
		require.NoError(t, tx.AddOutput(ks.Address(), big.NewInt(1000)))
		require.NoError(t, txbuilder.SelectUTXOs(tx, candidates))
		require.Len(t, tx.Inputs(), 1)
	})
}

func TestSelectUTXOsProperties(t *testing.T) {
	ecc.Init()

	ks := newKeyStore(t, bitcoin.AddressTypeP2TR)

	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Int64Range(bitcoin.DustThreshold, 200_000), 1, 8).Draw(t, "values")
		output := rapid.Int64Range(bitcoin.DustThreshold, 500_000).Draw(t, "output")
		feeRate := rapid.Int64Range(1000, 50_000).Draw(t, "feeRate")

		candidates := make([]bitcoin.UTXO, len(values))
		for idx, value := range values {
			candidates[idx] = newUTXO(ks, byte(idx), value)
		}

		tx := txbuilder.NewTransaction(txbuilder.Config{Params: testParams, SatoshiPerKVByte: big.NewInt(feeRate)})
		require.NoError(t, tx.AddOutput(ks.Address(), big.NewInt(output)))

		err := txbuilder.SelectUTXOs(tx, candidates)
		if err != nil {
			require.ErrorIs(t, err, bitcoin.ErrInsufficientFunds)
			require.Len(t, tx.Inputs(), len(candidates))
			return
		}

		// selected inputs are a prefix of candidates.
		for idx, input := range tx.Inputs() {
			require.Equal(t, candidates[idx].TxHash, input.UTXO.TxHash)
		}

		require.False(t, tx.TotalInput().Cmp(tx.TotalOutput()) < 0)
	})
}
