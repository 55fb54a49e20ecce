// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package wallet_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
	"github.com/BoostyLabs/ordtx/bitcoin/wallet"
)

const brc20TransferBody = `{"p": "brc-20","op": "transfer","tick": "bool","amt": "1000"}`

// mockProvider is ChainDataProvider with replaceable methods.
type mockProvider struct {
	utxos      func(ctx context.Context, address string) ([]bitcoin.UTXO, error)
	feeRate    func(ctx context.Context) (*big.Int, error)
	broadcast  func(ctx context.Context, rawTxHex string) (string, error)
	decodePSBT func(ctx context.Context, psbtHex string) (*wallet.DecodedPSBT, error)
}

func (m *mockProvider) UTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error) {
	return m.utxos(ctx, address)
}

func (m *mockProvider) FeeRate(ctx context.Context) (*big.Int, error) {
	return m.feeRate(ctx)
}

func (m *mockProvider) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	return m.broadcast(ctx, rawTxHex)
}

func (m *mockProvider) DecodePSBT(ctx context.Context, psbtHex string) (*wallet.DecodedPSBT, error) {
	return m.decodePSBT(ctx, psbtHex)
}

// newMockProvider returns provider serving utxos at 1 sat/vB and recording broadcast transactions.
func newMockProvider(t *testing.T, utxos []bitcoin.UTXO, broadcasts *[]*wire.MsgTx) *mockProvider {
	return &mockProvider{
		utxos: func(ctx context.Context, address string) ([]bitcoin.UTXO, error) {
			return utxos, nil
		},
		feeRate: func(ctx context.Context) (*big.Int, error) {
			return big.NewInt(1000), nil
		},
		broadcast: func(ctx context.Context, rawTxHex string) (string, error) {
			tx := decodeTx(t, rawTxHex)
			*broadcasts = append(*broadcasts, tx)

			return tx.TxHash().String(), nil
		},
		decodePSBT: func(ctx context.Context, psbtHex string) (*wallet.DecodedPSBT, error) {
			return &wallet.DecodedPSBT{Fee: big.NewInt(1)}, nil
		},
	}
}

func decodeTx(t *testing.T, rawTxHex string) *wire.MsgTx {
	raw, err := hex.DecodeString(rawTxHex)
	require.NoError(t, err)

	tx := new(wire.MsgTx)
	require.NoError(t, tx.Deserialize(bytes.NewReader(raw)))

	return tx
}

func newWallet(t *testing.T, ks signer.KeyStore, provider wallet.ChainDataProvider, store *inscriptions.RevealStore,
	delay time.Duration) *wallet.Wallet {
	w, err := wallet.New(wallet.Config{
		Builder:     wallet.BuilderConfig{Params: testParams, KeyStore: ks, EnableRBF: true},
		RevealDelay: delay,
	}, provider, store)
	require.NoError(t, err)

	return w
}

func TestWalletSend(t *testing.T) {
	ecc.Init()
	ctx := context.Background()

	ks := newKeyStore(t, bitcoin.AddressTypeP2TR)
	destination := newKeyStore(t, bitcoin.AddressTypeP2WPKH).Address()
	inscribed := newUTXO(ks, 1, 10_000, "x")
	plain := newUTXO(ks, 2, 50_000)

	var broadcasts []*wire.MsgTx
	provider := newMockProvider(t, []bitcoin.UTXO{inscribed, plain}, &broadcasts)
	w := newWallet(t, ks, provider, nil, time.Millisecond)

	t.Run("send btc", func(t *testing.T) {
		txID, err := w.SendBTC(ctx, destination, big.NewInt(20_000), txbuilder.SenderPaysFee)
		require.NoError(t, err)

		tx := broadcasts[len(broadcasts)-1]
		require.Equal(t, tx.TxHash().String(), txID)
		require.EqualValues(t, 20_000, tx.TxOut[0].Value)
		verifyTx(t, tx, []bitcoin.UTXO{plain})
	})

	t.Run("send multi btc", func(t *testing.T) {
		_, err := w.SendMultiBTC(ctx, []bitcoin.Output{
			{Address: destination, Value: big.NewInt(1000)},
			{Address: destination, Value: big.NewInt(2000)},
		})
		require.NoError(t, err)

		tx := broadcasts[len(broadcasts)-1]
		require.Len(t, tx.TxOut, 3)
		verifyTx(t, tx, []bitcoin.UTXO{plain})
	})

	t.Run("send inscription", func(t *testing.T) {
		_, err := w.SendInscription(ctx, destination, "x", nil)
		require.NoError(t, err)

		tx := broadcasts[len(broadcasts)-1]
		require.EqualValues(t, 10_000, tx.TxOut[0].Value)
		verifyTx(t, tx, []bitcoin.UTXO{inscribed, plain})

		_, err = w.SendMultiInscriptions(ctx, destination, []string{"x"})
		require.NoError(t, err)

		_, err = w.SendInscription(ctx, destination, "y", nil)
		require.ErrorIs(t, err, bitcoin.ErrInscriptionNotFound)
	})

	t.Run("split", func(t *testing.T) {
		_, count, err := w.SplitInscriptionUTXOs(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		tx := broadcasts[len(broadcasts)-1]
		require.EqualValues(t, bitcoin.DustThreshold, tx.TxOut[0].Value)
	})

	t.Run("provider errors pass through", func(t *testing.T) {
		errProvider := errors.New("provider is down")
		failing := &mockProvider{
			utxos: func(ctx context.Context, address string) ([]bitcoin.UTXO, error) {
				return nil, errProvider
			},
		}

		_, err := newWallet(t, ks, failing, nil, 0).SendBTC(ctx, destination, big.NewInt(1000), txbuilder.SenderPaysFee)
		require.ErrorIs(t, err, errProvider)

		failing = newMockProvider(t, []bitcoin.UTXO{plain}, &broadcasts)
		failing.broadcast = func(ctx context.Context, rawTxHex string) (string, error) {
			return "", errProvider
		}
		_, err = newWallet(t, ks, failing, nil, 0).SendBTC(ctx, destination, big.NewInt(1000), txbuilder.SenderPaysFee)
		require.ErrorIs(t, err, errProvider)
	})

	t.Run("decode psbt", func(t *testing.T) {
		result, err := w.Builder().CreateSendBTC(ctx, wallet.SendBTCRequest{
			UTXOs:            []bitcoin.UTXO{plain},
			ToAddress:        destination,
			Amount:           big.NewInt(1000),
			SatoshiPerKVByte: big.NewInt(1000),
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, result.Packet.Serialize(&buf))

		decoded, err := w.DecodePSBT(ctx, hex.EncodeToString(buf.Bytes()))
		require.NoError(t, err)
		require.EqualValues(t, 1, decoded.Fee.Int64())

		_, err = w.DecodePSBT(ctx, "zz")
		require.ErrorIs(t, err, wallet.ErrMalformedPSBT)

		_, err = w.DecodePSBT(ctx, "0011")
		require.ErrorIs(t, err, wallet.ErrMalformedPSBT)
	})
}

func TestWalletInscribe(t *testing.T) {
	ecc.Init()
	ctx := context.Background()

	ks := newKeyStore(t, bitcoin.AddressTypeP2TR)
	plain := newUTXO(ks, 1, 100_000)
	inscription := &inscriptions.Inscription{ContentType: "text/plain;charset=utf-8", Body: []byte(brc20TransferBody)}

	newStore := func(t *testing.T) *inscriptions.RevealStore {
		store, err := inscriptions.NewMemRevealStore()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, store.Close()) })

		return store
	}

	// verifyReveal checks that reveal spends commit output 0 and carries the inscription.
	verifyReveal := func(t *testing.T, commit, reveal *wire.MsgTx) {
		require.Equal(t, commit.TxHash(), reveal.TxIn[0].PreviousOutPoint.Hash)
		require.EqualValues(t, 0, reveal.TxIn[0].PreviousOutPoint.Index)
		require.EqualValues(t, bitcoin.DustThreshold, reveal.TxOut[0].Value)
		require.Equal(t, ks.PkScript(), reveal.TxOut[0].PkScript)

		prevOut := commit.TxOut[0]
		prevFetcher := txscript.NewCannedPrevOutputFetcher(prevOut.PkScript, prevOut.Value)
		vm, err := txscript.NewEngine(prevOut.PkScript, reveal, 0, txscript.StandardVerifyFlags, nil,
			txscript.NewTxSigHashes(reveal, prevFetcher), prevOut.Value, prevFetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute())

		parsed, err := inscriptions.ParseInscriptionFromTxWitness(reveal.TxIn[0].Witness)
		require.NoError(t, err)
		require.Equal(t, brc20TransferBody, string(parsed.Body))
	}

	t.Run("commit and reveal", func(t *testing.T) {
		var broadcasts []*wire.MsgTx
		store := newStore(t)
		w := newWallet(t, ks, newMockProvider(t, []bitcoin.UTXO{plain}, &broadcasts), store, time.Millisecond)

		serviceAddress := newKeyStore(t, bitcoin.AddressTypeP2WPKH).Address()
		result, err := w.Inscribe(ctx, wallet.InscribeRequest{
			Inscription:       inscription,
			ServiceFeeAddress: serviceAddress,
			ServiceFee:        big.NewInt(1000),
		})
		require.NoError(t, err)
		require.Len(t, broadcasts, 2)

		commit, reveal := broadcasts[0], broadcasts[1]
		require.Equal(t, commit.TxHash().String(), result.CommitTxID)
		require.Equal(t, reveal.TxHash().String()+"i0", result.InscriptionID)
		require.Equal(t, reveal.TxHash().String(), result.RevealTxID)

		// postage and closed form fee of 61 bytes file to taproot address at 1 sat/vB.
		require.EqualValues(t, 710, result.CommitValue.Int64())
		require.EqualValues(t, 710, commit.TxOut[0].Value)
		require.EqualValues(t, 1000, commit.TxOut[1].Value)
		verifyTx(t, commit, []bitcoin.UTXO{plain})
		verifyReveal(t, commit, reveal)

		checkpoints, err := store.List()
		require.NoError(t, err)
		require.Empty(t, checkpoints)
	})

	t.Run("failed reveal is resumed", func(t *testing.T) {
		var (
			broadcasts   []*wire.MsgTx
			errBroadcast = errors.New("broadcast failed")
			store        = newStore(t)
			provider     = newMockProvider(t, []bitcoin.UTXO{plain}, &broadcasts)
			record       = provider.broadcast
		)
		provider.broadcast = func(ctx context.Context, rawTxHex string) (string, error) {
			if len(broadcasts) == 1 {
				return "", errBroadcast
			}

			return record(ctx, rawTxHex)
		}

		w := newWallet(t, ks, provider, store, time.Millisecond)
		result, err := w.Inscribe(ctx, wallet.InscribeRequest{Inscription: inscription})
		require.ErrorIs(t, err, errBroadcast)
		require.NotNil(t, result)
		require.Len(t, broadcasts, 1)
		require.Equal(t, broadcasts[0].TxHash().String(), result.CommitTxID)

		checkpoint, err := store.Get(result.CommitTxID)
		require.NoError(t, err)
		require.EqualValues(t, 710, checkpoint.CommitValue)

		provider.broadcast = record
		revealTxID, err := w.Reveal(ctx, result.CommitTxID)
		require.NoError(t, err)
		require.Len(t, broadcasts, 2)
		require.Equal(t, broadcasts[1].TxHash().String(), revealTxID)
		verifyReveal(t, broadcasts[0], broadcasts[1])

		_, err = w.Reveal(ctx, result.CommitTxID)
		require.ErrorIs(t, err, inscriptions.ErrCheckpointNotFound)
	})

	t.Run("canceled during reveal delay", func(t *testing.T) {
		var broadcasts []*wire.MsgTx
		store := newStore(t)
		provider := newMockProvider(t, []bitcoin.UTXO{plain}, &broadcasts)
		record := provider.broadcast

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		provider.broadcast = func(ctx context.Context, rawTxHex string) (string, error) {
			defer cancel()
			return record(ctx, rawTxHex)
		}

		w := newWallet(t, ks, provider, store, time.Hour)
		result, err := w.Inscribe(ctx, wallet.InscribeRequest{Inscription: inscription})
		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, broadcasts, 1)

		_, err = store.Get(result.CommitTxID)
		require.NoError(t, err)
	})

	t.Run("no store", func(t *testing.T) {
		var broadcasts []*wire.MsgTx
		w := newWallet(t, ks, newMockProvider(t, []bitcoin.UTXO{plain}, &broadcasts), nil, time.Millisecond)

		result, err := w.Inscribe(ctx, wallet.InscribeRequest{Inscription: inscription})
		require.NoError(t, err)
		require.Len(t, broadcasts, 2)
		verifyReveal(t, broadcasts[0], broadcasts[1])

		_, err = w.Reveal(ctx, result.CommitTxID)
		require.ErrorIs(t, err, wallet.ErrNoRevealStore)

		_, err = w.Inscribe(ctx, wallet.InscribeRequest{})
		require.ErrorIs(t, err, inscriptions.ErrMalformedInscription)
	})

	t.Run("not enough funds", func(t *testing.T) {
		var broadcasts []*wire.MsgTx
		w := newWallet(t, ks, newMockProvider(t, []bitcoin.UTXO{newUTXO(ks, 2, 700)}, &broadcasts), newStore(t), time.Millisecond)

		_, err := w.Inscribe(ctx, wallet.InscribeRequest{Inscription: inscription})
		require.ErrorIs(t, err, bitcoin.ErrInsufficientFunds)
		require.Empty(t, broadcasts)
	})
}
