// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/bitcoin/ord/inscriptions"
	"github.com/BoostyLabs/ordtx/config"
)

const destination = "tb1psahg2qmurajcnv6mjpws7aaefk9gnwp3xhn0x63v3n3pz8z9c2dspamp6v"

func TestRun(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "ordtx.conf")
	require.NoError(t, os.WriteFile(configFile, []byte("[Application Options]\nnetwork=testnet\n"), 0600))

	body := filepath.Join(dir, "transfer.txt")
	require.NoError(t, os.WriteFile(body, []byte(`{"p": "brc-20","op": "transfer","tick": "bool","amt": "1000"}`), 0600))

	globals := []string{"--configfile", configFile, "--datadir", filepath.Join(dir, "data"), "--logdir", filepath.Join(dir, "logs")}
	args := func(args ...string) []string {
		return append(append([]string{}, globals...), args...)
	}

	require.Equal(t, 0, run(args("estimate", "--file", body, "--address", destination)))
	require.Equal(t, 0, run(args("estimate", "--file", body, "--address", destination, "--count", "2")))
	require.Equal(t, 1, run(args("estimate", "--file", filepath.Join(dir, "missing.txt"), "--address", destination)))
	require.Equal(t, 1, run(args("estimate", "--file", body, "--address", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")))
	require.Equal(t, 1, run(args("estimate", "--file", body)))

	require.Equal(t, 0, run(args("split", "--value", "10000", "--offset", "0", "--offset", "4000")))
	require.Equal(t, 1, run(args("split", "--value", "10000", "--offset", "10000")))

	require.Equal(t, 0, run(args("checkpoints")))
	require.Equal(t, 1, run(args("reveal", "--commit", "unknown")))

	require.Equal(t, 1, run(args("unknown")))
	require.Equal(t, 1, run(args("--network", "litecoin", "checkpoints")))
	require.Equal(t, 0, run(args("--help")))
}

func TestRevealCommand(t *testing.T) {
	ecc.Init()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Network = "testnet"
	cfg.DataDir = filepath.Join(dir, "data")
	require.NoError(t, cfg.Validate())

	envelope, err := inscriptions.NewEnvelope(&inscriptions.Inscription{
		ContentType: "text/plain;charset=utf-8",
		Body:        []byte("ordtx"),
	}, mustParams(t, &cfg))
	require.NoError(t, err)
	envelope.CommitValue = big.NewInt(10_000)

	params := inscriptions.RevealParams{
		CommitTxID:       "e87f2c0a9b4d48e69d23b69256ae5ae15a5b6c04885ec03f4cb4b8eefcd95a27",
		Envelope:         envelope,
		Destination:      destination,
		SatoshiPerKVByte: cfg.SatoshiPerKVByte(),
	}
	checkpoint, err := inscriptions.NewCheckpoint(params)
	require.NoError(t, err)

	store, err := inscriptions.OpenRevealStore(cfg.StorePath())
	require.NoError(t, err)
	require.NoError(t, store.Put(checkpoint))
	require.NoError(t, store.Close())

	reveal := newRevealCommand(&cfg)
	require.Error(t, reveal.Execute(nil))

	reveal.CommitTxID = params.CommitTxID
	require.NoError(t, reveal.Execute(nil))
	require.NoError(t, newCheckpointsCommand(&cfg).Execute(nil))

	// rebuilding reveal keeps checkpoint for broadcast retries.
	store, err = inscriptions.OpenRevealStore(cfg.StorePath())
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	_, err = store.Get(params.CommitTxID)
	require.NoError(t, err)
}

func mustParams(t *testing.T, cfg *config.Config) *chaincfg.Params {
	params, err := cfg.Params()
	require.NoError(t, err)

	return params
}
