// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/config"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, rest, err := config.Load([]string{"--configfile", writeConfig(t, "")})
		require.NoError(t, err)
		require.Empty(t, rest)

		defaults := config.DefaultConfig()
		require.Equal(t, defaults.Network, cfg.Network)
		require.EqualValues(t, 1000, cfg.SatoshiPerKVByte().Int64())
		require.Equal(t, time.Second, cfg.RevealDelay)
		require.Equal(t, "info", cfg.DebugLevel)
	})

	t.Run("args and command", func(t *testing.T) {
		cfg, rest, err := config.Load([]string{
			"--configfile", writeConfig(t, ""),
			"--network", "testnet",
			"--feerate", "25",
			"--revealdelay", "3s",
			"--disablerbf",
			"-d", "debug",
			"estimate", "--file", "body.txt",
		})
		require.NoError(t, err)
		require.Equal(t, []string{"estimate", "--file", "body.txt"}, rest)

		params, err := cfg.Params()
		require.NoError(t, err)
		require.Equal(t, chaincfg.TestNet3Params.Name, params.Name)
		require.EqualValues(t, 25_000, cfg.SatoshiPerKVByte().Int64())
		require.Equal(t, 3*time.Second, cfg.RevealDelay)
		require.True(t, cfg.DisableRBF)
		require.Equal(t, "debug", cfg.DebugLevel)
	})

	t.Run("config file is overridden by args", func(t *testing.T) {
		file := writeConfig(t, "network=regtest\nfeerate=5\noutputvalue=1000\ndatadir=/tmp/ordtx/../ordtx/data\n")

		cfg, _, err := config.Load([]string{"--configfile", file, "--feerate", "7"})
		require.NoError(t, err)
		require.Equal(t, "regtest", cfg.Network)
		require.EqualValues(t, 7, cfg.FeeRate)
		require.EqualValues(t, 1000, cfg.OutputValue)
		require.Equal(t, "/tmp/ordtx/data", cfg.DataDir)
		require.Equal(t, filepath.Join("/tmp/ordtx/data", "regtest", "reveals"), cfg.StorePath())
	})

	t.Run("errors", func(t *testing.T) {
		_, _, err := config.Load([]string{"--configfile", filepath.Join(t.TempDir(), "missing.conf")})
		require.Error(t, err)

		_, _, err = config.Load([]string{"--configfile", writeConfig(t, ""), "--network", "litecoin"})
		require.Error(t, err)

		_, _, err = config.Load([]string{"--configfile", writeConfig(t, ""), "--feerate", "0"})
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *config.Config)
	}{
		{name: "zero fee rate", modify: func(cfg *config.Config) { cfg.FeeRate = 0 }},
		{name: "dust output value", modify: func(cfg *config.Config) { cfg.OutputValue = 545 }},
		{name: "dust split value", modify: func(cfg *config.Config) { cfg.SplitValue = 100 }},
		{name: "negative reveal delay", modify: func(cfg *config.Config) { cfg.RevealDelay = -time.Second }},
		{name: "negative max log files", modify: func(cfg *config.Config) { cfg.MaxLogFiles = -1 }},
		{name: "zero max log file size", modify: func(cfg *config.Config) { cfg.MaxLogFileSize = 0 }},
		{name: "debug level", modify: func(cfg *config.Config) { cfg.DebugLevel = "loud" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			test.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	cfg := config.DefaultConfig()
	cfg.Network = "litecoin"
	require.ErrorIs(t, cfg.Validate(), bitcoin.ErrUnknownNetwork)

	cfg = config.DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestWalletConfig(t *testing.T) {
	ecc.Init()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	ks, err := signer.NewLocalKeyStore(privKey, bitcoin.AddressTypeP2TR, &chaincfg.SigNetParams)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Network = string(bitcoin.NetworkSignet)
	cfg.OutputValue = 10_000
	cfg.RevealDelay = time.Minute

	walletConfig, err := cfg.WalletConfig(ks)
	require.NoError(t, err)
	require.Equal(t, chaincfg.SigNetParams.Name, walletConfig.Builder.Params.Name)
	require.True(t, walletConfig.Builder.EnableRBF)
	require.EqualValues(t, 10_000, walletConfig.OutputValue.Int64())
	require.EqualValues(t, bitcoin.DustThreshold, walletConfig.SplitValue.Int64())
	require.Equal(t, time.Minute, walletConfig.RevealDelay)

	cfg.DisableRBF = true
	walletConfig, err = cfg.WalletConfig(ks)
	require.NoError(t, err)
	require.False(t, walletConfig.Builder.EnableRBF)
}

func TestCleanAndExpandPath(t *testing.T) {
	t.Setenv("ORDTX_TEST_DIR", "/var/ordtx")

	require.Equal(t, "", config.CleanAndExpandPath(""))
	require.Equal(t, "/var/ordtx/data", config.CleanAndExpandPath("$ORDTX_TEST_DIR/./data/"))
	require.False(t, filepath.IsAbs(config.CleanAndExpandPath("relative")))
}

// writeConfig writes ini config file into test directory and returns its path.
func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ordtx.conf")
	require.NoError(t, os.WriteFile(path, []byte("[Application Options]\n"+content), 0600))

	return path
}
