// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/bitcoin/wallet"
)

const (
	// DefaultFeeRate defines fee rate in satoshi per virtual byte.
	DefaultFeeRate = 1
	// DefaultMaxLogFiles defines amount of rotated log files to keep.
	DefaultMaxLogFiles = 3
	// DefaultMaxLogFileSize defines log file size in MB before rotation.
	DefaultMaxLogFileSize = 10
	// DefaultDebugLevel defines log level of every subsystem.
	DefaultDebugLevel = "info"

	defaultAppDirname    = ".ordtx"
	defaultDataDirname   = "data"
	defaultLogDirname    = "logs"
	defaultLogFilename   = "ordtx.log"
	defaultStoreDirname  = "reveals"
	defaultConfigName    = "ordtx.conf"
	satoshiPerVByteScale = 1000
)

var (
	// ErrInvalidConfig defines that configuration values are inconsistent.
	ErrInvalidConfig = errors.New("invalid config")

	// DefaultAppDir is the default directory for data, logs and config file.
	DefaultAppDir = filepath.Join(homeDir(), defaultAppDirname)
)

// Config defines ordtx options, parsed from command line and optional ini file.
type Config struct {
	ConfigFile string `long:"configfile" description:"Path to ini configuration file"`

	Network     string        `long:"network" description:"Bitcoin network" choice:"mainnet" choice:"testnet" choice:"regtest" choice:"signet"`
	FeeRate     int64         `long:"feerate" description:"Network fee rate in sat/vB"`
	DisableRBF  bool          `long:"disablerbf" description:"Do not signal replace-by-fee in created transactions"`
	OutputValue int64         `long:"outputvalue" description:"Value of inscription output in satoshi"`
	SplitValue  int64         `long:"splitvalue" description:"Value of inscription unit when splitting utxos, in satoshi"`
	RevealDelay time.Duration `long:"revealdelay" description:"Pause between commit broadcast and reveal construction"`

	DataDir        string `long:"datadir" description:"Directory to store reveal checkpoints"`
	LogDir         string `long:"logdir" description:"Directory to write log files"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum log files to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum log file size in MB"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off}"`
}

// DefaultConfig returns config with default values.
func DefaultConfig() Config {
	return Config{
		Network:        string(bitcoin.NetworkMainnet),
		FeeRate:        DefaultFeeRate,
		OutputValue:    bitcoin.DustThreshold,
		SplitValue:     bitcoin.DustThreshold,
		RevealDelay:    wallet.DefaultRevealDelay,
		DataDir:        filepath.Join(DefaultAppDir, defaultDataDirname),
		LogDir:         filepath.Join(DefaultAppDir, defaultLogDirname),
		MaxLogFiles:    DefaultMaxLogFiles,
		MaxLogFileSize: DefaultMaxLogFileSize,
		DebugLevel:     DefaultDebugLevel,
	}
}

// Load parses config from args on top of defaults.
//
// The configuration proceeds as follows:
//  1. Start with a default config.
//  2. Pre-parse args to check for a config file.
//  3. Load config file overwriting defaults.
//  4. Parse args again so they take precedence.
//
// Unknown options and positional arguments are returned untouched.
func Load(args []string) (*Config, []string, error) {
	preCfg := DefaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return nil, nil, err
	}

	cfg := preCfg
	configFile := CleanAndExpandPath(preCfg.ConfigFile)
	if configFile == "" {
		configFile = filepath.Join(DefaultAppDir, defaultConfigName)
	}

	if err := flags.IniParse(configFile, &cfg); err != nil {
		// missing default config file is fine, explicitly provided one must be readable.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) || preCfg.ConfigFile != "" {
			return nil, nil, err
		}
	}

	rest, err := flags.NewParser(&cfg, flags.IgnoreUnknown).ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, rest, nil
}

// Validate checks config values and cleans paths.
func (cfg *Config) Validate() error {
	if _, err := cfg.Params(); err != nil {
		return err
	}

	switch {
	case cfg.FeeRate <= 0:
		return fmt.Errorf("%w: fee rate must be positive", ErrInvalidConfig)
	case cfg.OutputValue < bitcoin.DustThreshold:
		return fmt.Errorf("%w: output value must be at least %d", ErrInvalidConfig, bitcoin.DustThreshold)
	case cfg.SplitValue < bitcoin.DustThreshold:
		return fmt.Errorf("%w: split value must be at least %d", ErrInvalidConfig, bitcoin.DustThreshold)
	case cfg.RevealDelay < 0:
		return fmt.Errorf("%w: reveal delay can not be negative", ErrInvalidConfig)
	case cfg.MaxLogFiles < 0:
		return fmt.Errorf("%w: max log files can not be negative", ErrInvalidConfig)
	case cfg.MaxLogFileSize <= 0:
		return fmt.Errorf("%w: max log file size must be positive", ErrInvalidConfig)
	}

	if _, ok := btclog.LevelFromString(cfg.DebugLevel); !ok {
		return fmt.Errorf("%w: invalid debug level %q", ErrInvalidConfig, cfg.DebugLevel)
	}

	cfg.DataDir = CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)

	return nil
}

// Params returns chain params of configured network.
func (cfg *Config) Params() (*chaincfg.Params, error) {
	return bitcoin.Network(cfg.Network).Params()
}

// SatoshiPerKVByte returns fee rate in satoshi per kilo virtual byte.
func (cfg *Config) SatoshiPerKVByte() *big.Int {
	return big.NewInt(cfg.FeeRate * satoshiPerVByteScale)
}

// StorePath returns reveal checkpoints database path, separate per network.
func (cfg *Config) StorePath() string {
	return filepath.Join(cfg.DataDir, cfg.Network, defaultStoreDirname)
}

// LogFile returns log file path, separate per network.
func (cfg *Config) LogFile() string {
	return filepath.Join(cfg.LogDir, cfg.Network, defaultLogFilename)
}

// WalletConfig converts config into wallet options for the key store.
func (cfg *Config) WalletConfig(keyStore signer.KeyStore) (wallet.Config, error) {
	params, err := cfg.Params()
	if err != nil {
		return wallet.Config{}, err
	}

	return wallet.Config{
		Builder: wallet.BuilderConfig{
			Params:    params,
			KeyStore:  keyStore,
			EnableRBF: !cfg.DisableRBF,
		},
		OutputValue: big.NewInt(cfg.OutputValue),
		SplitValue:  big.NewInt(cfg.SplitValue),
		RevealDelay: cfg.RevealDelay,
	}, nil
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		path = strings.Replace(path, "~", homeDir(), 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// homeDir returns current user home directory.
func homeDir() string {
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}

	return os.Getenv("HOME")
}
