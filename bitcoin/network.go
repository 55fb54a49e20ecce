// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ErrUnknownNetwork defines that network name is not supported.
var ErrUnknownNetwork = errors.New("unknown network")

// Network defines bitcoin network selector.
type Network string

const (
	// NetworkMainnet defines bitcoin main network.
	NetworkMainnet Network = "mainnet"
	// NetworkTestnet defines bitcoin test network (version 3).
	NetworkTestnet Network = "testnet"
	// NetworkRegtest defines bitcoin regression test network.
	NetworkRegtest Network = "regtest"
	// NetworkSignet defines bitcoin default signet network.
	NetworkSignet Network = "signet"
)

// knownParams lists params in the order addresses are tried to be decoded.
var knownParams = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.RegressionNetParams,
	&chaincfg.SigNetParams,
}

// Params returns chain params of the network.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	case NetworkSignet:
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, n)
	}
}

// DecodeAddressAnyNetwork decodes address trying every known network.
func DecodeAddressAnyNetwork(address string) (btcutil.Address, *chaincfg.Params, error) {
	var errs []error
	for _, params := range knownParams {
		decoded, err := btcutil.DecodeAddress(address, params)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if decoded.IsForNet(params) {
			return decoded, params, nil
		}
	}

	return nil, nil, errors.Join(append([]error{fmt.Errorf("can not decode address %q", address)}, errs...)...)
}

// AddressToPkScript decodes address for provided network and returns its locking script.
func AddressToPkScript(address string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, err
	}

	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("address %s is not for %s network", address, params.Name)
	}

	return txscript.PayToAddrScript(decoded)
}

// NetworkForParams returns network selector of chain params.
func NetworkForParams(params *chaincfg.Params) (Network, error) {
	switch params.Net {
	case chaincfg.MainNetParams.Net:
		return NetworkMainnet, nil
	case chaincfg.TestNet3Params.Net:
		return NetworkTestnet, nil
	case chaincfg.RegressionNetParams.Net:
		return NetworkRegtest, nil
	case chaincfg.SigNetParams.Net:
		return NetworkSignet, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownNetwork, params.Name)
	}
}
