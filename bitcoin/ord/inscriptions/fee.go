// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"context"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/txbuilder"
	"github.com/BoostyLabs/ordtx/internal/numbers"
)

// placeholderCommitTxID defines commit transaction id used for reveal simulation.
const placeholderCommitTxID = "e87f2c0a9b4d48e69d23b69256ae5ae15a5b6c04885ec03f4cb4b8eefcd95a27"

var (
	// revealBaseVBytes defines reveal transaction overhead in vBytes.
	revealBaseVBytes = big.NewInt(88)
	// contentOverheadBytes defines envelope bytes added to file size before witness discount.
	contentOverheadBytes = big.NewInt(100)
	// witnessScaleFactor defines witness data discount.
	witnessScaleFactor = big.NewInt(4)
	// postage defines value of inscription output.
	postage = big.NewInt(bitcoin.DustThreshold)
	// kvByte defines virtual bytes amount in kilo virtual byte.
	kvByte = big.NewInt(1000)
)

// ErrInvalidFileCount defines that inscriptions amount is not positive.
var ErrInvalidFileCount = errors.New("file count must be positive")

// CalculateInscribeFee returns commit output value in satoshi for file of provided size
// inscribed to address: postage plus closed-form reveal network fee.
func CalculateInscribeFee(fileSize int, address string, satoshiPerKVByte *big.Int) (*big.Int, error) {
	return CalculateMultiInscribeFee(1, fileSize, address, satoshiPerKVByte)
}

// CalculateMultiInscribeFee returns commit output value in satoshi for fileCount files of the same size.
// Outputs overhead, content weight and postage scale linearly with the count.
func CalculateMultiInscribeFee(fileCount, fileSize int, address string, satoshiPerKVByte *big.Int) (*big.Int, error) {
	if fileCount <= 0 {
		return nil, ErrInvalidFileCount
	}

	outputSize, err := outputSizeVBytes(address)
	if err != nil {
		return nil, err
	}

	count := big.NewInt(int64(fileCount))
	contentVBytes := numbers.CeilDiv(new(big.Int).Add(big.NewInt(int64(fileSize)), contentOverheadBytes), witnessScaleFactor)

	vBytes := new(big.Int).Set(revealBaseVBytes)
	vBytes.Add(vBytes, new(big.Int).Mul(outputSize, count))
	vBytes.Add(vBytes, new(big.Int).Mul(contentVBytes, count))

	// vB * ( sat / kvB ) / 1000 = sat.
	fee := numbers.CeilDiv(new(big.Int).Mul(vBytes, satoshiPerKVByte), kvByte)

	return fee.Add(fee, new(big.Int).Mul(postage, count)), nil
}

// outputSizeVBytes returns address output script length with its length prefix.
// Address is decoded against every known network.
func outputSizeVBytes(address string) (*big.Int, error) {
	decoded, _, err := bitcoin.DecodeAddressAnyNetwork(address)
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, err
	}

	return big.NewInt(int64(len(pkScript) + 1)), nil
}

// EstimateInscribeFee returns reveal network fee in satoshi measured on reveal transaction
// built and signed with throwaway key, spending placeholder commit output.
func EstimateInscribeFee(inscription *Inscription, address string, satoshiPerKVByte *big.Int, params *chaincfg.Params) (*big.Int, error) {
	envelope, err := NewEnvelope(inscription, params)
	if err != nil {
		return nil, err
	}

	fee, err := RevealFee(envelope, address, satoshiPerKVByte)
	if err != nil {
		return nil, err
	}

	envelope.CommitValue = new(big.Int).Add(postage, fee)

	revealTx, err := BuildReveal(context.Background(), RevealParams{
		CommitTxID:       placeholderCommitTxID,
		Envelope:         envelope,
		Destination:      address,
		SatoshiPerKVByte: satoshiPerKVByte,
	})
	if err != nil {
		return nil, err
	}

	return txbuilder.FeeForVirtualSize(mempool.GetTxVirtualSize(btcutil.NewTx(revealTx)), satoshiPerKVByte), nil
}
