// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/ecc"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
)

func TestFormatToSignInputs(t *testing.T) {
	ecc.Init()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	ks, err := signer.NewLocalKeyStore(privKey, bitcoin.AddressTypeP2WPKH, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	packet := newPacket(t, ks.PkScript(), 10000)

	t.Run("malformed", func(t *testing.T) {
		tests := []struct {
			name  string
			input signer.UserToSignInput
		}{
			{"non numeric index", signer.UserToSignInput{Index: "first", Address: ks.Address()}},
			{"index out of range", signer.UserToSignInput{Index: "1", Address: ks.Address()}},
			{"negative index", signer.UserToSignInput{Index: "-1", Address: ks.Address()}},
			{"no identity", signer.UserToSignInput{Index: "0"}},
			{"address mismatch", signer.UserToSignInput{Index: "0", Address: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"}},
			{"public key mismatch", signer.UserToSignInput{Index: "0", PublicKey: "02" + ks.PublicKey()[2:4] + "00"}},
			{"non numeric sighash", signer.UserToSignInput{Index: "0", Address: ks.Address(), SighashTypes: []string{"ALL"}}},
		}
		for _, test := range tests {
			_, err := ks.FormatToSignInputs(packet, []signer.UserToSignInput{test.input})
			require.ErrorIs(t, err, bitcoin.ErrMalformedSignRequest, test.name)
		}
	})

	t.Run("valid", func(t *testing.T) {
		inputs, err := ks.FormatToSignInputs(packet, []signer.UserToSignInput{
			{Index: "0", PublicKey: ks.PublicKey(), SighashTypes: []string{"131"}},
		})
		require.NoError(t, err)
		require.Equal(t, []signer.ToSignInput{{
			Index:       0,
			Strategy:    signer.StrategySegwit,
			SighashType: txscript.SigHashSingle | txscript.SigHashAnyOneCanPay,
		}}, inputs)

		inputs, err = ks.FormatToSignInputs(packet, []signer.UserToSignInput{
			{Index: "0", Address: ks.Address(), SighashTypes: []string{"129"}},
		})
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		require.Equal(t, txscript.SigHashAll|txscript.SigHashAnyOneCanPay, inputs[0].SighashType)
	})

	t.Run("derived from wallet script", func(t *testing.T) {
		inputs, err := ks.FormatToSignInputs(packet, nil)
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		require.Equal(t, 0, inputs[0].Index)
		require.Equal(t, signer.StrategySegwit, inputs[0].Strategy)

		foreign := newPacket(t, []byte{txscript.OP_TRUE}, 10000)
		inputs, err = ks.FormatToSignInputs(foreign, nil)
		require.NoError(t, err)
		require.Empty(t, inputs)
	})

	t.Run("SignPSBTRequest", func(t *testing.T) {
		nested, err := signer.NewLocalKeyStore(privKey, bitcoin.AddressTypeP2SHP2WPKH, &chaincfg.TestNet3Params)
		require.NoError(t, err)

		packet := newPacket(t, nested.PkScript(), 10000)
		err = nested.SignPSBTRequest(context.Background(), packet, signer.SignRequest{
			AutoFinalize: true,
			ToSignInputs: []signer.UserToSignInput{{Index: "0", Address: nested.Address()}},
		})
		require.NoError(t, err)

		tx, err := signer.ExtractTx(packet)
		require.NoError(t, err)
		verifyInput(t, tx, 0, nested.PkScript(), 10000)
	})
}

func TestHelpingKeys(t *testing.T) {
	packet := newPacket(t, []byte{txscript.OP_TRUE}, 10000)
	packet.UnsignedTx.AddTxIn(packet.UnsignedTx.TxIn[0])
	packet.UnsignedTx.AddTxIn(packet.UnsignedTx.TxIn[0])
	packet.Inputs = append(packet.Inputs, psbt.PInput{}, psbt.PInput{})
	packet.Unknowns = []*psbt.Unknown{{Key: []byte{0x10}, Value: []byte{0x00}}}

	inputs := []signer.ToSignInput{
		{Index: 2, Strategy: signer.StrategySegwit, SighashType: txscript.SigHashAll},
		{Index: 0, Strategy: signer.StrategyTaprootKeyPath, SighashType: txscript.SigHashDefault},
		{Index: 1, Strategy: signer.StrategyTaprootScriptPath, SighashType: txscript.SigHashDefault},
	}
	signer.AnnotatePSBT(packet, inputs)
	signer.AnnotatePSBT(packet, inputs)
	require.Len(t, packet.Unknowns, 4)

	var buf bytes.Buffer
	require.NoError(t, packet.Serialize(&buf))

	parsed, err := psbt.NewFromRawBytes(&buf, false)
	require.NoError(t, err)

	result, err := signer.ToSignInputsFromPSBT(parsed)
	require.NoError(t, err)
	require.Equal(t, []signer.ToSignInput{inputs[1], inputs[2], inputs[0]}, result)

	parsed.Unknowns = append(parsed.Unknowns, &psbt.Unknown{Key: []byte{0x4f}, Value: []byte{0, 0, 0, 0}})
	_, err = signer.ToSignInputsFromPSBT(parsed)
	require.ErrorIs(t, err, signer.ErrUnknownInputsHelpingKey)
}
