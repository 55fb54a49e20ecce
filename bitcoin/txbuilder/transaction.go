// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/bitcoin/signer"
	"github.com/BoostyLabs/ordtx/internal/numbers"
)

const (
	// txVersion defines transaction version for this builder.
	txVersion int32 = 2
	// rbfSequence defines input sequence which signals replaceability.
	rbfSequence uint32 = wire.MaxTxInSequenceNum - 2
	// noChangeOutput defines that change output is not tracked.
	noChangeOutput = -1
)

var (
	// ErrDustOutput defines that output value is below dust threshold.
	ErrDustOutput = errors.New("output value is below dust threshold")
	// ErrNoKeyStore defines that transaction can not be signed without key store.
	ErrNoKeyStore = errors.New("no key store provided")
	// ErrNoChangeAddress defines that change output requested without change address.
	ErrNoChangeAddress = errors.New("no change address provided")

	// dustThreshold defines the smallest output value in satoshi.
	dustThreshold = big.NewInt(bitcoin.DustThreshold)
	// kvByte defines virtual bytes amount in kilo virtual byte.
	kvByte = big.NewInt(1000)
)

// Config defines transaction wide parameters.
type Config struct {
	Params           *chaincfg.Params
	KeyStore         signer.KeyStore
	SatoshiPerKVByte *big.Int // fee rate in satoshi per kilo virtual byte.
	EnableRBF        bool
	ChangeAddress    string
}

// ScriptPathSpend describes taproot input spent by tapscript leaf.
type ScriptPathSpend struct {
	InternalKey  []byte // x-only.
	LeafScript   []byte
	ControlBlock []byte
	Assembler    signer.WitnessAssembler // signer.ScriptPathWitness if nil.
}

// Input describes transaction input with signing strategy.
type Input struct {
	UTXO       bitcoin.UTXO
	PkScript   []byte
	Strategy   signer.Strategy
	ScriptPath *ScriptPathSpend
}

// Transaction is a pending transaction accumulating inputs and outputs until it is signed.
// It is created per build call and must not be shared.
type Transaction struct {
	config    Config
	inputs    []Input
	outputs   []bitcoin.Output
	pkScripts [][]byte
	changeIdx int
}

// NewTransaction is a constructor for Transaction.
func NewTransaction(config Config) *Transaction {
	if config.SatoshiPerKVByte == nil {
		config.SatoshiPerKVByte = big.NewInt(0)
	}

	return &Transaction{
		config:    config,
		changeIdx: noChangeOutput,
	}
}

// Params returns network params of the transaction.
func (t *Transaction) Params() *chaincfg.Params {
	return t.config.Params
}

// AddInput adds key path spent utxo, strategy is defined by utxo address type.
func (t *Transaction) AddInput(utxo bitcoin.UTXO) error {
	strategy, err := signer.StrategyForAddressType(utxo.AddressType)
	if err != nil {
		return err
	}

	pkScript, err := t.utxoPkScript(utxo)
	if err != nil {
		return err
	}

	if !scriptMatchesStrategy(pkScript, strategy) {
		return fmt.Errorf("%w: utxo %s:%d script does not match %s", bitcoin.ErrUnknownAddressType,
			utxo.TxHash, utxo.Index, utxo.AddressType)
	}

	t.inputs = append(t.inputs, Input{UTXO: utxo, PkScript: pkScript, Strategy: strategy})

	return nil
}

// AddScriptPathInput adds taproot utxo spent by tapscript leaf.
func (t *Transaction) AddScriptPathInput(utxo bitcoin.UTXO, spend ScriptPathSpend) error {
	pkScript, err := t.utxoPkScript(utxo)
	if err != nil {
		return err
	}

	if !scriptMatchesStrategy(pkScript, signer.StrategyTaprootScriptPath) {
		return fmt.Errorf("%w: utxo %s:%d is not taproot output", bitcoin.ErrUnknownAddressType, utxo.TxHash, utxo.Index)
	}

	t.inputs = append(t.inputs, Input{
		UTXO:       utxo,
		PkScript:   pkScript,
		Strategy:   signer.StrategyTaprootScriptPath,
		ScriptPath: &spend,
	})

	return nil
}

// utxoPkScript returns utxo script, decoding utxo address if script is not set.
func (t *Transaction) utxoPkScript(utxo bitcoin.UTXO) ([]byte, error) {
	if utxo.Amount == nil {
		return nil, fmt.Errorf("utxo %s:%d has no amount", utxo.TxHash, utxo.Index)
	}

	if len(utxo.Script) > 0 {
		return utxo.Script, nil
	}

	return bitcoin.AddressToPkScript(utxo.Address, t.config.Params)
}

// scriptMatchesStrategy returns true if locking script class can be spent by strategy.
func scriptMatchesStrategy(pkScript []byte, strategy signer.Strategy) bool {
	class := txscript.GetScriptClass(pkScript)
	switch strategy {
	case signer.StrategyLegacy:
		return class == txscript.PubKeyHashTy
	case signer.StrategyNestedSegwit:
		return class == txscript.ScriptHashTy
	case signer.StrategySegwit:
		return class == txscript.WitnessV0PubKeyHashTy
	case signer.StrategyTaprootKeyPath, signer.StrategyTaprootScriptPath:
		return class == txscript.WitnessV1TaprootTy
	default:
		return false
	}
}

// AddOutput adds output paying value to address.
func (t *Transaction) AddOutput(address string, value *big.Int) error {
	pkScript, err := bitcoin.AddressToPkScript(address, t.config.Params)
	if err != nil {
		return err
	}

	t.outputs = append(t.outputs, bitcoin.Output{Address: address, Value: new(big.Int).Set(value)})
	t.pkScripts = append(t.pkScripts, pkScript)

	return nil
}

// AddChangeOutput appends output to change address and marks it as change output.
func (t *Transaction) AddChangeOutput(value *big.Int) error {
	if t.config.ChangeAddress == "" {
		return ErrNoChangeAddress
	}

	err := t.AddOutput(t.config.ChangeAddress, value)
	if err != nil {
		return err
	}

	t.changeIdx = len(t.outputs) - 1

	return nil
}

// ChangeOutput returns change output or nil if there is no one.
func (t *Transaction) ChangeOutput() *bitcoin.Output {
	if t.changeIdx == noChangeOutput {
		return nil
	}

	return &t.outputs[t.changeIdx]
}

// RemoveChangeOutput removes change output if any.
func (t *Transaction) RemoveChangeOutput() {
	if t.changeIdx == noChangeOutput {
		return
	}

	t.outputs = append(t.outputs[:t.changeIdx], t.outputs[t.changeIdx+1:]...)
	t.pkScripts = append(t.pkScripts[:t.changeIdx], t.pkScripts[t.changeIdx+1:]...)
	t.changeIdx = noChangeOutput
}

// Output returns output by index, value may be updated until transaction is signed.
func (t *Transaction) Output(idx int) (*bitcoin.Output, error) {
	if idx < 0 || idx >= len(t.outputs) {
		return nil, fmt.Errorf("output index %d out of range", idx)
	}

	return &t.outputs[idx], nil
}

// Outputs returns copy of transaction outputs.
func (t *Transaction) Outputs() []bitcoin.Output {
	outputs := make([]bitcoin.Output, len(t.outputs))
	copy(outputs, t.outputs)

	return outputs
}

// Inputs returns copy of transaction inputs.
func (t *Transaction) Inputs() []Input {
	inputs := make([]Input, len(t.inputs))
	copy(inputs, t.inputs)

	return inputs
}

// TotalInput returns sum of inputs values in satoshi.
func (t *Transaction) TotalInput() *big.Int {
	total := big.NewInt(0)
	for _, input := range t.inputs {
		total.Add(total, input.UTXO.Amount)
	}

	return total
}

// TotalOutput returns sum of outputs values in satoshi.
func (t *Transaction) TotalOutput() *big.Int {
	total := big.NewInt(0)
	for _, output := range t.outputs {
		total.Add(total, output.Value)
	}

	return total
}

// Unspent returns inputs value not allocated to outputs.
func (t *Transaction) Unspent() *big.Int {
	return new(big.Int).Sub(t.TotalInput(), t.TotalOutput())
}

// UnsignedTx returns unsigned wire transaction with current inputs and outputs.
func (t *Transaction) UnsignedTx() (*wire.MsgTx, error) {
	sequence := uint32(wire.MaxTxInSequenceNum)
	if t.config.EnableRBF {
		sequence = rbfSequence
	}

	tx := wire.NewMsgTx(txVersion)
	for _, input := range t.inputs {
		utxoHash, err := chainhash.NewHashFromStr(input.UTXO.TxHash)
		if err != nil {
			return nil, err
		}

		txIn := wire.NewTxIn(wire.NewOutPoint(utxoHash, input.UTXO.Index), nil, nil)
		txIn.Sequence = sequence
		tx.AddTxIn(txIn)
	}

	for idx, output := range t.outputs {
		if !output.Value.IsInt64() || numbers.IsNegative(output.Value) {
			return nil, fmt.Errorf("invalid output %d value %s", idx, output.Value)
		}

		tx.AddTxOut(wire.NewTxOut(output.Value.Int64(), t.pkScripts[idx]))
	}

	return tx, nil
}

// CalNetworkFee returns network fee in satoshi for current transaction size and fee rate.
func (t *Transaction) CalNetworkFee() (*big.Int, error) {
	vSize, err := t.VirtualSize()
	if err != nil {
		return nil, err
	}

	return FeeForVirtualSize(vSize, t.config.SatoshiPerKVByte), nil
}

// FeeForVirtualSize returns fee in satoshi rounded up: vB * ( sat / kvB ) / 1000.
func FeeForVirtualSize(vSize int64, satoshiPerKVByte *big.Int) *big.Int {
	return numbers.CeilDiv(new(big.Int).Mul(big.NewInt(vSize), satoshiPerKVByte), kvByte)
}

// CreatePSBT returns unsigned packet with prepared inputs data and signing strategies annotations.
func (t *Transaction) CreatePSBT() (*psbt.Packet, []signer.ToSignInput, error) {
	if t.config.KeyStore == nil {
		return nil, nil, ErrNoKeyStore
	}

	tx, err := t.UnsignedTx()
	if err != nil {
		return nil, nil, err
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, nil, err
	}

	inputBuilder, err := NewPSBTInputBuilder(t.config.KeyStore.PublicKey(), t.config.KeyStore.AddressType(), t.config.Params)
	if err != nil {
		return nil, nil, err
	}

	toSignInputs := make([]signer.ToSignInput, len(t.inputs))
	for idx := range t.inputs {
		err = inputBuilder.PrepareInput(&packet.Inputs[idx], &t.inputs[idx])
		if err != nil {
			return nil, nil, fmt.Errorf("input %d: %w", idx, err)
		}

		toSignInputs[idx] = signer.ToSignInput{
			Index:       idx,
			Strategy:    t.inputs[idx].Strategy,
			SighashType: t.inputs[idx].Strategy.DefaultSighashType(),
		}
	}

	signer.AnnotatePSBT(packet, toSignInputs)

	return packet, toSignInputs, nil
}

// CreateSignedPSBT checks the balance, signs all inputs with key store by one call and finalizes them.
func (t *Transaction) CreateSignedPSBT(ctx context.Context) (*psbt.Packet, error) {
	fee, err := t.CalNetworkFee()
	if err != nil {
		return nil, err
	}

	var (
		totalInput = t.TotalInput()
		need       = new(big.Int).Add(t.TotalOutput(), fee)
	)
	if numbers.IsLess(totalInput, need) {
		return nil, NewInsufficientError(need, totalInput).setCauser(CauserSender)
	}

	for idx, output := range t.outputs {
		if numbers.IsLess(output.Value, dustThreshold) {
			return nil, fmt.Errorf("%w: output %d value %s", ErrDustOutput, idx, output.Value)
		}
	}

	packet, toSignInputs, err := t.CreatePSBT()
	if err != nil {
		return nil, err
	}

	err = t.config.KeyStore.SignPSBT(ctx, packet, toSignInputs)
	if err != nil {
		return nil, err
	}

	for idx, input := range t.inputs {
		var assembler signer.WitnessAssembler
		if input.ScriptPath != nil {
			assembler = input.ScriptPath.Assembler
		}

		err = signer.FinalizeInput(packet, idx, input.Strategy, assembler)
		if err != nil {
			return nil, fmt.Errorf("finalize input %d: %w", idx, err)
		}
	}

	log.Debugf("signed transaction %s: %d inputs, %d outputs, fee %s", packet.UnsignedTx.TxHash(),
		len(t.inputs), len(t.outputs), fee)

	return packet, nil
}

// ExtractTx returns final wire transaction from finalized packet.
func ExtractTx(packet *psbt.Packet) (*wire.MsgTx, error) {
	return signer.ExtractTx(packet)
}
