// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// ErrUnknownInputsHelpingKey defines that inputs helping key is unknown.
var ErrUnknownInputsHelpingKey = errors.New("unknown inputs helping key")

// InputsHelpingKey defines type for additional data in PSBT Unknowns field
// to pass signing strategy of each input to the signer.
type InputsHelpingKey byte

// inputsHelpingKeyBase defines the first helping key, strategies are added to it.
const inputsHelpingKeyBase InputsHelpingKey = 0x40

// HelpingKeyForStrategy returns helping key which lists inputs of the strategy.
func HelpingKeyForStrategy(strategy Strategy) InputsHelpingKey {
	return inputsHelpingKeyBase + InputsHelpingKey(strategy)
}

// Strategy returns strategy the helping key stands for.
func (k InputsHelpingKey) Strategy() (Strategy, error) {
	strategy := Strategy(k - inputsHelpingKeyBase)
	switch strategy {
	case StrategyLegacy, StrategyNestedSegwit, StrategySegwit, StrategyTaprootKeyPath, StrategyTaprootScriptPath:
		return strategy, nil
	default:
		return 0, fmt.Errorf("%w: %#x", ErrUnknownInputsHelpingKey, byte(k))
	}
}

// isHelpingKey returns true if unknown key belongs to strategies helping keys range.
func isHelpingKey(key []byte) bool {
	return len(key) == 1 && key[0] > byte(inputsHelpingKeyBase) && key[0] < byte(inputsHelpingKeyBase)+0x10
}

// AnnotatePSBT writes input indexes per signing strategy into packet Unknowns.
// Indexes are stored as uint32 big-endian values. Previous annotations are replaced.
func AnnotatePSBT(packet *psbt.Packet, inputs []ToSignInput) {
	unknowns := make([]*psbt.Unknown, 0, len(packet.Unknowns))
	for _, unknown := range packet.Unknowns {
		if !isHelpingKey(unknown.Key) {
			unknowns = append(unknowns, unknown)
		}
	}

	byStrategy := make(map[Strategy][]byte)
	for _, input := range inputs {
		byStrategy[input.Strategy] = binary.BigEndian.AppendUint32(byStrategy[input.Strategy], uint32(input.Index))
	}

	strategies := make([]Strategy, 0, len(byStrategy))
	for strategy := range byStrategy {
		strategies = append(strategies, strategy)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i] < strategies[j] })

	for _, strategy := range strategies {
		unknowns = append(unknowns, &psbt.Unknown{
			Key:   []byte{byte(HelpingKeyForStrategy(strategy))},
			Value: byStrategy[strategy],
		})
	}

	packet.Unknowns = unknowns
}

// ToSignInputsFromPSBT returns inputs to sign listed in packet annotations, ordered by index.
func ToSignInputsFromPSBT(packet *psbt.Packet) ([]ToSignInput, error) {
	var inputs []ToSignInput
	for _, unknown := range packet.Unknowns {
		if !isHelpingKey(unknown.Key) {
			continue
		}

		strategy, err := InputsHelpingKey(unknown.Key[0]).Strategy()
		if err != nil {
			return nil, err
		}

		if len(unknown.Value)%4 != 0 {
			return nil, fmt.Errorf("%w: malformed indexes for %s", ErrUnknownInputsHelpingKey, strategy)
		}

		for i := 0; i < len(unknown.Value); i += 4 {
			idx := int(binary.BigEndian.Uint32(unknown.Value[i:]))
			if idx >= len(packet.Inputs) {
				return nil, fmt.Errorf("%w: input index %d out of range", ErrUnknownInputsHelpingKey, idx)
			}

			inputs = append(inputs, ToSignInput{
				Index:       idx,
				Strategy:    strategy,
				SighashType: strategy.DefaultSighashType(),
			})
		}
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Index < inputs[j].Index })

	return inputs, nil
}
