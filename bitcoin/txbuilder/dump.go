// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// DumpEntry describes one transaction input or output.
type DumpEntry struct {
	Address string
	Value   *big.Int
}

// Dump is a diagnostic view of pending transaction.
type Dump struct {
	Inputs      []DumpEntry
	Outputs     []DumpEntry
	ChangeIndex int // -1 if there is no change output.
	Fee         *big.Int
	VirtualSize int64
}

// String returns human readable dump.
func (d *Dump) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "vsize %d vB, fee %s sat\n", d.VirtualSize, d.Fee)
	for idx, input := range d.Inputs {
		fmt.Fprintf(&sb, "  in  #%d %s %s\n", idx, input.Address, input.Value)
	}
	for idx, output := range d.Outputs {
		change := ""
		if idx == d.ChangeIndex {
			change = " (change)"
		}

		fmt.Fprintf(&sb, "  out #%d %s %s%s\n", idx, output.Address, output.Value, change)
	}

	return sb.String()
}

// Dump returns and logs diagnostic view of the transaction.
func (t *Transaction) Dump() (*Dump, error) {
	vSize, err := t.VirtualSize()
	if err != nil {
		return nil, err
	}

	dump := &Dump{
		Inputs:      make([]DumpEntry, 0, len(t.inputs)),
		Outputs:     make([]DumpEntry, 0, len(t.outputs)),
		ChangeIndex: t.changeIdx,
		Fee:         FeeForVirtualSize(vSize, t.config.SatoshiPerKVByte),
		VirtualSize: vSize,
	}
	for _, input := range t.inputs {
		dump.Inputs = append(dump.Inputs, DumpEntry{Address: input.UTXO.Address, Value: new(big.Int).Set(input.UTXO.Amount)})
	}
	for _, output := range t.outputs {
		dump.Outputs = append(dump.Outputs, DumpEntry{Address: output.Address, Value: new(big.Int).Set(output.Value)})
	}

	log.Debugf("transaction dump:\n%v", dump)
	log.Tracef("transaction inputs: %v", newLogClosure(func() string {
		return spew.Sdump(t.inputs)
	}))

	return dump, nil
}
