// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package splitter

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/BoostyLabs/ordtx/bitcoin"
	"github.com/BoostyLabs/ordtx/internal/numbers"
)

// DefaultSplitValue defines value of unit created for every inscription.
const DefaultSplitValue = bitcoin.DustThreshold

var (
	// ErrSplitValueBelowDust defines that requested unit value is below dust threshold.
	ErrSplitValueBelowDust = errors.New("split value is below dust threshold")
	// ErrInvalidOffset defines that inscription offset is outside of utxo value.
	ErrInvalidOffset = errors.New("inscription offset is out of utxo range")
)

var dustThreshold = big.NewInt(bitcoin.DustThreshold)

// OrdUnit is a satoshi range of utxo with inscriptions located inside it.
type OrdUnit struct {
	Value        *big.Int
	Inscriptions []bitcoin.InscriptionUTXO
}

// HasInscriptions returns true if unit carries at least one inscription.
func (u *OrdUnit) HasInscriptions() bool {
	return len(u.Inscriptions) > 0
}

// OrdUTXO is utxo partitioned into units in satoshi order.
type OrdUTXO struct {
	UTXO  bitcoin.UTXO
	Units []OrdUnit
}

// LastUnit returns the last unit of utxo.
func (o *OrdUTXO) LastUnit() *OrdUnit {
	return &o.Units[len(o.Units)-1]
}

// InscribedUnits returns amount of units carrying inscriptions.
func (o *OrdUTXO) InscribedUnits() int {
	count := 0
	for idx := range o.Units {
		if o.Units[idx].HasInscriptions() {
			count++
		}
	}

	return count
}

// Split partitions utxo into units so every inscription gets its own output of splitValue
// where the utxo value allows it.
//
// Inscriptions are processed by ascending offset. A gap before inscription that is not less
// than splitValue becomes an empty unit. When less than splitValue satoshis follow the
// inscription, the rest of utxo becomes its unit, merged into the previous one if below dust.
// Trailing rest above dust becomes an empty unit, otherwise it is merged into the last unit.
func Split(utxo bitcoin.UTXO, splitValue *big.Int) (*OrdUTXO, error) {
	if splitValue == nil || numbers.IsLess(splitValue, dustThreshold) {
		return nil, fmt.Errorf("%w: %s", ErrSplitValueBelowDust, splitValue)
	}
	if utxo.Amount == nil || !numbers.IsPositive(utxo.Amount) {
		return nil, fmt.Errorf("utxo %s:%d has no value", utxo.TxHash, utxo.Index)
	}

	inscriptions := make([]bitcoin.InscriptionUTXO, len(utxo.Inscriptions))
	copy(inscriptions, utxo.Inscriptions)
	sort.SliceStable(inscriptions, func(i, j int) bool {
		return inscriptions[i].Offset < inscriptions[j].Offset
	})

	var (
		total = utxo.Amount
		used  = big.NewInt(0)
		units []OrdUnit
	)
	for _, inscription := range inscriptions {
		offset := big.NewInt(inscription.Offset)
		if numbers.IsNegative(offset) || !numbers.IsLess(offset, total) {
			return nil, fmt.Errorf("%w: %s at %d in %s:%d", ErrInvalidOffset, inscription.ID, inscription.Offset,
				utxo.TxHash, utxo.Index)
		}

		if numbers.IsLess(offset, used) {
			last := &units[len(units)-1]
			last.Inscriptions = append(last.Inscriptions, inscription)
			continue
		}

		gap := new(big.Int).Sub(offset, used)
		if !numbers.IsLess(gap, splitValue) {
			units = append(units, OrdUnit{Value: new(big.Int).Set(gap)})
			used.Add(used, gap)
			gap.SetInt64(0)
		}

		unitValue := new(big.Int).Add(gap, splitValue)
		remaining := new(big.Int).Sub(total, used)
		if !numbers.IsLess(remaining, unitValue) {
			units = append(units, OrdUnit{Value: unitValue, Inscriptions: []bitcoin.InscriptionUTXO{inscription}})
			used.Add(used, unitValue)
			continue
		}

		if numbers.IsLess(remaining, dustThreshold) && len(units) > 0 {
			last := &units[len(units)-1]
			last.Value.Add(last.Value, remaining)
			last.Inscriptions = append(last.Inscriptions, inscription)
		} else {
			units = append(units, OrdUnit{Value: remaining, Inscriptions: []bitcoin.InscriptionUTXO{inscription}})
		}
		used.Set(total)
	}

	rest := new(big.Int).Sub(total, used)
	switch {
	case numbers.IsGreater(rest, dustThreshold), numbers.IsPositive(rest) && len(units) == 0:
		units = append(units, OrdUnit{Value: rest})
	case numbers.IsPositive(rest):
		last := &units[len(units)-1]
		last.Value.Add(last.Value, rest)
	}

	ordUTXO := &OrdUTXO{UTXO: utxo, Units: units}
	log.Debugf("utxo %s:%d with %d inscriptions split into %d units", utxo.TxHash, utxo.Index,
		len(inscriptions), len(units))

	return ordUTXO, nil
}

// SplitAll splits every utxo and sorts them ascending by the value of their last unit.
// Equal utxos keep the given order.
func SplitAll(utxos []bitcoin.UTXO, splitValue *big.Int) ([]*OrdUTXO, error) {
	ordUTXOs := make([]*OrdUTXO, 0, len(utxos))
	for _, utxo := range utxos {
		ordUTXO, err := Split(utxo, splitValue)
		if err != nil {
			return nil, err
		}

		ordUTXOs = append(ordUTXOs, ordUTXO)
	}

	sort.SliceStable(ordUTXOs, func(i, j int) bool {
		return numbers.IsLess(ordUTXOs[i].LastUnit().Value, ordUTXOs[j].LastUnit().Value)
	})

	return ordUTXOs, nil
}
