// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"math/big"
)

// DustThreshold defines the smallest output value in satoshi the builder is allowed to create.
const DustThreshold int64 = 546

// UTXO describes unspent transaction output data.
type UTXO struct {
	TxHash       string
	Index        uint32   // output index in transaction outputs.
	Amount       *big.Int // in Satoshi.
	Script       []byte   // ScriptPubKey.
	Address      string   // output recipient address.
	AddressType  AddressType
	Inscriptions []InscriptionUTXO
}

// InscriptionUTXO describes inscription linked to UTXO.
type InscriptionUTXO struct {
	ID     string // inscription id in the <txid>i<index> form.
	Offset int64  // satoshi offset of the inscription inside the UTXO.
}

// HasInscriptions returns true if at least one inscription is linked to UTXO.
func (u *UTXO) HasInscriptions() bool {
	return len(u.Inscriptions) > 0
}

// HasInscription returns true if inscription with provided id is linked to UTXO.
func (u *UTXO) HasInscription(id string) bool {
	for _, inscription := range u.Inscriptions {
		if inscription.ID == id {
			return true
		}
	}

	return false
}

// Output describes transaction output.
type Output struct {
	Address string
	Value   *big.Int // in Satoshi.
}

// SplitByInscriptions separates inscription bearing utxos from plain ones, keeping the order.
func SplitByInscriptions(utxos []UTXO) (inscribed, plain []UTXO) {
	for _, utxo := range utxos {
		if utxo.HasInscriptions() {
			inscribed = append(inscribed, utxo)
			continue
		}

		plain = append(plain, utxo)
	}

	return inscribed, plain
}
