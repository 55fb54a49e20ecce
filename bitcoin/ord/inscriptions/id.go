// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// idSeparator separates reveal txid and index in inscription id.
const idSeparator = "i"

// maxIndexSize defines size of the index part of encoded id.
const maxIndexSize = 4

// ErrInvalidID defines that inscription id can not be parsed.
var ErrInvalidID = errors.New("invalid inscription id")

// ID is inscription identifier: reveal transaction id and index of the inscription in it.
type ID struct {
	TxID  *chainhash.Hash
	Index uint32
}

// NewIDFromString parses id of the <txid>i<index> form.
func NewIDFromString(id string) (*ID, error) {
	txID, index, ok := strings.Cut(id, idSeparator)
	if !ok || len(txID) != chainhash.MaxHashStringSize {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	hash, err := chainhash.NewHashFromStr(txID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	idx, err := strconv.ParseUint(index, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	return &ID{TxID: hash, Index: uint32(idx)}, nil
}

// NewIDFromDataPush parses id encoded for envelope fields: txid bytes followed
// by little-endian index with trailing zeros omitted.
func NewIDFromDataPush(data []byte) (*ID, error) {
	if len(data) < chainhash.HashSize || len(data) > chainhash.HashSize+maxIndexSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidID, len(data))
	}

	hash, err := chainhash.NewHash(data[:chainhash.HashSize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	var index [maxIndexSize]byte
	copy(index[:], data[chainhash.HashSize:])

	return &ID{TxID: hash, Index: binary.LittleEndian.Uint32(index[:])}, nil
}

// String returns id in the <txid>i<index> form.
func (id *ID) String() string {
	return id.TxID.String() + idSeparator + strconv.FormatUint(uint64(id.Index), 10)
}

// IndexLETrailingZerosOmitted returns little-endian index without trailing zero bytes.
func (id *ID) IndexLETrailingZerosOmitted() []byte {
	index := binary.LittleEndian.AppendUint32(nil, id.Index)

	return bytes.TrimRight(index, "\x00")
}

// IntoDataPush returns id encoded for envelope fields.
func (id *ID) IntoDataPush() []byte {
	data := make([]byte, 0, chainhash.HashSize+maxIndexSize)
	data = append(data, id.TxID[:]...)

	return append(data, id.IndexLETrailingZerosOmitted()...)
}

// Equal returns true if ids point to the same inscription.
func (id *ID) Equal(other *ID) bool {
	if id == nil || other == nil {
		return id == other
	}

	return id.TxID.IsEqual(other.TxID) && id.Index == other.Index
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	if id.TxID == nil {
		return nil, fmt.Errorf("%w: no txid", ErrInvalidID)
	}

	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := NewIDFromString(string(text))
	if err != nil {
		return err
	}

	*id = *parsed

	return nil
}
