// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package inscriptions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/BoostyLabs/ordtx/bitcoin"
)

// checkpointKeyPrefix defines key prefix of reveal checkpoints.
var checkpointKeyPrefix = []byte("reveal/")

var (
	// ErrCheckpointNotFound defines that there is no reveal checkpoint for commit transaction.
	ErrCheckpointNotFound = errors.New("reveal checkpoint not found")
	// ErrCheckpointMismatch defines that restored envelope does not match stored commit output.
	ErrCheckpointMismatch = errors.New("reveal checkpoint does not match commit output")
)

// Checkpoint describes everything needed to rebuild reveal transaction after commit broadcast.
type Checkpoint struct {
	CommitTxID       string          `json:"commitTxId"`
	Network          bitcoin.Network `json:"network"`
	PrivateKey       []byte          `json:"privateKey"`
	LeafScript       []byte          `json:"leafScript"`
	ControlBlock     []byte          `json:"controlBlock"`
	CommitPkScript   []byte          `json:"commitPkScript"`
	CommitValue      int64           `json:"commitValue"`
	Destination      string          `json:"destination"`
	OutputValue      int64           `json:"outputValue"`
	SatoshiPerKVByte int64           `json:"satoshiPerKVByte"`
	EnableRBF        bool            `json:"enableRbf"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// NewCheckpoint returns checkpoint of reveal params for commit transaction.
func NewCheckpoint(params RevealParams) (*Checkpoint, error) {
	envelope := params.Envelope
	if envelope.CommitValue == nil {
		return nil, ErrNoCommitValue
	}

	network, err := bitcoin.NetworkForParams(envelope.Params())
	if err != nil {
		return nil, err
	}

	checkpoint := &Checkpoint{
		CommitTxID:     params.CommitTxID,
		Network:        network,
		PrivateKey:     envelope.PrivateKeyBytes(),
		LeafScript:     envelope.LeafScript,
		ControlBlock:   envelope.ControlBlock,
		CommitPkScript: envelope.CommitPkScript,
		CommitValue:    envelope.CommitValue.Int64(),
		Destination:    params.Destination,
		OutputValue:    bitcoin.DustThreshold,
		EnableRBF:      params.EnableRBF,
		CreatedAt:      time.Now().UTC(),
	}
	if params.OutputValue != nil {
		checkpoint.OutputValue = params.OutputValue.Int64()
	}
	if params.SatoshiPerKVByte != nil {
		checkpoint.SatoshiPerKVByte = params.SatoshiPerKVByte.Int64()
	}

	return checkpoint, nil
}

// RevealParams restores envelope and returns reveal params stored in checkpoint.
func (c *Checkpoint) RevealParams() (RevealParams, error) {
	params, err := c.Network.Params()
	if err != nil {
		return RevealParams{}, err
	}

	privateKey, _ := btcec.PrivKeyFromBytes(c.PrivateKey)
	envelope, err := RestoreEnvelope(privateKey, c.LeafScript, params)
	if err != nil {
		return RevealParams{}, err
	}

	if !bytes.Equal(envelope.CommitPkScript, c.CommitPkScript) || !bytes.Equal(envelope.ControlBlock, c.ControlBlock) {
		return RevealParams{}, fmt.Errorf("%w: %s", ErrCheckpointMismatch, c.CommitTxID)
	}

	envelope.CommitValue = big.NewInt(c.CommitValue)

	return RevealParams{
		CommitTxID:       c.CommitTxID,
		Envelope:         envelope,
		Destination:      c.Destination,
		OutputValue:      big.NewInt(c.OutputValue),
		SatoshiPerKVByte: big.NewInt(c.SatoshiPerKVByte),
		EnableRBF:        c.EnableRBF,
	}, nil
}

// RevealStore keeps reveal checkpoints in leveldb keyed by commit transaction id.
// It is safe for concurrent use.
//
// Checkpoints hold commit private keys unencrypted, anyone able to read the database
// can spend commit outputs before reveal.
type RevealStore struct {
	db *leveldb.DB
}

// storeDirPerm defines permissions of reveal store directory, readable by owner only.
const storeDirPerm = 0700

// OpenRevealStore opens or creates reveal store database at path.
// The database directory is restricted to the current user.
func OpenRevealStore(path string) (*RevealStore, error) {
	if err := os.MkdirAll(path, storeDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create reveal store directory: %w", err)
	}
	if err := os.Chmod(path, storeDirPerm); err != nil {
		return nil, fmt.Errorf("failed to restrict reveal store directory: %w", err)
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return &RevealStore{db: db}, nil
}

// NewMemRevealStore returns reveal store kept in memory.
func NewMemRevealStore() (*RevealStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return &RevealStore{db: db}, nil
}

// checkpointKey returns database key of commit transaction checkpoint.
func checkpointKey(commitTxID string) []byte {
	return append(append([]byte{}, checkpointKeyPrefix...), commitTxID...)
}

// Put stores checkpoint synchronously.
func (s *RevealStore) Put(checkpoint *Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return err
	}

	err = s.db.Put(checkpointKey(checkpoint.CommitTxID), data, &opt.WriteOptions{Sync: true})
	if err != nil {
		return err
	}

	log.Debugf("stored reveal checkpoint for commit %s", checkpoint.CommitTxID)

	return nil
}

// Get returns checkpoint of commit transaction.
func (s *RevealStore) Get(commitTxID string) (*Checkpoint, error) {
	data, err := s.db.Get(checkpointKey(commitTxID), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, commitTxID)
		}

		return nil, err
	}

	checkpoint := new(Checkpoint)
	if err = json.Unmarshal(data, checkpoint); err != nil {
		return nil, err
	}

	return checkpoint, nil
}

// Delete removes checkpoint of commit transaction.
func (s *RevealStore) Delete(commitTxID string) error {
	return s.db.Delete(checkpointKey(commitTxID), &opt.WriteOptions{Sync: true})
}

// List returns all stored checkpoints ordered by commit transaction id.
func (s *RevealStore) List() ([]*Checkpoint, error) {
	iter := s.db.NewIterator(util.BytesPrefix(checkpointKeyPrefix), nil)
	defer iter.Release()

	var checkpoints []*Checkpoint
	for iter.Next() {
		checkpoint := new(Checkpoint)
		if err := json.Unmarshal(iter.Value(), checkpoint); err != nil {
			return nil, err
		}

		checkpoints = append(checkpoints, checkpoint)
	}

	return checkpoints, iter.Error()
}

// Close closes underlying database.
func (s *RevealStore) Close() error {
	return s.db.Close()
}
