// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package sequencereader

import (
	"errors"
)

// ErrEnded defines that all elements of the sequence are read.
var ErrEnded = errors.New("sequence is ended")

// SequenceReader reads elements of a slice one by one.
type SequenceReader[T any] struct {
	seq []T
	pos int
}

// New is a constructor for SequenceReader.
func New[T any](seq []T) *SequenceReader[T] {
	return &SequenceReader[T]{seq: seq}
}

// HasNext returns true if unread elements are left.
func (sr *SequenceReader[T]) HasNext() bool {
	return sr.pos < len(sr.seq)
}

// Peek returns next element without moving the reader.
func (sr *SequenceReader[T]) Peek() (T, error) {
	if !sr.HasNext() {
		var zero T
		return zero, ErrEnded
	}

	return sr.seq[sr.pos], nil
}

// Next returns next element and moves the reader.
func (sr *SequenceReader[T]) Next() (T, error) {
	element, err := sr.Peek()
	if err == nil {
		sr.pos++
	}

	return element, err
}

// Len returns amount of unread elements.
func (sr *SequenceReader[T]) Len() int {
	return len(sr.seq) - sr.pos
}

// Pos returns amount of read elements.
func (sr *SequenceReader[T]) Pos() int {
	return sr.pos
}
