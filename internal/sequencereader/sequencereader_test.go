// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package sequencereader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/ordtx/internal/sequencereader"
)

func TestSequenceReader(t *testing.T) {
	t.Run("read all", func(t *testing.T) {
		seq := []string{"ord", "content-type", "body"}
		sr := sequencereader.New(seq)

		for idx, expected := range seq {
			require.True(t, sr.HasNext())
			require.Equal(t, len(seq)-idx, sr.Len())
			require.Equal(t, idx, sr.Pos())

			peeked, err := sr.Peek()
			require.NoError(t, err)
			require.Equal(t, expected, peeked)

			element, err := sr.Next()
			require.NoError(t, err)
			require.Equal(t, expected, element)
		}

		require.False(t, sr.HasNext())
		require.Zero(t, sr.Len())

		_, err := sr.Next()
		require.ErrorIs(t, err, sequencereader.ErrEnded)
		_, err = sr.Peek()
		require.ErrorIs(t, err, sequencereader.ErrEnded)
		require.Equal(t, len(seq), sr.Pos())
	})

	t.Run("empty", func(t *testing.T) {
		for _, sr := range []*sequencereader.SequenceReader[[]byte]{
			sequencereader.New[[]byte](nil),
			sequencereader.New([][]byte{}),
		} {
			require.False(t, sr.HasNext())

			element, err := sr.Next()
			require.ErrorIs(t, err, sequencereader.ErrEnded)
			require.Nil(t, element)
		}
	})
}
