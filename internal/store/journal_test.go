package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_AppendAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"session.restore", "cart.add", "cart.add"} {
		require.NoError(t, s.AppendJournal(ctx, JournalEntry{
			RunID: "run-1",
			Seq:   int64(i + 1),
			Name:  name,
			Kind:  KindIntent,
		}))
	}
	require.NoError(t, s.AppendJournal(ctx, JournalEntry{
		RunID: "run-2", Seq: 1, Name: "cart.load", Kind: KindCompletion, Error: "boom",
	}))

	all, err := s.ReadJournal(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "session.restore", all[0].Name)
	assert.Equal(t, "boom", all[3].Error)

	last, err := s.ReadJournal(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, int64(3), last[0].Seq)
	assert.Equal(t, "run-2", last[1].RunID)

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, run, 3)
}

func TestJournal_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := JournalEntry{RunID: "r", Seq: 1, Name: "a", Kind: KindIntent}
	require.NoError(t, s.AppendJournal(ctx, e))
	require.NoError(t, s.AppendJournal(ctx, e))

	entries, err := s.ReadJournal(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournal_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ReadJournal(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
