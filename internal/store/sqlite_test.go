package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billylighter/telegrab/internal/store"
	"github.com/billylighter/telegrab/tests/testutil"
)

func TestUpsertAndGetDialogs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDialogs(ctx, []store.Dialog{
		{AccountID: "alice", DialogID: 2, Name: "Work"},
		{AccountID: "alice", DialogID: 1, Name: "Family"},
		{AccountID: "bob", DialogID: 1, Name: "Other"},
	}))

	dialogs, err := s.GetDialogs(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, dialogs, 2)
	assert.Equal(t, "Family", dialogs[0].Name)
	assert.Equal(t, "Work", dialogs[1].Name)

	// Re-upserting replaces the name instead of duplicating rows.
	require.NoError(t, s.UpsertDialogs(ctx, []store.Dialog{
		{AccountID: "alice", DialogID: 2, Name: "Work Chat"},
	}))
	dialogs, err = s.GetDialogs(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, dialogs, 2)
}

func TestUpsertMessagesPreservesMediaPath(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMessages(ctx, []store.Message{
		{AccountID: "alice", DialogID: 1, MessageID: 10, Sender: "bob", SentAt: 100, Text: "hi"},
	}))
	require.NoError(t, s.SetMediaPath(ctx, "alice", 1, 10, "/tmp/photo.jpg"))

	// A refetch without media info keeps the recorded path.
	require.NoError(t, s.UpsertMessages(ctx, []store.Message{
		{AccountID: "alice", DialogID: 1, MessageID: 10, Sender: "bob", SentAt: 100, Text: "hi again"},
	}))

	msgs, err := s.GetMessages(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi again", msgs[0].Text)
	assert.Equal(t, "/tmp/photo.jpg", msgs[0].MediaPath)
}

func TestGetMessagesChronologicalOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMessages(ctx, []store.Message{
		{AccountID: "alice", DialogID: 1, MessageID: 3, SentAt: 300, Text: "third"},
		{AccountID: "alice", DialogID: 1, MessageID: 1, SentAt: 100, Text: "first"},
		{AccountID: "alice", DialogID: 1, MessageID: 2, SentAt: 200, Text: "second"},
	}))

	msgs, err := s.GetMessages(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "third", msgs[2].Text)
}

func TestDeleteAccountDropsHistory(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDialogs(ctx, []store.Dialog{
		{AccountID: "alice", DialogID: 1, Name: "Family"},
		{AccountID: "bob", DialogID: 1, Name: "Other"},
	}))
	require.NoError(t, s.UpsertMessages(ctx, []store.Message{
		{AccountID: "alice", DialogID: 1, MessageID: 1, Text: "hi"},
	}))

	require.NoError(t, s.DeleteAccount(ctx, "alice"))

	dialogs, err := s.GetDialogs(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, dialogs)
	msgs, err := s.GetMessages(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Other accounts are untouched.
	dialogs, err = s.GetDialogs(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, dialogs, 1)
}
