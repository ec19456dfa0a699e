package avatar_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billylighter/telegrab/internal/avatar"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/tests/testutil"
)

func TestReconcileDownloadsPhoto(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Service.HasPhoto = true
	ctx := context.Background()

	require.NoError(t, env.Exec.Connect(ctx, "alice", 111, "abc"))

	path := env.Avatars.Reconcile(ctx, env.Exec, "alice")
	require.NotEmpty(t, path)
	assert.Equal(t, filepath.Join(env.ImagesDir, "alice.png"), path)

	_, err := os.Stat(path)
	assert.NoError(t, err)

	acc, ok, err := env.Meta.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, acc.Avatar)
}

func TestReconcileRemovesStaleAvatar(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	stale := filepath.Join(env.ImagesDir, "alice.png")
	require.NoError(t, os.WriteFile(stale, []byte("png"), 0o644))
	require.NoError(t, env.Meta.Put("alice", model.Account{Avatar: stale}))

	require.NoError(t, env.Exec.Connect(ctx, "alice", 111, "abc"))

	path := env.Avatars.Reconcile(ctx, env.Exec, "alice")
	assert.Empty(t, path)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	acc, _, err := env.Meta.Get("alice")
	require.NoError(t, err)
	assert.Empty(t, acc.Avatar)
}

func TestReconcileNeverFailsWithoutConnection(t *testing.T) {
	env := testutil.NewEnv(t)

	// No session connected: the submit fails, Reconcile swallows it.
	path := env.Avatars.Reconcile(context.Background(), env.Exec, "alice")
	assert.Empty(t, path)
}

func TestReconcileKeepsRecordedPathOnFailure(t *testing.T) {
	env := testutil.NewEnv(t)

	existing := filepath.Join(env.ImagesDir, "alice.png")
	require.NoError(t, os.WriteFile(existing, []byte("png"), 0o644))
	require.NoError(t, env.Meta.Put("alice", model.Account{Avatar: existing}))

	// The executor call fails; the previously cached file survives.
	path := env.Avatars.Reconcile(context.Background(), env.Exec, "alice")
	assert.Equal(t, existing, path)
	_, err := os.Stat(existing)
	assert.NoError(t, err)
}

func TestReconcileDeadRecordedPathTreatedAsAbsent(t *testing.T) {
	env := testutil.NewEnv(t)

	require.NoError(t, env.Meta.Put("alice", model.Account{
		Avatar: filepath.Join(env.ImagesDir, "gone.png"),
	}))

	// Must not fail even though the recorded path points nowhere.
	path := env.Avatars.Reconcile(context.Background(), env.Exec, "alice")
	assert.Empty(t, path)
}

func TestPlaceholderUsesFirstLetter(t *testing.T) {
	assert.Contains(t, avatar.Placeholder("alice"), "A")
	assert.Contains(t, avatar.Placeholder("  bob"), "B")
	assert.Contains(t, avatar.Placeholder(""), "?")
}
