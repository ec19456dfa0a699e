package auth_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billylighter/telegrab/internal/auth"
	"github.com/billylighter/telegrab/internal/meta"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/telegram"
	"github.com/billylighter/telegrab/tests/testutil"
)

func TestFreshLoginWithWrongThenCorrectCode(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	authorized, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	assert.False(t, authorized)
	assert.Equal(t, auth.StateConnected, env.Flow.State())

	require.NoError(t, env.Flow.SubmitPhone(ctx, "+15551234567"))
	assert.Equal(t, auth.StateCodePending, env.Flow.State())

	// Wrong code: VerificationError, state unchanged.
	_, err = env.Flow.VerifyCode(ctx, "00000")
	require.Error(t, err)
	assert.True(t, telegram.IsVerificationError(err))
	assert.Equal(t, auth.StateCodePending, env.Flow.State())

	// Correct code with the stored phone-code-hash.
	state, err := env.Flow.VerifyCode(ctx, "54321")
	require.NoError(t, err)
	assert.Equal(t, auth.StateAuthenticated, state)
}

func TestSecondFactorFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Service.Password = "right"
	ctx := context.Background()

	_, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	require.NoError(t, env.Flow.SubmitPhone(ctx, "+15551234567"))

	state, err := env.Flow.VerifyCode(ctx, "54321")
	require.NoError(t, err)
	assert.Equal(t, auth.StatePasswordRequired, state)

	// Wrong password: PasswordError, retry allowed without a new code.
	err = env.Flow.VerifyPassword(ctx, "wrong")
	require.Error(t, err)
	assert.True(t, telegram.IsPasswordError(err))
	assert.Equal(t, auth.StatePasswordRequired, env.Flow.State())

	require.NoError(t, env.Flow.VerifyPassword(ctx, "right"))
	assert.Equal(t, auth.StateAuthenticated, env.Flow.State())

	id, err := env.Flow.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	// The artifact is durable under the final identity and metadata is
	// populated.
	_, statErr := os.Stat(env.SessionPath("alice"))
	assert.NoError(t, statErr)
	acc, ok, err := env.Meta.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", acc.DisplayName)
	assert.Equal(t, 111, acc.APIID)
}

func TestFinalizeRenamesTempAndIsIdempotent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	require.NoError(t, env.Flow.SubmitPhone(ctx, "+15551234567"))
	_, err = env.Flow.VerifyCode(ctx, "54321")
	require.NoError(t, err)

	id, err := env.Flow.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
	assert.Equal(t, auth.StateFinalized, env.Flow.State())

	first, _, err := env.Meta.Get("alice")
	require.NoError(t, err)

	// Finalize again: same identity, same record, exactly one artifact.
	id2, err := env.Flow.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	second, _, err := env.Meta.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(env.SessionsDir)
	require.NoError(t, err)
	var artifacts []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".session" {
			artifacts = append(artifacts, e.Name())
		}
	}
	assert.Equal(t, []string{"alice.session"}, artifacts)

	// The temp placeholder is gone.
	_, statErr := os.Stat(env.SessionPath("temp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFinalizeRetriesAfterStorageFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	require.NoError(t, env.Flow.SubmitPhone(ctx, "+15551234567"))
	_, err = env.Flow.VerifyCode(ctx, "54321")
	require.NoError(t, err)

	// Occupy the metadata tmp path with a directory so the save fails.
	tmpPath := filepath.Join(env.SessionsDir, "meta.json.tmp")
	require.NoError(t, os.Mkdir(tmpPath, 0o755))

	_, err = env.Flow.Finalize(ctx)
	require.Error(t, err)
	assert.True(t, meta.IsStorageError(err))
	assert.Equal(t, auth.StateAuthenticated, env.Flow.State())

	// The in-flight artifact stays in place under temp, still connected.
	_, statErr := os.Stat(env.SessionPath("temp"))
	assert.NoError(t, statErr)

	// Once storage recovers the retry must complete the finalize.
	require.NoError(t, os.Remove(tmpPath))
	id, err := env.Flow.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, statErr = os.Stat(env.SessionPath("alice"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(env.SessionPath("temp"))
	assert.True(t, os.IsNotExist(statErr))
	acc, ok, err := env.Meta.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 111, acc.APIID)
}

func TestFinalizeSuffixesCollidingIdentity(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	// A different user already owns the "alice" identity locally.
	require.NoError(t, env.Meta.Put("alice", model.Account{
		APIID: 999, APIHash: "zzz", DisplayName: "Other Alice", UserID: 2002,
	}))
	require.NoError(t, os.WriteFile(env.SessionPath("alice"), []byte("authorized"), 0o600))

	_, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	require.NoError(t, env.Flow.SubmitPhone(ctx, "+15551234567"))
	_, err = env.Flow.VerifyCode(ctx, "54321")
	require.NoError(t, err)

	id, err := env.Flow.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice-2", id)

	// The other user's artifact and metadata survived.
	_, statErr := os.Stat(env.SessionPath("alice"))
	assert.NoError(t, statErr)
	other, ok, err := env.Meta.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2002), other.UserID)
}

func TestSubmitPhoneFailureKeepsState(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Service.SendCodeErr = assert.AnError
	ctx := context.Background()

	_, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)

	err = env.Flow.SubmitPhone(ctx, "+15551234567")
	require.Error(t, err)
	assert.True(t, telegram.IsCodeRequestError(err))
	assert.Equal(t, auth.StateConnected, env.Flow.State())
}

func TestOperationsGuardState(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	// Nothing connected yet.
	_, err := env.Flow.VerifyCode(ctx, "54321")
	assert.ErrorIs(t, err, auth.ErrInvalidState)
	err = env.Flow.VerifyPassword(ctx, "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidState)
	_, err = env.Flow.Finalize(ctx)
	assert.ErrorIs(t, err, auth.ErrInvalidState)
	err = env.Flow.SubmitPhone(ctx, "+15551234567")
	assert.ErrorIs(t, err, auth.ErrInvalidState)
}

func TestBeginWithAuthorizedTempSkipsPhoneFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	// A previous run left an authorized temp artifact behind.
	require.NoError(t, os.WriteFile(env.SessionPath("temp"), []byte("authorized"), 0o600))

	authorized, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	assert.True(t, authorized)
	assert.Equal(t, auth.StateAuthenticated, env.Flow.State())

	id, err := env.Flow.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestResumeExistingAccount(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Flow.Begin(ctx, 111, "abc")
	require.NoError(t, err)
	require.NoError(t, env.Flow.SubmitPhone(ctx, "+15551234567"))
	_, err = env.Flow.VerifyCode(ctx, "54321")
	require.NoError(t, err)
	_, err = env.Flow.Finalize(ctx)
	require.NoError(t, err)

	env.Flow.Reset(ctx)
	assert.Equal(t, auth.StateNoSession, env.Flow.State())

	authorized, err := env.Flow.Resume(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, authorized)
	assert.Equal(t, "alice", env.Flow.AccountID())
}

func TestResumeUnauthorizedArtifactReportsFalse(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	// Artifact exists with metadata but was never authorized.
	require.NoError(t, os.WriteFile(env.SessionPath("bob"), []byte("blank"), 0o600))
	require.NoError(t, env.Meta.Put("bob", model.Account{APIID: 111, APIHash: "abc"}))

	authorized, err := env.Flow.Resume(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, authorized)

	// Nothing was deleted; the user can retry or remove.
	_, statErr := os.Stat(env.SessionPath("bob"))
	assert.NoError(t, statErr)
}

func TestResumeWithoutCredentialsFails(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(env.SessionPath("ghost"), []byte("blank"), 0o600))

	_, err := env.Flow.Resume(ctx, "ghost")
	assert.Error(t, err)
}
