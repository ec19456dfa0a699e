package executor_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/telegram"
	"github.com/billylighter/telegrab/tests/testutil"
)

func newExecutor(t *testing.T) (*executor.Executor, *testutil.FakeService) {
	t.Helper()
	svc := testutil.NewFakeService()
	exec := executor.New(svc.Factory(), t.TempDir(), nil)
	exec.Start()
	t.Cleanup(exec.Stop)
	return exec, svc
}

func TestSubmitWithoutConnectFails(t *testing.T) {
	exec, _ := newExecutor(t)

	err := exec.Submit(context.Background(), func(ctx context.Context, c telegram.Client) error {
		return nil
	})
	assert.ErrorIs(t, err, executor.ErrNotConnected)
}

func TestConnectCreatesArtifactAndSetsActive(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	require.NoError(t, exec.Connect(ctx, "temp", 111, "abc"))
	assert.Equal(t, "temp", exec.Active())

	_, err := os.Stat(exec.SessionPath("temp"))
	assert.NoError(t, err)
}

func TestConnectWhileOtherSessionActiveFails(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))

	err := exec.Connect(ctx, "bob", 111, "abc")
	var activeErr *executor.SessionActiveError
	require.ErrorAs(t, err, &activeErr)
	assert.Equal(t, "alice", activeErr.Active)

	// Explicit teardown clears the way.
	require.NoError(t, exec.Disconnect(ctx))
	assert.NoError(t, exec.Connect(ctx, "bob", 111, "abc"))
	assert.Equal(t, "bob", exec.Active())
}

func TestReconnectSameNameReplacesClient(t *testing.T) {
	exec, svc := newExecutor(t)
	ctx := context.Background()

	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))
	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))
	assert.Equal(t, "alice", exec.Active())
	assert.Equal(t, 2, svc.Connects)
}

func TestConnectFailureIsConnectError(t *testing.T) {
	exec, svc := newExecutor(t)
	svc.ConnectErr = errors.New("bad credentials")

	err := exec.Connect(context.Background(), "temp", 111, "abc")
	require.Error(t, err)
	assert.True(t, telegram.IsConnectError(err))
	assert.Equal(t, "", exec.Active())
}

func TestDisconnectWithoutConnectIsNoOp(t *testing.T) {
	exec, _ := newExecutor(t)
	assert.NoError(t, exec.Disconnect(context.Background()))
}

func TestSubmitRunsInFIFOOrder(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()
	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))

	var order []int
	for i := 1; i <= 5; i++ {
		i := i
		err := exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestSubmitPropagatesOperationError(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()
	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))

	boom := errors.New("boom")
	err := exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSubmitAfterStopIsUnavailable(t *testing.T) {
	svc := testutil.NewFakeService()
	exec := executor.New(svc.Factory(), t.TempDir(), nil)
	exec.Start()
	exec.Stop()

	err := exec.Connect(context.Background(), "temp", 111, "abc")
	assert.ErrorIs(t, err, executor.ErrUnavailable)
}

func TestSubmitBeforeStartIsUnavailable(t *testing.T) {
	svc := testutil.NewFakeService()
	exec := executor.New(svc.Factory(), t.TempDir(), nil)

	err := exec.Disconnect(context.Background())
	assert.ErrorIs(t, err, executor.ErrUnavailable)
}

func TestPanickingOperationKillsWorker(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()
	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))

	err := exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		panic("client state corrupted")
	})
	assert.ErrorIs(t, err, executor.ErrUnavailable)

	// The dead session is no longer reported as active, so callers do
	// not attempt a doomed disconnect.
	assert.Equal(t, "", exec.Active())

	// The worker is gone; later submissions fail fast instead of hanging.
	err = exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		return nil
	})
	assert.ErrorIs(t, err, executor.ErrUnavailable)
}

func TestAbandonedAwaitDoesNotWedgeWorker(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()
	require.NoError(t, exec.Connect(ctx, "alice", 111, "abc"))

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		// This caller abandons its await via context cancellation while
		// the operation is still running.
		opCtx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()
		_ = exec.Submit(opCtx, func(ctx context.Context, c telegram.Client) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	close(release)

	// The worker must still process subsequent submissions.
	err := exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		return nil
	})
	assert.NoError(t, err)
}
