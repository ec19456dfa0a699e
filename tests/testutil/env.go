package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/billylighter/telegrab/internal/auth"
	"github.com/billylighter/telegrab/internal/avatar"
	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/meta"
	"github.com/billylighter/telegrab/internal/session"
	"github.com/billylighter/telegrab/internal/store"
)

// Env wires a complete authentication stack over temporary directories
// and a scripted fake service. The executor is started and stopped with
// the test.
type Env struct {
	SessionsDir string
	ImagesDir   string
	ExportsDir  string

	Service  *FakeService
	Meta     *meta.Store
	History  *store.SQLiteStore
	Registry *session.Registry
	Exec     *executor.Executor
	Avatars  *avatar.Cache
	Flow     *auth.Flow
}

// NewEnv builds a fresh environment rooted in t.TempDir(). The keyring
// backup is disabled so tests never touch the host keyring.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	root := t.TempDir()
	sessionsDir := filepath.Join(root, "sessions")
	imagesDir := filepath.Join(root, "images", "profiles")
	exportsDir := filepath.Join(root, "exports")
	for _, dir := range []string{sessionsDir, imagesDir, exportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}

	m, err := meta.NewStore(filepath.Join(sessionsDir, "meta.json"))
	if err != nil {
		t.Fatalf("creating metadata store: %v", err)
	}

	svc := NewFakeService()
	exec := executor.New(svc.Factory(), sessionsDir, nil)
	exec.Start()
	t.Cleanup(exec.Stop)

	history := NewTestStore(t)
	registry := session.NewRegistry(sessionsDir, imagesDir, m, history, false, nil)
	avatars := avatar.New(imagesDir, m, nil)
	flow := auth.NewFlow(exec, m, registry, avatars, false, nil)

	return &Env{
		SessionsDir: sessionsDir,
		ImagesDir:   imagesDir,
		ExportsDir:  exportsDir,
		Service:     svc,
		Meta:        m,
		History:     history,
		Registry:    registry,
		Exec:        exec,
		Avatars:     avatars,
		Flow:        flow,
	}
}

// SessionPath returns the artifact path for a session name inside the
// environment.
func (e *Env) SessionPath(name string) string {
	return filepath.Join(e.SessionsDir, name+".session")
}
