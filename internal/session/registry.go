// Package session enumerates and manages the local session artifacts:
// one opaque credential file per account under the sessions directory.
// The artifacts and the metadata file are independently writable and may
// transiently disagree; the registry reconciles the two views.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/credential"
	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/meta"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/store"
)

// Registry reconciles session artifacts on disk with metadata records.
type Registry struct {
	sessionsDir string
	imagesDir   string
	meta        *meta.Store
	history     store.Store
	useKeyring  bool
	log         *zap.Logger
}

// NewRegistry creates a registry over the given directories, metadata
// store, and history cache (nil when no cache is kept). When useKeyring
// is set, credentials for artifacts that lost their metadata entry are
// recovered from the system keyring.
func NewRegistry(sessionsDir, imagesDir string, m *meta.Store, history store.Store, useKeyring bool, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessionsDir: sessionsDir,
		imagesDir:   imagesDir,
		meta:        m,
		history:     history,
		useKeyring:  useKeyring,
		log:         log,
	}
}

// Path returns the artifact path for an account identity.
func (r *Registry) Path(id string) string {
	return filepath.Join(r.sessionsDir, id+model.SessionSuffix)
}

// AvatarPath returns the deterministic cached-avatar path for an account
// identity.
func (r *Registry) AvatarPath(id string) string {
	return filepath.Join(r.imagesDir, id+".png")
}

// Exists reports whether a session artifact is present for id.
func (r *Registry) Exists(id string) bool {
	_, err := os.Stat(r.Path(id))
	return err == nil
}

// Rename moves the artifact for fromID to toID, overwriting any existing
// artifact at the destination.
func (r *Registry) Rename(fromID, toID string) error {
	if err := os.Rename(r.Path(fromID), r.Path(toID)); err != nil {
		return fmt.Errorf("renaming session %q to %q: %w", fromID, toID, err)
	}
	return nil
}

// List returns the saved accounts, ordered by identity. Every artifact on
// disk except the reserved temp placeholder is included; an artifact with
// no metadata record falls back to its raw identity as display name so
// the user can still select or remove it.
func (r *Registry) List() ([]model.AccountRef, error) {
	entries, err := os.ReadDir(r.sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory %s: %w", r.sessionsDir, err)
	}

	records, err := r.meta.Load()
	if err != nil {
		return nil, err
	}

	var refs []model.AccountRef
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, model.SessionSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, model.SessionSuffix)
		if id == model.TempSession {
			continue
		}

		ref := model.AccountRef{ID: id, DisplayName: id}
		if acc, ok := records[model.MetaKey(id)]; ok {
			ref.HasMeta = true
			if acc.DisplayName != "" {
				ref.DisplayName = acc.DisplayName
			}
		}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// Credentials returns the API credentials for id from the metadata store,
// falling back to the keyring backup when the metadata entry is missing.
func (r *Registry) Credentials(id string) (model.Account, bool, error) {
	acc, ok, err := r.meta.Get(id)
	if err != nil {
		return model.Account{}, false, err
	}
	if ok && acc.APIID != 0 && acc.APIHash != "" {
		return acc, true, nil
	}

	if r.useKeyring {
		apiID, apiHash, err := credential.Lookup(id)
		if err == nil && apiID != 0 {
			r.log.Info("recovered credentials from keyring", zap.String("account", id))
			return model.Account{APIID: apiID, APIHash: apiHash, DisplayName: id}, true, nil
		}
	}

	return model.Account{}, false, nil
}

// Remove deletes everything belonging to an account: the session artifact,
// the cached avatar, the metadata record, the cached message history, and
// the keyring backup. Each delete is best-effort and idempotent; removing
// an account that never existed is not an error. The active connection is
// torn down first if it belongs to this account.
func (r *Registry) Remove(ctx context.Context, exec *executor.Executor, id string) error {
	if exec != nil && exec.Active() == id {
		if err := exec.Disconnect(ctx); err != nil {
			r.log.Warn("disconnect during account removal failed",
				zap.String("account", id), zap.Error(err))
		}
	}

	if err := os.Remove(r.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session artifact for %q: %w", id, err)
	}

	acc, existed, err := r.meta.Delete(id)
	if err != nil {
		return err
	}

	// Delete both the recorded avatar path and the deterministic one;
	// they normally coincide, but the record may be stale.
	paths := map[string]struct{}{r.AvatarPath(id): {}}
	if existed && acc.Avatar != "" {
		paths[acc.Avatar] = struct{}{}
	}
	for p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			r.log.Warn("removing cached avatar failed",
				zap.String("account", id), zap.String("path", p), zap.Error(err))
		}
	}

	if r.history != nil {
		if err := r.history.DeleteAccount(ctx, id); err != nil {
			return fmt.Errorf("removing cached history for %q: %w", id, err)
		}
	}

	if r.useKeyring {
		if err := credential.Delete(id); err != nil {
			r.log.Debug("removing keyring backup failed",
				zap.String("account", id), zap.Error(err))
		}
	}

	r.log.Info("account removed", zap.String("account", id))
	return nil
}
