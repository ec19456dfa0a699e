// Package avatar reconciles the remote profile photo of an account with
// a locally cached image file. Reconciliation is opportunistic: it runs
// after every successful authentication, and a failure must never block
// login, so errors here are logged and swallowed.
package avatar

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/meta"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/telegram"
)

// Cache manages the per-account profile photo files under the images
// directory.
type Cache struct {
	imagesDir string
	meta      *meta.Store
	log       *zap.Logger
}

// New creates a cache writing under imagesDir and recording paths in m.
func New(imagesDir string, m *meta.Store, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{imagesDir: imagesDir, meta: m, log: log}
}

// PathFor returns the deterministic avatar path for an account identity.
func (c *Cache) PathFor(id string) string {
	return filepath.Join(c.imagesDir, id+".png")
}

// Reconcile refreshes the cached avatar for the given account using the
// connected session. If the account has a profile photo it is downloaded
// once and its path recorded in the metadata record; if not, a stale
// cached file is deleted and the field cleared. The updated path is
// returned, "" when the account has no photo. Reconcile never fails the
// caller.
func (c *Cache) Reconcile(ctx context.Context, exec *executor.Executor, id string) string {
	var photoPath string

	err := exec.Submit(ctx, func(ctx context.Context, client telegram.Client) error {
		me, err := client.GetMe(ctx)
		if err != nil {
			return err
		}
		if !me.HasPhoto {
			return nil
		}

		// Download to a scratch name first so a failed transfer never
		// clobbers an existing avatar.
		tmp := filepath.Join(c.imagesDir, uuid.NewString()+".tmp")
		got, err := client.DownloadProfilePhoto(ctx, tmp)
		if err != nil {
			os.Remove(tmp)
			return err
		}
		if got == "" {
			os.Remove(tmp)
			return nil
		}

		dest := c.PathFor(id)
		if err := os.MkdirAll(c.imagesDir, 0o755); err != nil {
			os.Remove(got)
			return err
		}
		if err := os.Rename(got, dest); err != nil {
			os.Remove(got)
			return err
		}
		photoPath = dest
		return nil
	})
	if err != nil {
		c.log.Warn("avatar refresh failed", zap.String("account", id), zap.Error(err))
		return c.currentPath(id)
	}

	if photoPath == "" {
		c.dropStale(id)
	}

	if err := c.meta.Update(id, func(acc *model.Account) {
		acc.Avatar = photoPath
	}); err != nil {
		c.log.Warn("recording avatar path failed", zap.String("account", id), zap.Error(err))
	}

	return photoPath
}

// currentPath returns the recorded avatar path if the file still exists,
// "" otherwise. A recorded path pointing at a missing file is treated as
// absent.
func (c *Cache) currentPath(id string) string {
	acc, ok, err := c.meta.Get(id)
	if err != nil || !ok || acc.Avatar == "" {
		return ""
	}
	if _, err := os.Stat(acc.Avatar); err != nil {
		return ""
	}
	return acc.Avatar
}

// dropStale removes a previously cached file for an account that no
// longer has a remote photo.
func (c *Cache) dropStale(id string) {
	acc, ok, err := c.meta.Get(id)
	if err != nil || !ok || acc.Avatar == "" {
		return
	}
	if err := os.Remove(acc.Avatar); err != nil && !os.IsNotExist(err) {
		c.log.Warn("removing stale avatar failed",
			zap.String("account", id), zap.String("path", acc.Avatar), zap.Error(err))
	}
}

var placeholderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#F8F9FA")).
	Background(lipgloss.Color("#6464C8")).
	Padding(0, 1)

// Placeholder renders the first letter of a display name as the avatar
// substitute shown when no cached image exists.
func Placeholder(displayName string) string {
	letter := "?"
	for _, r := range strings.TrimSpace(displayName) {
		letter = strings.ToUpper(string(r))
		break
	}
	return placeholderStyle.Render(letter)
}
