// Package export turns a dialog's message history into a document on
// disk. Messages are fetched through the connection executor and cached
// in the history store on the way, so a repeated export of the same
// dialog works from cache when the network is gone.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/store"
	"github.com/billylighter/telegrab/internal/telegram"
)

// Format selects the document renderer.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Options controls a single export run.
type Options struct {
	// Format is FormatMarkdown or FormatJSON.
	Format string

	// MessageLimit caps how many messages are fetched. 0 means no limit.
	MessageLimit int

	// DownloadMedia fetches message attachments into the media
	// subdirectory of the exports dir.
	DownloadMedia bool
}

// Engine exports dialog history to documents under a fixed exports
// directory.
type Engine struct {
	exec       *executor.Executor
	store      store.Store
	exportsDir string
	log        *zap.Logger
}

// New creates an export engine writing under exportsDir.
func New(exec *executor.Executor, s store.Store, exportsDir string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{exec: exec, store: s, exportsDir: exportsDir, log: log}
}

// DocumentPath returns the deterministic output path for a dialog in the
// given format.
func (e *Engine) DocumentPath(dialogID int64, format string) string {
	ext := ".md"
	if format == FormatJSON {
		ext = ".json"
	}
	return filepath.Join(e.exportsDir, fmt.Sprintf("dialog_%d%s", dialogID, ext))
}

// FetchDialogs lists the account's dialogs through the executor and
// caches them in the history store.
func (e *Engine) FetchDialogs(ctx context.Context, accountID string, limit int) ([]store.Dialog, error) {
	var fetched []telegram.Dialog
	err := e.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		var err error
		fetched, err = c.GetDialogs(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching dialogs: %w", err)
	}

	rows := make([]store.Dialog, 0, len(fetched))
	for _, d := range fetched {
		rows = append(rows, store.Dialog{
			AccountID: accountID,
			DialogID:  d.ID,
			Name:      d.Name,
		})
	}
	if err := e.store.UpsertDialogs(ctx, rows); err != nil {
		return nil, err
	}

	return e.store.GetDialogs(ctx, accountID)
}

// Export fetches the dialog's messages, caches them, optionally pulls
// down media, and writes one document named deterministically from the
// dialog identifier. It returns the document path.
func (e *Engine) Export(ctx context.Context, accountID string, dialog store.Dialog, opts Options) (string, error) {
	if err := e.refreshMessages(ctx, accountID, dialog, opts); err != nil {
		e.log.Warn("fetching messages failed, exporting from cache",
			zap.Int64("dialog", dialog.DialogID), zap.Error(err))
	}

	msgs, err := e.store.GetMessages(ctx, accountID, dialog.DialogID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("no messages available for dialog %d", dialog.DialogID)
	}

	if err := os.MkdirAll(e.exportsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating exports directory: %w", err)
	}

	path := e.DocumentPath(dialog.DialogID, opts.Format)
	switch opts.Format {
	case FormatJSON:
		err = e.renderJSON(path, dialog, msgs)
	case FormatMarkdown, "":
		err = e.renderMarkdown(path, dialog, msgs)
	default:
		return "", fmt.Errorf("unknown export format %q", opts.Format)
	}
	if err != nil {
		return "", err
	}

	e.log.Info("dialog exported",
		zap.Int64("dialog", dialog.DialogID),
		zap.String("path", path),
		zap.Int("messages", len(msgs)))
	return path, nil
}

// refreshMessages pulls the dialog's messages through the executor into
// the history store.
func (e *Engine) refreshMessages(ctx context.Context, accountID string, dialog store.Dialog, opts Options) error {
	var fetched []telegram.Message
	err := e.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		var err error
		fetched, err = c.GetMessages(ctx, dialog.DialogID, opts.MessageLimit)
		return err
	})
	if err != nil {
		return err
	}

	rows := make([]store.Message, 0, len(fetched))
	for _, m := range fetched {
		rows = append(rows, store.Message{
			AccountID: accountID,
			DialogID:  dialog.DialogID,
			MessageID: m.ID,
			Sender:    m.Sender,
			SentAt:    m.Date,
			Text:      m.Text,
		})
	}
	if err := e.store.UpsertMessages(ctx, rows); err != nil {
		return err
	}

	if opts.DownloadMedia {
		for _, m := range fetched {
			if !m.HasMedia {
				continue
			}
			e.downloadMedia(ctx, accountID, dialog.DialogID, m.ID)
		}
	}
	return nil
}

// downloadMedia fetches one attachment. Failures are logged, not fatal:
// a missing attachment must not sink the whole export.
func (e *Engine) downloadMedia(ctx context.Context, accountID string, dialogID, messageID int64) {
	mediaDir := filepath.Join(e.exportsDir, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		e.log.Warn("creating media directory failed", zap.Error(err))
		return
	}

	dest := filepath.Join(mediaDir, uuid.NewString())
	var got string
	err := e.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		var err error
		got, err = c.DownloadMedia(ctx, dialogID, messageID, dest)
		return err
	})
	if err != nil || got == "" {
		e.log.Warn("media download failed",
			zap.Int64("message", messageID), zap.Error(err))
		return
	}

	if err := e.store.SetMediaPath(ctx, accountID, dialogID, messageID, got); err != nil {
		e.log.Warn("recording media path failed",
			zap.Int64("message", messageID), zap.Error(err))
	}
}
