package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertDialogs inserts or replaces a batch of dialog headers.
func (s *SQLiteStore) UpsertDialogs(ctx context.Context, dialogs []Dialog) error {
	if len(dialogs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO dialogs (account_id, dialog_id, name, fetched_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (account_id, dialog_id) DO UPDATE SET
			name = excluded.name,
			fetched_at = excluded.fetched_at`

	for _, d := range dialogs {
		if _, err := tx.ExecContext(ctx, query, d.AccountID, d.DialogID, d.Name); err != nil {
			return fmt.Errorf("upserting dialog %d: %w", d.DialogID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dialogs: %w", err)
	}
	return nil
}

// GetDialogs returns the cached dialogs of an account, ordered by name.
func (s *SQLiteStore) GetDialogs(ctx context.Context, accountID string) ([]Dialog, error) {
	var dialogs []Dialog
	err := s.db.SelectContext(ctx, &dialogs,
		"SELECT * FROM dialogs WHERE account_id = ? ORDER BY name", accountID)
	if err != nil {
		return nil, fmt.Errorf("querying dialogs for %q: %w", accountID, err)
	}
	return dialogs, nil
}

// UpsertMessages inserts or replaces a batch of messages. A message's
// recorded media path is preserved when the incoming row carries none.
func (s *SQLiteStore) UpsertMessages(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO messages (account_id, dialog_id, message_id, sender, sent_at, text, media_path, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (account_id, dialog_id, message_id) DO UPDATE SET
			sender = excluded.sender,
			sent_at = excluded.sent_at,
			text = excluded.text,
			media_path = CASE WHEN excluded.media_path = '' THEN messages.media_path ELSE excluded.media_path END,
			fetched_at = excluded.fetched_at`

	for _, m := range msgs {
		_, err := tx.ExecContext(ctx, query,
			m.AccountID, m.DialogID, m.MessageID, m.Sender, m.SentAt, m.Text, m.MediaPath)
		if err != nil {
			return fmt.Errorf("upserting message %d: %w", m.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}
	return nil
}

// GetMessages returns the cached messages of a dialog in chronological
// order.
func (s *SQLiteStore) GetMessages(ctx context.Context, accountID string, dialogID int64) ([]Message, error) {
	var msgs []Message
	err := s.db.SelectContext(ctx, &msgs,
		`SELECT * FROM messages
		 WHERE account_id = ? AND dialog_id = ?
		 ORDER BY sent_at, message_id`,
		accountID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("querying messages for dialog %d: %w", dialogID, err)
	}
	return msgs, nil
}

// SetMediaPath records the local path of a downloaded attachment.
func (s *SQLiteStore) SetMediaPath(ctx context.Context, accountID string, dialogID, messageID int64, path string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET media_path = ?
		 WHERE account_id = ? AND dialog_id = ? AND message_id = ?`,
		path, accountID, dialogID, messageID)
	if err != nil {
		return fmt.Errorf("recording media path for message %d: %w", messageID, err)
	}
	return nil
}

// DeleteAccount drops all cached history for an account.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, accountID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("deleting messages for %q: %w", accountID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM dialogs WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("deleting dialogs for %q: %w", accountID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history delete: %w", err)
	}
	return nil
}
