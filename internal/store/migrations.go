package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dialogs (
	account_id TEXT NOT NULL,
	dialog_id  INTEGER NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (account_id, dialog_id)
);

CREATE TABLE IF NOT EXISTS messages (
	account_id TEXT NOT NULL,
	dialog_id  INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	sender     TEXT NOT NULL DEFAULT '',
	sent_at    INTEGER NOT NULL DEFAULT 0,
	text       TEXT NOT NULL DEFAULT '',
	media_path TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (account_id, dialog_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_dialog ON messages(account_id, dialog_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
