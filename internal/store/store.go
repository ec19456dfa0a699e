package store

import "context"

// Dialog is one cached conversation header for an account.
type Dialog struct {
	AccountID string `db:"account_id"`
	DialogID  int64  `db:"dialog_id"`
	Name      string `db:"name"`
	FetchedAt string `db:"fetched_at"`
}

// Message is one cached message of a dialog.
type Message struct {
	AccountID string `db:"account_id"`
	DialogID  int64  `db:"dialog_id"`
	MessageID int64  `db:"message_id"`
	Sender    string `db:"sender"`
	SentAt    int64  `db:"sent_at"`
	Text      string `db:"text"`
	MediaPath string `db:"media_path"`
	FetchedAt string `db:"fetched_at"`
}

// Store is the persistence interface for the local history cache. Fetched
// dialogs and messages are upserted here so browsing and re-exporting do
// not have to refetch everything from the network.
type Store interface {
	UpsertDialogs(ctx context.Context, dialogs []Dialog) error
	GetDialogs(ctx context.Context, accountID string) ([]Dialog, error)

	UpsertMessages(ctx context.Context, msgs []Message) error
	GetMessages(ctx context.Context, accountID string, dialogID int64) ([]Message, error)
	SetMediaPath(ctx context.Context, accountID string, dialogID, messageID int64, path string) error

	// DeleteAccount drops all cached history for an account. Used when
	// the account is removed locally.
	DeleteAccount(ctx context.Context, accountID string) error

	Close() error
}
