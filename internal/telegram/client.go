package telegram

import "context"

// Identity describes the authenticated Telegram user behind a session.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	Phone     string

	// HasPhoto reports whether the account has a profile photo that can
	// be fetched with DownloadProfilePhoto.
	HasPhoto bool
}

// SentCode is the remote service's answer to a code request. The hash must
// be passed back unchanged when the code is submitted.
type SentCode struct {
	PhoneCodeHash string
}

// SignInStatus distinguishes the two non-error outcomes of a code
// submission.
type SignInStatus int

const (
	// SignInOK means the account is fully authenticated.
	SignInOK SignInStatus = iota

	// SignInSecondFactor means the account has two-step verification
	// enabled and a password must be submitted before authentication
	// completes. This is a normal protocol branch, not a failure.
	SignInSecondFactor
)

// SignInResult is the tagged outcome of SignIn. Identity is only set when
// Status is SignInOK.
type SignInResult struct {
	Status   SignInStatus
	Identity *Identity
}

// Dialog is one conversation (user, group, or channel) visible to the
// account.
type Dialog struct {
	ID   int64
	Name string
}

// Message is a single message inside a dialog.
type Message struct {
	ID       int64
	Sender   string
	Date     int64
	Text     string
	HasMedia bool
}

// Client is the wire-protocol capability this tool is built against. One
// client instance is bound to one session artifact file for its entire
// lifetime; creating, reading, and mutating that file is the client's
// business alone. Implementations are not required to be safe for
// concurrent use: every call is made from the connection executor's
// worker goroutine.
type Client interface {
	// Connect establishes the transport connection. The session artifact
	// file is created here if it does not exist yet.
	Connect(ctx context.Context) error

	// IsAuthorized reports whether the bound session artifact already
	// carries valid authentication.
	IsAuthorized(ctx context.Context) (bool, error)

	// SendCodeRequest asks the service to deliver a login code to phone.
	SendCodeRequest(ctx context.Context, phone string) (*SentCode, error)

	// SignIn submits the received code together with the hash returned
	// by SendCodeRequest. A second-factor requirement is reported via
	// the result status, never as an error.
	SignIn(ctx context.Context, phone, code, phoneCodeHash string) (*SignInResult, error)

	// SignInPassword completes two-step verification.
	SignInPassword(ctx context.Context, password string) (*Identity, error)

	// GetMe returns the identity of the authenticated user.
	GetMe(ctx context.Context) (*Identity, error)

	// GetDialogs lists up to limit conversations, most recent first.
	// limit <= 0 means no limit.
	GetDialogs(ctx context.Context, limit int) ([]Dialog, error)

	// GetMessages lists up to limit messages of one dialog, newest
	// first. limit <= 0 means no limit.
	GetMessages(ctx context.Context, dialogID int64, limit int) ([]Message, error)

	// DownloadProfilePhoto writes the profile photo of the authenticated
	// user to dest and returns the written path, or "" if the account
	// has no photo.
	DownloadProfilePhoto(ctx context.Context, dest string) (string, error)

	// DownloadMedia writes the media attachment of a message to dest and
	// returns the written path, or "" if the message carries none.
	DownloadMedia(ctx context.Context, dialogID, messageID int64, dest string) (string, error)

	// SendMessage sends text to the named target ("me" addresses the
	// account's saved messages).
	SendMessage(ctx context.Context, target, text string) error

	// Disconnect closes the transport. The session artifact file stays
	// on disk.
	Disconnect(ctx context.Context) error
}

// Factory builds a client bound to the session artifact at sessionPath
// using the given application API credentials. Malformed credentials are
// reported by Connect, not here.
type Factory func(sessionPath string, apiID int, apiHash string) (Client, error)
