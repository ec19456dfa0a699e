// Package auth drives an account through the multi-step login protocol:
// credential entry, transport connect, already-authorized check, phone
// submission, code verification, optional two-factor password, and
// session finalization. A flow holds the transient progress of one login
// attempt; durable state only changes in Finalize.
package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/avatar"
	"github.com/billylighter/telegrab/internal/credential"
	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/meta"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/session"
	"github.com/billylighter/telegrab/internal/telegram"
)

// State is the position of a login attempt in the authentication
// protocol.
type State int

const (
	// StateNoSession: nothing connected, no progress.
	StateNoSession State = iota

	// StateConnected: API credentials accepted and transport up, but the
	// session is not authorized yet.
	StateConnected

	// StateCodePending: a login code was requested for the entered phone
	// number and its verification is outstanding.
	StateCodePending

	// StatePasswordRequired: the code was accepted but the account has
	// two-step verification enabled.
	StatePasswordRequired

	// StateAuthenticated: the session carries valid authentication but
	// has not been made durable under its final identity yet.
	StateAuthenticated

	// StateFinalized: the session artifact is durable under the derived
	// account identity and metadata is written.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no session"
	case StateConnected:
		return "connected"
	case StateCodePending:
		return "code pending"
	case StatePasswordRequired:
		return "password required"
	case StateAuthenticated:
		return "authenticated"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidState is returned when an operation is called from a state it
// is not reachable from.
var ErrInvalidState = errors.New("operation not valid in current state")

// Flow is the authentication state machine for one login attempt. It is
// driven from the UI thread; all network work goes through the executor.
type Flow struct {
	exec       *executor.Executor
	meta       *meta.Store
	registry   *session.Registry
	avatars    *avatar.Cache
	useKeyring bool
	log        *zap.Logger

	state State

	// Transient login progress, discarded on Reset or Finalize.
	sessionName   string
	apiID         int
	apiHash       string
	phone         string
	phoneCodeHash string

	// accountID is set once Finalize (or Resume) pins the identity.
	accountID string
}

// NewFlow creates a state machine over the given collaborators.
func NewFlow(
	exec *executor.Executor,
	m *meta.Store,
	registry *session.Registry,
	avatars *avatar.Cache,
	useKeyring bool,
	log *zap.Logger,
) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		exec:     exec,
		meta:     m,
		registry: registry,
		avatars:  avatars,

		useKeyring: useKeyring,
		log:        log,
		state:      StateNoSession,
	}
}

// State returns the current state.
func (f *Flow) State() State { return f.state }

// Phone returns the phone number of the in-flight login attempt.
func (f *Flow) Phone() string { return f.phone }

// AccountID returns the finalized (or resumed) account identity, "" while
// a login is still in flight.
func (f *Flow) AccountID() string { return f.accountID }

// Reset discards all login progress and disconnects any active client.
// Used when the user navigates back to the account list mid-login.
func (f *Flow) Reset(ctx context.Context) {
	if err := f.exec.Disconnect(ctx); err != nil {
		f.log.Warn("disconnect on reset failed", zap.Error(err))
	}
	*f = Flow{
		exec:       f.exec,
		meta:       f.meta,
		registry:   f.registry,
		avatars:    f.avatars,
		useKeyring: f.useKeyring,
		log:        f.log,
		state:      StateNoSession,
	}
}

// Connect opens the named session with the given API credentials and
// establishes the transport. On success the flow is in StateConnected
// (or further, once CheckAuthorized is consulted).
func (f *Flow) Connect(ctx context.Context, sessionName string, apiID int, apiHash string) error {
	if err := f.exec.Connect(ctx, sessionName, apiID, apiHash); err != nil {
		return err
	}
	f.sessionName = sessionName
	f.apiID = apiID
	f.apiHash = apiHash
	f.state = StateConnected
	return nil
}

// Begin starts a fresh login attempt under the reserved temp session.
// It reports whether the temp artifact already carried authorization (a
// previous login that was never finalized), in which case the flow jumps
// straight to StateAuthenticated.
func (f *Flow) Begin(ctx context.Context, apiID int, apiHash string) (authorized bool, err error) {
	if err := f.Connect(ctx, model.TempSession, apiID, apiHash); err != nil {
		return false, err
	}
	return f.CheckAuthorized(ctx)
}

// CheckAuthorized asks the connected session whether it already carries
// valid authentication, advancing to StateAuthenticated when it does.
func (f *Flow) CheckAuthorized(ctx context.Context) (bool, error) {
	if f.state == StateNoSession {
		return false, ErrInvalidState
	}

	var authorized bool
	err := f.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		ok, err := c.IsAuthorized(ctx)
		authorized = ok
		return err
	})
	if err != nil {
		return false, err
	}

	if authorized {
		f.state = StateAuthenticated
	}
	return authorized, nil
}

// SubmitPhone requests a login code for phone and stores the returned
// phone-code-hash for the verification call. On failure the state is
// unchanged and the phone entry may be retried; saved sessions are never
// touched here.
func (f *Flow) SubmitPhone(ctx context.Context, phone string) error {
	if f.state != StateConnected && f.state != StateCodePending {
		return ErrInvalidState
	}

	var sent *telegram.SentCode
	err := f.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		var err error
		sent, err = c.SendCodeRequest(ctx, phone)
		return err
	})
	if err != nil {
		if isInfraError(err) {
			return err
		}
		return &telegram.CodeRequestError{Phone: phone, Err: err}
	}

	f.phone = phone
	f.phoneCodeHash = sent.PhoneCodeHash
	f.state = StateCodePending
	f.log.Info("login code requested", zap.String("phone", phone))
	return nil
}

// VerifyCode submits the received code together with the stored
// phone-code-hash. It returns the resulting state: StateAuthenticated on
// success, StatePasswordRequired when the account has two-step
// verification enabled. A wrong or expired code fails with
// VerificationError and leaves the flow in StateCodePending.
func (f *Flow) VerifyCode(ctx context.Context, code string) (State, error) {
	if f.state != StateCodePending {
		return f.state, ErrInvalidState
	}

	var result *telegram.SignInResult
	err := f.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		var err error
		result, err = c.SignIn(ctx, f.phone, code, f.phoneCodeHash)
		return err
	})
	if err != nil {
		if isInfraError(err) {
			return f.state, err
		}
		return f.state, &telegram.VerificationError{Err: err}
	}

	if result.Status == telegram.SignInSecondFactor {
		f.state = StatePasswordRequired
		return f.state, nil
	}

	f.state = StateAuthenticated
	return f.state, nil
}

// VerifyPassword completes two-step verification. A wrong password fails
// with PasswordError and leaves the flow in StatePasswordRequired so the
// user can retry without re-requesting a code.
func (f *Flow) VerifyPassword(ctx context.Context, password string) error {
	if f.state != StatePasswordRequired {
		return ErrInvalidState
	}

	err := f.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		_, err := c.SignInPassword(ctx, password)
		return err
	})
	if err != nil {
		if isInfraError(err) {
			return err
		}
		return &telegram.PasswordError{Err: err}
	}

	f.state = StateAuthenticated
	return nil
}

// Finalize renders the authenticated session durable: it derives the
// account identity from the authenticated user, renames the temp
// artifact to that identity, writes the metadata record (and keyring
// backup), reconnects under the final name, and refreshes the avatar
// cache. Only reachable from StateAuthenticated; calling it again for an
// already-finalized account merely refreshes metadata.
func (f *Flow) Finalize(ctx context.Context) (string, error) {
	if f.state != StateAuthenticated && f.state != StateFinalized {
		return "", ErrInvalidState
	}

	var me *telegram.Identity
	err := f.exec.Submit(ctx, func(ctx context.Context, c telegram.Client) error {
		var err error
		me, err = c.GetMe(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("fetching identity: %w", err)
	}

	id, err := f.resolveIdentity(me)
	if err != nil {
		return "", err
	}

	displayName := me.FirstName
	if displayName == "" {
		displayName = id
	}

	// Write the metadata record before touching the artifact or the
	// connection: a storage failure then leaves the flow connected and
	// authenticated under temp, so the caller can simply retry. Carry
	// the previously cached avatar path over; the reconcile below
	// refreshes it.
	existing, _, err := f.meta.Get(id)
	if err != nil {
		return "", err
	}
	if err := f.meta.Put(id, model.Account{
		APIID:       f.apiID,
		APIHash:     f.apiHash,
		DisplayName: displayName,
		Avatar:      existing.Avatar,
		UserID:      me.ID,
	}); err != nil {
		return "", err
	}

	if f.useKeyring {
		if err := credential.Save(id, f.apiID, f.apiHash); err != nil {
			f.log.Warn("keyring backup failed", zap.String("account", id), zap.Error(err))
		}
	}

	if f.registry.Exists(model.TempSession) {
		if err := f.exec.Disconnect(ctx); err != nil {
			return "", err
		}
		if err := f.registry.Rename(model.TempSession, id); err != nil {
			return "", err
		}
	}

	if err := f.exec.Connect(ctx, id, f.apiID, f.apiHash); err != nil {
		return "", err
	}

	f.avatars.Reconcile(ctx, f.exec, id)

	f.accountID = id
	f.sessionName = id
	f.state = StateFinalized
	f.log.Info("account finalized", zap.String("account", id))
	return id, nil
}

// resolveIdentity derives the local identity for the authenticated user,
// suffixing with a counter when a different user already owns the
// normalized name. Re-finalizing the same user keeps its identity.
func (f *Flow) resolveIdentity(me *telegram.Identity) (string, error) {
	base := model.DeriveIdentity(me.Username, me.FirstName, me.Phone)
	if base == "" {
		return "", fmt.Errorf("cannot derive account identity for user %d", me.ID)
	}

	records, err := f.meta.Load()
	if err != nil {
		return "", err
	}

	for n := 1; ; n++ {
		id := model.SuffixedIdentity(base, n)
		rec, hasMeta := records[model.MetaKey(id)]
		if hasMeta {
			if rec.UserID == me.ID {
				return id, nil
			}
			continue
		}
		if f.registry.Exists(id) && f.sessionName != id {
			// Artifact without metadata that is not ours: do not
			// silently overwrite it.
			continue
		}
		return id, nil
	}
}

// Resume connects a saved account with its stored credentials and checks
// authorization. An unauthorized stale artifact reports false without
// deleting anything; the caller routes the user back to credential
// entry.
func (f *Flow) Resume(ctx context.Context, accountID string) (bool, error) {
	acc, ok, err := f.registry.Credentials(accountID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("credentials for account %q are missing", accountID)
	}

	if err := f.Connect(ctx, accountID, acc.APIID, acc.APIHash); err != nil {
		return false, err
	}

	authorized, err := f.CheckAuthorized(ctx)
	if err != nil {
		return false, err
	}
	if !authorized {
		return false, nil
	}

	f.accountID = accountID
	f.state = StateFinalized
	f.avatars.Reconcile(ctx, f.exec, accountID)
	return true, nil
}

// isInfraError reports whether err comes from the executor layer rather
// than the remote service, so it is surfaced as-is instead of being
// wrapped into a step-level error.
func isInfraError(err error) bool {
	return errors.Is(err, executor.ErrUnavailable) ||
		errors.Is(err, executor.ErrNotConnected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
