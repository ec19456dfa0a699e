package telegram

import (
	"errors"
	"fmt"
)

// ConnectError indicates that the transport could not be established or
// the application API credentials were rejected. The current login
// attempt is dead; the user must re-enter credentials.
type ConnectError struct {
	Session string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting session %q: %v", e.Session, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnectError reports whether err (or any error in its chain) is a
// ConnectError.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

// CodeRequestError indicates that requesting a login code failed, e.g. a
// malformed phone number or a rate limit. The phone entry step may be
// retried; saved sessions are unaffected.
type CodeRequestError struct {
	Phone string
	Err   error
}

func (e *CodeRequestError) Error() string {
	return fmt.Sprintf("requesting code for %s: %v", e.Phone, e.Err)
}

func (e *CodeRequestError) Unwrap() error { return e.Err }

// IsCodeRequestError reports whether err (or any error in its chain) is a
// CodeRequestError.
func IsCodeRequestError(err error) bool {
	var ce *CodeRequestError
	return errors.As(err, &ce)
}

// VerificationError indicates a wrong or expired login code. The code
// entry step may be retried; whether the original phone-code-hash is
// still valid is up to the remote service.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verifying code: %v", e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// IsVerificationError reports whether err (or any error in its chain) is
// a VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// PasswordError indicates a wrong two-step verification password. The
// password step may be retried without re-requesting a code.
type PasswordError struct {
	Err error
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("verifying password: %v", e.Err)
}

func (e *PasswordError) Unwrap() error { return e.Err }

// IsPasswordError reports whether err (or any error in its chain) is a
// PasswordError.
func IsPasswordError(err error) bool {
	var pe *PasswordError
	return errors.As(err, &pe)
}
