package telegram

import "errors"

// ErrNoClient is returned when a connection is attempted without a
// registered client implementation.
var ErrNoClient = errors.New("no telegram client implementation registered")

// defaultFactory is the process-wide client constructor. The wire
// transport lives outside this module and registers itself at startup,
// the same way database/sql drivers do.
var defaultFactory Factory

// RegisterFactory installs the client constructor used by the default
// wiring. Later registrations replace earlier ones.
func RegisterFactory(f Factory) {
	defaultFactory = f
}

// DefaultFactory returns the registered client constructor. Without a
// registration it returns a factory that fails on use, so offline
// operations (listing accounts, cache-only exports) still work.
func DefaultFactory() Factory {
	if defaultFactory == nil {
		return func(sessionPath string, apiID int, apiHash string) (Client, error) {
			return nil, ErrNoClient
		}
	}
	return defaultFactory
}
