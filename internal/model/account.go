package model

import (
	"fmt"
	"strings"
)

// SessionSuffix is the file extension of session artifacts and the key
// suffix used in the metadata file.
const SessionSuffix = ".session"

// TempSession is the reserved artifact name used while a login is in
// progress. It is never listed as a saved account.
const TempSession = "temp"

// Account is the durable metadata record for one saved account. It is
// keyed by "<id>.session" in the metadata file, matching the session
// artifact's filename.
type Account struct {
	APIID       int    `json:"api_id"`
	APIHash     string `json:"api_hash"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`

	// UserID is the Telegram numeric user ID. It disambiguates identity
	// collisions: two distinct users whose names normalize to the same
	// identity get distinct suffixed identities instead of overwriting
	// each other.
	UserID int64 `json:"user_id,omitempty"`
}

// AccountRef is one entry of the account list: a session artifact joined
// with whatever metadata exists for it.
type AccountRef struct {
	ID          string
	DisplayName string

	// HasMeta reports whether a metadata record was found. An artifact
	// without metadata is still listed so the user can remove it.
	HasMeta bool
}

// DeriveIdentity produces the local account identity for an authenticated
// user: username, falling back to first name, falling back to phone
// number. Spaces become underscores and "@" is stripped, so the result is
// always usable as a filename stem.
func DeriveIdentity(username, firstName, phone string) string {
	name := username
	if name == "" {
		name = firstName
	}
	if name == "" {
		name = phone
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "@", "")
	return name
}

// MetaKey returns the metadata file key for an account identity.
func MetaKey(id string) string {
	return id + SessionSuffix
}

// SuffixedIdentity returns id for n <= 1 and "id-n" otherwise. Used when
// two distinct users normalize to the same identity.
func SuffixedIdentity(id string, n int) string {
	if n <= 1 {
		return id
	}
	return fmt.Sprintf("%s-%d", id, n)
}
