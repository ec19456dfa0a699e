// Package credential keeps a backup copy of each account's API
// credentials in the system keyring. The metadata file remains the
// authoritative store; the keyring copy lets the registry recover
// credentials for a session artifact whose metadata entry was lost.
package credential

import (
	"encoding/json"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "telegrab"

// record is the JSON payload stored per account.
type record struct {
	APIID   int    `json:"api_id"`
	APIHash string `json:"api_hash"`
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/telegrab/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("telegrab-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Save stores the API credentials for an account identity.
func Save(accountID string, apiID int, apiHash string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	data, err := json.Marshal(record{APIID: apiID, APIHash: apiHash})
	if err != nil {
		return fmt.Errorf("encoding credentials for %q: %w", accountID, err)
	}

	err = ring.Set(keyring.Item{
		Key:  accountID,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("storing credentials for %q: %w", accountID, err)
	}

	return nil
}

// Lookup retrieves the API credentials for an account identity.
func Lookup(accountID string) (int, string, error) {
	ring, err := openKeyring()
	if err != nil {
		return 0, "", err
	}

	item, err := ring.Get(accountID)
	if err != nil {
		return 0, "", fmt.Errorf("getting credentials for %q: %w", accountID, err)
	}

	var rec record
	if err := json.Unmarshal(item.Data, &rec); err != nil {
		return 0, "", fmt.Errorf("decoding credentials for %q: %w", accountID, err)
	}

	return rec.APIID, rec.APIHash, nil
}

// Delete removes the stored credentials for an account identity.
func Delete(accountID string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(accountID); err != nil {
		return fmt.Errorf("deleting credentials for %q: %w", accountID, err)
	}

	return nil
}
