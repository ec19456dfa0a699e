package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveIdentityPriority(t *testing.T) {
	assert.Equal(t, "alice", DeriveIdentity("alice", "Alice", "+15551234567"))
	assert.Equal(t, "Alice", DeriveIdentity("", "Alice", "+15551234567"))
	assert.Equal(t, "+15551234567", DeriveIdentity("", "", "+15551234567"))
}

func TestDeriveIdentityNormalizes(t *testing.T) {
	cases := []struct {
		username, firstName, phone string
	}{
		{"@alice", "", ""},
		{"", "Alice Smith", ""},
		{"@a b@c", "", ""},
		{"", "", "+1 555 123"},
	}
	for _, tc := range cases {
		id := DeriveIdentity(tc.username, tc.firstName, tc.phone)
		assert.NotContains(t, id, " ")
		assert.NotContains(t, id, "@")
	}

	assert.Equal(t, "Alice_Smith", DeriveIdentity("", "Alice Smith", ""))
	assert.Equal(t, "alice", DeriveIdentity("@alice", "", ""))
}

func TestSuffixedIdentity(t *testing.T) {
	assert.Equal(t, "alice", SuffixedIdentity("alice", 0))
	assert.Equal(t, "alice", SuffixedIdentity("alice", 1))
	assert.Equal(t, "alice-2", SuffixedIdentity("alice", 2))
	assert.Equal(t, "alice-3", SuffixedIdentity("alice", 3))
}

func TestMetaKey(t *testing.T) {
	assert.Equal(t, "alice.session", MetaKey("alice"))
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/telegrab/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "sessions", cfg.Storage.SessionsDir)
	assert.Equal(t, "markdown", cfg.Export.Format)
	assert.Equal(t, 50, cfg.DialogLimit)
	assert.True(t, cfg.UseKeyring)
	assert.True(t, strings.HasSuffix(cfg.Storage.MetaFile, "meta.json"))
}

func TestStorageConfigResolvesAgainstDataDir(t *testing.T) {
	c := StorageConfig{
		DataDir:     "/data",
		SessionsDir: "sessions",
		ImagesDir:   "images/profiles",
		ExportsDir:  "/abs/exports",
		MetaFile:    "sessions/meta.json",
	}

	assert.Equal(t, "/data/sessions", c.SessionsPath())
	assert.Equal(t, "/data/images/profiles", c.ImagesPath())
	assert.Equal(t, "/abs/exports", c.ExportsPath())
	assert.Equal(t, "/data/sessions/meta.json", c.MetaPath())
}
