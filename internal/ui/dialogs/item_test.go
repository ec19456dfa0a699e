package dialogs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestTruncateKeepsRunesIntact(t *testing.T) {
	name := strings.Repeat("Привет мир ", 5)

	out := truncate(name, 12)

	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, lipgloss.Width(out), 12)
	assert.True(t, strings.HasSuffix(out, "…"))
}

func TestTruncateAccountsForWideRunes(t *testing.T) {
	out := truncate("日本語のグループ名", 8)

	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, lipgloss.Width(out), 8)
}

func TestTruncateLeavesFittingNamesAlone(t *testing.T) {
	assert.Equal(t, "Bob", truncate("Bob", 10))
	assert.Equal(t, "日本語", truncate("日本語", 10))
}
