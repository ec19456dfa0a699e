// Package accountlist renders the saved-account picker: one row per
// session artifact on disk, with its display name and avatar
// placeholder, plus actions for adding and removing accounts.
package accountlist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billylighter/telegrab/internal/avatar"
	"github.com/billylighter/telegrab/internal/keys"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/session"
	"github.com/billylighter/telegrab/internal/theme"
)

// LoadedMsg carries the refreshed account list.
type LoadedMsg struct {
	Refs []model.AccountRef
	Err  error
}

// SelectedMsg is dispatched when the user picks a saved account.
type SelectedMsg struct {
	Ref model.AccountRef
}

// RemoveRequestedMsg is dispatched when the user asks to remove an
// account.
type RemoveRequestedMsg struct {
	Ref model.AccountRef
}

// AddRequestedMsg is dispatched when the user starts a new login.
type AddRequestedMsg struct{}

// Model is the Bubble Tea model for the account picker.
type Model struct {
	registry *session.Registry
	keys     *keys.KeyMap
	refs     []model.AccountRef
	cursor   int
	errMsg   string
	width    int
	height   int
}

// New creates an account picker over the given registry.
func New(registry *session.Registry, k *keys.KeyMap, width, height int) Model {
	return Model{registry: registry, keys: k, width: width, height: height}
}

// SetSize updates the rendering dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Init triggers the initial account load.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload returns a command that re-enumerates the saved accounts.
func (m Model) Reload() tea.Cmd {
	registry := m.registry
	return func() tea.Msg {
		refs, err := registry.List()
		return LoadedMsg{Refs: refs, Err: err}
	}
}

// Update handles messages for the account picker.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.refs = msg.Refs
		if m.cursor >= len(m.refs) {
			m.cursor = len(m.refs) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.refs)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Select):
			if m.cursor < len(m.refs) {
				ref := m.refs[m.cursor]
				return m, func() tea.Msg { return SelectedMsg{Ref: ref} }
			}
		case key.Matches(msg, m.keys.Remove):
			if m.cursor < len(m.refs) {
				ref := m.refs[m.cursor]
				return m, func() tea.Msg { return RemoveRequestedMsg{Ref: ref} }
			}
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddRequestedMsg{} }
		}
	}
	return m, nil
}

// View renders the account picker.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(theme.HeaderStyle.Render("Choose Account"))
	b.WriteString("\n\n")

	if m.errMsg != "" {
		b.WriteString(theme.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}

	if len(m.refs) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No saved accounts found."))
		b.WriteString("\n")
	}

	for i, ref := range m.refs {
		line := fmt.Sprintf("%s  %s", avatar.Placeholder(ref.DisplayName), ref.DisplayName)
		if !ref.HasMeta {
			line += theme.DimmedStyle.Render("  (credentials missing)")
		}
		if i == m.cursor {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("enter select · a add account · x remove · q quit"))
	return b.String()
}
