// Package dialogs lists the active account's conversations and exposes
// the per-dialog actions: export to a document and send a test message.
package dialogs

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billylighter/telegrab/internal/keys"
	"github.com/billylighter/telegrab/internal/store"
	"github.com/billylighter/telegrab/internal/theme"
)

// LoadedMsg carries the fetched dialog list for the active account.
type LoadedMsg struct {
	Dialogs []store.Dialog
	Err     error
}

// ExportRequestedMsg is dispatched when the user asks to export the
// selected dialog.
type ExportRequestedMsg struct {
	Dialog store.Dialog
}

// SendTestRequestedMsg is dispatched when the user asks to send a test
// message to the account's saved messages.
type SendTestRequestedMsg struct{}

// RefreshRequestedMsg is dispatched when the user asks to re-fetch the
// dialog list from the network.
type RefreshRequestedMsg struct{}

// Model is the Bubble Tea model for the dialog list view.
type Model struct {
	list    list.Model
	keys    *keys.KeyMap
	status  string
	isError bool
	loading bool
	width   int
	height  int
}

// New creates a dialog list view.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Dialogs"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:    l,
		keys:    k,
		loading: true,
		width:   width,
		height:  height,
	}
}

// SetSize updates the rendering dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

// SetStatus shows a transient status line under the list.
func (m *Model) SetStatus(text string, isError bool) {
	m.status = text
	m.isError = isError
}

// SetLoading marks the view as waiting for the dialog fetch.
func (m *Model) SetLoading() {
	m.loading = true
	m.status = ""
}

// Selected returns the currently highlighted dialog, if any.
func (m Model) Selected() (store.Dialog, bool) {
	item, ok := m.list.SelectedItem().(DialogItem)
	if !ok {
		return store.Dialog{}, false
	}
	return item.Dialog, true
}

// Update handles messages for the dialog list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.SetStatus(msg.Err.Error(), true)
			return m, nil
		}
		items := make([]list.Item, len(msg.Dialogs))
		for i, d := range msg.Dialogs {
			items[i] = DialogItem{Dialog: d}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Export):
			if d, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ExportRequestedMsg{Dialog: d} }
			}
			return m, nil
		case key.Matches(msg, m.keys.SendTest):
			return m, func() tea.Msg { return SendTestRequestedMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg { return RefreshRequestedMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the dialog list view.
func (m Model) View() string {
	var b strings.Builder

	if m.loading {
		b.WriteString(theme.HeaderStyle.Render("Dialogs"))
		b.WriteString("\n\n")
		b.WriteString(theme.DimmedStyle.Render("Loading dialogs..."))
	} else {
		b.WriteString(m.list.View())
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.isError {
			b.WriteString(theme.ErrorStyle.Render(m.status))
		} else {
			b.WriteString(theme.SuccessStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(theme.HelpStyle.Render("e export · s send test · r refresh · esc back"))
	return b.String()
}
