package dialogs

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/billylighter/telegrab/internal/store"
	"github.com/billylighter/telegrab/internal/theme"
)

// DialogItem wraps a store.Dialog so it can be used in a bubbles/list.
type DialogItem struct {
	Dialog store.Dialog
}

// FilterValue returns the string used for fuzzy filtering.
func (i DialogItem) FilterValue() string { return i.Dialog.Name }

// Title returns the dialog name for the list.
func (i DialogItem) Title() string { return i.Dialog.Name }

// Description returns a short summary line for the list.
func (i DialogItem) Description() string {
	return fmt.Sprintf("id %d", i.Dialog.DialogID)
}

// ItemDelegate implements list.ItemDelegate for rendering dialog rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single dialog line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(DialogItem)
	if !ok {
		return
	}

	line := truncate(di.Dialog.Name, m.Width()-4)

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
	} else {
		fmt.Fprint(w, theme.ListItemStyle.Render(line))
	}
}

// truncate trims whole runes from the end of s until it fits in w
// display cells, appending an ellipsis when anything was cut. Dialog
// names are routinely non-ASCII, so byte slicing is not an option.
func truncate(s string, w int) string {
	if w <= 0 || lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
