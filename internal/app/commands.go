package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/billylighter/telegrab/internal/auth"
	"github.com/billylighter/telegrab/internal/export"
	"github.com/billylighter/telegrab/internal/store"
	"github.com/billylighter/telegrab/internal/telegram"
	"github.com/billylighter/telegrab/internal/ui/dialogs"
)

// resumeDoneMsg reports the outcome of reopening a saved session.
type resumeDoneMsg struct {
	id         string
	authorized bool
	err        error
}

// removeDoneMsg reports the outcome of removing a saved account.
type removeDoneMsg struct {
	id  string
	err error
}

type beginDoneMsg struct {
	authorized bool
	err        error
}

type phoneDoneMsg struct {
	err error
}

type codeDoneMsg struct {
	state auth.State
	err   error
}

type passwordDoneMsg struct {
	err error
}

type finalizeDoneMsg struct {
	accountID string
	err       error
}

type exportDoneMsg struct {
	path string
	err  error
}

type sentTestMsg struct {
	err error
}

func (m Model) resumeAccount(id string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		authorized, err := flow.Resume(context.Background(), id)
		return resumeDoneMsg{id: id, authorized: authorized, err: err}
	}
}

func (m Model) removeAccount(id string) tea.Cmd {
	registry := m.registry
	exec := m.exec
	return func() tea.Msg {
		err := registry.Remove(context.Background(), exec, id)
		return removeDoneMsg{id: id, err: err}
	}
}

func (m Model) beginLogin(apiID int, apiHash string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		authorized, err := flow.Begin(context.Background(), apiID, apiHash)
		return beginDoneMsg{authorized: authorized, err: err}
	}
}

func (m Model) submitPhone(phone string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		return phoneDoneMsg{err: flow.SubmitPhone(context.Background(), phone)}
	}
}

func (m Model) verifyCode(code string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		state, err := flow.VerifyCode(context.Background(), code)
		return codeDoneMsg{state: state, err: err}
	}
}

func (m Model) verifyPassword(password string) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		return passwordDoneMsg{err: flow.VerifyPassword(context.Background(), password)}
	}
}

func (m Model) finalizeLogin() tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		accountID, err := flow.Finalize(context.Background())
		return finalizeDoneMsg{accountID: accountID, err: err}
	}
}

// resetFlow abandons an in-progress sign-in, disconnecting the session
// it may have opened.
func (m Model) resetFlow() tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		flow.Reset(context.Background())
		return nil
	}
}

func (m Model) loadDialogs() tea.Cmd {
	engine := m.engine
	account := m.activeAccount
	limit := m.cfg.DialogLimit
	return func() tea.Msg {
		list, err := engine.FetchDialogs(context.Background(), account, limit)
		return dialogs.LoadedMsg{Dialogs: list, Err: err}
	}
}

func (m Model) exportDialog(d store.Dialog) tea.Cmd {
	engine := m.engine
	account := m.activeAccount
	opts := export.Options{
		Format:        m.cfg.Export.Format,
		MessageLimit:  m.cfg.Export.MessageLimit,
		DownloadMedia: m.cfg.Export.DownloadMedia,
	}
	return func() tea.Msg {
		path, err := engine.Export(context.Background(), account, d, opts)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) sendTestMessage() tea.Cmd {
	exec := m.exec
	return func() tea.Msg {
		err := exec.Submit(context.Background(), func(ctx context.Context, c telegram.Client) error {
			return c.SendMessage(ctx, "me", "telegrab test message")
		})
		return sentTestMsg{err: err}
	}
}
