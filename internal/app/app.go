// Package app wires the terminal UI together: view routing between the
// account picker, the sign-in forms and the dialog list, plus the
// asynchronous commands that drive the session layer.
package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/billylighter/telegrab/internal/auth"
	"github.com/billylighter/telegrab/internal/executor"
	"github.com/billylighter/telegrab/internal/export"
	"github.com/billylighter/telegrab/internal/keys"
	"github.com/billylighter/telegrab/internal/model"
	"github.com/billylighter/telegrab/internal/session"
	"github.com/billylighter/telegrab/internal/ui"
	"github.com/billylighter/telegrab/internal/ui/accountlist"
	"github.com/billylighter/telegrab/internal/ui/dialogs"
	helpview "github.com/billylighter/telegrab/internal/ui/help"
	"github.com/billylighter/telegrab/internal/ui/login"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewAccounts ViewState = iota
	ViewLogin
	ViewDialogs
	ViewHelp
)

// Model is the root Bubble Tea model that manages view routing, layout,
// and access to the session layer.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	cfg          model.AppConfig

	flow     *auth.Flow
	registry *session.Registry
	exec     *executor.Executor
	engine   *export.Engine
	log      *zap.Logger

	accountView accountlist.Model
	loginView   login.Model
	dialogView  dialogs.Model
	helpView    helpview.Model

	activeAccount string
	statusMsg     string
	ready         bool
}

// New creates the root application model over the session layer.
func New(
	cfg model.AppConfig,
	flow *auth.Flow,
	registry *session.Registry,
	exec *executor.Executor,
	engine *export.Engine,
	log *zap.Logger,
) Model {
	if log == nil {
		log = zap.NewNop()
	}
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewAccounts,
		keys:        k,
		cfg:         cfg,
		flow:        flow,
		registry:    registry,
		exec:        exec,
		engine:      engine,
		log:         log,
		accountView: accountlist.New(registry, k, 80, 24),
		loginView:   login.New(80, 24),
		dialogView:  dialogs.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
	}
}

// Init loads the saved accounts.
func (m Model) Init() tea.Cmd {
	return m.accountView.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.accountView.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		m.dialogView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// The login forms need literal q for input.
			if m.currentView != ViewLogin {
				return m, tea.Quit
			}
		case "esc":
			switch m.currentView {
			case ViewDialogs:
				cmd := m.leaveDialogs()
				return m, cmd
			case ViewHelp:
				m.currentView = m.previousView
				return m, nil
			}
		case "?":
			switch m.currentView {
			case ViewHelp:
				m.currentView = m.previousView
				return m, nil
			case ViewAccounts, ViewDialogs:
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil
			}
		}

	// Account picker.

	case accountlist.SelectedMsg:
		if !msg.Ref.HasMeta {
			m.statusMsg = fmt.Sprintf("no credentials stored for %s; remove and sign in again", msg.Ref.ID)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Connecting %s...", msg.Ref.DisplayName)
		return m, m.resumeAccount(msg.Ref.ID)

	case accountlist.AddRequestedMsg:
		m.currentView = ViewLogin
		m.statusMsg = ""
		cmd := m.loginView.Start()
		return m, cmd

	case accountlist.RemoveRequestedMsg:
		return m, m.removeAccount(msg.Ref.ID)

	case removeDoneMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = fmt.Sprintf("Removed %s", msg.id)
		}
		return m, m.accountView.Reload()

	case resumeDoneMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
			return m, nil
		}
		if !msg.authorized {
			m.statusMsg = fmt.Sprintf("Session for %s is no longer authorized; remove it and sign in again", msg.id)
			return m, nil
		}
		return m.enterDialogs(msg.id)

	// Sign-in forms.

	case login.CredentialsSubmittedMsg:
		m.loginView.SetBusy("Connecting...")
		return m, m.beginLogin(msg.APIID, msg.APIHash)

	case beginDoneMsg:
		if msg.err != nil {
			cmd := m.loginView.Retry(stepError(msg.err))
			return m, cmd
		}
		if msg.authorized {
			m.loginView.SetBusy("Finishing sign-in...")
			return m, m.finalizeLogin()
		}
		cmd := m.loginView.Advance(login.StepPhone)
		return m, cmd

	case login.PhoneSubmittedMsg:
		m.loginView.SetBusy("Requesting code...")
		return m, m.submitPhone(msg.Phone)

	case phoneDoneMsg:
		if msg.err != nil {
			cmd := m.loginView.Retry(stepError(msg.err))
			return m, cmd
		}
		cmd := m.loginView.Advance(login.StepCode)
		return m, cmd

	case login.CodeSubmittedMsg:
		m.loginView.SetBusy("Verifying code...")
		return m, m.verifyCode(msg.Code)

	case codeDoneMsg:
		if msg.err != nil {
			cmd := m.loginView.Retry(stepError(msg.err))
			return m, cmd
		}
		if msg.state == auth.StatePasswordRequired {
			cmd := m.loginView.Advance(login.StepPassword)
			return m, cmd
		}
		m.loginView.SetBusy("Finishing sign-in...")
		return m, m.finalizeLogin()

	case login.PasswordSubmittedMsg:
		m.loginView.SetBusy("Verifying password...")
		return m, m.verifyPassword(msg.Password)

	case passwordDoneMsg:
		if msg.err != nil {
			cmd := m.loginView.Retry(stepError(msg.err))
			return m, cmd
		}
		m.loginView.SetBusy("Finishing sign-in...")
		return m, m.finalizeLogin()

	case finalizeDoneMsg:
		if msg.err != nil {
			m.currentView = ViewAccounts
			m.statusMsg = msg.err.Error()
			return m, tea.Batch(m.resetFlow(), m.accountView.Reload())
		}
		return m.enterDialogs(msg.accountID)

	case login.CancelMsg:
		m.currentView = ViewAccounts
		m.statusMsg = ""
		return m, tea.Batch(m.resetFlow(), m.accountView.Reload())

	// Dialog list.

	case dialogs.ExportRequestedMsg:
		m.dialogView.SetStatus(fmt.Sprintf("Exporting %s...", msg.Dialog.Name), false)
		return m, m.exportDialog(msg.Dialog)

	case exportDoneMsg:
		if msg.err != nil {
			m.dialogView.SetStatus(msg.err.Error(), true)
		} else {
			m.dialogView.SetStatus(fmt.Sprintf("Exported to %s", msg.path), false)
		}
		return m, nil

	case dialogs.SendTestRequestedMsg:
		return m, m.sendTestMessage()

	case sentTestMsg:
		if msg.err != nil {
			m.dialogView.SetStatus(msg.err.Error(), true)
		} else {
			m.dialogView.SetStatus("Test message sent to saved messages", false)
		}
		return m, nil

	case dialogs.RefreshRequestedMsg:
		m.dialogView.SetLoading()
		return m, m.loadDialogs()
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// enterDialogs switches to the dialog view for the given account.
func (m Model) enterDialogs(accountID string) (tea.Model, tea.Cmd) {
	m.activeAccount = accountID
	m.currentView = ViewDialogs
	m.statusMsg = ""
	m.dialogView.SetLoading()
	return m, m.loadDialogs()
}

// leaveDialogs disconnects the active session and returns to the
// account picker so another account can be opened.
func (m *Model) leaveDialogs() tea.Cmd {
	m.currentView = ViewAccounts
	m.activeAccount = ""
	m.statusMsg = ""
	return tea.Batch(m.resetFlow(), m.accountView.Reload())
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewAccounts:
		m.accountView, cmd = m.accountView.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewDialogs:
		m.dialogView, cmd = m.dialogView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerStatus := "no account"
	if m.activeAccount != "" {
		headerStatus = m.activeAccount
	}
	header := m.layout.RenderHeader("Telegrab", headerStatus)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewAccounts:
		return m.accountView.View()
	case ViewLogin:
		return m.loginView.View()
	case ViewDialogs:
		return m.dialogView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show transient status prominently when present.
	if m.statusMsg != "" && m.currentView == ViewAccounts {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewLogin:
		return "enter submit | esc cancel"
	case ViewDialogs:
		return "e export | s send test | r refresh | esc back | q quit"
	case ViewHelp:
		return "? close help | esc back"
	default:
		return "enter select | a add | x remove | ? help | q quit"
	}
}

// stepError flattens a sign-in step failure into a single line the
// form can show above the retried input.
func stepError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
