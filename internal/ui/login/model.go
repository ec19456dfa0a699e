// Package login collects the interactive sign-in input: API
// credentials, phone number, confirmation code and the optional
// two-step password. Each step is a separate form; the parent model
// drives the transitions as the sign-in progresses.
package login

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/billylighter/telegrab/internal/theme"
)

// Step identifies which sign-in input is currently being collected.
type Step int

const (
	StepCredentials Step = iota
	StepPhone
	StepCode
	StepPassword
)

// CredentialsSubmittedMsg carries the API credentials entered by the user.
type CredentialsSubmittedMsg struct {
	APIID   int
	APIHash string
}

// PhoneSubmittedMsg carries the phone number entered by the user.
type PhoneSubmittedMsg struct {
	Phone string
}

// CodeSubmittedMsg carries the confirmation code entered by the user.
type CodeSubmittedMsg struct {
	Code string
}

// PasswordSubmittedMsg carries the two-step password entered by the user.
type PasswordSubmittedMsg struct {
	Password string
}

// CancelMsg is dispatched when the user abandons the sign-in.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	apiID    string
	apiHash  string
	phone    string
	code     string
	password string
}

// Model is the Bubble Tea model for the sign-in forms.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	step   Step
	busy   string
	errMsg string
	width  int
	height int
}

// New creates a sign-in model starting at the credentials step.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Start resets the model and shows the API credentials form.
func (m *Model) Start() tea.Cmd {
	*m.fb = formBindings{}
	m.errMsg = ""
	m.busy = ""
	return m.show(StepCredentials)
}

// Advance moves to the given step with a fresh form for it.
func (m *Model) Advance(step Step) tea.Cmd {
	m.errMsg = ""
	m.busy = ""
	return m.show(step)
}

// Retry re-shows the current step's form after a failed attempt,
// keeping the user on the same step with the error visible.
func (m *Model) Retry(errMsg string) tea.Cmd {
	m.errMsg = errMsg
	m.busy = ""
	return m.show(m.step)
}

// SetBusy hides the form and shows a progress note while the parent
// runs the network call for the submitted input.
func (m *Model) SetBusy(text string) {
	m.busy = text
	m.form = nil
}

func (m *Model) show(step Step) tea.Cmd {
	m.step = step
	switch step {
	case StepCredentials:
		m.form = m.credentialsForm()
	case StepPhone:
		m.fb.phone = ""
		m.form = m.phoneForm()
	case StepCode:
		m.fb.code = ""
		m.form = m.codeForm()
	case StepPassword:
		m.fb.password = ""
		m.form = m.passwordForm()
	}
	return m.form.Init()
}

// Update handles messages for the sign-in forms.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the current sign-in step.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title()))
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(theme.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}

	if m.busy != "" {
		b.WriteString(theme.DimmedStyle.Render(m.busy))
	} else if m.form != nil {
		b.WriteString(m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(b.String())
}

func (m Model) title() string {
	switch m.step {
	case StepCredentials:
		return "Add Account"
	case StepPhone:
		return "Phone Number"
	case StepCode:
		return "Confirmation Code"
	case StepPassword:
		return "Two-Step Password"
	}
	return "Sign In"
}

func (m Model) handleSubmit() tea.Cmd {
	switch m.step {
	case StepCredentials:
		apiID, _ := strconv.Atoi(strings.TrimSpace(m.fb.apiID))
		apiHash := strings.TrimSpace(m.fb.apiHash)
		return func() tea.Msg { return CredentialsSubmittedMsg{APIID: apiID, APIHash: apiHash} }
	case StepPhone:
		phone := strings.TrimSpace(m.fb.phone)
		return func() tea.Msg { return PhoneSubmittedMsg{Phone: phone} }
	case StepCode:
		code := strings.TrimSpace(m.fb.code)
		return func() tea.Msg { return CodeSubmittedMsg{Code: code} }
	case StepPassword:
		password := m.fb.password
		return func() tea.Msg { return PasswordSubmittedMsg{Password: password} }
	}
	return nil
}

func (m *Model) credentialsForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API ID").
				Placeholder("from my.telegram.org").
				Value(&m.fb.apiID).
				Validate(validateAPIID),
			huh.NewInput().
				Title("API Hash").
				Value(&m.fb.apiHash).
				Validate(validateRequired("API Hash")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) phoneForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Phone").
				Placeholder("+15551234567").
				Value(&m.fb.phone).
				Validate(validateRequired("Phone")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) codeForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Code").
				Placeholder("12345").
				Value(&m.fb.code).
				Validate(validateRequired("Code")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) passwordForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w > 60 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 8
	if h < 8 {
		h = 8
	}
	return h
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateAPIID(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("API ID must be a positive number")
	}
	return nil
}
