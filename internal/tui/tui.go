// Package tui renders the chit-fund dashboard: four tabs over the current
// store snapshot, with every contract action bound to a key. The renderer
// never touches the chain directly; all data arrives through the store and
// all actions go through the fund service as async commands.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/chitpool/chitpool/internal/currency"
	"github.com/chitpool/chitpool/internal/fund"
	"github.com/chitpool/chitpool/internal/store"
	"github.com/chitpool/chitpool/pkg/models"
)

type inputFocus int

const (
	focusNone inputFocus = iota
	focusBorrower
	focusAmount
)

var tabs = []models.Tab{
	models.TabOverview,
	models.TabEMI,
	models.TabProfit,
	models.TabTransactions,
}

type model struct {
	svc *fund.Service
	st  *store.Store

	inrRate int64

	viewport      viewport.Model
	borrowerInput textinput.Model
	amountInput   textinput.Model
	focus         inputFocus

	indicator *LoadingIndicator
	// refreshID tags the in-flight refresh so a stale completion from an
	// older request cannot clobber a newer one.
	refreshID  string
	refreshing bool
	pending    string // action awaiting confirmation, display only
	notice     string // last confirmed outcome
	errMsg     string

	ready  bool
	width  int
	height int
}

func initialModel(svc *fund.Service, st *store.Store, inrRate int64) model {
	borrower := textinput.New()
	borrower.Placeholder = "borrower address (0x...)"
	borrower.CharLimit = 64
	borrower.Width = 46

	amount := textinput.New()
	amount.Placeholder = "amount, e.g. 0.005"
	amount.CharLimit = 32
	amount.Width = 24

	// The initial refresh ID is seeded here because Init receives a copy
	// of the model and cannot record one.
	return model{
		svc:           svc,
		st:            st,
		inrRate:       inrRate,
		borrowerInput: borrower,
		amountInput:   amount,
		indicator:     NewLoadingIndicator("Refreshing from chain..."),
		refreshID:     uuid.NewString(),
		refreshing:    true,
	}
}

// Init triggers the eager-on-connect refresh; later refreshes are manual.
func (m model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, refreshCmd(m.svc, m.refreshID), tickCmd())
}

func (m *model) startRefresh() tea.Cmd {
	m.refreshID = uuid.NewString()
	m.refreshing = true
	return refreshCmd(m.svc, m.refreshID)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			// The default viewport keymap binds letters (j, f, b, d, u)
			// that collide with the action keys; scrolling is arrow and
			// page keys only.
			m.viewport.KeyMap = viewport.KeyMap{
				Up:       key.NewBinding(key.WithKeys("up")),
				Down:     key.NewBinding(key.WithKeys("down")),
				PageUp:   key.NewBinding(key.WithKeys("pgup")),
				PageDown: key.NewBinding(key.WithKeys("pgdown")),
			}
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.updateViewport()

	case TickMsg:
		if m.refreshing || m.pending != "" {
			m.indicator.Tick()
			cmds = append(cmds, tickCmd())
		}

	case RefreshCompletedMsg:
		if msg.RequestID != m.refreshID {
			break // stale refresh, a newer one is in flight
		}
		m.refreshing = false
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
		} else {
			m.errMsg = ""
		}
		m.updateViewport()

	case ActionCompletedMsg:
		m.pending = ""
		if msg.Err != nil {
			m.errMsg = fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
		} else {
			m.errMsg = ""
			m.notice = fmt.Sprintf("%s confirmed (tx %s)", msg.Action, truncate(msg.TxHash, 14))
			if msg.Detail != "" {
				m.notice += " " + msg.Detail
			}
		}
		m.updateViewport()

	case tea.KeyMsg:
		if m.focus != focusNone {
			return m.updateFocusedInput(msg)
		}
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		m.st.SetTab(tabs[(int(m.st.Tab())+1)%len(tabs)])
		m.updateViewport()
	case "shift+tab":
		m.st.SetTab(tabs[(int(m.st.Tab())+len(tabs)-1)%len(tabs)])
		m.updateViewport()
	case "1", "2", "3", "4":
		m.st.SetTab(tabs[int(msg.String()[0]-'1')])
		m.updateViewport()
	case "c":
		m.st.ToggleCurrency()
		m.updateViewport()
	case "r":
		cmd := m.startRefresh()
		return tea.Batch(cmd, tickCmd())
	case "j":
		return m.dispatch("joinGroup", func(ctx context.Context) (string, string, error) {
			tx, err := m.svc.JoinGroup(ctx)
			return tx, "", err
		})
	case "s":
		return m.dispatch("contribute", func(ctx context.Context) (string, string, error) {
			tx, err := m.svc.Contribute(ctx)
			return tx, "", err
		})
	case "b":
		m.focus = focusBorrower
		m.borrowerInput.Focus()
		m.updateViewport()
	case "f":
		return m.dispatch("releaseFunds", func(ctx context.Context) (string, string, error) {
			tx, err := m.svc.ReleaseFunds(ctx)
			return tx, "", err
		})
	case "e":
		return m.dispatch("payEMI", func(ctx context.Context) (string, string, error) {
			tx, paid, err := m.svc.PayEMI(ctx)
			if err != nil {
				return "", "", err
			}
			return tx, fmt.Sprintf("paid %s", currency.Format(paid, m.st.Currency(), m.inrRate)), nil
		})
	case "p":
		return m.dispatch("withdrawProfit", func(ctx context.Context) (string, string, error) {
			tx, err := m.svc.WithdrawProfit(ctx)
			return tx, "", err
		})
	case "w":
		m.focus = focusAmount
		m.amountInput.Focus()
		m.updateViewport()
	}
	return nil
}

// dispatch starts an action command. Rapid repeats are not blocked; the
// pending marker is display only.
func (m *model) dispatch(action string, run func(ctx context.Context) (string, string, error)) tea.Cmd {
	m.pending = action
	m.indicator.SetMessage(fmt.Sprintf("Waiting for %s confirmation...", action))
	return tea.Batch(actionCmd(action, run), tickCmd())
}

func (m model) updateFocusedInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = focusNone
		m.borrowerInput.Blur()
		m.amountInput.Blur()
		m.updateViewport()
		return m, nil
	case "enter":
		var cmd tea.Cmd
		switch m.focus {
		case focusBorrower:
			// Passed through as typed; the contract rejects bad input.
			borrower := m.borrowerInput.Value()
			cmd = m.dispatch("selectBorrower", func(ctx context.Context) (string, string, error) {
				tx, err := m.svc.SelectBorrower(ctx, borrower)
				return tx, "", err
			})
			m.borrowerInput.Blur()
		case focusAmount:
			amount := m.amountInput.Value()
			cmd = m.dispatch("withdrawPartialProfit", func(ctx context.Context) (string, string, error) {
				tx, err := m.svc.WithdrawPartialProfit(ctx, amount)
				return tx, "", err
			})
			m.amountInput.Blur()
		}
		m.focus = focusNone
		m.updateViewport()
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusBorrower:
		m.borrowerInput, cmd = m.borrowerInput.Update(msg)
	case focusAmount:
		m.amountInput, cmd = m.amountInput.Update(msg)
	}
	m.updateViewport()
	return m, cmd
}

func (m *model) updateViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderActiveTab())
}

func (m model) renderActiveTab() string {
	switch m.st.Tab() {
	case models.TabEMI:
		return m.renderEMI()
	case models.TabProfit:
		return m.renderProfit()
	case models.TabTransactions:
		return m.renderTransactions()
	default:
		return m.renderOverview()
	}
}

func (m model) renderOverview() string {
	var s strings.Builder
	snap := m.st.Snapshot()
	session := m.st.Session()
	cur := m.st.Currency()

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	account := session.Account
	if account == "" {
		account = "(read-only, no signing key)"
	}
	s.WriteString(labelStyle.Render("Account:  ") + valueStyle.Render(account) + "\n")
	s.WriteString(labelStyle.Render("Contract: ") + valueStyle.Render(session.Contract) + "\n\n")

	pool := currency.Format(snap.PoolBalance, cur, m.inrRate)
	s.WriteString(labelStyle.Render("Pool balance: ") + valueStyle.Render(pool) + "\n\n")

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	s.WriteString(header.Render(fmt.Sprintf("Members (%d/%d)", len(snap.Members), models.GroupCapacity)) + "\n")
	if len(snap.Members) == 0 {
		s.WriteString(labelStyle.Render("  no members yet") + "\n")
	}
	for i, member := range snap.Members {
		line := fmt.Sprintf("  %d. %s", i+1, member)
		if member == session.Account {
			line += "  (you)"
		}
		s.WriteString(valueStyle.Render(line) + "\n")
	}

	s.WriteString(m.renderFieldErrors(snap))
	return s.String()
}

func (m model) renderEMI() string {
	var s strings.Builder
	snap := m.st.Snapshot()
	cur := m.st.Currency()

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	var due string
	if cur == models.CurrencyINR && snap.EMIINR != nil {
		// The contract exposes its own INR view; prefer it when loaded.
		due = snap.EMIINR.String() + " INR"
	} else {
		due = currency.Format(snap.EMIAmount, cur, m.inrRate)
	}
	s.WriteString(labelStyle.Render("Installment due:   ") + valueStyle.Render(due) + "\n")
	s.WriteString(labelStyle.Render("Remaining months:  ") + valueStyle.Render(fmt.Sprintf("%d", snap.RemainingMonths)) + "\n\n")
	s.WriteString(labelStyle.Render("Press e to pay the current installment.") + "\n")

	s.WriteString(m.renderFieldErrors(snap))
	return s.String()
}

func (m model) renderProfit() string {
	var s strings.Builder
	snap := m.st.Snapshot()

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	share := "0"
	if snap.MemberShareINR != nil {
		share = snap.MemberShareINR.String()
	}
	s.WriteString(labelStyle.Render("Your share: ") + valueStyle.Render(share+" INR") + "\n\n")
	s.WriteString(labelStyle.Render("Press p to withdraw all profit, or w to withdraw a partial amount:") + "\n")
	s.WriteString(m.amountInput.View() + "\n")

	s.WriteString(m.renderFieldErrors(snap))
	return s.String()
}

func (m model) renderTransactions() string {
	var s strings.Builder
	ledger := m.st.Ledger()
	cur := m.st.Currency()

	if len(ledger) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
		return emptyStyle.Render("No activity yet")
	}

	kindStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	metaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	for i, e := range ledger {
		line := fmt.Sprintf("#%d %s", e.Block, kindStyle.Render(string(e.Kind)))
		s.WriteString(line + "\n")
		s.WriteString(metaStyle.Render("  "+truncate(e.Actor, 20)) + "\n")
		if e.Amount != nil {
			s.WriteString(valueStyle.Render("  "+currency.Format(e.Amount, cur, m.inrRate)) + "\n")
		}
		if e.Detail != "" {
			s.WriteString(metaStyle.Render("  "+e.Detail) + "\n")
		}
		if i < len(ledger)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m model) renderFieldErrors(snap models.GroupSnapshot) string {
	if len(snap.FieldErrors) == 0 {
		return ""
	}
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	var s strings.Builder
	s.WriteString("\n")
	for field, msg := range snap.FieldErrors {
		s.WriteString(warnStyle.Render(fmt.Sprintf("! %s failed to load: %s", field, truncate(msg, 60))) + "\n")
	}
	return s.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.renderTabBar(),
		m.viewport.View(),
		m.renderStatus(),
		m.renderFooter())
}

func (m model) renderTabBar() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("63")).Padding(0, 1)
	inactive := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)

	parts := make([]string, 0, len(tabs)+1)
	for i, tab := range tabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if tab == m.st.Tab() {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}

	currencyLabel := "ETH"
	if m.st.Currency() == models.CurrencyINR {
		currencyLabel = "INR"
	}
	parts = append(parts, inactive.Render("["+currencyLabel+"]"))

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m model) renderStatus() string {
	if m.focus == focusBorrower {
		return "Borrower: " + m.borrowerInput.View()
	}
	if m.refreshing || m.pending != "" {
		return m.indicator.View()
	}
	if m.errMsg != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render("✗ " + truncate(m.errMsg, 100))
	}
	if m.notice != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓ " + m.notice)
	}
	return ""
}

func (m model) renderFooter() string {
	info := "1-4: tabs • c: currency • r: refresh • j: join • s: contribute • b: borrower • f: release • e: pay EMI • p/w: withdraw • q: quit"
	if m.focus != focusNone {
		info = "enter: submit • esc: cancel"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(info)
}

// truncate cuts on rune boundaries so multi-byte text never renders as
// broken bytes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// ShowTUI runs the dashboard until the user quits.
func ShowTUI(svc *fund.Service, st *store.Store, inrRate int64) error {
	p := tea.NewProgram(
		initialModel(svc, st, inrRate),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
