package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chitpool/chitpool/internal/fund"
)

// Message types for async chain operations.
type (
	// RefreshCompletedMsg signals that a snapshot+ledger refresh finished.
	// RequestID identifies the refresh so stale completions are dropped.
	RefreshCompletedMsg struct {
		RequestID string
		Err       error
	}

	// ActionCompletedMsg signals that a dispatched transaction either
	// confirmed on-chain or failed. It is only emitted after the receipt
	// is known, so acting on it never reports success optimistically.
	ActionCompletedMsg struct {
		Action string
		TxHash string
		Detail string
		Err    error
	}

	// TickMsg drives the spinner animation.
	TickMsg time.Time
)

// refreshCmd runs a full refresh asynchronously. Results land in the store;
// the message only reports completion.
func refreshCmd(svc *fund.Service, requestID string) tea.Cmd {
	return func() tea.Msg {
		err := svc.RefreshAll(context.Background())
		return RefreshCompletedMsg{RequestID: requestID, Err: err}
	}
}

// actionCmd dispatches a contract action asynchronously. The run closure
// blocks until the transaction is mined; no timeout is applied.
func actionCmd(action string, run func(ctx context.Context) (string, string, error)) tea.Cmd {
	return func() tea.Msg {
		tx, detail, err := run(context.Background())
		return ActionCompletedMsg{Action: action, TxHash: tx, Detail: detail, Err: err}
	}
}

// tickCmd creates a ticker for the spinner animation.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
