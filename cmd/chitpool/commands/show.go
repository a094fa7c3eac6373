package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chitpool/chitpool/internal/currency"
	"github.com/chitpool/chitpool/pkg/models"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the group snapshot without the TUI",
		Long: `Fetch the current group state (pool balance, members, installment and
profit figures) from the contract and print it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			snap, err := a.svc.RefreshSnapshot(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch snapshot: %w", err)
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(snap)
			}

			session := a.store.Session()
			fmt.Printf("Account:  %s\n", session.Account)
			fmt.Printf("Contract: %s\n", session.Contract)
			fmt.Println("=========")
			fmt.Printf("Pool balance:     %s\n", currency.Format(snap.PoolBalance, models.CurrencyNative, a.cfg.INRRate))
			if snap.PoolINR != nil {
				fmt.Printf("Pool (INR):       %s INR\n", snap.PoolINR)
			}
			fmt.Printf("Installment due:  %s\n", currency.Format(snap.EMIAmount, models.CurrencyNative, a.cfg.INRRate))
			if snap.EMIINR != nil {
				fmt.Printf("Installment (INR): %s INR\n", snap.EMIINR)
			}
			fmt.Printf("Remaining months: %d\n", snap.RemainingMonths)
			if snap.MemberShareINR != nil {
				fmt.Printf("Your share (INR): %s INR\n", snap.MemberShareINR)
			}
			fmt.Printf("Members (%d/%d):\n", len(snap.Members), models.GroupCapacity)
			for i, member := range snap.Members {
				fmt.Printf("  %d. %s\n", i+1, member)
			}
			for field, msg := range snap.FieldErrors {
				fmt.Printf("  ! %s failed to load: %s\n", field, msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	return cmd
}

// NewLedgerCommand creates the ledger command
func NewLedgerCommand() *cobra.Command {
	var cached bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show the transaction history, most recent first",
		Long: `Fetch the full event history of the contract from genesis and print it
in descending block order. With --cached, read the local archive instead
of querying the chain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			var entries []models.LedgerEntry
			if cached {
				entries, err = a.svc.CachedLedger()
				if err != nil {
					return fmt.Errorf("failed to read ledger cache: %w", err)
				}
			} else {
				entries, err = a.svc.RefreshLedger(ctx)
				if err != nil {
					return fmt.Errorf("failed to fetch ledger: %w", err)
				}
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No activity found")
				return nil
			}
			for _, e := range entries {
				printLedgerEntry(e, a.cfg.INRRate)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "Read from the local archive instead of the chain")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}
