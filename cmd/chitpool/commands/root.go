package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chitpool/chitpool/internal/chain"
	"github.com/chitpool/chitpool/internal/config"
	"github.com/chitpool/chitpool/internal/currency"
	"github.com/chitpool/chitpool/internal/fund"
	"github.com/chitpool/chitpool/internal/ledgerdb"
	"github.com/chitpool/chitpool/internal/logging"
	"github.com/chitpool/chitpool/internal/store"
	"github.com/chitpool/chitpool/internal/tui"
	"github.com/chitpool/chitpool/pkg/models"
)

var debugMode bool

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chitpool",
		Short: "Dashboard for a rotating-savings (chit fund) contract",
		Long: `chitpool is a terminal dashboard for a fixed-membership rotating-savings
smart contract: join the group, select a borrower, release pooled funds,
pay installments and withdraw profit, with live on-chain state and history.`,
		RunE: runTUI,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Print the dashboard state without the TUI")
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewLedgerCommand())
	rootCmd.AddCommand(NewJoinCommand())
	rootCmd.AddCommand(NewContributeCommand())
	rootCmd.AddCommand(NewSelectBorrowerCommand())
	rootCmd.AddCommand(NewReleaseCommand())
	rootCmd.AddCommand(NewPayEMICommand())
	rootCmd.AddCommand(NewWithdrawCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs after connecting.
type app struct {
	cfg   *config.Config
	svc   *fund.Service
	store *store.Store
}

// newApp loads configuration, connects the wallet session and wires the
// service. The ledger archive is best-effort: a broken cache file degrades
// to chain-only history instead of failing the command.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel)

	session, err := chain.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var archive *ledgerdb.Archive
	if cfg.LedgerCachePath != "" {
		archive, err = ledgerdb.Open(cfg.LedgerCachePath)
		if err != nil {
			logger.Warn("ledger cache unavailable", "path", cfg.LedgerCachePath, "error", err)
			archive = nil
		}
	}

	st := store.New()
	svc := fund.New(session, st, archive, cfg.StakeWei, logger)
	svc.Connect()

	return &app{cfg: cfg, svc: svc, store: st}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}

	// Seed the history panel from the local archive before the first
	// chain round-trip completes.
	if _, err := a.svc.CachedLedger(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ledger cache read failed: %v\n", err)
	}

	if debugMode {
		return runDebugMode(ctx, a)
	}

	return tui.ShowTUI(a.svc, a.store, a.cfg.INRRate)
}

func runDebugMode(ctx context.Context, a *app) error {
	fmt.Println("=== Debug Mode: Dashboard State ===")
	if err := a.svc.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	session := a.store.Session()
	fmt.Printf("\nAccount:  %s\n", session.Account)
	fmt.Printf("Contract: %s\n", session.Contract)
	fmt.Printf("Chain ID: %d\n", session.ChainID)

	snap := a.store.Snapshot()
	fmt.Printf("\nPool balance:     %s\n", currency.Format(snap.PoolBalance, models.CurrencyNative, a.cfg.INRRate))
	fmt.Printf("Installment due:  %s\n", currency.Format(snap.EMIAmount, models.CurrencyNative, a.cfg.INRRate))
	fmt.Printf("Remaining months: %d\n", snap.RemainingMonths)
	fmt.Printf("Members (%d/%d):\n", len(snap.Members), models.GroupCapacity)
	for i, member := range snap.Members {
		fmt.Printf("  %d. %s\n", i+1, member)
	}
	for field, msg := range snap.FieldErrors {
		fmt.Printf("  ! %s: %s\n", field, msg)
	}

	ledger := a.store.Ledger()
	fmt.Printf("\nHistory (%d entries):\n", len(ledger))
	for i, e := range ledger {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(ledger)-10)
			break
		}
		printLedgerEntry(e, a.cfg.INRRate)
	}
	return nil
}

func printLedgerEntry(e models.LedgerEntry, inrRate int64) {
	line := fmt.Sprintf("  #%-8d %-16s %s", e.Block, e.Kind, e.Actor)
	if e.Amount != nil {
		line += "  " + currency.Format(e.Amount, models.CurrencyNative, inrRate)
	}
	if e.Detail != "" {
		line += "  (" + e.Detail + ")"
	}
	fmt.Println(line)
}
