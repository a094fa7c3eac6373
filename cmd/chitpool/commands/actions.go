package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chitpool/chitpool/internal/currency"
	"github.com/chitpool/chitpool/pkg/models"
)

// Action commands submit a transaction, block until it is mined and print
// the confirmed hash. A failure exits non-zero with the classified error;
// nothing is printed optimistically.

// NewJoinCommand creates the join command
func NewJoinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Join the group by depositing the fixed stake",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.svc.JoinGroup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Joined group (stake %s), tx %s\n",
				currency.Format(a.cfg.StakeWei, models.CurrencyNative, a.cfg.INRRate), tx)
			return nil
		},
	}
}

// NewContributeCommand creates the contribute command
func NewContributeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contribute",
		Short: "Deposit the fixed contribution into the pool",
		Long: `Send one contribution of the configured stake amount to the pool. Unlike
join, contributing can be repeated every period.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.svc.Contribute(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Contribution sent (%s), tx %s\n",
				currency.Format(a.cfg.StakeWei, models.CurrencyNative, a.cfg.INRRate), tx)
			return nil
		},
	}
}

// NewSelectBorrowerCommand creates the select-borrower command
func NewSelectBorrowerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select-borrower <address>",
		Short: "Name the member the pooled funds go to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.svc.SelectBorrower(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Borrower selected, tx %s\n", tx)
			return nil
		},
	}
}

// NewReleaseCommand creates the release command
func NewReleaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Release the pooled funds to the selected borrower",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.svc.ReleaseFunds(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Funds released, tx %s\n", tx)
			return nil
		},
	}
}

// NewPayEMICommand creates the pay-emi command
func NewPayEMICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pay-emi",
		Short: "Pay the currently due installment",
		Long: `Read the currently due installment amount from the contract and pay
exactly that amount. The read and the payment are separate transactions
on the wire; the contract validates the amount at settlement.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			tx, paid, err := a.svc.PayEMI(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Installment paid (%s), tx %s\n",
				currency.Format(paid, models.CurrencyNative, a.cfg.INRRate), tx)
			return nil
		},
	}
}

// NewWithdrawCommand creates the withdraw command
func NewWithdrawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw [amount]",
		Short: "Withdraw accrued profit, fully or a partial amount",
		Long: `Without an argument, withdraw the full accrued profit. With a decimal
amount (e.g. 0.005), withdraw exactly that much via the partial-profit
method, when the deployment exposes one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			var tx string
			if len(args) == 1 {
				tx, err = a.svc.WithdrawPartialProfit(cmd.Context(), args[0])
			} else {
				tx, err = a.svc.WithdrawProfit(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Printf("Profit withdrawn, tx %s\n", tx)
			return nil
		},
	}
}
