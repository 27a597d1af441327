package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewVaultCmd creates the vault command with its subcommands
func NewVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Inspect and fund goal vaults",
	}
	cmd.AddCommand(newVaultDepositCmd(), newVaultBalanceCmd())
	return cmd
}

func newVaultDepositCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "deposit [goal]",
		Short: "Credit funds to a goal's vault account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{})
			if err != nil {
				return err
			}

			balance, err := app.DepositToVault.Execute(cmd.Context(), usecase.DepositToVaultParams{
				Goal:   key,
				Amount: value,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, balance, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Vault(balance)
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount to deposit (required)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newVaultBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [goal]",
		Short: "Show a goal's vault balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{})
			if err != nil {
				return err
			}

			balance, err := app.ShowVaultBalance.Run(cmd.Context(), key)
			if err != nil {
				return err
			}
			return output(cmd, app, balance, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Vault(balance)
			})
		},
	}
}
