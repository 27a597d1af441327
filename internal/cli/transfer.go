package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewTransferCmd creates the transfer command with its subcommands
func NewTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Request and approve payouts from a finalized goal's vault",
	}
	cmd.AddCommand(newTransferRequestCmd(), newTransferApproveCmd())
	return cmd
}

func newTransferRequestCmd() *cobra.Command {
	var (
		to     string
		amount string
	)

	cmd := &cobra.Command{
		Use:   "request [goal]",
		Short: "Request a transfer out of the goal's vault (owner only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := principal(app)
			if err != nil {
				return err
			}
			recipient, err := parseAddress("recipient", to)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{Owner: caller, Status: models.GoalStatusFinalized})
			if err != nil {
				return err
			}

			transfer, err := app.RequestTransfer.Execute(cmd.Context(), usecase.RequestTransferParams{
				Goal:      key,
				Caller:    caller,
				Recipient: recipient,
				Amount:    value,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, transfer, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Transfer(transfer)
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to transfer (required)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTransferApproveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "approve [goal]",
		Short: "Approve the pending transfer and move the funds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := principal(app)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{Status: models.GoalStatusFinalized})
			if err != nil {
				return err
			}

			if !yes {
				details, err := app.ShowGoal.Run(cmd.Context(), key)
				if err != nil {
					return err
				}
				if details.Transfer == nil {
					return fmt.Errorf("goal %s has no transfer request", key)
				}
				label := fmt.Sprintf("Transfer %d to %s", details.Transfer.Amount, details.Transfer.Recipient.Hex())
				if !app.Selector.Confirm(label) {
					fmt.Fprintln(cmd.OutOrStdout(), "Transfer not approved")
					return nil
				}
			}

			transfer, err := app.ApproveTransfer.Execute(cmd.Context(), usecase.ApproveTransferParams{
				Goal:   key,
				Caller: caller,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, transfer, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Transfer(transfer)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
