package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewContributeCmd creates the contribute command
func NewContributeCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "contribute [goal]",
		Short: "Seal an amount to the cluster key and record it as a contribution",
		Long: `Seal an amount to the computation cluster's public key and record it as the
principal's contribution to a goal. The plaintext amount never leaves this
process; it is revealed only to the goal owner through a reveal job.

A member contributes at most once per goal.`,
		Example: `  conclave contribute 0x1234...abcd/1 --amount 400`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			contributor, err := principal(app)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{Status: models.GoalStatusActive})
			if err != nil {
				return err
			}

			sealed, err := usecase.SealAmount(cmd.Context(), app.Network.Network, value)
			if err != nil {
				return err
			}
			contribution, err := app.AddContribution.Execute(cmd.Context(), usecase.AddContributionParams{
				Goal:        key,
				Contributor: contributor,
				Sealed:      sealed,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, contribution, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).ContributionAdded(contribution)
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount to contribute (required)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
