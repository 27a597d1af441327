package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewAggregateCmd creates the aggregate command
func NewAggregateCmd() *cobra.Command {
	var (
		all     bool
		wait    bool
		version uint32
	)

	cmd := &cobra.Command{
		Use:   "aggregate [goal]",
		Short: "Fold sealed contributions into the goal's running total",
		Long: `Dispatch an ADD_TWO job folding the next unaggregated contributions into
the goal's total. Each job folds two contributions, or the current total and
one contribution. Only one fold per goal may be in flight at a time.

With --all, steps are dispatched and awaited until every contribution has
been folded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := principal(app)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{Status: models.GoalStatusActive})
			if err != nil {
				return err
			}

			result, err := app.AggregateGoal.Execute(cmd.Context(), usecase.AggregateGoalParams{
				Goal:    key,
				Caller:  caller,
				Version: version,
				Wait:    wait,
				All:     all,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, result, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Aggregated(result)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Keep folding until every contribution is aggregated")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the fold's callback before returning")
	cmd.Flags().Uint32Var(&version, "version", 0, "Circuit version (defaults to the configured version)")
	return cmd
}

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var (
		wait    bool
		version uint32
	)

	cmd := &cobra.Command{
		Use:   "check [goal]",
		Short: "Check confidentially whether the aggregated total reached the target",
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
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{Status: models.GoalStatusActive})
			if err != nil {
				return err
			}

			result, err := app.CheckGoal.Execute(cmd.Context(), usecase.CheckGoalParams{
				Goal:    key,
				Caller:  caller,
				Version: version,
				Wait:    wait,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, result, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Checked(result)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the check's callback before returning")
	cmd.Flags().Uint32Var(&version, "version", 0, "Circuit version (defaults to the configured version)")
	return cmd
}

// NewRevealCmd creates the reveal command
func NewRevealCmd() *cobra.Command {
	var (
		wait    bool
		version uint32
		offset  uint64
	)

	cmd := &cobra.Command{
		Use:   "reveal [goal]",
		Short: "Reveal individual contribution amounts to the goal owner",
		Long: `Dispatch a REVEAL_N job that reseals every contribution to the goal's
audience key, then open the result with the owner's locally stored key.

Use --offset to open the output of a reveal job dispatched earlier.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("offset") {
				amounts, err := app.RevealContributions.OpenOffset(cmd.Context(), offset)
				if err != nil {
					return fmt.Errorf("failed to open reveal job %d: %w", offset, err)
				}
				result := &usecase.RevealContributionsResult{Amounts: amounts}
				return output(cmd, app, result, func() {
					render.NewResultRenderer(cmd.OutOrStdout()).Revealed(result)
				})
			}

			caller, err := principal(app)
			if err != nil {
				return err
			}
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{})
			if err != nil {
				return err
			}

			result, err := app.RevealContributions.Execute(cmd.Context(), usecase.RevealContributionsParams{
				Goal:    key,
				Caller:  caller,
				Version: version,
				Wait:    wait,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, result, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Revealed(result)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the reveal's callback and open it")
	cmd.Flags().Uint32Var(&version, "version", 0, "Circuit version (defaults to the configured version)")
	cmd.Flags().Uint64Var(&offset, "offset", 0, "Open the output of an existing reveal job")
	return cmd
}

// NewFinalizeCmd creates the finalize command
func NewFinalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize [goal]",
		Short: "Close a goal once its target is reached or its deadline has passed",
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
			key, err := resolveGoal(cmd, app, args, domain.GoalFilter{Status: models.GoalStatusActive})
			if err != nil {
				return err
			}

			result, err := app.FinalizeGoal.Execute(cmd.Context(), usecase.FinalizeGoalParams{
				Goal:   key,
				Caller: caller,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, result, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).Finalized(result)
			})
		},
	}
}
