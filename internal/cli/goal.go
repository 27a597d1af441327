package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

// NewGoalCmd creates the goal command with its subcommands
func NewGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals"},
		Short:   "Create, inspect and manage savings goals",
	}

	cmd.AddCommand(
		newGoalCreateCmd(),
		newGoalInviteCmd(),
		newGoalShowCmd(),
		newGoalListCmd(),
	)
	return cmd
}

func newGoalCreateCmd() *cobra.Command {
	var (
		name     string
		target   string
		deadline string
		id       uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new savings goal owned by the principal",
		Example: `  conclave goal create --name "Team offsite" --target 5000
  conclave goal create --name Trip --target 1100 --deadline 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			owner, err := principal(app)
			if err != nil {
				return err
			}
			amount, err := parseAmount(target)
			if err != nil {
				return err
			}
			dl, err := parseDeadline(deadline, time.Now())
			if err != nil {
				return err
			}

			goal, err := app.CreateGoal.Execute(cmd.Context(), usecase.CreateGoalParams{
				Owner:        owner,
				ID:           id,
				Name:         name,
				TargetAmount: amount,
				Deadline:     dl,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, goal, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).GoalCreated(goal)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Goal name (required)")
	cmd.Flags().StringVar(&target, "target", "", "Target amount (required)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline as RFC 3339 time or duration from now")
	cmd.Flags().Uint64Var(&id, "id", 0, "Goal id (defaults to the next free id)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newGoalInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <goal> <member>",
		Short: "Add a member to a goal (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := principal(app)
			if err != nil {
				return err
			}
			key, err := models.ParseGoalKey(args[0])
			if err != nil {
				return err
			}
			member, err := parseAddress("member", args[1])
			if err != nil {
				return err
			}

			goal, err := app.InviteMember.Execute(cmd.Context(), usecase.InviteMemberParams{
				Goal:   key,
				Caller: caller,
				Member: member,
			})
			if err != nil {
				return err
			}
			return output(cmd, app, goal, func() {
				render.NewResultRenderer(cmd.OutOrStdout()).MemberInvited(goal)
			})
		},
	}
}

func newGoalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [goal]",
		Short: "Show a goal with its members, contributions, vault and jobs",
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
			details, err := app.ShowGoal.Run(cmd.Context(), key)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), details)
			}
			return render.NewGoalRenderer(cmd.OutOrStdout()).Render(details)
		},
	}
}

func newGoalListCmd() *cobra.Command {
	var (
		owner  string
		member string
		status string
		mine   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List goals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			filter := domain.GoalFilter{Status: models.GoalStatus(strings.ToUpper(status))}
			if owner != "" {
				if filter.Owner, err = parseAddress("owner", owner); err != nil {
					return err
				}
			}
			if member != "" {
				if filter.Member, err = parseAddress("member", member); err != nil {
					return err
				}
			}
			if mine {
				if filter.Member, err = principal(app); err != nil {
					return err
				}
			}
			if filter.Status != "" && filter.Status != models.GoalStatusActive && filter.Status != models.GoalStatusFinalized {
				return fmt.Errorf("unknown goal status %q", status)
			}

			result, err := app.ListGoals.Run(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), result.Goals)
			}
			return render.NewGoalsRenderer(cmd.OutOrStdout()).Render(result)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only goals owned by this address")
	cmd.Flags().StringVar(&member, "member", "", "Only goals with this member")
	cmd.Flags().StringVar(&status, "status", "", "Only goals in this status (active, finalized)")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only goals the principal is a member of")
	return cmd
}
