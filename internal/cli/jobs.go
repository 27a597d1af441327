package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/domain/models"
)

// NewJobsCmd creates the jobs command
func NewJobsCmd() *cobra.Command {
	var (
		goal    string
		status  string
		purpose string
		wait    uint64
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List computation jobs",
		Example: `  conclave jobs --goal 0x1234...abcd/1
  conclave jobs --status queued
  conclave jobs --wait 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("wait") {
				job, err := app.AwaitJob.Wait(cmd.Context(), wait)
				if err != nil {
					return err
				}
				if app.Config.JSON {
					return render.JSON(cmd.OutOrStdout(), job)
				}
				return render.NewJobsRenderer(cmd.OutOrStdout()).Render([]*models.ComputationJob{job})
			}

			filter := domain.JobFilter{
				Status:  models.JobStatus(strings.ToUpper(status)),
				Purpose: models.JobPurpose(strings.ToLower(purpose)),
			}
			switch filter.Status {
			case "", models.JobStatusQueued, models.JobStatusCompleted, models.JobStatusAborted:
			default:
				return fmt.Errorf("unknown job status %q", status)
			}
			switch filter.Purpose {
			case models.JobPurposeNone, models.JobPurposeFold, models.JobPurposeCheck, models.JobPurposeReveal:
			default:
				return fmt.Errorf("unknown job purpose %q", purpose)
			}
			if goal != "" {
				key, err := models.ParseGoalKey(goal)
				if err != nil {
					return err
				}
				filter.Goal = &key
			}

			jobs, err := app.ListJobs.Run(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), jobs)
			}
			return render.NewJobsRenderer(cmd.OutOrStdout()).Render(jobs)
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "Only jobs for this goal (<owner>/<id>)")
	cmd.Flags().StringVar(&status, "status", "", "Only jobs in this status (queued, completed, aborted)")
	cmd.Flags().StringVar(&purpose, "purpose", "", "Only jobs with this purpose (fold, check, reveal)")
	cmd.Flags().Uint64Var(&wait, "wait", 0, "Wait for the job at this offset to resolve")
	return cmd
}
