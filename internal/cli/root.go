package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/app"
	"github.com/trebuchet-org/conclave/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"

	// longRunning marks commands that serve until interrupted and so skip
	// the configured timeout
	longRunning = "long-running"
)

// session owns the app built for one command invocation
type session struct {
	app    *app.App
	cancel context.CancelFunc
}

// close drains in-flight deliveries and releases the store. It runs even
// when the command failed so queued jobs still resolve.
func (s *session) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Execute runs the CLI
func Execute() error {
	s := &session{}
	defer s.close()
	return newRootCmd(s).Execute()
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&session{})
}

func newRootCmd(s *session) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conclave",
		Short: "Shared savings goals with confidential contributions",
		Long: `Conclave manages shared savings goals whose individual contributions stay
encrypted. Sums, threshold checks and reveals run as asynchronous jobs on a
confidential computation network; results arrive through a callback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			// Find project root
			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			// Set up viper
			v := config.SetupViper(projectRoot, cmd)

			// Initialize app with DI
			appInstance, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			s.app = appInstance

			// Store app in context
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			// Add timeout if configured
			if appInstance.Config.Timeout > 0 && cmd.Annotations[longRunning] == "" {
				ctx, s.cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
			}

			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("principal", "", "Address to act as (env CONCLAVE_PRINCIPAL)")
	rootCmd.PersistentFlags().String("data-dir", "", "State directory (defaults to ./.conclave)")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")

	rootCmd.AddGroup(&cobra.Group{ID: "goals", Title: "Goal Commands"})
	rootCmd.AddGroup(&cobra.Group{ID: "compute", Title: "Confidential Computation"})
	rootCmd.AddGroup(&cobra.Group{ID: "funds", Title: "Funds"})
	rootCmd.AddGroup(&cobra.Group{ID: "services", Title: "Services"})

	for _, c := range []*cobra.Command{NewGoalCmd(), NewContributeCmd()} {
		c.GroupID = "goals"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewAggregateCmd(), NewCheckCmd(), NewRevealCmd(), NewFinalizeCmd(), NewJobsCmd()} {
		c.GroupID = "compute"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewTransferCmd(), NewVaultCmd()} {
		c.GroupID = "funds"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewServeCmd(), NewClusterCmd()} {
		c.GroupID = "services"
		rootCmd.AddCommand(c)
	}

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.SetErrPrefix("Error:")
	rootCmd.SetOut(os.Stdout)

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
