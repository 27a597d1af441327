package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/conclave/internal/adapters/callbacks"
	"github.com/trebuchet-org/conclave/internal/adapters/network"
	"github.com/trebuchet-org/conclave/internal/cli/render"
	"github.com/trebuchet-org/conclave/internal/domain"
)

var eventStyle = color.New(color.FgCyan)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the callback endpoint that applies computation results",
		Long: `Serve the HTTP endpoint a remote computation cluster posts results to.
Every verified result is applied to the store and the resulting events are
printed as they happen.

Routes:
  POST /v1/callbacks      apply a computation result
  GET  /v1/jobs/{offset}  look up a job
  GET  /health`,
		Annotations: map[string]string{longRunning: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			out := cmd.OutOrStdout()
			app.Events.Subscribe(func(e domain.Event) {
				fmt.Fprintf(out, "%s %s\n", eventStyle.Sprintf("[%s]", e.EventName()), e)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Serving callbacks on %s\n", addr)
			return callbacks.ListenAndServe(ctx, addr, app.CallbackServer.Routes(), app.Log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}

// NewClusterCmd creates the cluster command with its subcommands
func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run or inspect a computation cluster",
	}
	cmd.AddCommand(newClusterServeCmd(), newClusterInfoCmd())
	return cmd
}

func newClusterServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve this node's cluster keys as a computation network",
		Long: `Serve a computation cluster over HTTP using the keys in the data directory.
Accepted jobs are evaluated in the background and their attested results are
posted to the callback URL supplied with each job.

Routes:
  GET  /v1/cluster  public key and signer address
  POST /v1/jobs     submit a job
  GET  /health`,
		Annotations: map[string]string{longRunning: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info := app.ClusterServer.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving cluster %s on %s\n", info.Address.Hex(), addr)
			err = callbacks.ListenAndServe(ctx, addr, app.ClusterServer.Routes(), app.Log)
			app.ClusterServer.Drain()
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}

func newClusterInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cluster public key and attestation signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var info network.ClusterInfo
			source := "local"
			if app.Network.Remote != nil {
				remote, err := app.Network.Remote.Info(cmd.Context())
				if err != nil {
					return err
				}
				info = *remote
				source = app.Config.Network.Endpoint
			} else {
				info = app.ClusterServer.Info()
			}

			return output(cmd, app, info, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cluster (%s)\n", source)
				fmt.Fprintf(out, "  Signer: %s\n", info.Address.Hex())
				fmt.Fprintf(out, "  Public Key: %s\n", info.PublicKey)
				if pinned := app.Config.Network.ClusterAddress; pinned != (common.Address{}) && pinned != info.Address {
					fmt.Fprintln(out, render.FormatWarning(fmt.Sprintf("configured cluster_address %s does not match", pinned.Hex())))
				}
			})
		},
	}
}
