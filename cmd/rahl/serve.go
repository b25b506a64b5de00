package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahl-ai/rahl-core/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	Long: `Start the full application: security, cache, model loading, the HTTP
surface, background workers and the realtime channel, in that order.

Every /v1 route requires the session token printed at startup, sent as
"Authorization: Bearer <token>" or, for /v1/stream, as ?token=<token>.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

// #region serve
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.New(cfg.Server, api.Deps{
		Status:   a.Engine,
		Results:  a.Cache,
		History:  a.History,
		Sessions: a.Security,
		Gatherer: a.Registry,
		Logger:   a.Logger,
	})
	a.wire(srv)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Orchestrator.Init(ctx); err != nil {
		return err
	}
	sess, err := a.Security.Session()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\nsession token (expires %s):\n  %s\n",
		srv.Addr(), sess.ExpiresAt.Format(time.RFC3339), sess.Token)
	<-ctx.Done()
	a.Logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// #endregion serve
