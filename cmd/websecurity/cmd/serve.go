package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/upb/websecurity/app"
	"github.com/upb/websecurity/config"
	"github.com/upb/websecurity/internal/observability"
	"github.com/upb/websecurity/routes"
	"go.uber.org/zap"
)

var (
	portFlag            int
	identityPolicyFlag  string
	authzPolicyFlag     string
	sessionCleanupEvery time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := applyServeFlags(cmd, cfg); err != nil {
			return err
		}

		logger, err := observability.NewLogger(cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		deps, err := app.NewDependencies(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close(context.Background())

		deps.StartSessionCleanup(ctx, sessionCleanupEvery)

		srv := &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           routes.SetupRoutes(deps),
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Listen port (env: PORT)")
	serveCmd.Flags().StringVar(&identityPolicyFlag, "identity-policy", "", "cookie, session or jwt (env: SECURITY_IDENTITY_POLICY)")
	serveCmd.Flags().StringVar(&authzPolicyFlag, "authz-policy", "", "dictionary, database or casbin (env: SECURITY_AUTHZ_POLICY)")
	serveCmd.Flags().DurationVar(&sessionCleanupEvery, "session-cleanup-interval", 10*time.Minute, "How often expired database sessions are deleted")
}

// applyServeFlags overrides cfg with the flags set on cmd and revalidates it
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = portFlag
	}
	if flags.Changed("identity-policy") {
		cfg.Security.IdentityPolicy = identityPolicyFlag
	}
	if flags.Changed("authz-policy") {
		cfg.Security.AuthzPolicy = authzPolicyFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
