package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/api"
	"github.com/sells-group/diabetes-risk/internal/sessions"
	"github.com/sells-group/diabetes-risk/internal/workflow"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve assessment sessions over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ttl := time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute
		reg, handler := buildServer(env, ttl, cfg.Server.CORSOrigins)
		go reg.Run(ctx, ttl/2)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Duration("session_ttl", ttl),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildServer wires a session registry backed by env into the API router.
// Each session writes to its own history partition, which the backend
// releases once the session is deleted or evicted.
func buildServer(env *assessEnv, ttl time.Duration, origins []string) (*sessions.Registry, http.Handler) {
	reg := sessions.NewRegistry(ttl, func(id string) *workflow.Session {
		return env.NewSession(id, nil)
	}, sessions.WithTeardown(env.Backend.Drop))
	return reg, api.NewServer(reg, env.Narrator, origins).Handler()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
