package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgraph/internal/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review HTTP server",
	Long: `Start an HTTP server exposing the review pipeline.

Routes:
  POST /review          review a snippet ({code_snippet, language, context})
  GET  /health          liveness check
  GET  /graph           review DAG rendered with Mermaid
  GET  /graph.mmd       raw Mermaid source
  GET  /reviews         archived reviews (?limit=N&language=)
  GET  /reviews/{id}    one archived review

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serveRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	reviewer, svc, s, err := newReviewer()
	if err != nil {
		return err
	}

	// Requests that arrive before the index is ready get no reference context.
	go func() {
		if err := svc.Init(); err != nil {
			logger.Warn("retrieval disabled", "error", err)
		}
	}()

	srv := api.NewServer(reviewer, s, viper.GetStringSlice("server.cors_origins"), logger)
	addr := fmt.Sprintf(":%d", viper.GetInt("server.port"))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	ui.Info("Serving reviews at http://localhost%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if s != nil {
		_ = s.Close()
	}
	return nil
}
