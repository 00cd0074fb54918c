package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview and evaluation HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "address to listen on (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApplication(ctx)
	defer a.close()

	handler, err := server.New(server.Config{
		Orchestrator:   a.orchestrator,
		Pipeline:       a.pipeline,
		TranscriptsDir: a.config.TranscriptsDir,
		Logger:         a.logger.With(zap.String("component", "http")),
	})
	if err != nil {
		a.logger.Fatal("building http handler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              a.config.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting the interviewer api", zap.String("listen", srv.Addr), zap.String("version", version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server failed", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("shutting down http server", zap.Error(err))
	}
	a.logger.Info("exiting", zap.String("reason", "signal received"))
}
