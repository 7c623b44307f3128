// Command triviaserver runs the realtime trivia game service: a
// websocket endpoint whose connections each attach to one game code's
// host-gated room actor,
// and a Prometheus /metrics sidecar. Architecture mirrors the teacher's
// gameserver binary — one process, one HTTP mux, one goroutine per
// session plus one per room — generalized from a 60Hz physics loop to a
// 1Hz question-and-answer room actor.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quizroom/server/config"
	"github.com/quizroom/server/internal/auth"
	"github.com/quizroom/server/internal/directory"
	"github.com/quizroom/server/internal/logging"
	"github.com/quizroom/server/internal/metrics"
	"github.com/quizroom/server/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "triviaserver",
		Short: "Realtime trivia game server",
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file: %w", err)
				}
			}
			return runServe(v)
		},
	}
	config.BindFlags(cmd.Flags(), v)
	return cmd
}

func runServe(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("starting trivia server")

	settingsSource := config.NewGameSettingsSource()
	if v.ConfigFileUsed() != "" {
		config.WatchGameSettings(v, settingsSource, log)
	}

	collectors := metrics.New()
	reg := prometheus.NewRegistry()
	if err := collectors.Register(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	dir := directory.New(collectors, logging.Component(log, "directory"), cfg.RoomGracePeriod)
	go dir.Run()
	defer dir.Stop()

	verifier := auth.NewVerifier(cfg.TokenSecret)
	wsHandler := session.NewHandler(dir, verifier, settingsSource, logging.Component(log, "session"))
	wsHandler.AllowOrigin = func(*http.Request) bool { return cfg.EnableCORS }

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/ws", wsHandler.ServeHTTP)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: router}
	metricsSrv := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.MetricsPort), Handler: metricsRouter}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.ListenAndServe() }()
	go func() { errCh <- metricsSrv.ListenAndServe() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}
