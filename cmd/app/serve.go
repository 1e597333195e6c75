package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lps/internal/config"
	m "lps/internal/mosquitto"
	"lps/internal/observability"
	"lps/internal/position"
	"lps/internal/recorder"
	"lps/internal/storage"
)

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume MQTT ranges and record probe positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "env file to load before the environment (default .env)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log := setupLogger(cfg.Log)

	frame, err := position.NewValidatedFrame(cfg.Anchors.D12, cfg.Anchors.D13, cfg.Anchors.D23)
	if err != nil {
		return err
	}
	frame.SetOffset(cfg.Anchors.Offset)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	store := storage.NewStorage()
	ps, err := position.NewPositionService(store, frame, position.ServiceConfig{
		AnchorIDs:   cfg.Anchors.IDs,
		MaxRangeAge: cfg.MaxRangeAge,
		Solver:      cfg.Solver,
		Metrics:     collector,
	}, log)
	if err != nil {
		return err
	}

	handler := m.NewHandler(store, cfg.Anchors.IDs[:], m.PathLoss{
		TxPower:  cfg.PathLoss.TxPower,
		Exponent: cfg.PathLoss.Exponent,
	}, collector, log)
	client, err := m.NewClient(m.Config{
		Broker:         cfg.Broker.Broker,
		ClientId:       cfg.Broker.ClientID,
		Username:       cfg.Broker.Username,
		Password:       cfg.Broker.Password,
		Topics:         cfg.Broker.Topics,
		ConnectTimeout: cfg.Broker.ConnectTimeout,
	}, handler, log)
	if err != nil {
		return fmt.Errorf("creating broker client: %w", err)
	}
	defer client.Close()
	log.Info("service connected to broker", "broker", cfg.Broker.Broker)

	if dir := filepath.Dir(cfg.Recorder.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	rec, err := recorder.NewRecorder(ps, cfg.Recorder.File, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	log.Info("metrics listening", "addr", cfg.MetricsAddr)

	rec.Start(ctx, cfg.Recorder.Interval)

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
