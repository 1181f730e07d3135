// Package main implements the entry point for the fleet server, the
// central coordinator bots register with to receive configuration and
// peer topology.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ccamateur/botvana/announce"
	"github.com/ccamateur/botvana/config"
	"github.com/ccamateur/botvana/fleet"
	"github.com/ccamateur/botvana/journal"
	"github.com/ccamateur/botvana/metric"
	"github.com/ccamateur/botvana/ops"
	"github.com/ccamateur/botvana/registry"
	"github.com/ccamateur/botvana/server"
	"github.com/ccamateur/botvana/shutdown"
)

const (
	version = "0.1.0"
	appName = "fleet-server"

	shutdownTimeout = 10 * time.Second
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		logFormat   string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&logFormat, "log-format", "text", "Log format: text, json")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		return nil
	}

	logger := setupLogger(logLevel, logFormat)
	slog.SetDefault(logger)

	cfg := config.DefaultServer()
	if configPath != "" {
		loaded, err := config.LoadServer(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger.Info("Starting fleet server",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"max_connections", cfg.MaxConnections)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := metric.NewRegistry()
	reg := registry.New(metrics)

	sinks := []fleet.EventSink{fleet.NewLogSink(logger)}

	if cfg.NATS.URL != "" {
		sink, err := announce.New(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return fmt.Errorf("connect nats announcer: %w", err)
		}
		defer sink.Close()
		sinks = append(sinks, sink)
		logger.Info("Fleet events announced on NATS", "subject", cfg.NATS.Subject)
	}

	if cfg.Postgres.DSN != "" {
		j, err := journal.Open(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return fmt.Errorf("open event journal: %w", err)
		}
		defer j.Close()
		sinks = append(sinks, j)
		logger.Info("Fleet events journaled to postgres")
	}

	var opsServer *ops.Server
	if cfg.Ops.ListenAddr != "" {
		feed := ops.NewFeed(logger)
		sinks = append(sinks, feed)
		opsServer = ops.NewServer(cfg.Ops.ListenAddr, feed, metrics, logger)
		go func() {
			if err := opsServer.Serve(); err != nil {
				logger.Error("Ops server failed", "error", err)
			}
		}()
	}

	events := fleet.NewFanout(logger, sinks...)

	serverMetrics := server.NewMetrics(metrics)
	handler := server.NewHandler(server.HandlerConfig{
		MarketData: cfg.MarketData,
		Indicators: cfg.Indicators,
	}, reg, events, logger, serverMetrics)

	srv := server.New(cfg.ListenAddr, cfg.MaxConnections, handler, logger, serverMetrics)
	if err := srv.Listen(); err != nil {
		return err
	}
	logger.Info("Accepting bot connections", "addr", srv.Addr().String())

	sd := shutdown.New()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received shutdown signal", "signal", sig.String())
		sd.Trigger()
		cancel()
		_ = srv.Close()
	}()

	serveErr := srv.Serve(ctx)

	if opsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown failed", "error", err)
		}
	}

	if sd.IsTriggered() {
		if err := sd.WaitIdle(shutdownTimeout); err != nil {
			logger.Warn("Shutdown guards did not release in time", "error", err)
		}
	}

	if serveErr != nil && !sd.IsTriggered() {
		return serveErr
	}
	logger.Info("Fleet server shutdown complete")
	return nil
}
