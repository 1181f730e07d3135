// Package main implements the entry point for a botnode, the bot-side
// process that joins the fleet and keeps its configuration current.
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

	"github.com/ccamateur/botvana/config"
	"github.com/ccamateur/botvana/engine"
	"github.com/ccamateur/botvana/protocol"
	"github.com/ccamateur/botvana/shutdown"
)

const (
	version = "0.1.0"
	appName = "botnode"

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
		serverAddr  string
		logLevel    string
		logFormat   string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.StringVar(&serverAddr, "server", "", "Fleet server address (overrides config)")
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

	cfg := config.DefaultBot()
	if configPath != "" {
		loaded, err := config.LoadBot(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if serverAddr != "" {
		cfg.ServerAddr = serverAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	botID := protocol.BotID(cfg.BotID)
	hostname, _ := os.Hostname()
	meta := protocol.BotMetadata{Hostname: hostname, Version: version}

	logger.Info("Starting botnode",
		"version", version,
		"bot_id", botID,
		"server", cfg.ServerAddr)

	control := engine.NewControl(botID, meta, cfg.ServerAddr, logger)

	// Keep one receiver so the latest configuration is observable in
	// the log even with no other engines attached yet.
	configRx, err := control.DataRx()
	if err != nil {
		return err
	}

	sd := shutdown.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received shutdown signal", "signal", sig.String())
		sd.Trigger()
	}()

	go func() {
		for {
			select {
			case cfg := <-configRx.Receive():
				logger.Info("Configuration updated",
					"peers", len(cfg.PeerBots),
					"market_data", cfg.MarketData)
			case <-sd.Triggered():
				return
			}
		}
	}()

	runner := engine.NewRunner(sd, logger)
	runner.Add(control)

	runErr := runner.Run(ctx)

	if sd.IsTriggered() {
		if err := sd.WaitIdle(shutdownTimeout); err != nil {
			logger.Warn("Shutdown guards did not release in time", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("Botnode shutdown complete")
	return nil
}
