// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bureau-foundation/muster/fleet/policydef"
	"github.com/bureau-foundation/muster/lib/clock"
	"github.com/bureau-foundation/muster/lib/cron"
	"github.com/bureau-foundation/muster/lib/ref"
	"github.com/bureau-foundation/muster/messaging"
)

// version is stamped at build time via -ldflags.
var version = "devel"

func main() {
	if err := run(); err != nil {
		slog.Error("muster-service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("muster-service " + version)
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *configPath == "" {
		return errors.New("--config is required")
	}
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	policy, err := policydef.ReadFile(cfg.PolicyFile)
	if err != nil {
		return err
	}
	token, err := ReadAccessToken(cfg.AccessTokenFile)
	if err != nil {
		return err
	}
	// Already validated by LoadConfig.
	userID, err := ref.ParseUserID(cfg.UserID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	session, err := client.SessionFromToken(userID, token)
	if err != nil {
		return err
	}
	actual, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("validating access token: %w", err)
	}
	if actual != userID {
		return fmt.Errorf("access token belongs to %s, config names %s", actual, userID)
	}
	for _, room := range policy.Rooms() {
		if _, err := session.JoinRoom(ctx, room); err != nil {
			return fmt.Errorf("joining destination %s: %w", room, err)
		}
	}

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	clk := clock.Real()
	store, err := OpenStore(StoreConfig{
		Path:     filepath.Join(cfg.StateDir, "muster.db"),
		PoolSize: cfg.PoolSize,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	dispatchInterval := cfg.DispatchInterval.Std()
	engine := NewEngine(store, policy, clk, logger)
	dispatcher := NewDispatcher(store, engine, policy, session, clk, logger, dispatchInterval)
	schedule, err := cron.Parse(cfg.SummarySchedule)
	if err != nil {
		return err
	}
	publisher := NewSummaryPublisher(store, policy, session, clk, logger, schedule)
	socket, err := NewSocketServer(cfg.SocketPath, engine, policy, clk, logger,
		userID.String(), dispatchInterval, cfg.SummarySchedule)
	if err != nil {
		return err
	}

	logger.Info("muster-service started",
		"version", version,
		"user", userID,
		"scope", policy.Scope,
		"categories", len(policy.Categories),
		"socket", cfg.SocketPath,
		"dispatch_interval", dispatchInterval,
		"summary_schedule", cfg.SummarySchedule)

	errCh := make(chan error, 3)
	go func() { errCh <- dispatcher.Run(ctx) }()
	go func() { errCh <- publisher.Run(ctx) }()
	go func() { errCh <- socket.Serve(ctx) }()

	err = <-errCh
	stop()
	if errors.Is(err, context.Canceled) {
		logger.Info("muster-service shutting down")
		return nil
	}
	return err
}
