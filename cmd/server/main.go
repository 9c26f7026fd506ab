// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/punchclock/internal/api"
	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/auth"
	"github.com/tomtom215/punchclock/internal/cache"
	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/geocode"
	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/notify"
	"github.com/tomtom215/punchclock/internal/quota"
	"github.com/tomtom215/punchclock/internal/report"
	"github.com/tomtom215/punchclock/internal/sheets"
	"github.com/tomtom215/punchclock/internal/supervisor"
	"github.com/tomtom215/punchclock/internal/supervisor/services"
)

const organization = "Punchclock"

func main() {
	// Initialize zerolog with defaults until configuration is loaded
	logging.Init(logging.DefaultConfig())
	logging.Info().Msg("Starting Punchclock")

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("timezone", cfg.Attendance.Timezone).
		Msg("Configuration loaded")

	monitor := quota.NewMonitor(cfg.Quota.MaxPerMinute, cfg.Quota.MaxPerHour)

	var cacheOpts []cache.Option
	if cfg.Cache.SnapshotPath != "" {
		snapshot, err := cache.OpenBadgerSnapshot(cfg.Cache.SnapshotPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Cache.SnapshotPath).Msg("Failed to open cache snapshot store")
		}
		defer func() {
			if err := snapshot.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing cache snapshot store")
			}
		}()
		cacheOpts = append(cacheOpts, cache.WithSnapshot(snapshot))
		logging.Info().Str("path", cfg.Cache.SnapshotPath).Msg("Cache snapshots enabled")
	}
	store := cache.New(cache.Config{
		TTLs: map[string]time.Duration{
			cache.KeyEmployees: cfg.Cache.EmployeesTTL,
			cache.KeyOnWork:    cfg.Cache.OnWorkTTL,
			cache.KeyMain:      cfg.Cache.MainTTL,
			cache.KeyStats:     cfg.Cache.StatsTTL,
		},
		EmergencyTTL: cfg.Cache.EmergencyTTL,
	}, monitor, cacheOpts...)

	client, err := sheets.NewClient(cfg.Sheets)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Sheets client")
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Sheets.Timeout)
	if err := client.Ping(pingCtx); err != nil {
		// Not fatal: the cache serves stale data and the breaker recovers.
		logging.Warn().Err(err).Msg("Spreadsheet not reachable at startup")
	} else {
		logging.Info().Str("spreadsheet", cfg.Sheets.SpreadsheetID).Msg("Spreadsheet connected")
	}
	pingCancel()
	repo := sheets.NewRepository(client, cfg.Sheets)

	var geocoder attendance.Geocoder = geocode.Disabled{}
	if cfg.Geocode.Enabled {
		geocoder = geocode.New(cfg.Geocode)
	}

	slogLogger := logging.NewSlogLogger()
	webhook := notify.NewWebhook(cfg.Webhook, watermill.NewSlogLogger(slogLogger))
	defer func() {
		if err := webhook.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing webhook notifier")
		}
	}()

	resolver := attendance.NewResolver(repo, store,
		attendance.WithLocation(cfg.Attendance.Location()),
		attendance.WithTolerance(cfg.Attendance.MatchTolerance),
		attendance.WithWarmDelay(cfg.Attendance.WarmDelay),
		attendance.WithGeocoder(geocoder),
		attendance.WithNotifier(webhook),
	)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JWT manager")
	}
	enforcer, err := auth.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create authorization enforcer")
	}
	authenticator := auth.NewAuthenticator(cfg.Security.Admins(), jwtManager)
	authMiddleware := auth.NewMiddleware(jwtManager, enforcer)

	windows, err := config.ParseHourWindows(cfg.KeepAlive.Windows)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid keep-alive windows")
	}
	keepAlive := services.NewKeepAliveService(services.KeepAliveConfig{
		Enabled:  cfg.KeepAlive.Enabled,
		URL:      cfg.KeepAlive.URL,
		Interval: cfg.KeepAlive.Interval,
		Windows:  windows,
		Location: cfg.Attendance.Location(),
	}, logging.WithComponent("keepalive"))

	handler := api.NewHandler(api.HandlerDeps{
		Config:     cfg,
		Attendance: resolver,
		Quota:      monitor,
		Cache:      store,
		Auth:       authenticator,
		Reports:    &report.Builder{Org: report.Organization{Name: organization}, Location: cfg.Attendance.Location()},
		KeepAlive:  keepAlive,
	})
	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddlewareFromConfig(&cfg.Security))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Warmer.Enabled {
		tree.AddBackgroundService(services.NewCacheWarmerService(resolver, cfg.Warmer.Interval, logging.WithComponent("cache-warmer")))
		logging.Info().Dur("interval", cfg.Warmer.Interval).Msg("Cache warmer added to supervisor tree")
	}
	tree.AddBackgroundService(keepAlive)
	tree.AddBackgroundService(webhook)
	if webhook.Enabled() {
		logging.Info().Msg("Webhook notifier added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down gracefully...")
		treeErr = <-errCh
	case treeErr = <-errCh:
		cancel()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree terminated with error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err != nil {
		logging.Error().Err(err).Msg("Failed to get unstopped service report")
	} else if len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
