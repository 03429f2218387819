package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/awgman/awgman/pkg/api"
	"github.com/awgman/awgman/pkg/config"
	"github.com/awgman/awgman/pkg/ipam"
	"github.com/awgman/awgman/pkg/observability"
	"github.com/awgman/awgman/pkg/provision"
	"github.com/awgman/awgman/pkg/store"
	"github.com/awgman/awgman/pkg/wgcli"
	"github.com/awgman/awgman/pkg/wgkeys"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML config file (overrides AWG_CONFIG_FILE)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides AWG_LOG_LEVEL)")
	flag.Parse()

	startup := setupStartupLogger()

	if *configFile != "" {
		os.Setenv("AWG_CONFIG_FILE", *configFile)
	}
	if *logLevel != "" {
		os.Setenv("AWG_LOG_LEVEL", *logLevel)
	}

	if err := run(startup); err != nil {
		startup.Fatalf("awgman failed: %v", err)
	}
}

// setupStartupLogger builds the human-readable logger used before the
// structured application logger is configured.
func setupStartupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}

func run(startup *logrus.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	startup.Infof("Configuration loaded: interface=%s subnet=%s store=%s",
		cfg.Interface.Name, cfg.Network.Subnet, cfg.Store.UsersFile)

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	fileStore, err := store.NewFileStore(cfg.Store.UsersFile)
	if err != nil {
		return err
	}

	pool, err := ipam.NewPool(cfg.Network.Subnet, cfg.Network.StartIP)
	if err != nil {
		return err
	}

	var keys wgkeys.Generator
	switch cfg.Interface.KeygenMode {
	case "cli":
		keys = wgkeys.CLI{Bin: cfg.Interface.Tool, Timeout: cfg.Interface.CommandTimeout}
	default:
		keys = wgkeys.Native{}
	}

	peers := wgcli.NewRunner(cfg.Interface.Tool, cfg.Interface.Name, cfg.Interface.CommandTimeout)

	manager, err := provision.NewManager(provision.Config{
		Pool:      pool,
		Keys:      keys,
		Peers:     peers,
		Store:     fileStore,
		Params:    cfg.ClientParams(),
		Interface: cfg.Interface.Name,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(manager, api.Options{
		APIKey:       cfg.API.Key,
		Logger:       logger,
		Metrics:      metrics,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)

	if cfg.Interface.ResyncSchedule != "" {
		resyncer, err := provision.NewResyncer(manager, cfg.Interface.ResyncSchedule, logger)
		if err != nil {
			return fmt.Errorf("invalid resync schedule: %w", err)
		}
		resyncer.Start()
		shutdown.RegisterShutdownFunc(resyncer.Stop)
		startup.Infof("Peer resync scheduled: %s", cfg.Interface.ResyncSchedule)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		startup.Infof("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Store.WatchEnabled {
		group.Go(func() error {
			return fileStore.Watch(ctx, func() {
				logger.WithField("path", fileStore.Path()).
					Warn("user store file changed on disk outside the daemon")
			})
		})
	}

	group.Go(func() error {
		defer cancel()
		return shutdown.WaitForShutdown()
	})

	return group.Wait()
}
