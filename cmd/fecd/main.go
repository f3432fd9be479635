package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dbehnke/convcode/pkg/fecsvc/config"
	"github.com/dbehnke/convcode/pkg/fecsvc/events"
	"github.com/dbehnke/convcode/pkg/fecsvc/jobrunner"
	"github.com/dbehnke/convcode/pkg/fecsvc/metrics"
	"github.com/dbehnke/convcode/pkg/fecsvc/store"
	"github.com/dbehnke/convcode/pkg/fecsvc/web"
	"github.com/dbehnke/convcode/pkg/logger"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fecd %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})

	log.Info("Starting fecd",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	if *validateOnly {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	log.Info("Configuration loaded successfully", logger.String("config_file", *configFile))

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	db, err := store.NewDB(store.Config{Path: cfg.Store.Path}, log.WithComponent("store"))
	if err != nil {
		log.Error("Failed to initialize job store", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	repo := store.NewJobRepository(db.GetDB())
	log.Info("Job store initialized", logger.String("path", cfg.Store.Path))

	collector := metrics.NewCollector()

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			promServer := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Prometheus.Enabled,
					Port:    cfg.Metrics.Prometheus.Port,
					Path:    cfg.Metrics.Prometheus.Path,
				},
				collector,
				log.WithComponent("metrics"),
			)
			if err := promServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
		log.Info("Prometheus metrics server started",
			logger.Int("port", cfg.Metrics.Prometheus.Port),
			logger.String("path", cfg.Metrics.Prometheus.Path))
	}

	publisher := events.New(events.Config{
		Enabled:     cfg.Events.Enabled,
		Broker:      cfg.Events.Broker,
		TopicPrefix: cfg.Events.TopicPrefix,
		ClientID:    cfg.Events.ClientID,
		Username:    cfg.Events.Username,
		Password:    cfg.Events.Password,
		QoS:         cfg.Events.QoS,
		Retained:    cfg.Events.Retained,
	}, log.WithComponent("events"))

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := publisher.Start(ctx); err != nil && err != context.Canceled {
			log.Error("Job event publisher error", logger.Error(err))
		}
	}()

	// Build the hub before the runner so it can double as the runner's
	// StatusNotifier; build the server around the same hub afterward.
	var hub *web.WebSocketHub
	var notifier jobrunner.StatusNotifier
	if cfg.Web.Enabled {
		hub = web.NewWebSocketHub(log.WithComponent("web"))
		notifier = hub
	}

	runner := jobrunner.NewRunner(repo, collector, publisher, notifier, log.WithComponent("jobrunner"), 64)

	workers := 4
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}

	if cfg.Web.Enabled {
		webServer := web.NewServer(cfg.Web, log.WithComponent("web"), hub, runner, repo, cfg.Job)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := webServer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Web server error", logger.Error(err))
			}
		}()
		log.Info("Web server started",
			logger.String("host", cfg.Web.Host),
			logger.Int("port", cfg.Web.Port))
	}

	log.Info("fecd initialized", logger.String("server_name", cfg.Server.Name))

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.String("signal", sig.String()))

	cancel()
	publisher.Stop()

	wg.Wait()

	log.Info("fecd stopped")
}
