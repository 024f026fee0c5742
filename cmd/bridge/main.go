package main

import (
	"ajax-cloud-bridge/internal/adapters/input/http"
	"ajax-cloud-bridge/internal/adapters/output/ajaxcloud"
	"ajax-cloud-bridge/internal/adapters/output/mqtt"
	"ajax-cloud-bridge/internal/adapters/output/persistence"
	"ajax-cloud-bridge/internal/config"
	"ajax-cloud-bridge/internal/domain/model"
	"ajax-cloud-bridge/internal/domain/service"
	"ajax-cloud-bridge/internal/domain/view"
	"ajax-cloud-bridge/internal/logging"
	"ajax-cloud-bridge/internal/metrics"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "bridge:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "run":
		return runBridge(args)
	case "setup":
		return runSetupCommand(args)
	default:
		return fmt.Errorf("unknown command %q (want run or setup)", cmd)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("AJAX_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func loadSettings(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, logger, nil
}

func runBridge(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to the YAML settings file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadSettings(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := persistence.NewJSONCredentialsRepository(cfg.CredentialsPath).Get(ctx)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if !creds.IsComplete() {
		return fmt.Errorf("%w: run `bridge setup -email <address>` first", model.ErrNotConfigured)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := ajaxcloud.NewClient(creds.BackendURL, creds.Token,
		ajaxcloud.WithTimeout(cfg.Backend.Timeout),
		ajaxcloud.WithLogger(logger),
		ajaxcloud.WithMetrics(m),
	)
	coord := service.NewCoordinator(client,
		service.WithInterval(cfg.Coordinator.Interval),
		service.WithRefreshTimeout(cfg.Backend.Timeout),
		service.WithLogger(logger),
		service.WithMetrics(m),
	)

	if err := coord.FirstRefresh(ctx); err != nil {
		return err
	}

	formulas, err := cfg.Formulas()
	if err != nil {
		return err
	}
	views := view.NewFactory(formulas)
	entities := views.Classify(coord.Snapshot())
	logger.Info().
		Int("devices", len(coord.Snapshot().Devices)).
		Int("entities", len(entities)).
		Str("backend", creds.BackendURL).
		Msg("bridge ready")

	go coord.Run(ctx)

	if cfg.MQTT.Enabled {
		mc, err := mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer mc.Close()
		pub := mqtt.NewStatePublisher(mc, coord, mc.Prefix(), logger)
		if err := pub.Start(); err != nil {
			return err
		}
		defer pub.Stop()
	}

	srv := http.NewServer(coord, views, entities,
		http.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		http.WithLogger(logger),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.HTTP.Listen) }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
