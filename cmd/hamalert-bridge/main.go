// Command hamalert-bridge maintains a persistent session against the
// HamAlert telnet service and republishes spot notifications to a Discord
// webhook, with an independent liveness-ping loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/spothound/hamalert-bridge/pkg/config"
	"github.com/spothound/hamalert-bridge/pkg/heartbeat"
	"github.com/spothound/hamalert-bridge/pkg/logging"
	"github.com/spothound/hamalert-bridge/pkg/notify"
	"github.com/spothound/hamalert-bridge/pkg/observability"
	"github.com/spothound/hamalert-bridge/pkg/session"
	"github.com/spothound/hamalert-bridge/pkg/transport"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	if cfg.TracingEndpoint != "" {
		tp, err := observability.NewTracingProvider(observability.TracingConfig{
			ServiceName: "hamalert-bridge",
			Endpoint:    cfg.TracingEndpoint,
			Insecure:    cfg.TracingInsecure,
		})
		if err != nil {
			logger.Fatal("failed to initialize tracing", logging.ErrorField(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown failed", logging.ErrorField(err))
			}
		}()
	}

	sink := notify.NewDiscordWebhook(cfg.WebhookURL,
		logger.WithFields(logging.String("component", "notify")),
		notify.WithMetrics(metrics))

	dialer := transport.NewTCPDialer(cfg.Addr(), cfg.DialTimeout, cfg.ReadTimeout)

	supervisor := session.NewSupervisor(dialer,
		session.Config{
			Username:    cfg.Username,
			Password:    cfg.Password,
			PromptDelay: cfg.PromptDelay,
		},
		sink,
		logger.WithFields(logging.String("component", "session")),
		session.WithMetrics(metrics))

	reporter := heartbeat.NewReporter(cfg.HeartbeatURL, cfg.HeartbeatInterval,
		logger.WithFields(logging.String("component", "heartbeat")),
		heartbeat.WithMetrics(metrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		logging.String("endpoint", cfg.Addr()),
		logging.String("username", cfg.Username))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })
	g.Go(func() error { return reporter.Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return observability.RunMetricsServer(gctx, cfg.MetricsAddr, reg,
				logger.WithFields(logging.String("component", "metrics")))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bridge terminated", logging.ErrorField(err))
	}
	logger.Info("shutdown complete")
}

// loadConfig reads the environment and applies command-line overrides, so
// every flag falls back to its environment value.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("hamalert-bridge", flag.ContinueOnError)
	fs.StringVar(&cfg.Username, "username", cfg.Username, "HamAlert username (env HAMALERT_USERNAME)")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "HamAlert password (env HAMALERT_PASSWORD)")
	fs.StringVar(&cfg.WebhookURL, "webhook", cfg.WebhookURL, "Discord webhook URL (env HAMALERT_WEBHOOK_URL)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HamAlert server host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HamAlert server port")
	fs.StringVar(&cfg.HeartbeatURL, "heartbeat-url", cfg.HeartbeatURL, "liveness ping URL (env HEARTBEAT_URL)")
	fs.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", cfg.HeartbeatInterval, "liveness ping interval")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen address, empty to disable")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildLogger constructs the root logger from config.
func buildLogger(cfg *config.Config) logging.Logger {
	var formatter logging.Formatter
	if cfg.LogFormat == "json" {
		formatter = logging.NewJSONFormatter()
	} else {
		formatter = logging.NewTextFormatter()
	}

	logger := logging.New(os.Stdout, formatter)
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	return logger
}
