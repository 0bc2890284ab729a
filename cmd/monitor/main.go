package main // entry point of the ticket availability monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"

	"github.com/iliyamo/tm-monitor/internal/backend"
	"github.com/iliyamo/tm-monitor/internal/clock"
	"github.com/iliyamo/tm-monitor/internal/config"
	"github.com/iliyamo/tm-monitor/internal/handler"
	"github.com/iliyamo/tm-monitor/internal/queue"
	"github.com/iliyamo/tm-monitor/internal/registry"
	"github.com/iliyamo/tm-monitor/internal/router"
	"github.com/iliyamo/tm-monitor/internal/service"
	"github.com/iliyamo/tm-monitor/internal/session"
	"github.com/iliyamo/tm-monitor/internal/transport"
	"github.com/iliyamo/tm-monitor/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "monitor:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "load environment variables from this file if it exists")
	issueToken := flags.Bool("issue-token", false, "print a dashboard token signed with DASHBOARD_JWT_SECRET and exit")
	tokenSubject := flags.String("token-subject", "dashboard", "subject of the issued token")
	tokenScopes := flags.StringSlice("token-scopes", []string{"read", router.ControlScope}, "scopes of the issued token")
	tokenTTL := flags.Duration("token-ttl", 24*time.Hour, "lifetime of the issued token")
	alertLog := flags.String("alert-log", "", "consume availability alerts from RabbitMQ and append them to this file instead of monitoring")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if *issueToken {
		if cfg.DashboardJWTSecret == "" {
			return errors.New("DASHBOARD_JWT_SECRET is not set")
		}
		tok, err := utils.NewDashboardToken(cfg.DashboardJWTSecret, *tokenSubject, *tokenScopes, *tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(tok.Token)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *alertLog != "" {
		err := queue.StartAlertConsumer(ctx, cfg.AMQPURL, cfg.AlertQueue, *alertLog, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return monitor(ctx, cfg, logger)
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Env == "dev" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func monitor(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	clk := clock.Real()
	api := backend.New(cfg.RESTURL(), &http.Client{Timeout: cfg.RequestTimeout})
	var alerter session.Alerter
	if cfg.AlertsEnabled {
		alerter = service.NewPublisher(cfg.AMQPURL, cfg.AlertQueue, logger)
	}

	sess := session.New(session.Config{
		Backoff: session.Backoff{
			Initial:     cfg.ReconnectInitialDelay,
			Max:         cfg.ReconnectMaxDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		},
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		RenderDelay:       cfg.RenderDebounce,
		NotificationCap:   cfg.NotificationCapacity,
		GroupWindow:       cfg.NotificationWindow.Seconds(),
		RequestTimeout:    cfg.RequestTimeout,
	}, session.Deps{
		Registry: registry.New(store, cfg.StateKey, clk, logger),
		NewTransport: func(sink func(transport.Event)) session.Transport {
			return transport.NewWebSocket(transport.Config{URL: cfg.StreamURL()}, sink, logger)
		},
		Backend: api,
		Alerter: alerter,
		Clock:   clk,
		Logger:  logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, handler.NewDashboardHandler(sess, api), cfg.DashboardJWTSecret)

	ctx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()
	sessionDone := make(chan error, 1)
	go func() { sessionDone <- sess.Run(ctx) }()

	serverDone := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", cfg.ListenAddr, "env", cfg.Env, "backend", cfg.BackendAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverDone:
		logger.Error("dashboard stopped", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("dashboard shutdown", "error", err)
	}
	cancelSession()
	return errors.Join(runErr, <-sessionDone)
}
