package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chatdemo/chatdemo-go/internal/config"
	"github.com/chatdemo/chatdemo-go/internal/observability"
	"github.com/chatdemo/chatdemo-go/internal/prompt"
	"github.com/chatdemo/chatdemo-go/internal/routing"
	"github.com/chatdemo/chatdemo-go/internal/secrets"
	"github.com/chatdemo/chatdemo-go/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.Secrets.SSMPrefix != "" {
		if err := fillSecrets(ctx, cfg); err != nil {
			fatal("failed to read secrets", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	shutdown, err := observability.Setup(ctx, cfg.Tracing)
	if err != nil {
		fatal("failed to set up tracing", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("tracer shutdown", "err", err)
		}
	}()

	tmpl := prompt.Default()
	if cfg.PromptPath != "" {
		if tmpl, err = prompt.Load(cfg.PromptPath); err != nil {
			fatal("failed to load prompt template", err)
		}
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	rt, err := routing.FromConfig(ctx, cfg, httpClient)
	if err != nil {
		fatal("failed to build backends", err)
	}

	srv, err := server.New(cfg, rt, tmpl, logger)
	if err != nil {
		fatal("failed to create server", err)
	}
	if err := srv.Start(ctx); err != nil {
		fatal("server error", err)
	}
}

func fillSecrets(ctx context.Context, cfg *config.Config) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	store, err := secrets.New(awsssm.NewFromConfig(awsCfg), cfg.Secrets.SSMPrefix)
	if err != nil {
		return err
	}
	return store.Fill(ctx, cfg)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
