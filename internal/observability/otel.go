package observability

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/chatdemo/chatdemo-go/internal/config"
	"github.com/chatdemo/chatdemo-go/internal/errs"
)

const ServiceName = "chatdemo"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a global OTLP/HTTP tracer provider when tracing is enabled.
// Headers follow LangSmith's OTLP ingestion (x-api-key, Langsmith-Project).
func Setup(ctx context.Context, cfg config.TracingConfig) (Shutdown, error) {
	if !cfg.Enabled {
		return noop, nil
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errs.New(errs.ConfigurationMissing, "tracing enabled without an API key", nil)
	}
	ep, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(ep.host),
		otlptracehttp.WithURLPath(ep.path),
		otlptracehttp.WithHeaders(headers(cfg)),
	}
	if ep.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: create OTLP exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

type endpoint struct {
	host     string
	path     string
	insecure bool
}

func parseEndpoint(raw string) (endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return endpoint{}, errs.New(errs.ConfigurationMissing, fmt.Sprintf("invalid tracing endpoint %q", raw), err)
	}
	path := u.Path
	if path == "" || path == "/" {
		path = "/v1/traces"
	}
	return endpoint{host: u.Host, path: path, insecure: u.Scheme == "http"}, nil
}

func headers(cfg config.TracingConfig) map[string]string {
	h := map[string]string{"x-api-key": cfg.APIKey}
	if cfg.Project != "" {
		h["Langsmith-Project"] = cfg.Project
	}
	return h
}
