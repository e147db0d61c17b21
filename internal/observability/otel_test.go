package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatdemo/chatdemo-go/internal/config"
	"github.com/chatdemo/chatdemo-go/internal/errs"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupRequiresKey(t *testing.T) {
	_, err := Setup(context.Background(), config.TracingConfig{Enabled: true})
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
}

func TestSetupInvalidEndpoint(t *testing.T) {
	_, err := Setup(context.Background(), config.TracingConfig{Enabled: true, APIKey: "k", Endpoint: "not a url"})
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
}

func TestParseEndpoint(t *testing.T) {
	ep, err := parseEndpoint("https://api.smith.langchain.com/otel/v1/traces")
	require.NoError(t, err)
	require.Equal(t, endpoint{host: "api.smith.langchain.com", path: "/otel/v1/traces"}, ep)

	ep, err = parseEndpoint("http://localhost:4318")
	require.NoError(t, err)
	require.Equal(t, endpoint{host: "localhost:4318", path: "/v1/traces", insecure: true}, ep)
}

func TestHeaders(t *testing.T) {
	require.Equal(t, map[string]string{"x-api-key": "k", "Langsmith-Project": "demo"},
		headers(config.TracingConfig{APIKey: "k", Project: "demo"}))
	require.Equal(t, map[string]string{"x-api-key": "k"}, headers(config.TracingConfig{APIKey: "k"}))
}
