package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

func TestNewMissingKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
}

func TestChatUninitialized(t *testing.T) {
	_, err := (&Provider{}).Chat(context.Background(), &provider.ChatRequest{})
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
}

func TestContentsSplitsSystemInstruction(t *testing.T) {
	system, turns := contents([]provider.Message{
		{Role: provider.RoleSystem, Content: "You are a helpful assistant."},
		{Role: provider.RoleUser, Content: "Question:hi"},
		{Role: provider.RoleAssistant, Content: "hello"},
	})
	require.NotNil(t, system)
	require.Equal(t, "You are a helpful assistant.", system.Parts[0].Text)
	require.Len(t, turns, 2)
	require.Equal(t, string(genai.RoleUser), turns[0].Role)
	require.Equal(t, "Question:hi", turns[0].Parts[0].Text)
	require.Equal(t, string(genai.RoleModel), turns[1].Role)
}

func TestContentsWithoutSystem(t *testing.T) {
	system, turns := contents([]provider.Message{{Role: provider.RoleUser, Content: "x"}})
	require.Nil(t, system)
	require.Len(t, turns, 1)
}

func TestChatAgainstFakeServer(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"Paris is the capital of France."}]}}],
			"usageMetadata":{"promptTokenCount":11,"candidatesTokenCount":7}
		}`))
	}))
	defer srv.Close()

	p, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "sys"},
			{Role: provider.RoleUser, Content: "Question:What is the capital of France?"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Paris is the capital of France.", resp.Message.Content)
	require.Equal(t, 18, resp.Usage.Total())
	require.True(t, strings.HasSuffix(path, DefaultModel+":generateContent"), path)
}

func TestClassify(t *testing.T) {
	transport := &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}
	require.True(t, errs.Is(classify(transport), errs.BackendUnavailable))
	require.True(t, errs.Is(classify(context.Canceled), errs.BackendUnavailable))
	require.True(t, errs.Is(classify(errors.New("Error 400, Message: API key not valid")), errs.BackendError))
}
