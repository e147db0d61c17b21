package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

const (
	// DefaultBaseURL is the default base URL for a local Ollama server.
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
)

// Provider talks to the Ollama /api/chat endpoint.
type Provider struct {
	baseURL string
	client  *http.Client
}

type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New returns a Provider for the Ollama server at baseURL. If baseURL is
// empty, DefaultBaseURL is used. A bare host:port (as in OLLAMA_HOST) gets an
// http:// scheme.
func New(baseURL string, opts ...Option) *Provider {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if u == "" {
		u = DefaultBaseURL
	}
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	p := &Provider{baseURL: u, client: http.DefaultClient}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
}

type chatResponse struct {
	Model           string           `json:"model"`
	Message         provider.Message `json:"message"`
	Done            bool             `json:"done"`
	PromptEvalCount int              `json:"prompt_eval_count"`
	EvalCount       int              `json:"eval_count"`
	Error           string           `json:"error"`
}

func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	url := p.baseURL + "/api/chat"
	status, raw, err := provider.PostJSON(ctx, p.client, "ollama", url, nil, chatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
	})
	if err != nil {
		return nil, err
	}

	var out chatResponse
	decErr := json.Unmarshal(raw, &out)
	if status < 200 || status >= 300 {
		se := &provider.StatusError{StatusCode: status, URL: url, Body: string(raw)}
		if decErr == nil && out.Error != "" {
			return nil, errs.New(errs.BackendError, "ollama: "+out.Error, se)
		}
		return nil, errs.New(errs.BackendUnavailable, "ollama: unexpected status", se)
	}
	if decErr != nil {
		return nil, errs.New(errs.BackendUnavailable, "ollama: decode response", decErr)
	}
	if out.Error != "" {
		return nil, errs.New(errs.BackendError, "ollama: "+out.Error, nil)
	}
	if out.Model == "" {
		out.Model = model
	}
	return &provider.ChatResponse{
		Model:   out.Model,
		Message: out.Message,
		Usage:   provider.Usage{PromptTokens: out.PromptEvalCount, CompletionTokens: out.EvalCount},
	}, nil
}
