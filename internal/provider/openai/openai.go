package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
)

// Provider is a minimal OpenAI Chat Completions client.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type Option func(*Provider)

func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		if s := strings.TrimSpace(baseURL); s != "" {
			p.baseURL = s
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New returns a Provider authenticating with apiKey. An empty key is
// rejected with ConfigurationMissing.
func New(apiKey string, opts ...Option) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errs.New(errs.ConfigurationMissing, "openai: API key not set", nil)
	}
	p := &Provider{apiKey: apiKey, baseURL: DefaultBaseURL, client: http.DefaultClient}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index   int              `json:"index"`
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errs.New(errs.ConfigurationMissing, "openai: API key not set", nil)
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	url := chatURL(p.baseURL)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	status, raw, err := provider.PostJSON(ctx, p.client, "openai", url, header, chatRequest{
		Model:    model,
		Messages: req.Messages,
	})
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		se := &provider.StatusError{StatusCode: status, URL: url, Body: string(raw)}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != nil && er.Error.Message != "" {
			return nil, errs.New(errs.BackendError, "openai: "+er.Error.Message, se)
		}
		return nil, errs.New(errs.BackendUnavailable, "openai: unexpected status", se)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errs.New(errs.BackendUnavailable, "openai: decode response", err)
	}
	if len(out.Choices) == 0 {
		return nil, errs.New(errs.BackendError, "openai: no choices in response", nil)
	}
	if out.Model == "" {
		out.Model = model
	}
	return &provider.ChatResponse{
		Model:   out.Model,
		Message: out.Choices[0].Message,
		Usage: provider.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}, nil
}
