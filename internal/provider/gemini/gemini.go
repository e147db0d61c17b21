package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

const DefaultModel = "gemini-2.5-flash"

// Provider calls the Gemini API through the Google GenAI SDK.
type Provider struct {
	client *genai.Client
}

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a Gemini API client. An empty key is rejected with
// ConfigurationMissing before the SDK is touched.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errs.New(errs.ConfigurationMissing, "gemini: API key not set", nil)
	}
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errs.New(errs.ConfigurationMissing, "gemini: create client", err)
	}
	return &Provider{client: c}, nil
}

// contents splits the message sequence into the system instruction and the
// conversation turns the SDK expects.
func contents(msgs []provider.Message) (*genai.Content, []*genai.Content) {
	var (
		system []string
		turns  []*genai.Content
	)
	for _, m := range msgs {
		switch m.Role {
		case provider.RoleSystem:
			system = append(system, m.Content)
		case provider.RoleAssistant:
			turns = append(turns, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			turns = append(turns, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, turns
	}
	return genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser), turns
}

func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if p.client == nil {
		return nil, errs.New(errs.ConfigurationMissing, "gemini: client not initialized", nil)
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	system, turns := contents(req.Messages)
	var gc *genai.GenerateContentConfig
	if system != nil {
		gc = &genai.GenerateContentConfig{SystemInstruction: system}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, turns, gc)
	if err != nil {
		return nil, classify(err)
	}

	out := &provider.ChatResponse{
		Model:   model,
		Message: provider.Message{Role: provider.RoleAssistant, Content: resp.Text()},
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
		}
	}
	return out, nil
}

// classify separates transport failures from errors the API reported.
func classify(err error) error {
	var (
		ue *url.Error
		ne net.Error
	)
	if errors.As(err, &ue) || errors.As(err, &ne) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.New(errs.BackendUnavailable, "gemini request failed", err)
	}
	return errs.New(errs.BackendError, "gemini: generate content", err)
}
