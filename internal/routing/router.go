package routing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chatdemo/chatdemo-go/internal/config"
	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/provider"
	"github.com/chatdemo/chatdemo-go/internal/provider/echo"
	"github.com/chatdemo/chatdemo-go/internal/provider/gemini"
	"github.com/chatdemo/chatdemo-go/internal/provider/ollama"
	"github.com/chatdemo/chatdemo-go/internal/provider/openai"
)

// Model describes a served backend.
type Model struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Label string `json:"label"`
}

// Entry is a backend together with the model identifier it is called with.
type Entry struct {
	Model
	Provider provider.Provider
}

// Router maps backend names to providers.
type Router struct {
	models    []Model
	providers map[string]provider.Provider
	defaultN  string
}

func New() *Router {
	return &Router{providers: make(map[string]provider.Provider)}
}

// Register associates a backend name with a provider implementation. The
// first registered backend becomes the default.
func (r *Router) Register(m Model, p provider.Provider) {
	if _, ok := r.providers[m.Name]; !ok {
		r.models = append(r.models, m)
	} else {
		for i := range r.models {
			if r.models[i].Name == m.Name {
				r.models[i] = m
			}
		}
	}
	r.providers[m.Name] = p
	if r.defaultN == "" {
		r.defaultN = m.Name
	}
}

// Lookup returns the entry registered under name.
func (r *Router) Lookup(name string) (Entry, bool) {
	p, ok := r.providers[name]
	if !ok {
		return Entry{}, false
	}
	for _, m := range r.models {
		if m.Name == name {
			return Entry{Model: m, Provider: p}, true
		}
	}
	return Entry{}, false
}

// Default returns the default backend entry.
func (r *Router) Default() (Entry, bool) {
	return r.Lookup(r.defaultN)
}

func (r *Router) Models() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

var labels = map[string]string{
	config.BackendOllama: "LLAMA3",
	config.BackendOpenAI: "OPENAI API",
	config.BackendGemini: "GEMINI API",
	config.BackendEcho:   "ECHO",
}

// FromConfig builds a provider for every enabled backend, default backend
// first. httpClient is shared by the HTTP backends.
func FromConfig(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*Router, error) {
	r := New()
	names := append([]string{cfg.Backend}, cfg.Backends...)
	for _, name := range names {
		if _, ok := r.providers[name]; ok {
			continue
		}
		e, err := build(ctx, cfg, name, httpClient)
		if err != nil {
			return nil, err
		}
		r.Register(e.Model, e.Provider)
	}
	return r, nil
}

func build(ctx context.Context, cfg *config.Config, name string, httpClient *http.Client) (Entry, error) {
	m := Model{Name: name, Label: labels[name]}
	switch name {
	case config.BackendOllama:
		m.Model = orDefault(cfg.Ollama.Model, ollama.DefaultModel)
		return Entry{Model: m, Provider: ollama.New(cfg.Ollama.URL, ollama.WithHTTPClient(httpClient))}, nil
	case config.BackendOpenAI:
		m.Model = orDefault(cfg.OpenAI.Model, openai.DefaultModel)
		p, err := openai.New(cfg.OpenAI.APIKey, openai.WithBaseURL(cfg.OpenAI.BaseURL), openai.WithHTTPClient(httpClient))
		if err != nil {
			return Entry{}, err
		}
		return Entry{Model: m, Provider: p}, nil
	case config.BackendGemini:
		m.Model = orDefault(cfg.Gemini.Model, gemini.DefaultModel)
		p, err := gemini.New(ctx, gemini.Config{APIKey: cfg.Gemini.APIKey, BaseURL: cfg.Gemini.BaseURL, HTTPClient: httpClient})
		if err != nil {
			return Entry{}, err
		}
		return Entry{Model: m, Provider: p}, nil
	case config.BackendEcho:
		m.Model = echo.Model
		return Entry{Model: m, Provider: echo.New()}, nil
	}
	return Entry{}, errs.New(errs.ConfigurationMissing, fmt.Sprintf("unknown backend %q", name), nil)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
