package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/chatdemo/chatdemo-go/internal/errs"
)

// Backend names.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendEcho   = "echo"
)

type Config struct {
	Address    string           `mapstructure:"address"`
	Title      string           `mapstructure:"title"`
	Backend    string           `mapstructure:"backend"`
	Backends   []string         `mapstructure:"backends"`
	PromptPath string           `mapstructure:"prompt_path"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	LogLevel   string           `mapstructure:"log_level"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	Project  string `mapstructure:"project"`
}

type SecretsConfig struct {
	SSMPrefix string `mapstructure:"ssm_prefix"`
}

type GuardrailsConfig struct {
	Banned    []string `mapstructure:"banned"`
	MaxLength int      `mapstructure:"max_length"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", ":8501")
	v.SetDefault("title", "")
	v.SetDefault("backend", BackendOllama)
	v.SetDefault("backends", []string{})
	v.SetDefault("prompt_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.api_key", "")
	v.SetDefault("tracing.endpoint", "https://api.smith.langchain.com/otel/v1/traces")
	v.SetDefault("tracing.project", "default")
	v.SetDefault("secrets.ssm_prefix", "")
	v.SetDefault("guardrails.banned", []string{})
	v.SetDefault("guardrails.max_length", 0)
}

// bindLegacyEnv keeps the variable names the original demo scripts used.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := [][]string{
		{"openai.api_key", "CHATDEMO_OPENAI_API_KEY", "OPENAI_API_KEY"},
		{"gemini.api_key", "CHATDEMO_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		{"ollama.url", "CHATDEMO_OLLAMA_URL", "OLLAMA_HOST"},
		{"tracing.api_key", "CHATDEMO_TRACING_API_KEY", "LANGCHAIN_API_KEY"},
		{"tracing.enabled", "CHATDEMO_TRACING_ENABLED", "LANGCHAIN_TRACING_V2"},
		{"tracing.project", "CHATDEMO_TRACING_PROJECT", "LANGCHAIN_PROJECT"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return err
		}
	}
	return nil
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// allow environment variables like CHATDEMO_ADDRESS
	v.SetEnvPrefix("CHATDEMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.normalize()
	return &c, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	var enabled []string
	seen := map[string]bool{}
	for _, b := range c.Backends {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		enabled = append(enabled, b)
	}
	if c.Backend != "" && !seen[c.Backend] {
		enabled = append([]string{c.Backend}, enabled...)
	}
	c.Backends = enabled
}

// Enabled reports whether the named backend is served.
func (c *Config) Enabled(name string) bool {
	for _, b := range c.Backends {
		if b == name {
			return true
		}
	}
	return false
}

// Validate checks that every enabled backend has what it needs. It runs
// after secrets are resolved and before anything is constructed.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return errs.New(errs.ConfigurationMissing, "backend is not set", nil)
	}
	for _, b := range append([]string{c.Backend}, c.Backends...) {
		switch b {
		case BackendOllama, BackendEcho:
		case BackendOpenAI:
			if strings.TrimSpace(c.OpenAI.APIKey) == "" {
				return errs.New(errs.ConfigurationMissing, "openai.api_key (OPENAI_API_KEY) is not set", nil)
			}
		case BackendGemini:
			if strings.TrimSpace(c.Gemini.APIKey) == "" {
				return errs.New(errs.ConfigurationMissing, "gemini.api_key (GEMINI_API_KEY) is not set", nil)
			}
		default:
			return errs.New(errs.ConfigurationMissing, fmt.Sprintf("unknown backend %q", b), nil)
		}
	}
	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.APIKey) == "" {
		return errs.New(errs.ConfigurationMissing, "tracing.api_key (LANGCHAIN_API_KEY) is not set", nil)
	}
	return nil
}
