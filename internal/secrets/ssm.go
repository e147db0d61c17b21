package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/chatdemo/chatdemo-go/internal/config"
)

// ssmAPI is the minimal AWS SSM interface required by Store.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ErrNotFound is returned when a parameter does not exist.
var ErrNotFound = errors.New("secrets: parameter not found")

// Store reads API keys from SSM Parameter Store under a common prefix.
type Store struct {
	api    ssmAPI
	prefix string
}

func New(api ssmAPI, prefix string) (*Store, error) {
	if api == nil {
		return nil, errors.New("secrets: api must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("secrets: prefix must not be empty")
	}
	return &Store{api: api, prefix: prefix}, nil
}

// Get returns the decrypted value of <prefix>/<name>.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	full := s.prefix + "/" + strings.TrimLeft(name, "/")
	withDecryption := true
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &full,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secrets: get parameter %q: %w", full, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", ErrNotFound
	}
	return *out.Parameter.Value, nil
}

// Fill sets every empty API key in cfg from the store. Keys already present
// in the environment or config file win; missing parameters are skipped.
func (s *Store) Fill(ctx context.Context, cfg *config.Config) error {
	targets := []struct {
		name string
		dst  *string
	}{
		{"openai-api-key", &cfg.OpenAI.APIKey},
		{"gemini-api-key", &cfg.Gemini.APIKey},
		{"langchain-api-key", &cfg.Tracing.APIKey},
	}
	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		v, err := s.Get(ctx, t.name)
		if errors.Is(err, ErrNotFound) {
			slog.DebugContext(ctx, "secret not in parameter store", "name", t.name)
			continue
		}
		if err != nil {
			return err
		}
		*t.dst = strings.TrimSpace(v)
	}
	return nil
}
