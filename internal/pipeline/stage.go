package pipeline

import (
	"context"
	"fmt"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/prompt"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

// Stage is one step of a pipeline. Each stage receives the previous stage's
// output.
type Stage interface {
	Name() string
	Invoke(ctx context.Context, in any) (any, error)
}

// StageFunc adapts a function to a Stage.
type StageFunc struct {
	Label string
	Fn    func(ctx context.Context, in any) (any, error)
}

func (s StageFunc) Name() string { return s.Label }

func (s StageFunc) Invoke(ctx context.Context, in any) (any, error) { return s.Fn(ctx, in) }

// TemplateStage renders a map of variables into a message sequence.
type TemplateStage struct {
	Template *prompt.ChatTemplate
}

func (TemplateStage) Name() string { return "prompt" }

func (s TemplateStage) Invoke(_ context.Context, in any) (any, error) {
	vars, ok := in.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("prompt: expected map[string]string, got %T", in)
	}
	return s.Template.Format(vars)
}

// ModelStage submits a message sequence to a backend.
type ModelStage struct {
	Provider provider.Provider
	Model    string
}

func (ModelStage) Name() string { return "model" }

func (s ModelStage) Invoke(ctx context.Context, in any) (any, error) {
	msgs, ok := in.([]provider.Message)
	if !ok {
		return nil, fmt.Errorf("model: expected []provider.Message, got %T", in)
	}
	if s.Provider == nil {
		return nil, errs.New(errs.ConfigurationMissing, "model: no backend configured", nil)
	}
	return s.Provider.Chat(ctx, &provider.ChatRequest{Model: s.Model, Messages: msgs})
}

// TextParser reduces a backend reply to its text content, unaltered.
type TextParser struct{}

func (TextParser) Name() string { return "text" }

func (TextParser) Invoke(_ context.Context, in any) (any, error) {
	switch v := in.(type) {
	case *provider.ChatResponse:
		if v == nil {
			return nil, errs.New(errs.BackendError, "text: backend returned no response", nil)
		}
		return v.Message.Content, nil
	case provider.Message:
		return v.Content, nil
	case string:
		return v, nil
	}
	return nil, fmt.Errorf("text: unsupported input %T", in)
}
