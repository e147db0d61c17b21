package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/prompt"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

const tracerName = "github.com/chatdemo/chatdemo-go/internal/pipeline"

// PromptRequest is a single user submission.
type PromptRequest struct {
	ID       string
	Question string
}

func NewPromptRequest(question string) PromptRequest {
	return PromptRequest{ID: uuid.NewString(), Question: question}
}

// Answer is the outcome of one pipeline run.
type Answer struct {
	RequestID string
	Backend   string
	Model     string
	Text      string
	Messages  []provider.Message
	Usage     provider.Usage
	Elapsed   time.Duration
}

// Pipeline runs its stages in order and stops at the first failure. It holds
// no per-call state and may be shared between goroutines.
type Pipeline struct {
	backend string
	stages  []Stage
	tracer  trace.Tracer
	logger  *slog.Logger
}

type Option func(*Pipeline)

func WithBackend(name string) Option {
	return func(p *Pipeline) { p.backend = name }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New builds a pipeline from arbitrary stages.
func New(stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: stages,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chain builds the template → model → text pipeline. Missing pieces are
// reported as ConfigurationMissing here rather than on first use.
func Chain(tmpl *prompt.ChatTemplate, prov provider.Provider, model string, opts ...Option) (*Pipeline, error) {
	if tmpl == nil {
		return nil, errs.New(errs.ConfigurationMissing, "pipeline: prompt template is nil", nil)
	}
	if vars := tmpl.InputVariables(); len(vars) != 1 || vars[0] != prompt.QuestionVar {
		return nil, errs.New(errs.ConfigurationMissing,
			fmt.Sprintf("pipeline: template variables %q, want exactly [%q]", vars, prompt.QuestionVar), nil)
	}
	if prov == nil {
		return nil, errs.New(errs.ConfigurationMissing, "pipeline: backend is nil", nil)
	}
	if model == "" {
		return nil, errs.New(errs.ConfigurationMissing, "pipeline: model identifier is empty", nil)
	}
	return New([]Stage{
		TemplateStage{Template: tmpl},
		ModelStage{Provider: prov, Model: model},
		TextParser{},
	}, opts...), nil
}

// Invoke feeds in through every stage and returns the last output.
func (p *Pipeline) Invoke(ctx context.Context, in any) (any, error) {
	out, _, err := p.invoke(ctx, in)
	return out, err
}

func (p *Pipeline) invoke(ctx context.Context, in any) (any, []any, error) {
	outputs := make([]any, 0, len(p.stages))
	cur := in
	for _, s := range p.stages {
		sctx, span := p.tracer.Start(ctx, "pipeline.stage."+s.Name())
		out, err := s.Invoke(sctx, cur)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, outputs, err
		}
		span.End()
		outputs = append(outputs, out)
		cur = out
	}
	return cur, outputs, nil
}

// Run renders question, calls the backend and returns its text unaltered.
func (p *Pipeline) Run(ctx context.Context, question string) (string, error) {
	a, err := p.Ask(ctx, NewPromptRequest(question))
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Ask is Run with the intermediate results kept for the caller.
func (p *Pipeline) Ask(ctx context.Context, req PromptRequest) (*Answer, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("request.id", req.ID),
		attribute.String("backend", p.backend),
	))
	defer span.End()

	start := time.Now()
	out, outputs, err := p.invoke(ctx, map[string]string{prompt.QuestionVar: req.Question})
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "pipeline run failed",
			"request_id", req.ID, "backend", p.backend, "code", errs.CodeOf(err), "elapsed", elapsed, "err", err)
		return nil, err
	}
	text, ok := out.(string)
	if !ok {
		return nil, fmt.Errorf("pipeline: final stage returned %T, want string", out)
	}

	a := &Answer{RequestID: req.ID, Backend: p.backend, Text: text, Elapsed: elapsed}
	for _, o := range outputs {
		switch v := o.(type) {
		case []provider.Message:
			a.Messages = v
		case *provider.ChatResponse:
			a.Model = v.Model
			a.Usage = v.Usage
		}
	}
	span.SetAttributes(attribute.Int("usage.total_tokens", a.Usage.Total()))
	p.logger.InfoContext(ctx, "pipeline run",
		"request_id", req.ID, "backend", p.backend, "model", a.Model, "tokens", a.Usage.Total(), "elapsed", elapsed)
	return a, nil
}
