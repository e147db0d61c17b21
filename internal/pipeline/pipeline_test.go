package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chatdemo/chatdemo-go/internal/errs"
	"github.com/chatdemo/chatdemo-go/internal/prompt"
	"github.com/chatdemo/chatdemo-go/internal/provider"
)

// fakeProvider records every request and replies with a fixed text or error.
type fakeProvider struct {
	reply    string
	err      error
	requests []*provider.ChatRequest
}

func (f *fakeProvider) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.ChatResponse{
		Model:   req.Model,
		Message: provider.Message{Role: provider.RoleAssistant, Content: f.reply},
		Usage:   provider.Usage{PromptTokens: 5, CompletionTokens: 2},
	}, nil
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newChain(t *testing.T, f *fakeProvider) *Pipeline {
	t.Helper()
	p, err := Chain(prompt.Default(), f, "llama3", WithBackend("fake"), quiet())
	require.NoError(t, err)
	return p
}

func TestRunEndToEnd(t *testing.T) {
	f := &fakeProvider{reply: "Paris is the capital of France."}
	p := newChain(t, f)

	out, err := p.Run(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, "Paris is the capital of France.", out)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	require.Equal(t, "llama3", req.Model)
	require.Equal(t, []provider.Message{
		{Role: provider.RoleSystem, Content: prompt.SystemInstruction},
		{Role: provider.RoleUser, Content: "Question:What is the capital of France?"},
	}, req.Messages)
}

func TestRunUserMessageIsConcatenation(t *testing.T) {
	questions := []string{"a", "  spaced  ", "{braces}", "multi\nline", "ünïcødé ✓", ""}
	for _, q := range questions {
		f := &fakeProvider{reply: "ok"}
		_, err := newChain(t, f).Run(context.Background(), q)
		require.NoError(t, err)
		require.Equal(t, "Question:"+q, f.requests[0].Messages[1].Content, "q=%q", q)
		require.Equal(t, prompt.SystemInstruction, f.requests[0].Messages[0].Content)
	}
}

func TestRunReturnsReplyUnaltered(t *testing.T) {
	for _, reply := range []string{"R", "  padded \n", ""} {
		f := &fakeProvider{reply: reply}
		out, err := newChain(t, f).Run(context.Background(), "q")
		require.NoError(t, err)
		require.Equal(t, reply, out)
	}
}

func TestRunRenderingIsDeterministic(t *testing.T) {
	f := &fakeProvider{reply: "x"}
	p := newChain(t, f)
	for i := 0; i < 2; i++ {
		_, err := p.Run(context.Background(), "same question")
		require.NoError(t, err)
	}
	require.Equal(t, f.requests[0].Messages, f.requests[1].Messages)
}

func TestRunPropagatesBackendErrorUnmodified(t *testing.T) {
	backendErr := errs.New(errs.BackendUnavailable, "ollama request failed", errors.New("connection refused"))
	f := &fakeProvider{err: backendErr}

	_, err := newChain(t, f).Run(context.Background(), "q")
	require.Same(t, backendErr, err)
	require.Len(t, f.requests, 1, "no retry")
}

func TestChainMissingConfiguration(t *testing.T) {
	f := &fakeProvider{}
	_, err := Chain(nil, f, "m")
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
	_, err = Chain(prompt.Default(), nil, "m")
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
	_, err = Chain(prompt.Default(), f, "")
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
	require.Empty(t, f.requests)
}

func TestAskCollectsIntermediates(t *testing.T) {
	f := &fakeProvider{reply: "fine"}
	a, err := newChain(t, f).Ask(context.Background(), NewPromptRequest("how are you"))
	require.NoError(t, err)
	require.NotEmpty(t, a.RequestID)
	require.Equal(t, "fake", a.Backend)
	require.Equal(t, "llama3", a.Model)
	require.Equal(t, "fine", a.Text)
	require.Equal(t, 7, a.Usage.Total())
	require.Len(t, a.Messages, 2)
}

func TestInvokeShortCircuits(t *testing.T) {
	var calls []string
	stage := func(name string, err error) Stage {
		return StageFunc{Label: name, Fn: func(_ context.Context, in any) (any, error) {
			calls = append(calls, name)
			if err != nil {
				return nil, err
			}
			return in.(string) + name, nil
		}}
	}
	boom := errors.New("boom")

	p := New([]Stage{stage("a", nil), stage("b", boom), stage("c", nil)}, quiet())
	_, err := p.Invoke(context.Background(), "")
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"a", "b"}, calls)

	calls = nil
	out, err := New([]Stage{stage("a", nil), stage("c", nil)}).Invoke(context.Background(), ">")
	require.NoError(t, err)
	require.Equal(t, ">ac", out)
}

func TestStageTypeMismatch(t *testing.T) {
	_, err := TemplateStage{Template: prompt.Default()}.Invoke(context.Background(), "not a map")
	require.Error(t, err)
	_, err = ModelStage{Provider: &fakeProvider{}}.Invoke(context.Background(), 42)
	require.Error(t, err)
	_, err = TextParser{}.Invoke(context.Background(), 42)
	require.Error(t, err)
}

func TestModelStageWithoutProvider(t *testing.T) {
	_, err := ModelStage{}.Invoke(context.Background(), []provider.Message{})
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
}

func TestTextParserInputs(t *testing.T) {
	out, err := TextParser{}.Invoke(context.Background(), provider.Message{Content: "m"})
	require.NoError(t, err)
	require.Equal(t, "m", out)

	out, err = TextParser{}.Invoke(context.Background(), "s")
	require.NoError(t, err)
	require.Equal(t, "s", out)

	var nilResp *provider.ChatResponse
	_, err = TextParser{}.Invoke(context.Background(), nilResp)
	require.True(t, errs.Is(err, errs.BackendError))
}

func TestChainRejectsTemplateWithoutQuestion(t *testing.T) {
	tmpl, err := prompt.Parse([]byte("messages:\n  - role: user\n    template: Tell me a joke\n"))
	require.NoError(t, err)

	f := &fakeProvider{reply: "x"}
	_, err = Chain(tmpl, f, "llama3", quiet())
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
	require.Empty(t, f.requests)
}

func TestChainRejectsExtraTemplateVariables(t *testing.T) {
	tmpl, err := prompt.FromMessages(prompt.MessageTemplate{Role: "user", Template: "{topic} Question:{question}"})
	require.NoError(t, err)

	_, err = Chain(tmpl, &fakeProvider{}, "llama3", quiet())
	require.True(t, errs.Is(err, errs.ConfigurationMissing))
	require.Contains(t, err.Error(), "topic")
}

func TestChainAcceptsCustomQuestionTemplate(t *testing.T) {
	tmpl, err := prompt.Parse([]byte("messages:\n  - role: system\n    template: Be brief.\n  - role: user\n    template: \"Question:{question}\"\n"))
	require.NoError(t, err)

	f := &fakeProvider{reply: "ok"}
	p, err := Chain(tmpl, f, "llama3", quiet())
	require.NoError(t, err)
	_, err = p.Run(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, "Question:What is the capital of France?", f.requests[0].Messages[1].Content)
}
