package echo

import (
	"context"

	"github.com/chatdemo/chatdemo-go/internal/provider"
)

// Model is the identifier the echo backend reports.
const Model = "echo"

// Provider responds by echoing the last user message. It never touches the
// network, which makes it the backend of choice for demos without a model.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = Model
	}
	return &provider.ChatResponse{
		Model:   model,
		Message: provider.Message{Role: provider.RoleAssistant, Content: "Echo: " + provider.LastUser(req.Messages)},
	}, nil
}
