package srv

import (
	"context"

	"github.com/jobtrail/jobtrail/pkg/ai"
	"github.com/jobtrail/jobtrail/pkg/ai/openai"
	"github.com/jobtrail/jobtrail/pkg/types"
)

type AIConfig struct {
	Token     string `toml:"token"`
	Endpoint  string `toml:"endpoint"`
	ChatModel string `toml:"chat_model"`
}

// AI fronts the configured completion provider.
type AI struct {
	provider ai.StreamProvider
}

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		s.ai = &AI{
			provider: openai.New(cfg.Token, cfg.Endpoint, ai.ModelName{ChatModel: cfg.ChatModel}),
		}
	}
}

// ApplyAIProvider injects a prebuilt provider, used by tests.
func ApplyAIProvider(provider ai.StreamProvider) ApplyFunc {
	return func(s *Srv) {
		s.ai = &AI{provider: provider}
	}
}

func (a *AI) StreamResponse(ctx context.Context, prompt string, history []*types.MessageContext, onChunk ai.OnChunkFunc) error {
	return a.provider.StreamResponse(ctx, prompt, history, onChunk)
}

func (a *AI) Query(ctx context.Context, prompt string, history []*types.MessageContext) (string, error) {
	return ai.Query(ctx, a.provider, prompt, history)
}

var _ ai.StreamProvider = (*AI)(nil)
