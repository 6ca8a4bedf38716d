package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/jobtrail/jobtrail/pkg/ai"
	"github.com/jobtrail/jobtrail/pkg/types"
)

const (
	NAME = "openai"
)

type Driver struct {
	client *openai.Client
	model  ai.ModelName
}

func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	if model.ChatModel == "" {
		model.ChatModel = openai.GPT4oMini
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// StreamResponse opens a completion stream and forwards each delta to onChunk.
// Exactly one terminal chunk is delivered: COMPLETE on a clean EOF, ERROR when
// the stream breaks mid-flight. A create failure is returned directly, no
// chunk is emitted for it.
func (s *Driver) StreamResponse(ctx context.Context, prompt string, history []*types.MessageContext, onChunk ai.OnChunkFunc) error {
	messages := lo.Map(history, func(item *types.MessageContext, _ int) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{
			Role:    item.Role.String(),
			Content: item.Content,
		}
	})
	if prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    s.model.ChatModel,
		Stream:   true,
		Messages: messages,
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("Completion error: %w", err)
	}
	defer stream.Close()

	slog.Debug("Query", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return onChunk(ai.StreamChunk{Type: ai.STREAM_CHUNK_COMPLETE})
		}
		if err != nil {
			slog.Error("completion stream broken", slog.String("driver", NAME), slog.String("error", err.Error()))
			return onChunk(ai.StreamChunk{Type: ai.STREAM_CHUNK_ERROR})
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onChunk(ai.StreamChunk{Type: ai.STREAM_CHUNK_TOKEN, Content: delta}); err != nil {
			return err
		}
	}
}

var _ ai.StreamProvider = (*Driver)(nil)
