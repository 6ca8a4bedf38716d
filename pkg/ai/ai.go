package ai

import (
	"context"
	"errors"

	"github.com/jobtrail/jobtrail/pkg/types"
)

type StreamChunkType string

const (
	STREAM_CHUNK_TOKEN    StreamChunkType = "token"
	STREAM_CHUNK_COMPLETE StreamChunkType = "complete"
	STREAM_CHUNK_ERROR    StreamChunkType = "error"
)

// StreamChunk is one unit of a completion stream. TOKEN carries a text delta,
// COMPLETE and ERROR are terminal and carry no content.
type StreamChunk struct {
	Type    StreamChunkType
	Content string
}

// OnChunkFunc receives chunks in order on a single goroutine. Returning an
// error aborts the stream.
type OnChunkFunc func(chunk StreamChunk) error

type ModelName struct {
	ChatModel string
}

// StreamProvider generates an assistant reply for prompt given the prior
// history and delivers it incrementally. The call returns after the terminal
// chunk has been delivered or the callback aborted.
type StreamProvider interface {
	StreamResponse(ctx context.Context, prompt string, history []*types.MessageContext, onChunk OnChunkFunc) error
}

// Query is a single-shot variant used by the document chat, built on top of
// the same streaming entry. A stream that ends with an error chunk fails the
// whole call, partial output is discarded.
func Query(ctx context.Context, provider StreamProvider, prompt string, history []*types.MessageContext) (string, error) {
	var (
		buf       []byte
		streamErr error
	)
	err := provider.StreamResponse(ctx, prompt, history, func(chunk StreamChunk) error {
		switch chunk.Type {
		case STREAM_CHUNK_TOKEN:
			buf = append(buf, chunk.Content...)
		case STREAM_CHUNK_ERROR:
			streamErr = errStreamFailed
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if streamErr != nil {
		return "", streamErr
	}
	return string(buf), nil
}

var errStreamFailed = errors.New("completion stream failed")
