package v1

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/samber/lo"

	"github.com/jobtrail/jobtrail/pkg/types"
)

const DEFAULT_CONTEXT_TOKEN_BUDGET = 4096

var (
	tokenEncodingOnce sync.Once
	tokenEncoding     *tiktoken.Tiktoken
)

// countTokens measures content with the cl100k_base encoding. When the
// encoding cannot be loaded it falls back to a rune-based estimate so the
// window still bounds the context.
func countTokens(content string) int {
	tokenEncodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			slog.Error("failed to load token encoding, falling back to rune estimate", slog.String("error", err.Error()))
			return
		}
		tokenEncoding = enc
	})

	if tokenEncoding == nil {
		return utf8.RuneCountInString(content)/4 + 1
	}
	return len(tokenEncoding.Encode(content, nil, nil))
}

// buildChatContext turns stored messages into a provider context bounded by a
// token budget. Retention works backwards from the newest message, the result
// stays in chronological order. countFn is the token measure, nil means
// cl100k_base.
func buildChatContext(messages []*types.ChatMessage, budget int, countFn func(string) int) []*types.MessageContext {
	if budget <= 0 {
		budget = DEFAULT_CONTEXT_TOKEN_BUDGET
	}
	if countFn == nil {
		countFn = countTokens
	}

	start := len(messages)
	remain := budget
	for i := len(messages) - 1; i >= 0; i-- {
		cost := countFn(messages[i].Message)
		if cost > remain {
			break
		}
		remain -= cost
		start = i
	}

	// Never send an empty context while history exists: keep at least the
	// newest message even when it alone exceeds the budget.
	if start == len(messages) && len(messages) > 0 {
		start = len(messages) - 1
	}

	return lo.Map(messages[start:], func(item *types.ChatMessage, _ int) *types.MessageContext {
		return &types.MessageContext{
			Role:    item.Role,
			Content: item.Message,
		}
	})
}
