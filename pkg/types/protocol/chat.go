package protocol

import (
	"fmt"

	"github.com/jobtrail/jobtrail/pkg/types"
)

// ChatAction is the closed set of client intents on the chat socket. Anything
// outside the set parses to ACTION_UNKNOWN and is dropped without a reply so
// that older/newer clients do not break the connection.
type ChatAction string

const (
	ACTION_CHAT_INIT    ChatAction = "chat:init"
	ACTION_CHAT_MESSAGE ChatAction = "chat:message"
	ACTION_CHAT_CLEAR   ChatAction = "chat:clear"
	ACTION_CHAT_SWITCH  ChatAction = "chat:switch"
	ACTION_UNKNOWN      ChatAction = ""
)

func ParseChatAction(raw string) ChatAction {
	switch ChatAction(raw) {
	case ACTION_CHAT_INIT, ACTION_CHAT_MESSAGE, ACTION_CHAT_CLEAR, ACTION_CHAT_SWITCH:
		return ChatAction(raw)
	default:
		return ACTION_UNKNOWN
	}
}

type ChatEventType string

const (
	EVENT_CHAT_TOKEN    ChatEventType = "chat:token"
	EVENT_CHAT_COMPLETE ChatEventType = "chat:complete"
	EVENT_CHAT_ERROR    ChatEventType = "chat:error"
	EVENT_CHAT_SESSION  ChatEventType = "chat:session"
)

// ChatRequest is the inbound envelope of the chat socket.
type ChatRequest struct {
	Action    string `json:"action"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ChatResponse is the outbound envelope. SessionID is omitted when empty so a
// session-less state serializes with no sessionId field at all.
type ChatResponse struct {
	Type      ChatEventType    `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	MessageID string           `json:"messageId,omitempty"`
	Content   string           `json:"content,omitempty"`
	Title     string           `json:"title,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

type HistoryMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp int64  `json:"timestamp"`
}

func NewChatError(message string) ChatResponse {
	return ChatResponse{
		Type:    EVENT_CHAT_ERROR,
		Content: message,
	}
}

// NewEmptySessionState is the session-less chat:session payload sent after
// chat:clear and as the chat:init fallback.
func NewEmptySessionState() ChatResponse {
	return ChatResponse{
		Type:     EVENT_CHAT_SESSION,
		Title:    types.DEFAULT_SESSION_TITLE,
		Messages: []HistoryMessage{},
	}
}

// GenChatStreamLockKey is the cache key guarding one in-flight generation per
// session.
func GenChatStreamLockKey(sessionID string) string {
	return fmt.Sprintf("chat:stream:lock:%s", sessionID)
}
