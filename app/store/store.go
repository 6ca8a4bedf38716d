package store

import (
	"context"

	"github.com/jobtrail/jobtrail/pkg/sqlstore"
	"github.com/jobtrail/jobtrail/pkg/types"
)

type ChatSessionStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.ChatSession) error
	GetChatSession(ctx context.Context, sessionID string) (*types.ChatSession, error)
	GetUserChatSession(ctx context.Context, userID, sessionID string) (*types.ChatSession, error)
	UpdateSessionTitle(ctx context.Context, sessionID string, title string) error
	UpdateSessionAccessTime(ctx context.Context, sessionID string) error
	List(ctx context.Context, userID string, page, pageSize uint64) ([]types.ChatSession, error)
	Total(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, sessionID string) error
}

type ChatMessageStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data *types.ChatMessage) error
	GetOne(ctx context.Context, id string) (*types.ChatMessage, error)
	RewriteMessage(ctx context.Context, sessionID, id string, message string, complete types.MessageProgress) error
	UpdateMessageCompleteStatus(ctx context.Context, sessionID, id string, complete types.MessageProgress) error
	ListSessionMessage(ctx context.Context, sessionID string, page, pageSize uint64) ([]*types.ChatMessage, error)
	TotalSessionMessage(ctx context.Context, sessionID string) (int64, error)
	DeleteSessionMessage(ctx context.Context, sessionID string) error
}

type DocumentStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	GetUserDocument(ctx context.Context, userID, id string, docType types.ResourceType) (*types.Document, error)
	Delete(ctx context.Context, id string) error
}

// Store is the persistence surface the logic layer depends on.
type Store interface {
	ChatSessionStore() ChatSessionStore
	ChatMessageStore() ChatMessageStore
	DocumentStore() DocumentStore
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
