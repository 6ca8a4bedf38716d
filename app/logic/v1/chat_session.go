package v1

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jobtrail/jobtrail/app/core"
	"github.com/jobtrail/jobtrail/app/store"
	"github.com/jobtrail/jobtrail/pkg/errors"
	"github.com/jobtrail/jobtrail/pkg/i18n"
	"github.com/jobtrail/jobtrail/pkg/types"
	"github.com/jobtrail/jobtrail/pkg/utils"
)

// ChatSessionLogic turns chat intents into session store operations. It
// performs no retries, a failed store call surfaces to the caller.
type ChatSessionLogic struct {
	ctx   context.Context
	store store.Store
}

func NewChatSessionLogic(ctx context.Context, core *core.Core) *ChatSessionLogic {
	return NewChatSessionLogicWithStore(ctx, core.Store())
}

func NewChatSessionLogicWithStore(ctx context.Context, s store.Store) *ChatSessionLogic {
	return &ChatSessionLogic{
		ctx:   ctx,
		store: s,
	}
}

func (l *ChatSessionLogic) CreateSession(userID string) (*types.ChatSession, error) {
	session := types.ChatSession{
		ID:           utils.GenSpecIDStr(),
		UserID:       userID,
		ResourceType: types.RESOURCE_TYPE_NONE,
		Title:        types.DEFAULT_SESSION_TITLE,
		CreatedAt:    time.Now().Unix(),
		UpdatedAt:    time.Now().Unix(),
	}

	if err := l.store.ChatSessionStore().Create(l.ctx, session); err != nil {
		return nil, errors.New("ChatSessionLogic.CreateSession.ChatSessionStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return &session, nil
}

// GetUserSession resolves a session owned by userID. An absent session and a
// foreign session are indistinguishable to the caller, both come back as
// NotFound.
func (l *ChatSessionLogic) GetUserSession(userID, sessionID string) (*types.ChatSession, error) {
	session, err := l.store.ChatSessionStore().GetUserChatSession(l.ctx, userID, sessionID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ChatSessionLogic.GetUserSession.ChatSessionStore.GetUserChatSession", i18n.ERROR_INTERNAL, err)
	}
	if session == nil {
		return nil, errors.New("ChatSessionLogic.GetUserSession.notfound", i18n.ERROR_CHAT_SESSION_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	return session, nil
}

// GetSession resolves a session without checking ownership. chat:switch
// relies on this behavior, see the handler.
func (l *ChatSessionLogic) GetSession(sessionID string) (*types.ChatSession, error) {
	session, err := l.store.ChatSessionStore().GetChatSession(l.ctx, sessionID)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ChatSessionLogic.GetSession.ChatSessionStore.GetChatSession", i18n.ERROR_INTERNAL, err)
	}
	if session == nil {
		return nil, errors.New("ChatSessionLogic.GetSession.notfound", i18n.ERROR_CHAT_SESSION_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	return session, nil
}

func (l *ChatSessionLogic) AddMessage(sessionID, userID string, role types.MessageUserRole, content string) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{
		ID:        utils.GenSpecIDStr(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Message:   content,
		SendTime:  time.Now().Unix(),
		Complete:  types.MESSAGE_PROGRESS_COMPLETE,
	}

	if err := l.store.ChatMessageStore().Create(l.ctx, msg); err != nil {
		return nil, errors.New("ChatSessionLogic.AddMessage.ChatMessageStore.Create", i18n.ERROR_INTERNAL, err)
	}

	if err := l.store.ChatSessionStore().UpdateSessionAccessTime(l.ctx, sessionID); err != nil {
		return nil, errors.New("ChatSessionLogic.AddMessage.ChatSessionStore.UpdateSessionAccessTime", i18n.ERROR_INTERNAL, err)
	}
	return msg, nil
}

// CreateAIMessagePlaceholder appends an empty assistant message in the
// GENERATING state. The streaming loop rewrites it with cumulative content.
func (l *ChatSessionLogic) CreateAIMessagePlaceholder(sessionID, userID string) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{
		ID:        utils.GenSpecIDStr(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      types.USER_ROLE_ASSISTANT,
		Message:   "",
		SendTime:  time.Now().Unix(),
		Complete:  types.MESSAGE_PROGRESS_GENERATING,
	}

	if err := l.store.ChatMessageStore().Create(l.ctx, msg); err != nil {
		return nil, errors.New("ChatSessionLogic.CreateAIMessagePlaceholder.ChatMessageStore.Create", i18n.ERROR_INTERNAL, err)
	}
	return msg, nil
}

// UpdateAIMessage replaces the placeholder's whole content with the
// accumulated stream output. It never marks the message complete.
func (l *ChatSessionLogic) UpdateAIMessage(sessionID, messageID, content string) error {
	if err := l.store.ChatMessageStore().RewriteMessage(l.ctx, sessionID, messageID, content, types.MESSAGE_PROGRESS_GENERATING); err != nil {
		return errors.New("ChatSessionLogic.UpdateAIMessage.ChatMessageStore.RewriteMessage", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// FinalizeAIMessage writes the final content and flips the message to
// COMPLETE. Safe to call more than once, the rewrite is a plain overwrite
// with the same values.
func (l *ChatSessionLogic) FinalizeAIMessage(sessionID, messageID, content string) error {
	if err := l.store.ChatMessageStore().RewriteMessage(l.ctx, sessionID, messageID, content, types.MESSAGE_PROGRESS_COMPLETE); err != nil {
		return errors.New("ChatSessionLogic.FinalizeAIMessage.ChatMessageStore.RewriteMessage", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

// FailAIMessage marks a broken stream's placeholder. The partial content
// already persisted is kept.
func (l *ChatSessionLogic) FailAIMessage(sessionID, messageID string) error {
	if err := l.store.ChatMessageStore().UpdateMessageCompleteStatus(l.ctx, sessionID, messageID, types.MESSAGE_PROGRESS_FAILED); err != nil {
		return errors.New("ChatSessionLogic.FailAIMessage.ChatMessageStore.UpdateMessageCompleteStatus", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

func (l *ChatSessionLogic) ListSessionMessages(sessionID string, page, pageSize uint64) ([]*types.ChatMessage, error) {
	msgs, err := l.store.ChatMessageStore().ListSessionMessage(l.ctx, sessionID, page, pageSize)
	if err != nil {
		return nil, errors.New("ChatSessionLogic.ListSessionMessages.ChatMessageStore.ListSessionMessage", i18n.ERROR_INTERNAL, err)
	}
	return msgs, nil
}

func (l *ChatSessionLogic) ListSessions(userID string, page, pageSize uint64) ([]types.ChatSession, int64, error) {
	sessions, err := l.store.ChatSessionStore().List(l.ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, errors.New("ChatSessionLogic.ListSessions.ChatSessionStore.List", i18n.ERROR_INTERNAL, err)
	}

	total, err := l.store.ChatSessionStore().Total(l.ctx, userID)
	if err != nil {
		return nil, 0, errors.New("ChatSessionLogic.ListSessions.ChatSessionStore.Total", i18n.ERROR_INTERNAL, err)
	}
	return sessions, total, nil
}

// DeleteSession removes the session and all of its messages in one
// transaction. Deleting an absent session is a no-op.
func (l *ChatSessionLogic) DeleteSession(sessionID string) error {
	return l.store.Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.store.ChatSessionStore().Delete(ctx, sessionID); err != nil {
			return errors.New("ChatSessionLogic.DeleteSession.ChatSessionStore.Delete", i18n.ERROR_INTERNAL, err)
		}

		if err := l.store.ChatMessageStore().DeleteSessionMessage(ctx, sessionID); err != nil {
			return errors.New("ChatSessionLogic.DeleteSession.ChatMessageStore.DeleteSessionMessage", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
}
