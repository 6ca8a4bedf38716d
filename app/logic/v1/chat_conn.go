package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/jobtrail/jobtrail/app/core"
	"github.com/jobtrail/jobtrail/pkg/ai"
	"github.com/jobtrail/jobtrail/pkg/errors"
	"github.com/jobtrail/jobtrail/pkg/i18n"
	"github.com/jobtrail/jobtrail/pkg/safe"
	"github.com/jobtrail/jobtrail/pkg/types"
	"github.com/jobtrail/jobtrail/pkg/types/protocol"
)

// Sender delivers outbound envelopes to one client. Implementations serialize
// writes; a send after the socket closed returns an error which the handler
// swallows.
type Sender interface {
	Send(resp protocol.ChatResponse) error
}

// ConnectionState is owned exclusively by the connection's goroutines, never
// shared across connections.
type ConnectionState struct {
	UserID    string
	SessionID string
}

const streamLockTTL = time.Minute * 5

var locales = i18n.NewLocalizer("en", "zh-CN")

// ChatConnection is the per-socket state machine over chat:init /
// chat:message / chat:clear / chat:switch.
type ChatConnection struct {
	ctx      context.Context
	logic    *ChatSessionLogic
	provider ai.StreamProvider
	cache    types.Cache
	sender   Sender
	lang     string

	state         ConnectionState
	inFlight      atomic.Bool
	tokenBudget   int
	streamTimeout time.Duration
	countTokensFn func(string) int
	metrics       *core.Metrics
}

func NewChatConnection(ctx context.Context, c *core.Core, sender Sender, lang string) *ChatConnection {
	conn := newChatConnection(
		ctx,
		NewChatSessionLogic(ctx, c),
		c.Srv().AI(),
		c.Cache(),
		sender,
		lang,
		c.Cfg().Chat.ContextTokenBudget,
		time.Duration(c.Cfg().Chat.StreamTimeout)*time.Second,
	)
	conn.metrics = c.Metrics()
	return conn
}

func newChatConnection(ctx context.Context, logic *ChatSessionLogic, provider ai.StreamProvider, cache types.Cache, sender Sender, lang string, tokenBudget int, streamTimeout time.Duration) *ChatConnection {
	if !i18n.ALLOW_LANG[lang] {
		lang = i18n.DEFAULT_LANG
	}
	return &ChatConnection{
		ctx:           ctx,
		logic:         logic,
		provider:      provider,
		cache:         cache,
		sender:        sender,
		lang:          lang,
		tokenBudget:   tokenBudget,
		streamTimeout: streamTimeout,
	}
}

func (c *ChatConnection) State() ConnectionState {
	return c.state
}

// HandleRaw dispatches one inbound frame. Malformed JSON and unknown actions
// are logged and dropped without a reply, the connection stays open.
func (c *ChatConnection) HandleRaw(raw []byte) {
	var req protocol.ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("dropping malformed chat frame", slog.String("error", err.Error()))
		return
	}

	switch protocol.ParseChatAction(req.Action) {
	case protocol.ACTION_CHAT_INIT:
		c.handleInit(req)
	case protocol.ACTION_CHAT_MESSAGE:
		c.handleMessage(req)
	case protocol.ACTION_CHAT_CLEAR:
		c.handleClear(req)
	case protocol.ACTION_CHAT_SWITCH:
		c.handleSwitch(req)
	default:
		slog.Warn("dropping unknown chat action", slog.String("action", req.Action))
	}
}

// handleInit binds the connection to a user and optionally restores a
// session. A sessionId that does not resolve to one of the user's own
// sessions falls back to the session-less state instead of erroring.
func (c *ChatConnection) handleInit(req protocol.ChatRequest) {
	userID := req.UserID
	if userID == "" {
		userID = c.state.UserID
	}
	if userID == "" {
		c.sendError(errors.New("ChatConnection.handleInit.no_user", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}
	c.state.UserID = userID

	if req.SessionID != "" {
		session, err := c.logic.GetUserSession(userID, req.SessionID)
		if err == nil {
			c.activateSession(session)
			return
		}
		if getErrorCode(err) != http.StatusNotFound {
			c.sendError(err)
			return
		}
	}

	c.state.SessionID = ""
	c.send(protocol.NewEmptySessionState())
}

// handleMessage runs the full streaming flow for one user message. The
// generation itself runs on its own goroutine so the read loop keeps
// servicing other actions.
func (c *ChatConnection) handleMessage(req protocol.ChatRequest) {
	if req.Message == "" {
		c.sendError(errors.New("ChatConnection.handleMessage.no_message", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}

	userID := c.state.UserID
	if userID == "" {
		userID = req.UserID
	}
	if userID == "" {
		c.sendError(errors.New("ChatConnection.handleMessage.no_user", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}
	c.state.UserID = userID

	if !c.inFlight.CompareAndSwap(false, true) {
		c.sendError(errors.New("ChatConnection.handleMessage.in_flight", i18n.ERROR_CHAT_GENERATION_BUSY, nil).Code(http.StatusTooManyRequests))
		return
	}

	session, err := c.resolveOrCreateSession(userID, req)
	if err != nil {
		c.inFlight.Store(false)
		c.sendError(err)
		return
	}
	c.state.SessionID = session.ID

	lockKey := protocol.GenChatStreamLockKey(session.ID)
	acquired, err := c.cache.SetNX(c.ctx, lockKey, userID, streamLockTTL)
	if err != nil {
		c.inFlight.Store(false)
		c.sendError(errors.New("ChatConnection.handleMessage.stream_lock", i18n.ERROR_INTERNAL, err))
		return
	}
	if !acquired {
		c.inFlight.Store(false)
		c.sendError(errors.New("ChatConnection.handleMessage.session_busy", i18n.ERROR_CHAT_GENERATION_BUSY, nil).Code(http.StatusTooManyRequests))
		return
	}

	release := func() {
		if err := c.cache.Del(c.ctx, lockKey); err != nil {
			slog.Error("failed to release stream lock", slog.String("session_id", session.ID), slog.String("error", err.Error()))
		}
		c.inFlight.Store(false)
	}

	history, err := c.logic.ListSessionMessages(session.ID, types.NO_PAGING, types.NO_PAGINATION)
	if err != nil {
		release()
		c.sendError(err)
		return
	}

	if _, err = c.logic.AddMessage(session.ID, userID, types.USER_ROLE_USER, req.Message); err != nil {
		release()
		c.sendError(err)
		return
	}

	placeholder, err := c.logic.CreateAIMessagePlaceholder(session.ID, userID)
	if err != nil {
		release()
		c.sendError(err)
		return
	}

	// Context for the provider: everything before this turn, bounded by the
	// token budget. The new user message travels as the prompt and the empty
	// placeholder is never part of the context.
	chatContext := buildChatContext(history, c.tokenBudget, c.countTokensFn)

	go safe.Run(func() {
		defer release()
		c.streamCompletion(session.ID, placeholder.ID, req.Message, chatContext)
	})
}

func (c *ChatConnection) resolveOrCreateSession(userID string, req protocol.ChatRequest) (*types.ChatSession, error) {
	sessionID := c.state.SessionID
	if sessionID == "" {
		sessionID = req.SessionID
	}

	if sessionID != "" {
		session, err := c.logic.GetUserSession(userID, sessionID)
		if err == nil {
			return session, nil
		}
		if getErrorCode(err) != http.StatusNotFound {
			return nil, err
		}
	}

	return c.logic.CreateSession(userID)
}

// streamCompletion drives one generation. cumulative is what gets persisted,
// chunk.Content is what goes on the wire; the two are never conflated. The
// client always receives exactly one terminal event for the flow.
func (c *ChatConnection) streamCompletion(sessionID, messageID, prompt string, chatContext []*types.MessageContext) {
	ctx := c.ctx
	if c.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.streamTimeout)
		defer cancel()
	}
	if c.metrics != nil {
		defer c.metrics.ChatStreamTimer().ObserveDuration()
	}

	var (
		cumulative      strings.Builder
		terminalEmitted bool
	)

	err := c.provider.StreamResponse(ctx, prompt, chatContext, func(chunk ai.StreamChunk) error {
		switch chunk.Type {
		case ai.STREAM_CHUNK_TOKEN:
			cumulative.WriteString(chunk.Content)
			if err := c.logic.UpdateAIMessage(sessionID, messageID, cumulative.String()); err != nil {
				return err
			}
			c.send(protocol.ChatResponse{
				Type:      protocol.EVENT_CHAT_TOKEN,
				SessionID: sessionID,
				MessageID: messageID,
				Content:   chunk.Content,
			})
		case ai.STREAM_CHUNK_COMPLETE:
			if err := c.logic.FinalizeAIMessage(sessionID, messageID, cumulative.String()); err != nil {
				return err
			}
			terminalEmitted = true
			c.send(protocol.ChatResponse{
				Type:      protocol.EVENT_CHAT_COMPLETE,
				SessionID: sessionID,
				MessageID: messageID,
				Content:   cumulative.String(),
			})
		case ai.STREAM_CHUNK_ERROR:
			// The placeholder keeps its partial content and is never
			// finalized, the client decides what to do with it on reload.
			if err := c.logic.FailAIMessage(sessionID, messageID); err != nil {
				slog.Error("failed to mark message failed", slog.String("message_id", messageID), slog.String("error", err.Error()))
			}
			terminalEmitted = true
			if c.metrics != nil {
				c.metrics.ChatStreamErrorInc("provider")
			}
			c.send(protocol.ChatResponse{
				Type:      protocol.EVENT_CHAT_ERROR,
				SessionID: sessionID,
				MessageID: messageID,
				Content:   locales.Get(c.lang, i18n.ERROR_AI_CHAT_RESPONSE_FAILED),
			})
		}
		return nil
	})

	if err != nil && !terminalEmitted {
		slog.Error("completion stream failed", slog.String("session_id", sessionID), slog.String("message_id", messageID), slog.String("error", err.Error()))
		if c.metrics != nil {
			c.metrics.ChatStreamErrorInc("stream")
		}
		c.send(protocol.ChatResponse{
			Type:      protocol.EVENT_CHAT_ERROR,
			SessionID: sessionID,
			MessageID: messageID,
			Content:   locales.Get(c.lang, i18n.ERROR_CHAT_GENERATION_FAILED),
		})
	}
}

// handleClear deletes the active session and returns the connection to the
// session-less state. No replacement session is created eagerly.
func (c *ChatConnection) handleClear(req protocol.ChatRequest) {
	sessionID := c.state.SessionID
	if sessionID == "" {
		sessionID = req.SessionID
	}

	if sessionID != "" {
		if err := c.logic.DeleteSession(sessionID); err != nil {
			c.sendError(err)
			return
		}
	}

	c.state.SessionID = ""
	c.send(protocol.NewEmptySessionState())
}

// handleSwitch activates another session by id. Ownership is intentionally
// not re-checked here, session ids are treated as server-trusted; see the
// test documenting this.
func (c *ChatConnection) handleSwitch(req protocol.ChatRequest) {
	if req.SessionID == "" {
		c.sendError(errors.New("ChatConnection.handleSwitch.no_session", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}

	session, err := c.logic.GetSession(req.SessionID)
	if err != nil {
		c.sendError(err)
		return
	}

	c.activateSession(session)
}

func (c *ChatConnection) activateSession(session *types.ChatSession) {
	messages, err := c.logic.ListSessionMessages(session.ID, types.NO_PAGING, types.NO_PAGINATION)
	if err != nil {
		c.sendError(err)
		return
	}

	c.state.SessionID = session.ID
	c.send(protocol.ChatResponse{
		Type:      protocol.EVENT_CHAT_SESSION,
		SessionID: session.ID,
		Title:     session.Title,
		Messages: lo.Map(messages, func(item *types.ChatMessage, _ int) protocol.HistoryMessage {
			return protocol.HistoryMessage{
				ID:        item.ID,
				Content:   item.Message,
				Sender:    item.Role.WireSender(),
				Timestamp: item.SendTime,
			}
		}),
	})
}

func (c *ChatConnection) send(resp protocol.ChatResponse) {
	if err := c.sender.Send(resp); err != nil {
		// Write-after-close lands here, swallowed per the protocol contract.
		slog.Debug("chat send dropped", slog.String("type", string(resp.Type)), slog.String("error", err.Error()))
	}
}

func (c *ChatConnection) sendError(err error) {
	message := err.Error()
	if ce, ok := err.(*errors.CustomizedError); ok {
		message = locales.Get(c.lang, ce.Message())
	}
	c.send(protocol.NewChatError(message))
}

func getErrorCode(err error) int {
	if ce, ok := err.(*errors.CustomizedError); ok {
		return ce.GetCode()
	}
	return http.StatusInternalServerError
}
