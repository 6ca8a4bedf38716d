package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/jobtrail/jobtrail/app/core"
	v1 "github.com/jobtrail/jobtrail/app/logic/v1"
	"github.com/jobtrail/jobtrail/app/response"
	"github.com/jobtrail/jobtrail/pkg/errors"
	"github.com/jobtrail/jobtrail/pkg/i18n"
	"github.com/jobtrail/jobtrail/pkg/types"
	"github.com/jobtrail/jobtrail/pkg/types/protocol"
	"github.com/jobtrail/jobtrail/pkg/utils"
)

type HttpSrv struct {
	Core   *core.Core
	Engine *gin.Engine
}

type ListChatSessionRequest struct {
	UserID   string `json:"user_id" form:"user_id" binding:"required"`
	Page     uint64 `json:"page" form:"page" binding:"required"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"required"`
}

type ListChatSessionResponse struct {
	List  []types.ChatSession `json:"list"`
	Total int64               `json:"total"`
}

func (s *HttpSrv) ListChatSession(c *gin.Context) {
	var (
		err error
		req ListChatSessionRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	logic := v1.NewChatSessionLogic(c, s.Core)
	list, total, err := logic.ListSessions(req.UserID, req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, ListChatSessionResponse{
		List:  list,
		Total: total,
	})
}

type GetChatSessionHistoryRequest struct {
	UserID string `json:"user_id" form:"user_id" binding:"required"`
}

type GetChatSessionHistoryResponse struct {
	SessionID string                    `json:"session_id"`
	Title     string                    `json:"title"`
	Messages  []protocol.HistoryMessage `json:"messages"`
}

func (s *HttpSrv) GetChatSessionHistory(c *gin.Context) {
	sessionID, exist := c.Params.Get("session")
	if !exist || sessionID == "" {
		response.APIError(c, errors.New("api.GetChatSessionHistory", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}

	var req GetChatSessionHistoryRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	logic := v1.NewChatSessionLogic(c, s.Core)
	session, err := logic.GetUserSession(req.UserID, sessionID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	messages, err := logic.ListSessionMessages(session.ID, types.NO_PAGING, types.NO_PAGINATION)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, GetChatSessionHistoryResponse{
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

type DeleteChatSessionRequest struct {
	UserID string `json:"user_id" form:"user_id" binding:"required"`
}

func (s *HttpSrv) DeleteChatSession(c *gin.Context) {
	sessionID, exist := c.Params.Get("session")
	if !exist || sessionID == "" {
		response.APIError(c, errors.New("api.DeleteChatSession", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}

	var req DeleteChatSessionRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	logic := v1.NewChatSessionLogic(c, s.Core)
	if _, err := logic.GetUserSession(req.UserID, sessionID); err != nil {
		response.APIError(c, err)
		return
	}

	if err := logic.DeleteSession(sessionID); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}
