package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jobtrail/jobtrail/app/core"
	v1 "github.com/jobtrail/jobtrail/app/logic/v1"
	"github.com/jobtrail/jobtrail/app/response"
	"github.com/jobtrail/jobtrail/pkg/types/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsSender serializes concurrent writes onto one websocket connection. The
// streaming goroutine and the read loop both send through it.
type wsSender struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (s *wsSender) write(payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteMessage(websocket.TextMessage, raw)
}

func (s *wsSender) Send(resp protocol.ChatResponse) error {
	return s.write(resp)
}

// wsDocSender adapts the same connection discipline for document chat frames.
type wsDocSender struct {
	wsSender
}

func (s *wsDocSender) Send(resp protocol.DocChatResponse) error {
	return s.write(resp)
}

func ChatWebsocket(core *core.Core) func(c *gin.Context) {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer ws.Close()

		core.Metrics().ConnectionsInc("chat")
		defer core.Metrics().ConnectionsDec("chat")

		sender := &wsSender{ws: ws}
		conn := v1.NewChatConnection(c.Request.Context(), core, sender, response.GetLangFromRequestOrDefault(c))

		for {
			msgType, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			conn.HandleRaw(raw)
		}
	}
}

func DocChatWebsocket(core *core.Core) func(c *gin.Context) {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer ws.Close()

		core.Metrics().ConnectionsInc("doc_chat")
		defer core.Metrics().ConnectionsDec("doc_chat")

		sender := &wsDocSender{}
		sender.ws = ws
		conn := v1.NewDocChatConnection(c.Request.Context(), core, sender, response.GetLangFromRequestOrDefault(c))

		for {
			msgType, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			conn.HandleRaw(raw)
		}
	}
}
