package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jobtrail/jobtrail/app/core"
	"github.com/jobtrail/jobtrail/app/store"
	"github.com/jobtrail/jobtrail/pkg/ai"
	"github.com/jobtrail/jobtrail/pkg/docparse"
	"github.com/jobtrail/jobtrail/pkg/i18n"
	"github.com/jobtrail/jobtrail/pkg/types"
	"github.com/jobtrail/jobtrail/pkg/types/protocol"
)

// DocSender delivers document chat envelopes to one client.
type DocSender interface {
	Send(resp protocol.DocChatResponse) error
}

// docCache holds the last extracted document for the connection. It is only
// invalidated by a request for a different document id.
type docCache struct {
	docID   string
	docType types.ResourceType
	text    string
	pages   []int
}

// DocChatConnection answers one-shot questions about a single resume or
// cover letter. Nothing here touches the chat session store, there is no
// durable history.
type DocChatConnection struct {
	ctx       context.Context
	docs      store.DocumentStore
	provider  ai.StreamProvider
	extractor docparse.Extractor
	sender    DocSender
	lang      string

	cache *docCache
}

func NewDocChatConnection(ctx context.Context, c *core.Core, sender DocSender, lang string) *DocChatConnection {
	return newDocChatConnection(ctx, c.Store().DocumentStore(), c.Srv().AI(), c.Extractor(), sender, lang)
}

func newDocChatConnection(ctx context.Context, docs store.DocumentStore, provider ai.StreamProvider, extractor docparse.Extractor, sender DocSender, lang string) *DocChatConnection {
	if !i18n.ALLOW_LANG[lang] {
		lang = i18n.DEFAULT_LANG
	}
	return &DocChatConnection{
		ctx:       ctx,
		docs:      docs,
		provider:  provider,
		extractor: extractor,
		sender:    sender,
		lang:      lang,
	}
}

// HandleRaw dispatches one inbound frame. Unknown channels and malformed
// JSON are dropped without a reply.
func (c *DocChatConnection) HandleRaw(raw []byte) {
	var req protocol.DocChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("dropping malformed document chat frame", slog.String("error", err.Error()))
		return
	}

	channel := protocol.ParseDocChannel(req.ChannelName)
	if channel == protocol.CHANNEL_UNKNOWN {
		slog.Warn("dropping unknown document chat channel", slog.String("channel", req.ChannelName))
		return
	}

	c.handleQuery(channel, req.Data)
}

func (c *DocChatConnection) handleQuery(channel protocol.DocChannel, data protocol.DocChatRequestData) {
	docID := data.ResumeID
	docType := types.RESOURCE_TYPE_RESUME
	if channel == protocol.CHANNEL_COVERLETTER_CHAT {
		docID = data.CoverletterID
		docType = types.RESOURCE_TYPE_COVERLETTER
	}

	if docID == "" || data.Query == "" {
		c.send(protocol.NewDocChatError(channel, http.StatusBadRequest, locales.Get(c.lang, i18n.ERROR_INVALIDARGUMENT)))
		return
	}

	// Resolve metadata first; an absent document must never reach the
	// extractor.
	doc, err := c.docs.GetDocument(c.ctx, docID)
	if err != nil && err != sql.ErrNoRows {
		c.send(protocol.NewDocChatError(channel, http.StatusInternalServerError, locales.Get(c.lang, i18n.ERROR_INTERNAL)))
		return
	}
	if doc == nil || doc.DocType != docType {
		c.send(protocol.NewDocChatError(channel, http.StatusNotFound, locales.Get(c.lang, i18n.ERROR_DOCUMENT_NOT_FOUND)))
		return
	}

	if c.cache == nil || c.cache.docID != docID {
		text, pages, err := c.extractor.ExtractText(c.ctx, doc.URL, doc.Filetype)
		if err != nil {
			slog.Error("document extraction failed", slog.String("document_id", docID), slog.String("error", err.Error()))
			c.send(protocol.NewDocChatError(channel, http.StatusInternalServerError, locales.Get(c.lang, i18n.ERROR_DOCUMENT_EXTRACT_FAILED)))
			return
		}
		c.cache = &docCache{
			docID:   docID,
			docType: docType,
			text:    text,
			pages:   pages,
		}
	}

	c.answer(channel, data.Query)
}

// answer streams the completion for one query. Each token goes out as a
// progress envelope carrying the delta, the terminal envelope carries the
// full answer.
func (c *DocChatConnection) answer(channel protocol.DocChannel, query string) {
	prompt := buildDocPrompt(c.cache.docType, c.cache.text, query)

	var (
		cumulative      strings.Builder
		terminalEmitted bool
	)

	err := c.provider.StreamResponse(c.ctx, prompt, nil, func(chunk ai.StreamChunk) error {
		switch chunk.Type {
		case ai.STREAM_CHUNK_TOKEN:
			cumulative.WriteString(chunk.Content)
			c.send(protocol.NewDocChatSuccess(channel, protocol.DocChatResponseData{
				Pages:  c.cache.pages,
				Text:   chunk.Content,
				Status: protocol.DOC_CHAT_STATUS_PROGRESS,
			}))
		case ai.STREAM_CHUNK_COMPLETE:
			terminalEmitted = true
			c.send(protocol.NewDocChatSuccess(channel, protocol.DocChatResponseData{
				Pages:  c.cache.pages,
				Text:   cumulative.String(),
				Status: protocol.DOC_CHAT_STATUS_COMPLETED,
			}))
		case ai.STREAM_CHUNK_ERROR:
			terminalEmitted = true
			c.send(protocol.NewDocChatError(channel, http.StatusInternalServerError, locales.Get(c.lang, i18n.ERROR_AI_CHAT_RESPONSE_FAILED)))
		}
		return nil
	})

	if err != nil && !terminalEmitted {
		slog.Error("document chat stream failed", slog.String("channel", string(channel)), slog.String("error", err.Error()))
		c.send(protocol.NewDocChatError(channel, http.StatusInternalServerError, locales.Get(c.lang, i18n.ERROR_CHAT_GENERATION_FAILED)))
	}
}

func buildDocPrompt(docType types.ResourceType, text, query string) string {
	kind := "resume"
	if docType == types.RESOURCE_TYPE_COVERLETTER {
		kind = "cover letter"
	}
	return fmt.Sprintf("You are an assistant answering questions about the user's %s.\n\n%s content:\n%s\n\nQuestion: %s", kind, kind, text, query)
}

func (c *DocChatConnection) send(resp protocol.DocChatResponse) {
	if err := c.sender.Send(resp); err != nil {
		slog.Debug("document chat send dropped", slog.String("channel", resp.ChannelName), slog.String("error", err.Error()))
	}
}
