package v1

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobtrail/jobtrail/pkg/ai"
	"github.com/jobtrail/jobtrail/pkg/types"
	"github.com/jobtrail/jobtrail/pkg/types/protocol"
)

func newTestDocConnection(t *testing.T, s *memStore, provider ai.StreamProvider, extractor *countingExtractor) (*DocChatConnection, *recordDocSender) {
	t.Helper()
	sender := &recordDocSender{}
	conn := newDocChatConnection(context.Background(), s.DocumentStore(), provider, extractor, sender, "en")
	return conn, sender
}

func seedDocument(t *testing.T, s *memStore, docType types.ResourceType) types.Document {
	t.Helper()
	doc := types.Document{
		ID:       "doc-" + string(docType),
		UserID:   "u1",
		DocType:  docType,
		Title:    "My document",
		URL:      "https://files.example.com/doc.txt",
		Filetype: "txt",
	}
	require.NoError(t, s.DocumentStore().Create(context.Background(), doc))
	return doc
}

func TestDocChatStreamsAnswer(t *testing.T) {
	s := newMemStore()
	doc := seedDocument(t, s, types.RESOURCE_TYPE_RESUME)
	extractor := &countingExtractor{text: "resume body", pages: []int{1, 2}}
	provider := &scriptedProvider{chunks: []ai.StreamChunk{
		{Type: ai.STREAM_CHUNK_TOKEN, Content: "An"},
		{Type: ai.STREAM_CHUNK_TOKEN, Content: "swer"},
		{Type: ai.STREAM_CHUNK_COMPLETE},
	}}
	conn, sender := newTestDocConnection(t, s, provider, extractor)

	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"resumeId":"` + doc.ID + `","query":"what jobs fit?"}}`))

	events := sender.snapshot()
	require.Len(t, events, 3)

	require.True(t, events[0].Success)
	require.Equal(t, protocol.DOC_CHAT_STATUS_PROGRESS, events[0].Data.Status)
	require.Equal(t, "An", events[0].Data.Text)
	require.Equal(t, []int{1, 2}, events[0].Data.Pages)

	final := events[2]
	require.True(t, final.Success)
	require.Equal(t, http.StatusOK, final.Status)
	require.Equal(t, protocol.DOC_CHAT_STATUS_COMPLETED, final.Data.Status)
	require.Equal(t, "Answer", final.Data.Text)

	// The prompt must embed the extracted document text and the question.
	require.Contains(t, provider.prompts[0], "resume body")
	require.Contains(t, provider.prompts[0], "what jobs fit?")
}

func TestDocChatExtractsOncePerDocument(t *testing.T) {
	s := newMemStore()
	doc := seedDocument(t, s, types.RESOURCE_TYPE_RESUME)
	extractor := &countingExtractor{text: "resume body", pages: []int{1}}
	provider := &scriptedProvider{chunks: []ai.StreamChunk{{Type: ai.STREAM_CHUNK_COMPLETE}}}
	conn, _ := newTestDocConnection(t, s, provider, extractor)

	frame := []byte(`{"channelName":"resume:chat","data":{"resumeId":"` + doc.ID + `","query":"q"}}`)
	conn.HandleRaw(frame)
	conn.HandleRaw(frame)

	require.Equal(t, 1, extractor.callCount())
	require.Equal(t, 2, provider.callCount())
}

func TestDocChatReExtractsForDifferentDocument(t *testing.T) {
	s := newMemStore()
	resume := seedDocument(t, s, types.RESOURCE_TYPE_RESUME)
	cover := seedDocument(t, s, types.RESOURCE_TYPE_COVERLETTER)
	extractor := &countingExtractor{text: "body", pages: []int{1}}
	provider := &scriptedProvider{chunks: []ai.StreamChunk{{Type: ai.STREAM_CHUNK_COMPLETE}}}
	conn, _ := newTestDocConnection(t, s, provider, extractor)

	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"resumeId":"` + resume.ID + `","query":"q"}}`))
	conn.HandleRaw([]byte(`{"channelName":"coverletter:chat","data":{"coverletterId":"` + cover.ID + `","query":"q"}}`))
	conn.HandleRaw([]byte(`{"channelName":"coverletter:chat","data":{"coverletterId":"` + cover.ID + `","query":"again"}}`))

	require.Equal(t, 2, extractor.callCount())
}

func TestDocChatMissingDocumentNeverCallsExtractor(t *testing.T) {
	s := newMemStore()
	extractor := &countingExtractor{text: "body"}
	conn, sender := newTestDocConnection(t, s, &scriptedProvider{}, extractor)

	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"resumeId":"missing","query":"q"}}`))

	events := sender.snapshot()
	require.Len(t, events, 1)
	require.False(t, events[0].Success)
	require.True(t, events[0].IsNotFound)
	require.Equal(t, http.StatusNotFound, events[0].Status)
	require.Equal(t, 0, extractor.callCount())
}

func TestDocChatWrongTypeIsNotFound(t *testing.T) {
	s := newMemStore()
	doc := seedDocument(t, s, types.RESOURCE_TYPE_COVERLETTER)
	extractor := &countingExtractor{text: "body"}
	conn, sender := newTestDocConnection(t, s, &scriptedProvider{}, extractor)

	// Asking the resume channel about a cover letter id must not leak it.
	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"resumeId":"` + doc.ID + `","query":"q"}}`))

	events := sender.snapshot()
	require.Len(t, events, 1)
	require.True(t, events[0].IsNotFound)
	require.Equal(t, 0, extractor.callCount())
}

func TestDocChatValidation(t *testing.T) {
	s := newMemStore()
	conn, sender := newTestDocConnection(t, s, &scriptedProvider{}, &countingExtractor{})

	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"query":"q"}}`))
	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"resumeId":"x"}}`))

	events := sender.snapshot()
	require.Len(t, events, 2)
	for _, e := range events {
		require.False(t, e.Success)
		require.True(t, e.IsClientError)
		require.Equal(t, http.StatusBadRequest, e.Status)
		require.NotNil(t, e.Message)
	}
}

func TestDocChatUnknownChannelInert(t *testing.T) {
	s := newMemStore()
	conn, sender := newTestDocConnection(t, s, &scriptedProvider{}, &countingExtractor{})

	conn.HandleRaw([]byte(`{"channelName":"job:chat","data":{"query":"q"}}`))
	conn.HandleRaw([]byte(`{broken`))

	require.Empty(t, sender.snapshot())
}

func TestDocChatProviderErrorEnvelope(t *testing.T) {
	s := newMemStore()
	doc := seedDocument(t, s, types.RESOURCE_TYPE_RESUME)
	extractor := &countingExtractor{text: "body", pages: []int{1}}
	provider := &scriptedProvider{chunks: []ai.StreamChunk{
		{Type: ai.STREAM_CHUNK_TOKEN, Content: "half"},
		{Type: ai.STREAM_CHUNK_ERROR},
	}}
	conn, sender := newTestDocConnection(t, s, provider, extractor)

	conn.HandleRaw([]byte(`{"channelName":"resume:chat","data":{"resumeId":"` + doc.ID + `","query":"q"}}`))

	events := sender.snapshot()
	require.Len(t, events, 2)
	final := events[1]
	require.False(t, final.Success)
	require.True(t, final.IsServerError)
	require.Equal(t, protocol.DOC_CHAT_STATUS_ERROR, final.Data.Status)
}
