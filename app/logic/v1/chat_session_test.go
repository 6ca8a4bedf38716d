package v1

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobtrail/jobtrail/pkg/errors"
	"github.com/jobtrail/jobtrail/pkg/types"
)

func TestCreateSessionDefaults(t *testing.T) {
	s := newMemStore()
	logic := NewChatSessionLogicWithStore(context.Background(), s)

	session, err := logic.CreateSession("u1")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Equal(t, "u1", session.UserID)
	require.Equal(t, types.DEFAULT_SESSION_TITLE, session.Title)
	require.Equal(t, types.RESOURCE_TYPE_NONE, session.ResourceType)
}

func TestGetUserSessionRejectsForeignAndMissing(t *testing.T) {
	s := newMemStore()
	logic := NewChatSessionLogicWithStore(context.Background(), s)
	session, err := logic.CreateSession("u2")
	require.NoError(t, err)

	for _, sessionID := range []string{session.ID, "does-not-exist"} {
		_, err = logic.GetUserSession("u1", sessionID)
		require.Error(t, err)
		ce, ok := err.(*errors.CustomizedError)
		require.True(t, ok)
		require.Equal(t, http.StatusNotFound, ce.GetCode())
	}

	got, err := logic.GetUserSession("u2", session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)
}

func TestFinalizeAIMessageIsIdempotent(t *testing.T) {
	s := newMemStore()
	logic := NewChatSessionLogicWithStore(context.Background(), s)
	session, err := logic.CreateSession("u1")
	require.NoError(t, err)

	placeholder, err := logic.CreateAIMessagePlaceholder(session.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, types.MESSAGE_PROGRESS_GENERATING, placeholder.Complete)

	require.NoError(t, logic.FinalizeAIMessage(session.ID, placeholder.ID, "final answer"))
	require.NoError(t, logic.FinalizeAIMessage(session.ID, placeholder.ID, "final answer"))

	msg, err := s.ChatMessageStore().GetOne(context.Background(), placeholder.ID)
	require.NoError(t, err)
	require.Equal(t, "final answer", msg.Message)
	require.Equal(t, types.MESSAGE_PROGRESS_COMPLETE, msg.Complete)
}

func TestUpdateAIMessageReplacesWholeContent(t *testing.T) {
	s := newMemStore()
	logic := NewChatSessionLogicWithStore(context.Background(), s)
	session, err := logic.CreateSession("u1")
	require.NoError(t, err)

	placeholder, err := logic.CreateAIMessagePlaceholder(session.ID, "u1")
	require.NoError(t, err)

	require.NoError(t, logic.UpdateAIMessage(session.ID, placeholder.ID, "He"))
	require.NoError(t, logic.UpdateAIMessage(session.ID, placeholder.ID, "Hello"))

	msg, err := s.ChatMessageStore().GetOne(context.Background(), placeholder.ID)
	require.NoError(t, err)
	require.Equal(t, "Hello", msg.Message)
	require.Equal(t, types.MESSAGE_PROGRESS_GENERATING, msg.Complete)
}

func TestDeleteSessionIsIdempotentAndRemovesMessages(t *testing.T) {
	s := newMemStore()
	logic := NewChatSessionLogicWithStore(context.Background(), s)
	session, err := logic.CreateSession("u1")
	require.NoError(t, err)
	_, err = logic.AddMessage(session.ID, "u1", types.USER_ROLE_USER, "hi")
	require.NoError(t, err)

	require.NoError(t, logic.DeleteSession(session.ID))
	require.NoError(t, logic.DeleteSession(session.ID))

	msgs, err := logic.ListSessionMessages(session.ID, types.NO_PAGING, types.NO_PAGINATION)
	require.NoError(t, err)
	require.Empty(t, msgs)

	_, err = logic.GetUserSession("u1", session.ID)
	require.Error(t, err)
}
