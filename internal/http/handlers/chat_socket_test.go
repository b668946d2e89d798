package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvamit/aya-helthcare-demo/internal/assistant"
	"github.com/tvamit/aya-helthcare-demo/internal/sessions"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

func dialChat(t *testing.T, a Assistant, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewChatSocket(a, nil, logging.Default()))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestChatSocketAnswersQueries(t *testing.T) {
	a := &fakeAssistant{answer: assistant.Answer{Text: "Please tell me your name", Route: assistant.RouteBooking, Language: sessions.LanguageEnglish}}
	conn := dialChat(t, a, "?sessionId=ws-fixed")

	require.NoError(t, conn.WriteJSON(chatMessage{Query: "book an appointment"}))
	var reply chatReply
	require.NoError(t, conn.ReadJSON(&reply))

	assert.Equal(t, "ws-fixed", reply.SessionID)
	assert.Equal(t, "Please tell me your name", reply.Response)
	assert.Equal(t, "booking", reply.Route)
	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, []string{"book an appointment"}, a.queries)
}

func TestChatSocketAssignsSession(t *testing.T) {
	a := &fakeAssistant{}
	conn := dialChat(t, a, "")

	require.NoError(t, conn.WriteJSON(chatMessage{Query: "hello"}))
	var first chatReply
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.WriteJSON(chatMessage{Query: "again"}))
	var second chatReply
	require.NoError(t, conn.ReadJSON(&second))

	assert.True(t, strings.HasPrefix(first.SessionID, "ws-"))
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestChatSocketRejectsBadMessages(t *testing.T) {
	conn := dialChat(t, &fakeAssistant{}, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var reply chatReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.NotEmpty(t, reply.Error)
}
