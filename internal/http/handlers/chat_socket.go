package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

const (
	socketReadLimit    = 16 << 10
	socketPongWait     = 60 * time.Second
	socketPingInterval = 50 * time.Second
	socketWriteWait    = 10 * time.Second
)

type chatMessage struct {
	SessionID string `json:"sessionId"`
	Query     string `json:"query"`
}

type chatReply struct {
	SessionID     string `json:"sessionId"`
	Response      string `json:"response,omitempty"`
	Language      string `json:"language,omitempty"`
	Route         string `json:"route,omitempty"`
	AppointmentID int64  `json:"appointmentId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ChatSocket streams text queries over a websocket. A connection that does
// not name a session gets its own uuid session id.
type ChatSocket struct {
	assistant Assistant
	upgrader  websocket.Upgrader
	logger    *logging.Logger
}

// NewChatSocket accepts upgrades from the given origins; "*" or an empty
// list accepts any origin.
func NewChatSocket(a Assistant, allowedOrigins []string, logger *logging.Logger) *ChatSocket {
	if a == nil {
		panic("handlers: assistant cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	allow := make(map[string]struct{}, len(allowedOrigins))
	allowAny := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAny = true
		}
		allow[o] = struct{}{}
	}
	return &ChatSocket{
		assistant: a,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAny {
					return true
				}
				_, ok := allow[origin]
				return ok
			},
		},
	}
}

// ServeHTTP handles GET /ai/ws.
func (s *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connSession := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if connSession == "" {
		connSession = "ws-" + uuid.NewString()
	}
	logger := s.logger.WithSession(connSession)
	logger.Info("chat socket opened")

	conn.SetReadLimit(socketReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	ctx := r.Context()
	done := make(chan struct{})
	defer close(done)
	go s.ping(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("chat socket read failed", "error", err)
			}
			logger.Info("chat socket closed")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))

		var msg chatMessage
		if err := json.Unmarshal(data, &msg); err != nil || strings.TrimSpace(msg.Query) == "" {
			if !s.write(conn, chatReply{SessionID: connSession, Error: "expected {\"query\": \"...\"}"}) {
				return
			}
			continue
		}
		sessionID := strings.TrimSpace(msg.SessionID)
		if sessionID == "" {
			sessionID = connSession
		}

		reply := chatReply{SessionID: sessionID}
		answer, err := s.assistant.ProcessQuery(ctx, msg.Query, sessionID)
		if err != nil {
			logger.Error("chat query failed", "error", err)
			reply.Error = "Failed to process query"
		} else {
			reply.Response = answer.Text
			reply.Language = string(answer.Language)
			reply.Route = answer.Route
			reply.AppointmentID = answer.AppointmentID
		}
		if !s.write(conn, reply) {
			return
		}
	}
}

// write is only called from the read loop; pings use WriteControl, which is
// safe alongside it.
func (s *ChatSocket) write(conn *websocket.Conn, reply chatReply) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Warn("chat socket write failed", "error", err)
		return false
	}
	return true
}

func (s *ChatSocket) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(socketPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}
