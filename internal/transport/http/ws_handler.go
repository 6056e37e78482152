package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// WSHandler upgrades connections and wires them into the session service.
// Each connection is bound to one (session, user) pair at upgrade time;
// every inbound message is scoped to that binding.
type WSHandler struct {
	service  *app.SessionService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

var (
	errUnsupportedType = errors.New("unsupported message type")
	errBadPayload      = errors.New("invalid message payload")
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitAnswerPayload struct {
	QuestionID string   `json:"questionId"`
	Answer     []string `json:"answer"`
	TimeTaken  float64  `json:"timeTaken"`
}

type revealAnswerPayload struct {
	QuestionID string `json:"questionId"`
}

// ServeWS upgrades the request, joins the session room and dispatches
// inbound messages until the connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	quizID := r.URL.Query().Get("quizId")
	if sessionID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing sessionId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), sessionID, quizID, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(errorEvent(err))
		return
	}

	c := newClient(sessionID, userID)
	h.hub.join(c)
	defer h.hub.leave(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range c.send {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	c.deliver(domain.NewEvent(domain.EventJoined, joined))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r.Context(), c, inbound); err != nil {
			c.deliver(errorEvent(err))
		}
	}

	h.hub.leave(c)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, c *client, inbound inboundMessage) error {
	switch inbound.Type {
	case "start":
		return h.service.Start(ctx, c.sessionID, c.userID)
	case "next_question":
		return h.service.Advance(ctx, c.sessionID, c.userID)
	case "end_quiz":
		return h.service.End(ctx, c.sessionID, c.userID)
	case "reveal_answer":
		var payload revealAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errBadPayload
		}
		return h.service.Reveal(ctx, c.sessionID, c.userID, payload.QuestionID)
	case "submit_answer":
		var payload submitAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errBadPayload
		}
		// Participant identity comes from the connection binding, never
		// from the payload.
		return h.service.Submit(ctx, c.sessionID, c.userID, payload.QuestionID, payload.Answer, payload.TimeTaken)
	default:
		return errUnsupportedType
	}
}

// errorEvent converts an operation error into the private error event.
// Collaborator failures are logged in full but surfaced generically.
func errorEvent(err error) domain.Event {
	kind := domain.ErrorKind(err)
	message := err.Error()
	switch {
	case errors.Is(err, errUnsupportedType), errors.Is(err, errBadPayload):
		kind = domain.KindInvalidState
	case kind == domain.KindDependencyFailure:
		log.Printf("operation failed: %v", err)
		message = "operation failed, please retry"
	}
	return domain.NewEvent(domain.EventError, domain.ErrorPayload{Kind: kind, Message: message})
}
