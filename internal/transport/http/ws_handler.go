package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socratic-tutor/internal/app"
	"socratic-tutor/internal/domain"
	"socratic-tutor/internal/logger"
)

type WSHandler struct {
	service  *app.TutorService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TutorService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type bonusPayload struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one tutoring session
// per connection. The session ends when the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	moduleID := r.URL.Query().Get("moduleId")
	if moduleID == "" {
		http.Error(w, "missing moduleId", http.StatusBadRequest)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	student := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	started, err := h.service.Start(ctx, sessionID, moduleID, student)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.End(context.Background(), sessionID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "session", sessionID, "error", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: started}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(ctx, sessionID, moduleID, student, inbound) {
			select {
			case send <- msg:
			case <-writerDone:
			}
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, sessionID, moduleID, student string, inbound inboundMessage) []outboundMessage[any] {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return []outboundMessage[any]{errorMessage("invalid answer payload")}
		}
		outcome, err := h.service.Submit(ctx, sessionID, payload.Text)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err.Error())}
		}
		out := []outboundMessage[any]{{Type: "turn", Payload: outcome}}
		if outcome.Result.Kind == domain.TurnAdvance {
			out = append(out, positionMessage(outcome.Session))
		}
		return out
	case "next":
		view, err := h.service.Next(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrModuleCompleted) {
			return []outboundMessage[any]{errorMessage(err.Error())}
		}
		return []outboundMessage[any]{positionMessage(view)}
	case "bonus":
		text, found, err := h.service.Bonus(ctx, sessionID)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err.Error())}
		}
		return []outboundMessage[any]{{Type: "bonus", Payload: bonusPayload{Text: text, Found: found}}}
	case "restart":
		view, err := h.service.Start(ctx, sessionID, moduleID, student)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err.Error())}
		}
		return []outboundMessage[any]{{Type: "started", Payload: view}}
	default:
		return []outboundMessage[any]{errorMessage("unsupported message type")}
	}
}

// positionMessage announces the unit the session now sits on.
func positionMessage(view domain.SessionView) outboundMessage[any] {
	if view.Completed {
		return outboundMessage[any]{Type: "completed", Payload: view}
	}
	return outboundMessage[any]{Type: "question", Payload: view}
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
