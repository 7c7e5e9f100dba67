package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// WSHandler is the connection gateway: it upgrades HTTP requests to
// websockets, announces their role to the session engine and relays frames
// in both directions.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
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

type createPayload struct {
	QuizID string `json:"quizId"`
}

type joinPayload struct {
	Name          string `json:"name"`
	ParticipantID string `json:"participantId"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
}

type kickPayload struct {
	ParticipantID string `json:"participantId"`
}

// wsConn adapts a gorilla connection to the engine's Conn contract. Send is
// non-blocking: frames queue on a buffered channel drained by one writer
// goroutine, and a slow client loses its oldest frame rather than stalling a
// broadcast.
type wsConn struct {
	conn *websocket.Conn
	send chan app.Event
	done chan struct{}
	once sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	c := &wsConn{
		conn: conn,
		send: make(chan app.Event, 32),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// closeGrace bounds how long the writer may spend flushing frames that were
// queued before Close, so a dead peer cannot hold the socket open.
const closeGrace = time.Second

func (c *wsConn) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("ws: write error: %v", err)
				c.Close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes out frames already queued at close time. Terminal notices
// (sessionInvalid, sessionEnded, the kicked notice) are sent right before
// the socket closes and must not be lost with it.
func (c *wsConn) flush() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(closeGrace))
	for {
		select {
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *wsConn) Send(ev app.Event) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
}

// Close stops accepting frames and signals the writer, which flushes what is
// already queued and then closes the underlying socket.
func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// ServeWS handles one websocket connection for its whole lifetime. The role
// query parameter decides which commands the read loop accepts.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := app.Role(r.URL.Query().Get("role"))
	code := r.URL.Query().Get("code")

	switch role {
	case app.RoleHost, app.RolePresenter, app.RoleParticipant:
	default:
		http.Error(w, "missing or invalid role", http.StatusBadRequest)
		return
	}
	if role != app.RoleHost && code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	conn := newWSConn(raw)
	defer conn.Close()

	switch role {
	case app.RoleParticipant:
		h.serveParticipant(conn, code, r.URL.Query().Get("name"), r.URL.Query().Get("participantId"))
	case app.RolePresenter:
		h.serveStaff(conn, app.RolePresenter, code, false)
	case app.RoleHost:
		h.serveStaff(conn, app.RoleHost, code, true)
	}
}

func (h *WSHandler) serveParticipant(conn *wsConn, code, name, existingID string) {
	participantID, err := h.service.Join(code, name, existingID)
	if err != nil {
		h.reject(conn, err)
		return
	}
	if err := h.service.AttachConnection(code, app.RoleParticipant, participantID, conn); err != nil {
		h.reject(conn, err)
		return
	}
	defer h.service.DetachConnection(code, app.RoleParticipant, participantID, conn)

	title, _ := h.service.QuizTitle(code)
	conn.Send(app.Event{Type: app.EventJoined, Payload: app.JoinedPayload{
		ParticipantID: participantID,
		SessionCode:   code,
		QuizTitle:     title,
	}})

	for {
		var inbound inboundMessage
		if err := conn.conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			if err := h.service.SubmitAnswer(code, participantID, payload.QuestionID, payload.OptionIndex); err != nil {
				// Rejected commands are expected from clients with stale
				// state; log low and move on.
				log.Printf("ws: answer rejected for %s: %v", participantID, err)
				if errors.Is(err, domain.ErrSessionNotFound) {
					h.reject(conn, err)
					return
				}
			}
		default:
			log.Printf("ws: unsupported participant message %q", inbound.Type)
		}
	}
}

func (h *WSHandler) serveStaff(conn *wsConn, role app.Role, code string, isHost bool) {
	if code != "" {
		if err := h.service.AttachConnection(code, role, "", conn); err != nil {
			h.reject(conn, err)
			return
		}
	}
	defer func() {
		if code != "" {
			h.service.DetachConnection(code, role, "", conn)
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.conn.ReadJSON(&inbound); err != nil {
			return
		}
		if !isHost {
			log.Printf("ws: presenter sent unexpected message %q", inbound.Type)
			continue
		}

		var err error
		switch inbound.Type {
		case "create":
			var payload createPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			newCode, createErr := h.service.CreateSession(context.Background(), payload.QuizID)
			if createErr != nil {
				h.reject(conn, createErr)
				continue
			}
			if code != "" {
				h.service.DetachConnection(code, role, "", conn)
			}
			code = newCode
			if attachErr := h.service.AttachConnection(code, role, "", conn); attachErr != nil {
				h.reject(conn, attachErr)
				continue
			}
			title, _ := h.service.QuizTitle(code)
			conn.Send(app.Event{Type: app.EventSessionCreated, Payload: app.SessionCreatedPayload{
				Code:      code,
				QuizTitle: title,
			}})
			continue
		case "start":
			err = h.service.StartQuiz(code)
		case "advance":
			err = h.service.AdvanceQuestion(code)
		case "endQuestion":
			err = h.service.EndQuestionEarly(code)
		case "endSession":
			err = h.service.EndSession(code, "host ended session")
			if err == nil {
				return
			}
		case "kick":
			var payload kickPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			err = h.service.KickParticipant(code, payload.ParticipantID)
		default:
			log.Printf("ws: unsupported host message %q", inbound.Type)
			continue
		}
		if err != nil {
			log.Printf("ws: host command %q rejected: %v", inbound.Type, err)
			if errors.Is(err, domain.ErrSessionNotFound) {
				h.reject(conn, err)
			}
		}
	}
}

// reject surfaces an unknown/destroyed session (or another definite
// failure) as the protocol's sessionInvalid event.
func (h *WSHandler) reject(conn *wsConn, err error) {
	conn.Send(app.Event{Type: app.EventSessionInvalid, Payload: app.SessionInvalidPayload{
		Reason: err.Error(),
	}})
}
