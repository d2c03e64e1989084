package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"coursetutor/internal/contextutil"
	"coursetutor/internal/llm"
	"coursetutor/internal/service"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// SessionRequest represents the HTTP request payload for a new chat session.
type SessionRequest struct {
	CourseID     int64  `json:"course_id"`
	TeachingMode string `json:"teaching_mode,omitempty"`
}

// SessionResponse is a chat session as returned by the API.
//
// swagger:model SessionResponse
type SessionResponse struct {
	ID        int64           `json:"id"`
	CourseID  int64           `json:"course_id"`
	Title     string          `json:"title"`
	Context   json.RawMessage `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ChatRequest represents the HTTP request payload for one chat turn.
// A zero session_id starts a new session in course_id.
//
// swagger:model ChatRequest
type ChatRequest struct {
	Message       string `json:"message"`
	SessionID     int64  `json:"session_id,omitempty"`
	CourseID      int64  `json:"course_id"`
	CurrentUnitID *int64 `json:"current_unit_id,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
//
// swagger:model ChatResponse
type ChatResponse struct {
	SessionID  int64  `json:"session_id"`
	Response   string `json:"response"`
	ChunksUsed int    `json:"chunks_used"`
	Grounded   bool   `json:"grounded"`
}

// MessageResponse is a stored chat message.
type MessageResponse struct {
	ID        int64           `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// streamEvent is one Server-Sent Events payload of a streamed answer.
type streamEvent struct {
	Chunk      string `json:"chunk,omitempty"`
	Done       bool   `json:"done,omitempty"`
	SessionID  int64  `json:"session_id,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds, set when the model is rate limited
}

func (r ChatRequest) toService() service.MessageRequest {
	return service.MessageRequest{
		Message:       r.Message,
		SessionID:     r.SessionID,
		CourseID:      r.CourseID,
		CurrentUnitID: r.CurrentUnitID,
	}
}

// rawJSON returns s as a raw JSON value, or nil when it is empty or not valid JSON.
func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}
	return json.RawMessage(s)
}

// CreateSession handles POST /api/chat/session.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.chatService.CreateSession(ctx, userID, service.CreateSessionRequest{
		CourseID:     req.CourseID,
		TeachingMode: req.TeachingMode,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create session")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, SessionResponse{
		ID:        session.ID,
		CourseID:  session.CourseID,
		Title:     session.Title,
		Context:   rawJSON(session.Context),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
}

// SendMessage handles POST /api/chat/message.
//
// swagger:route POST /api/chat/message chat sendMessage
//
// Answer a question from the course material in one response.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/ChatResponse"
//	'400':
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svcResp, err := h.chatService.SendMessage(ctx, userID, req.toService())
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process chat request")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ChatResponse{
		SessionID:  svcResp.SessionID,
		Response:   svcResp.Response,
		ChunksUsed: svcResp.ChunksUsed,
		Grounded:   svcResp.Grounded,
	})
}

// StreamMessage handles POST /api/chat/message/stream using Server-Sent Events.
// Each fragment is sent as {"chunk": ...}; the stream ends with
// {"done": true, "session_id": ...} or {"error": ...}.
func (h *ChatHandler) StreamMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Create a flusher to send data immediately
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// Headers are written lazily so that a rejected turn still gets a JSON error status.
	started := false
	send := func(ev streamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	sessionID, err := h.chatService.StreamMessage(ctx, userID, req.toService(), func(chunk string) error {
		return send(streamEvent{Chunk: chunk})
	})
	if err != nil {
		if !started && sessionID == 0 {
			handleServiceError(ctx, w, err, "Failed to process chat request")
			return
		}
		logger.ErrorContext(ctx, "error streaming chat", "session_id", sessionID, "error", err)
		_ = send(streamError(sessionID, err))
		return
	}

	_ = send(streamEvent{Done: true, SessionID: sessionID})
}

// streamError builds the terminal error event. A rate-limited model gets the
// same retry hint the non-streaming reply carries.
func streamError(sessionID int64, err error) streamEvent {
	ev := streamEvent{Error: "Failed to generate response", SessionID: sessionID}
	if retry, ok := llm.RetryAfter(err); ok {
		ev.RetryAfter = int(retry.Seconds())
		ev.Error = fmt.Sprintf("Rate limit reached. Please wait about %d seconds before trying again.", ev.RetryAfter)
	}
	return ev
}

// ListSessions handles GET /api/chat/sessions. An optional course_id query
// parameter restricts the list to one course.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}

	var courseID int64
	if raw := r.URL.Query().Get("course_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid course_id %q", raw))
			return
		}
		courseID = id
	}

	sessions, err := h.chatService.ListSessions(ctx, userID, courseID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list sessions")
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionResponse{
			ID:        s.ID,
			CourseID:  s.CourseID,
			Title:     s.Title,
			Context:   rawJSON(s.Context),
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// ListMessages handles GET /api/chat/sessions/{sessionID}/messages.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.chatService.ListMessages(ctx, userID, sessionID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list messages")
		return
	}

	resp := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, MessageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Metadata:  rawJSON(m.Metadata),
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
