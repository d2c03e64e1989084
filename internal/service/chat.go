package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag.go -package=mocks coursetutor/internal/service Retriever,Composer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks coursetutor/internal/service ChatService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"coursetutor/internal/chunking"
	"coursetutor/internal/contextutil"
	"coursetutor/internal/llm"
	"coursetutor/internal/rag"
	"coursetutor/internal/storage"
	"coursetutor/internal/vectorstore"
)

// Retriever finds course chunks relevant to a question. *rag.Retriever implements it.
type Retriever interface {
	Retrieve(ctx context.Context, courseID int64, query string, sc rag.SessionContext) ([]chunking.RetrievedChunk, error)
}

// Composer writes answers from retrieved chunks. *rag.Composer implements it.
type Composer interface {
	Compose(ctx context.Context, in rag.ComposeInput) (rag.Answer, error)
	Stream(ctx context.Context, in rag.ComposeInput, onComplete func(rag.Answer)) iter.Seq2[string, error]
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTeachingMode is used when a session is created without one.
const DefaultTeachingMode = "qa"

const (
	sessionTitleLen = 50
	lastTopicLen    = 200
	errDetailLen    = 100
)

// CreateSessionRequest starts a chat session in a course.
type CreateSessionRequest struct {
	CourseID     int64
	TeachingMode string
}

// MessageRequest is one user turn. A zero SessionID starts a new session.
type MessageRequest struct {
	Message       string
	SessionID     int64
	CourseID      int64
	CurrentUnitID *int64
}

// MessageResponse is the assistant's reply to one turn.
type MessageResponse struct {
	SessionID  int64
	Response   string
	ChunksUsed int
	Grounded   bool
}

// ChatService runs tutoring conversations.
type ChatService interface {
	CreateSession(ctx context.Context, userID string, req CreateSessionRequest) (*storage.ChatSession, error)
	// SendMessage answers in one piece. Generation failures become a friendly
	// reply rather than an error, and are persisted like any other answer.
	SendMessage(ctx context.Context, userID string, req MessageRequest) (MessageResponse, error)
	// StreamMessage delivers the answer through callback as it is generated.
	// The returned session ID is valid whenever the turn was started, even on error.
	StreamMessage(ctx context.Context, userID string, req MessageRequest, callback func(chunk string) error) (int64, error)
	ListSessions(ctx context.Context, userID string, courseID int64) ([]storage.ChatSession, error)
	ListMessages(ctx context.Context, userID string, sessionID int64) ([]storage.Message, error)
}

type chatService struct {
	courses   storage.CourseStore
	units     storage.UnitStore
	sessions  storage.SessionStore
	messages  storage.MessageStore
	retriever Retriever
	composer  Composer
}

// NewChatService creates a new ChatService.
func NewChatService(
	courses storage.CourseStore,
	units storage.UnitStore,
	sessions storage.SessionStore,
	messages storage.MessageStore,
	retriever Retriever,
	composer Composer,
) ChatService {
	return &chatService{
		courses:   courses,
		units:     units,
		sessions:  sessions,
		messages:  messages,
		retriever: retriever,
		composer:  composer,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userID string, req CreateSessionRequest) (*storage.ChatSession, error) {
	if _, err := ownedCourse(ctx, s.courses, userID, req.CourseID); err != nil {
		return nil, err
	}
	mode := strings.TrimSpace(req.TeachingMode)
	if mode == "" {
		mode = DefaultTeachingMode
	}
	return s.newSession(ctx, userID, req.CourseID, "", rag.SessionContext{TeachingMode: mode})
}

func (s *chatService) newSession(ctx context.Context, userID string, courseID int64, title string, sc rag.SessionContext) (*storage.ChatSession, error) {
	encoded, err := json.Marshal(sc)
	if err != nil {
		return nil, WrapError(err, "failed to encode session context")
	}
	session := &storage.ChatSession{
		UserID:   userID,
		CourseID: courseID,
		Title:    title,
		Context:  string(encoded),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, WrapError(err, "failed to create session")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "chat session created",
		"session_id", session.ID,
		"course_id", courseID,
		"teaching_mode", sc.TeachingMode,
	)
	return session, nil
}

// turn is a started exchange: the user message is stored and context retrieved.
type turn struct {
	session     *storage.ChatSession
	sc          rag.SessionContext
	input       rag.ComposeInput
	retrieveErr error // Retrieval failure the answer path has to handle
}

// beginTurn validates the request, resolves the session, records the user
// message and retrieves context. A retrieval failure is recorded on the
// turn so the caller can decide how to answer.
func (s *chatService) beginTurn(ctx context.Context, userID string, req MessageRequest) (*turn, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Field: "message", Message: "cannot be empty"}
	}
	if req.CourseID <= 0 {
		return nil, &ValidationError{Field: "course_id", Message: "is required"}
	}

	course, err := ownedCourse(ctx, s.courses, userID, req.CourseID)
	if err != nil {
		return nil, err
	}

	session, sc, err := s.resolveSession(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	if req.CurrentUnitID != nil {
		unit, err := s.units.Get(ctx, *req.CurrentUnitID)
		switch {
		case err == nil && unit.CourseID == course.ID:
			sc.CurrentUnitID = unit.ID
			sc.CurrentUnitName = unit.Name
		case err == nil, errors.Is(err, storage.ErrNotFound):
			logger.WarnContext(ctx, "ignoring unknown current unit", "unit_id", *req.CurrentUnitID)
		default:
			return nil, WrapError(err, "failed to get current unit")
		}
	}

	if err := s.messages.Insert(ctx, &storage.Message{SessionID: session.ID, Role: RoleUser, Content: req.Message}); err != nil {
		return nil, WrapError(err, "failed to save message")
	}

	t := &turn{session: session, sc: sc}
	chunks, err := s.retriever.Retrieve(ctx, course.ID, req.Message, sc)
	switch {
	case err == nil:
	case errors.Is(err, vectorstore.ErrIndexUnavailable):
		logger.WarnContext(ctx, "vector index unavailable, answering without course material", "error", err)
		chunks = nil
	default:
		t.retrieveErr = err
	}

	t.input = rag.ComposeInput{
		Query:      req.Message,
		Chunks:     chunks,
		Session:    sc,
		CourseName: course.Name,
	}
	return t, nil
}

func (s *chatService) resolveSession(ctx context.Context, userID string, req MessageRequest) (*storage.ChatSession, rag.SessionContext, error) {
	if req.SessionID == 0 {
		sc := rag.SessionContext{TeachingMode: DefaultTeachingMode}
		session, err := s.newSession(ctx, userID, req.CourseID, truncate(req.Message, sessionTitleLen), sc)
		return session, sc, err
	}

	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, rag.SessionContext{}, storageError(err, "failed to get session")
	}
	if session.UserID != userID {
		return nil, rag.SessionContext{}, WrapError(ErrNotFound, "session not found")
	}
	if session.CourseID != req.CourseID {
		return nil, rag.SessionContext{}, &ValidationError{Field: "session_id", Message: "session belongs to another course"}
	}

	var sc rag.SessionContext
	if err := json.Unmarshal([]byte(session.Context), &sc); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "resetting unreadable session context", "session_id", session.ID, "error", err)
		sc = rag.SessionContext{}
	}
	if sc.TeachingMode == "" {
		sc.TeachingMode = DefaultTeachingMode
	}
	return session, sc, nil
}

type messageMeta struct {
	ChunksUsed int  `json:"chunks_used"`
	Grounded   bool `json:"grounded"`
}

// finishTurn stores the assistant reply and remembers the question as the session's last topic.
func (s *chatService) finishTurn(ctx context.Context, t *turn, text string, meta messageMeta) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return WrapError(err, "failed to encode message metadata")
	}
	if err := s.messages.Insert(ctx, &storage.Message{
		SessionID: t.session.ID,
		Role:      RoleAssistant,
		Content:   text,
		Metadata:  string(encoded),
	}); err != nil {
		return WrapError(err, "failed to save reply")
	}

	sc := t.sc
	sc.LastTopic = truncate(t.input.Query, lastTopicLen)
	encodedCtx, err := json.Marshal(sc)
	if err != nil {
		return WrapError(err, "failed to encode session context")
	}
	if err := s.sessions.UpdateContext(ctx, t.session.ID, string(encodedCtx)); err != nil {
		return WrapError(err, "failed to update session context")
	}
	return nil
}

func (s *chatService) SendMessage(ctx context.Context, userID string, req MessageRequest) (MessageResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	t, err := s.beginTurn(ctx, userID, req)
	if err != nil {
		logger.WarnContext(ctx, "chat turn rejected", "error", err)
		return MessageResponse{}, err
	}

	var answer rag.Answer
	if t.retrieveErr != nil {
		err = t.retrieveErr
	} else {
		answer, err = s.composer.Compose(ctx, t.input)
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer message", "session_id", t.session.ID, "error", err)
		answer = rag.Answer{Text: friendlyError(err)}
	}

	if err := s.finishTurn(ctx, t, answer.Text, messageMeta{ChunksUsed: answer.ChunksUsed, Grounded: answer.Grounded}); err != nil {
		return MessageResponse{}, err
	}

	logger.InfoContext(ctx, "chat message answered",
		"session_id", t.session.ID,
		"chunks_used", answer.ChunksUsed,
		"grounded", answer.Grounded,
		"reply_length", len(answer.Text),
	)
	return MessageResponse{
		SessionID:  t.session.ID,
		Response:   answer.Text,
		ChunksUsed: answer.ChunksUsed,
		Grounded:   answer.Grounded,
	}, nil
}

func (s *chatService) StreamMessage(ctx context.Context, userID string, req MessageRequest, callback func(chunk string) error) (int64, error) {
	logger := contextutil.LoggerFromContext(ctx)

	t, err := s.beginTurn(ctx, userID, req)
	if err != nil {
		logger.WarnContext(ctx, "chat turn rejected", "error", err)
		return 0, err
	}
	if t.retrieveErr != nil {
		return t.session.ID, externalError(t.retrieveErr, "failed to retrieve context")
	}

	var (
		final    rag.Answer
		complete bool
	)
	for fragment, err := range s.composer.Stream(ctx, t.input, func(a rag.Answer) {
		final, complete = a, true
	}) {
		if err != nil {
			logger.ErrorContext(ctx, "failed to stream answer", "session_id", t.session.ID, "error", err)
			return t.session.ID, externalError(err, "failed to stream answer")
		}
		if err := callback(fragment); err != nil {
			return t.session.ID, WrapError(err, "failed to deliver fragment")
		}
	}
	if !complete {
		return t.session.ID, WrapError(ErrExternalService, "stream ended without completing")
	}

	if err := s.finishTurn(ctx, t, final.Text, messageMeta{ChunksUsed: final.ChunksUsed, Grounded: final.Grounded}); err != nil {
		return t.session.ID, err
	}
	logger.InfoContext(ctx, "chat message streamed",
		"session_id", t.session.ID,
		"chunks_used", final.ChunksUsed,
		"grounded", final.Grounded,
		"reply_length", len(final.Text),
	)
	return t.session.ID, nil
}

func (s *chatService) ListSessions(ctx context.Context, userID string, courseID int64) ([]storage.ChatSession, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, courseID)
	if err != nil {
		return nil, WrapError(err, "failed to list sessions")
	}
	return sessions, nil
}

func (s *chatService) ListMessages(ctx context.Context, userID string, sessionID int64) ([]storage.Message, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, storageError(err, "failed to get session")
	}
	if session.UserID != userID {
		return nil, WrapError(ErrNotFound, "session not found")
	}
	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, WrapError(err, "failed to list messages")
	}
	return messages, nil
}

// friendlyError renders a generation failure as a reply the student can act on.
func friendlyError(err error) string {
	if retryAfter, ok := llm.RetryAfter(err); ok {
		return fmt.Sprintf("⚠️ **Rate Limit Reached**\n\nThe AI service has reached its request limit. "+
			"Please wait about %d seconds before trying again.", int(retryAfter.Seconds()))
	}
	return "⚠️ **Error**\n\nSorry, there was an error generating a response. Please try again.\n\n" +
		"Error details: " + truncate(err.Error(), errDetailLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
