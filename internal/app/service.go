package app

import (
	"context"
	"fmt"

	"livequiz-service/internal/domain"
)

// QuizRepository loads immutable quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ActivityMarker advertises which session codes are live (e.g. a Redis key
// per code). Best effort only; the in-process registry is the truth.
type ActivityMarker interface {
	MarkActive(code string)
	ClearActive(code string)
}

// SessionService is the command surface of the engine. It resolves session
// codes through the registry and delegates to the per-session actor; it
// never touches another session's state while serving a command.
type SessionService struct {
	registry      *Registry
	router        *Router
	recorder      Recorder
	quizzes       QuizRepository
	marker        ActivityMarker
	passThreshold int
	clock         clock
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	CodeFunc             CodeFunc
	CodeAttempts         int
	PassThresholdPercent int
	Marker               ActivityMarker
}

func NewSessionService(router *Router, recorder Recorder, quizzes QuizRepository, opts Options) *SessionService {
	if opts.PassThresholdPercent <= 0 {
		opts.PassThresholdPercent = 50
	}
	return &SessionService{
		registry:      NewRegistry(opts.CodeFunc, opts.CodeAttempts),
		router:        router,
		recorder:      recorder,
		quizzes:       quizzes,
		marker:        opts.Marker,
		passThreshold: opts.PassThresholdPercent,
		clock:         realClock{},
	}
}

// Router exposes the shared broadcast router (for the transport layer).
func (s *SessionService) Router() *Router { return s.router }

// ActiveSessions reports how many sessions are currently live.
func (s *SessionService) ActiveSessions() int { return s.registry.Len() }

// CreateSession loads the quiz, validates its invariants and allocates a new
// session under a fresh unique code.
func (s *SessionService) CreateSession(ctx context.Context, quizID string) (string, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	if err := validateQuiz(quiz); err != nil {
		return "", err
	}

	session, err := s.registry.Create(func(code string) *Session {
		return newSession(code, quiz, s.router, s.recorder, s.passThreshold, s.clock)
	})
	if err != nil {
		return "", err
	}

	_ = s.recorder.SessionCreated(ctx, session.Code(), quiz)
	if s.marker != nil {
		s.marker.MarkActive(session.Code())
	}
	return session.Code(), nil
}

func validateQuiz(quiz domain.Quiz) error {
	for _, q := range quiz.Questions {
		if len(q.CorrectOptions) == 0 {
			return fmt.Errorf("question %s: %w", q.ID, domain.ErrInvalidOption)
		}
		for _, idx := range q.CorrectOptions {
			if idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("question %s: %w", q.ID, domain.ErrInvalidOption)
			}
		}
	}
	return nil
}

// QuizTitle returns the title of the quiz a session is running.
func (s *SessionService) QuizTitle(code string) (string, error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.Title(), nil
}

// StartQuiz begins quiz progression for a session.
func (s *SessionService) StartQuiz(code string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Start()
}

// AdvanceQuestion opens the next question or ends the quiz.
func (s *SessionService) AdvanceQuestion(code string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Advance()
}

// EndQuestionEarly closes the open question before the deadline.
func (s *SessionService) EndQuestionEarly(code string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.EndQuestionEarly()
}

// EndSession destroys a session: everyone is notified, all connections in
// its broadcast groups are closed, and the code becomes not-found.
func (s *SessionService) EndSession(code, reason string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.shutdown(reason)
	s.router.DropSession(code)
	s.registry.Remove(code)
	if s.marker != nil {
		s.marker.ClearActive(code)
	}
	return nil
}

// Join adds a participant to a session, or revalidates an existing identity.
func (s *SessionService) Join(code, name, existingID string) (string, error) {
	session, ok := s.registry.Get(code)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.Join(name, existingID)
}

// AttachConnection wires a live connection into the session and resyncs it.
func (s *SessionService) AttachConnection(code string, role Role, participantID string, conn Conn) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.AttachConnection(role, participantID, conn)
}

// DetachConnection drops a live connection without touching the roster.
func (s *SessionService) DetachConnection(code string, role Role, participantID string, conn Conn) {
	session, ok := s.registry.Get(code)
	if !ok {
		return
	}
	session.DetachConnection(role, participantID, conn)
}

// SubmitAnswer records a participant's answer for the open question.
func (s *SessionService) SubmitAnswer(code, participantID, questionID string, optionIndex int) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(participantID, questionID, optionIndex)
}

// KickParticipant terminally removes a participant from a session.
func (s *SessionService) KickParticipant(code, participantID string) error {
	session, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Kick(participantID)
}
