package app

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
)

// Phase is the session's position in its lifecycle state machine.
type Phase int

const (
	// PhaseCreated: quiz attached, roster open, nothing started.
	PhaseCreated Phase = iota
	// PhaseStarted: start issued, first question not yet opened.
	PhaseStarted
	// PhaseQuestionOpen: exactly one question accepting answers.
	PhaseQuestionOpen
	// PhaseQuestionClosed: current question resolved, awaiting advance.
	PhaseQuestionClosed
	// PhaseEnded: quiz progression finished; session object still live.
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseStarted:
		return "started"
	case PhaseQuestionOpen:
		return "questionOpen"
	case PhaseQuestionClosed:
		return "questionClosed"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// questionTimer is the single outstanding deadline timer of a session,
// pinned to the question index it was armed for. It is cancelled on every
// transition that supersedes it, so a fired-but-stale callback can only
// lose the race, never act.
type questionTimer struct {
	handle   timerHandle
	question int
}

// Session is one independently running quiz instance. All mutation happens
// under its own mutex, serialized per session: commands and the timer
// callback queue on the same lock, so observers see one linear history.
// Cross-session state lives only in the Router and Recorder, which are safe
// for concurrent use.
type Session struct {
	code string
	quiz domain.Quiz

	clock         clock
	router        *Router
	recorder      Recorder
	passThreshold int

	mu           sync.Mutex
	phase        Phase
	current      int // -1 before the first question
	openedAt     time.Time
	deadline     time.Time
	timer        *questionTimer
	participants map[string]*domain.Participant
	destroyed    bool
}

func newSession(code string, quiz domain.Quiz, router *Router, recorder Recorder, passThreshold int, clk clock) *Session {
	return &Session{
		code:          code,
		quiz:          quiz,
		clock:         clk,
		router:        router,
		recorder:      recorder,
		passThreshold: passThreshold,
		phase:         PhaseCreated,
		current:       -1,
		participants:  make(map[string]*domain.Participant),
	}
}

// Code returns the session's join code.
func (s *Session) Code() string { return s.code }

// Title returns the quiz title. The quiz is immutable, so no lock is needed.
func (s *Session) Title() string { return s.quiz.Title }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentQuestion returns the zero-based index of the current question, or
// -1 before the first advance.
func (s *Session) CurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ParticipantCount is the roster size excluding kicked participants.
func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return activeCount(s.participants)
}

// Join registers a new participant, or revalidates an existing id so a
// reloaded client keeps its identity and score history.
func (s *Session) Join(name, existingID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return "", domain.ErrSessionNotFound
	}
	if existingID != "" {
		if p, ok := s.participants[existingID]; ok {
			if p.Kicked {
				return "", domain.ErrParticipantKicked
			}
			return p.ID, nil
		}
	}
	if s.phase == PhaseEnded {
		return "", domain.ErrWrongPhase
	}

	id := uuid.NewString()
	s.participants[id] = &domain.Participant{
		ID:       id,
		Name:     name,
		Answers:  make(map[string]domain.Answer),
		JoinedAt: s.clock.Now(),
	}
	_ = s.recorder.ParticipantJoined(context.Background(), s.code, id, name)
	s.router.ToStaff(s.code, Event{Type: EventParticipantJoined, Payload: ParticipantJoinedPayload{
		Count: activeCount(s.participants),
	}})
	return id, nil
}

// Start moves the session into its running lifecycle. Allowed from Created
// and from Ended (re-running a loaded quiz); every participant's answers and
// score are reset either way.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return domain.ErrSessionNotFound
	}
	if s.phase != PhaseCreated && s.phase != PhaseEnded {
		return domain.ErrWrongPhase
	}
	if len(s.quiz.Questions) == 0 {
		return domain.ErrQuizEmpty
	}

	for _, p := range s.participants {
		p.Answers = make(map[string]domain.Answer)
		p.CorrectCount = 0
	}
	s.phase = PhaseStarted
	s.current = -1

	started := Event{Type: EventQuizStarted, Payload: QuizStartedPayload{
		Title:         s.quiz.Title,
		QuestionCount: len(s.quiz.Questions),
	}}
	s.router.ToStaff(s.code, started)
	s.router.ToParticipants(s.code, started)
	return nil
}

// Advance opens the next question, or ends the quiz when none remain.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return domain.ErrSessionNotFound
	}
	if s.phase != PhaseStarted && s.phase != PhaseQuestionClosed {
		return domain.ErrWrongPhase
	}

	s.cancelTimerLocked()
	next := s.current + 1
	if next >= len(s.quiz.Questions) {
		s.endQuizLocked()
		return nil
	}
	s.openQuestionLocked(next)
	return nil
}

func (s *Session) openQuestionLocked(idx int) {
	q := s.quiz.Questions[idx]
	s.current = idx
	s.phase = PhaseQuestionOpen
	s.openedAt = s.clock.Now()
	s.deadline = s.openedAt.Add(time.Duration(q.TimeLimitSeconds) * time.Second)
	s.timer = &questionTimer{
		question: idx,
		handle: s.clock.AfterFunc(time.Duration(q.TimeLimitSeconds)*time.Second, func() {
			s.onDeadline(idx)
		}),
	}

	payload := QuestionOpenedPayload{
		QuestionID:       q.ID,
		Text:             q.Text,
		Options:          q.Options,
		TimeLimitSeconds: q.TimeLimitSeconds,
		QuestionNumber:   idx + 1,
		QuestionCount:    len(s.quiz.Questions),
	}
	s.router.ToParticipants(s.code, Event{Type: EventQuestionOpened, Payload: payload})
	s.router.ToStaff(s.code, Event{Type: EventQuestionOpened, Payload: StaffQuestionOpenedPayload{
		QuestionOpenedPayload: payload,
		CorrectOptions:        q.CorrectOptions,
	}})
}

// onDeadline is the timer callback. It re-checks, under the lock, that it is
// still the armed question and the question is still open; a concurrent
// EndQuestionEarly or Advance wins the race and this becomes a no-op.
func (s *Session) onDeadline(question int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.phase != PhaseQuestionOpen || s.current != question {
		return
	}
	s.timer = nil
	s.closeQuestionLocked()
}

// EndQuestionEarly closes the open question before its deadline. Calling it
// after the question already closed is a no-op; whichever of host command
// and timer arrives first wins.
func (s *Session) EndQuestionEarly() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return domain.ErrSessionNotFound
	}
	if s.phase == PhaseQuestionClosed {
		return nil
	}
	if s.phase != PhaseQuestionOpen {
		return domain.ErrWrongPhase
	}

	s.cancelTimerLocked()
	s.closeQuestionLocked()
	return nil
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.handle.Stop()
		s.timer = nil
	}
}

func (s *Session) closeQuestionLocked() {
	q := s.quiz.Questions[s.current]
	s.phase = PhaseQuestionClosed

	// Question close is the single place correctness becomes score: it runs
	// exactly once per question, so counts cannot double-increment.
	for _, p := range s.participants {
		if p.Kicked {
			continue
		}
		if answer, ok := p.Answers[q.ID]; ok && answer.Correct {
			p.CorrectCount++
		}
	}

	s.router.ToStaff(s.code, Event{Type: EventQuestionClosed, Payload: StaffQuestionClosedPayload{
		QuestionID:         q.ID,
		CorrectOptions:     q.CorrectOptions,
		OptionDistribution: optionDistribution(q, s.participants),
	}})
	for _, p := range s.participants {
		if p.Kicked {
			continue
		}
		s.router.ToParticipant(s.code, p.ID, Event{Type: EventQuestionClosed, Payload: s.participantClosedPayloadLocked(p)})
	}
}

func (s *Session) participantClosedPayloadLocked(p *domain.Participant) ParticipantQuestionClosedPayload {
	q := s.quiz.Questions[s.current]
	payload := ParticipantQuestionClosedPayload{
		QuestionID:     q.ID,
		CorrectOptions: q.CorrectOptions,
		RunningScore:   runningScore(p.CorrectCount, s.quiz.TotalScoreBudget, len(s.quiz.Questions)),
	}
	if answer, ok := p.Answers[q.ID]; ok {
		idx := answer.OptionIndex
		payload.YourAnswer = &idx
		payload.Correct = answer.Correct
	}
	return payload
}

func (s *Session) endQuizLocked() {
	s.phase = PhaseEnded
	s.cancelTimerLocked()

	standings := finalStandings(s.participants, s.quiz.TotalScoreBudget, len(s.quiz.Questions), s.passThreshold)
	for _, st := range standings {
		s.router.ToParticipant(s.code, st.ParticipantID, Event{Type: EventQuizEnded, Payload: QuizEndedPayload{
			FinalScore:       st.FinalScore,
			TotalScoreBudget: s.quiz.TotalScoreBudget,
			CorrectCount:     st.CorrectCount,
			QuestionCount:    len(s.quiz.Questions),
			Percentage:       st.Percentage,
			Passed:           st.Passed,
		}})
	}
	s.router.ToStaff(s.code, Event{Type: EventQuizEnded, Payload: StaffQuizEndedPayload{
		Title:            s.quiz.Title,
		QuestionCount:    len(s.quiz.Questions),
		ParticipantCount: activeCount(s.participants),
	}})
	_ = s.recorder.SessionFinished(context.Background(), s.code, standings)
}

// SubmitAnswer validates and records a participant's answer. Preconditions
// are checked in order; each failure is a distinct, non-fatal rejection the
// caller may drop or map to a stale-state signal.
func (s *Session) SubmitAnswer(participantID, questionID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return domain.ErrSessionNotFound
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.Kicked {
		return domain.ErrParticipantKicked
	}
	if s.phase != PhaseQuestionOpen {
		return domain.ErrWrongPhase
	}
	q := s.quiz.Questions[s.current]
	if q.ID != questionID {
		return domain.ErrStaleQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return domain.ErrInvalidOption
	}
	if _, answered := p.Answers[questionID]; answered {
		return domain.ErrAlreadyAnswered
	}
	now := s.clock.Now()
	if now.After(s.deadline) {
		return domain.ErrDeadlinePassed
	}

	answer := domain.Answer{
		OptionIndex: optionIndex,
		Correct:     q.IsCorrect(optionIndex),
		Latency:     now.Sub(s.openedAt),
	}
	p.Answers[questionID] = answer

	_ = s.recorder.AnswerSubmitted(context.Background(), domain.AnswerRecord{
		SessionCode:   s.code,
		ParticipantID: participantID,
		QuestionID:    questionID,
		QuestionIndex: s.current,
		OptionIndex:   optionIndex,
		Correct:       answer.Correct,
		Latency:       answer.Latency,
		SubmittedAt:   now,
	})
	s.router.ToParticipant(s.code, participantID, Event{Type: EventAnswerAccepted, Payload: AnswerAcceptedPayload{
		QuestionID:  questionID,
		OptionIndex: optionIndex,
	}})
	s.router.ToStaff(s.code, Event{Type: EventAnswerCountChanged, Payload: AnswerCountPayload{
		AnsweredCount:     answeredCount(questionID, s.participants),
		TotalParticipants: activeCount(s.participants),
	}})
	return nil
}

// AttachConnection wires a transport connection into the session's broadcast
// groups and immediately resyncs it to the current phase, so a reconnecting
// client never sees a stale view.
func (s *Session) AttachConnection(role Role, participantID string, conn Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return domain.ErrSessionNotFound
	}
	if role == RoleParticipant {
		p, ok := s.participants[participantID]
		if !ok {
			return domain.ErrParticipantNotFound
		}
		if p.Kicked {
			return domain.ErrParticipantKicked
		}
		s.router.Attach(s.code, role, participantID, conn)
		s.resyncParticipantLocked(p, conn)
		return nil
	}

	s.router.Attach(s.code, role, "", conn)
	s.resyncStaffLocked(conn)
	return nil
}

// DetachConnection drops a connection from the broadcast groups. Roster
// membership and any open deadline are unaffected; the quiz runs on.
func (s *Session) DetachConnection(role Role, participantID string, conn Conn) {
	s.router.Detach(s.code, role, participantID, conn)
}

func (s *Session) remainingSecondsLocked() int {
	remaining := int(math.Ceil(s.deadline.Sub(s.clock.Now()).Seconds()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Session) resyncParticipantLocked(p *domain.Participant, conn Conn) {
	switch s.phase {
	case PhaseStarted:
		conn.Send(Event{Type: EventQuizStarted, Payload: QuizStartedPayload{
			Title:         s.quiz.Title,
			QuestionCount: len(s.quiz.Questions),
		}})
	case PhaseQuestionOpen:
		q := s.quiz.Questions[s.current]
		conn.Send(Event{Type: EventQuestionOpened, Payload: QuestionOpenedPayload{
			QuestionID:       q.ID,
			Text:             q.Text,
			Options:          q.Options,
			TimeLimitSeconds: s.remainingSecondsLocked(),
			QuestionNumber:   s.current + 1,
			QuestionCount:    len(s.quiz.Questions),
		}})
	case PhaseQuestionClosed:
		conn.Send(Event{Type: EventQuestionClosed, Payload: s.participantClosedPayloadLocked(p)})
	case PhaseEnded:
		pct := percentage(p.CorrectCount, len(s.quiz.Questions))
		conn.Send(Event{Type: EventQuizEnded, Payload: QuizEndedPayload{
			FinalScore:       runningScore(p.CorrectCount, s.quiz.TotalScoreBudget, len(s.quiz.Questions)),
			TotalScoreBudget: s.quiz.TotalScoreBudget,
			CorrectCount:     p.CorrectCount,
			QuestionCount:    len(s.quiz.Questions),
			Percentage:       pct,
			Passed:           pct >= s.passThreshold,
		}})
	}
}

func (s *Session) resyncStaffLocked(conn Conn) {
	switch s.phase {
	case PhaseCreated:
		conn.Send(Event{Type: EventParticipantJoined, Payload: ParticipantJoinedPayload{
			Count: activeCount(s.participants),
		}})
	case PhaseStarted:
		conn.Send(Event{Type: EventQuizStarted, Payload: QuizStartedPayload{
			Title:         s.quiz.Title,
			QuestionCount: len(s.quiz.Questions),
		}})
	case PhaseQuestionOpen:
		q := s.quiz.Questions[s.current]
		conn.Send(Event{Type: EventQuestionOpened, Payload: StaffQuestionOpenedPayload{
			QuestionOpenedPayload: QuestionOpenedPayload{
				QuestionID:       q.ID,
				Text:             q.Text,
				Options:          q.Options,
				TimeLimitSeconds: s.remainingSecondsLocked(),
				QuestionNumber:   s.current + 1,
				QuestionCount:    len(s.quiz.Questions),
			},
			CorrectOptions: q.CorrectOptions,
		}})
	case PhaseQuestionClosed:
		q := s.quiz.Questions[s.current]
		conn.Send(Event{Type: EventQuestionClosed, Payload: StaffQuestionClosedPayload{
			QuestionID:         q.ID,
			CorrectOptions:     q.CorrectOptions,
			OptionDistribution: optionDistribution(q, s.participants),
		}})
	case PhaseEnded:
		conn.Send(Event{Type: EventQuizEnded, Payload: StaffQuizEndedPayload{
			Title:            s.quiz.Title,
			QuestionCount:    len(s.quiz.Questions),
			ParticipantCount: activeCount(s.participants),
		}})
	}
}

// Kick terminally removes a participant from the session. The connection is
// notified and closed; already-recorded answers stay in persistence.
func (s *Session) Kick(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return domain.ErrSessionNotFound
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.Kicked {
		return nil
	}
	p.Kicked = true

	notice := Event{Type: EventParticipantKicked, Payload: ParticipantKickedPayload{
		ParticipantID: participantID,
		Count:         activeCount(s.participants),
	}}
	s.router.ToParticipant(s.code, participantID, notice)
	s.router.CloseParticipant(s.code, participantID)
	s.router.ToStaff(s.code, notice)
	return nil
}

// shutdown marks the session destroyed and notifies everyone. The registry
// and router entries are removed by the service that owns them.
func (s *Session) shutdown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.destroyed = true
	s.cancelTimerLocked()

	ended := Event{Type: EventSessionEnded, Payload: SessionEndedPayload{Reason: reason}}
	s.router.ToStaff(s.code, ended)
	s.router.ToParticipants(s.code, ended)
	_ = s.recorder.SessionClosed(context.Background(), s.code, reason)
}
