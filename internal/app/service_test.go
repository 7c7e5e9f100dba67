package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

func newTestService(t *testing.T) (*SessionService, *memory.Recorder) {
	t.Helper()
	recorder := memory.NewRecorder()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": twoQuestionQuiz(),
	}), 5*time.Minute)
	service := NewSessionService(NewRouter(), recorder, quizzes, Options{})
	return service, recorder
}

func TestCreateSessionLoadsQuiz(t *testing.T) {
	service, _ := newTestService(t)

	code, err := service.CreateSession(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(code) != DefaultCodeLength {
		t.Fatalf("unexpected code %q", code)
	}
	title, err := service.QuizTitle(code)
	if err != nil || title != "Capitals" {
		t.Fatalf("title %q err %v", title, err)
	}

	if _, err := service.CreateSession(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	codeA, err := service.CreateSession(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	codeB, err := service.CreateSession(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("create B: %v", err)
	}

	pidA, err := service.Join(codeA, "Alice", "")
	if err != nil {
		t.Fatalf("join A: %v", err)
	}
	if err := service.StartQuiz(codeA); err != nil {
		t.Fatalf("start A: %v", err)
	}
	if err := service.AdvanceQuestion(codeA); err != nil {
		t.Fatalf("advance A: %v", err)
	}

	// Commands against A never alter B.
	sessionB, _ := service.registry.Get(codeB)
	if sessionB.Phase() != PhaseCreated {
		t.Fatalf("session B phase changed: %v", sessionB.Phase())
	}
	if sessionB.ParticipantCount() != 0 {
		t.Fatalf("session B roster changed")
	}
	// A's participant id is meaningless in B.
	if err := service.SubmitAnswer(codeB, pidA, "q1", 1); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound in B, got %v", err)
	}
}

func TestEndSessionDestroys(t *testing.T) {
	service, recorder := newTestService(t)
	ctx := context.Background()

	code, err := service.CreateSession(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pid, _ := service.Join(code, "Alice", "")
	conn := &fakeConn{}
	if err := service.AttachConnection(code, RoleParticipant, pid, conn); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := service.EndSession(code, "done"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if !conn.Closed() {
		t.Fatalf("connection should be closed on endSession")
	}
	if _, ok := conn.lastOfType(EventSessionEnded); !ok {
		t.Fatalf("sessionEnded not delivered before close")
	}
	if reason, ok := recorder.CloseReason(code); !ok || reason != "done" {
		t.Fatalf("close reason not recorded: %q %v", reason, ok)
	}

	// The code is gone, not stale.
	if err := service.StartQuiz(code); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after end, got %v", err)
	}
	if _, err := service.Join(code, "Bob", ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on join, got %v", err)
	}
}

func TestAnswersPersistedAndKickKeepsHistory(t *testing.T) {
	service, recorder := newTestService(t)
	ctx := context.Background()

	code, _ := service.CreateSession(ctx, "quiz-1")
	pid, _ := service.Join(code, "Alice", "")
	_ = service.StartQuiz(code)
	_ = service.AdvanceQuestion(code)
	if err := service.SubmitAnswer(code, pid, "q1", 1); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if err := service.KickParticipant(code, pid); err != nil {
		t.Fatalf("kick: %v", err)
	}

	answers := recorder.Answers()
	if len(answers) != 1 {
		t.Fatalf("expected 1 persisted answer, got %d", len(answers))
	}
	rec := answers[0]
	if rec.SessionCode != code || rec.ParticipantID != pid || !rec.Correct {
		t.Fatalf("answer record wrong: %+v", rec)
	}
}

func TestFinalStandingsPersisted(t *testing.T) {
	service, recorder := newTestService(t)
	ctx := context.Background()

	code, _ := service.CreateSession(ctx, "quiz-1")
	pid, _ := service.Join(code, "Alice", "")
	_ = service.StartQuiz(code)
	_ = service.AdvanceQuestion(code)
	_ = service.SubmitAnswer(code, pid, "q1", 1)
	_ = service.EndQuestionEarly(code)
	_ = service.AdvanceQuestion(code)
	_ = service.SubmitAnswer(code, pid, "q2", 2)
	_ = service.EndQuestionEarly(code)
	_ = service.AdvanceQuestion(code) // past the last question: quiz ends

	standings := recorder.Standings(code)
	if len(standings) != 1 {
		t.Fatalf("expected 1 standing, got %d", len(standings))
	}
	if standings[0].FinalScore != 100 || standings[0].Percentage != 100 || !standings[0].Passed {
		t.Fatalf("standing wrong: %+v", standings[0])
	}
}

func TestAsyncRecorderNeverBlocks(t *testing.T) {
	async := &AsyncRecorder{
		inner:   blockingRecorder{},
		jobs:    make(chan func(context.Context), 1),
		done:    make(chan struct{}),
		timeout: 10 * time.Millisecond,
	}
	go async.run()
	defer async.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more facts than the queue holds; enqueue must drop, not block.
		for i := 0; i < 100; i++ {
			_ = async.AnswerSubmitted(context.Background(), domain.AnswerRecord{})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("async recorder blocked the caller")
	}
}

func TestAsyncRecorderDropsAfterClose(t *testing.T) {
	async := NewAsyncRecorder(NopRecorder{}, 4)
	async.Close()

	// Facts arriving after Close are dropped, never a panic on the closed
	// queue. Close again is also a no-op.
	if err := async.AnswerSubmitted(context.Background(), domain.AnswerRecord{}); err != nil {
		t.Fatalf("enqueue after close: %v", err)
	}
	if err := async.SessionClosed(context.Background(), "ABCDEF", "late"); err != nil {
		t.Fatalf("enqueue after close: %v", err)
	}
	async.Close()
}

type blockingRecorder struct{ NopRecorder }

func (blockingRecorder) AnswerSubmitted(ctx context.Context, _ domain.AnswerRecord) error {
	<-ctx.Done()
	return ctx.Err()
}
