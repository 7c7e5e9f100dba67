package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"livequiz-service/internal/domain"
)

// Recorder persists session facts to Postgres through bun. It implements
// the engine's persistence gateway; the engine wraps it in the async
// write-behind queue, so every method here may block on the database.
type Recorder struct {
	db *bun.DB
}

func NewRecorder(db *bun.DB) *Recorder {
	return &Recorder{db: db}
}

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	Code      string     `bun:"code,pk"`
	QuizID    string     `bun:"quiz_id"`
	Title     string     `bun:"title"`
	CreatedAt time.Time  `bun:"created_at"`
	EndedAt   *time.Time `bun:"ended_at"`
	EndReason string     `bun:"end_reason"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:session_participants"`

	SessionCode   string    `bun:"session_code,pk"`
	ParticipantID string    `bun:"participant_id,pk"`
	Name          string    `bun:"name"`
	JoinedAt      time.Time `bun:"joined_at"`
	CorrectCount  int       `bun:"correct_count"`
	FinalScore    int       `bun:"final_score"`
	Percentage    int       `bun:"percentage"`
	Passed        bool      `bun:"passed"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:session_answers"`

	SessionCode   string    `bun:"session_code"`
	ParticipantID string    `bun:"participant_id"`
	QuestionID    string    `bun:"question_id"`
	QuestionIndex int       `bun:"question_index"`
	OptionIndex   int       `bun:"option_index"`
	Correct       bool      `bun:"correct"`
	LatencyMillis int64     `bun:"latency_ms"`
	SubmittedAt   time.Time `bun:"submitted_at"`
}

func (r *Recorder) SessionCreated(ctx context.Context, code string, quiz domain.Quiz) error {
	row := &sessionRow{
		Code:      code,
		QuizID:    quiz.ID,
		Title:     quiz.Title,
		CreatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().Model(row).
		On("CONFLICT (code) DO UPDATE").
		Set("quiz_id = EXCLUDED.quiz_id, title = EXCLUDED.title").
		Exec(ctx)
	return err
}

func (r *Recorder) ParticipantJoined(ctx context.Context, code, participantID, name string) error {
	row := &participantRow{
		SessionCode:   code,
		ParticipantID: participantID,
		Name:          name,
		JoinedAt:      time.Now(),
	}
	// Rejoins after reconnect are the same identity; keep the first row.
	_, err := r.db.NewInsert().Model(row).
		On("CONFLICT (session_code, participant_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *Recorder) AnswerSubmitted(ctx context.Context, rec domain.AnswerRecord) error {
	row := &answerRow{
		SessionCode:   rec.SessionCode,
		ParticipantID: rec.ParticipantID,
		QuestionID:    rec.QuestionID,
		QuestionIndex: rec.QuestionIndex,
		OptionIndex:   rec.OptionIndex,
		Correct:       rec.Correct,
		LatencyMillis: rec.Latency.Milliseconds(),
		SubmittedAt:   rec.SubmittedAt,
	}
	_, err := r.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (r *Recorder) SessionFinished(ctx context.Context, code string, standings []domain.Standing) error {
	for _, st := range standings {
		_, err := r.db.NewUpdate().Model((*participantRow)(nil)).
			Set("correct_count = ?", st.CorrectCount).
			Set("final_score = ?", st.FinalScore).
			Set("percentage = ?", st.Percentage).
			Set("passed = ?", st.Passed).
			Where("session_code = ?", code).
			Where("participant_id = ?", st.ParticipantID).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) SessionClosed(ctx context.Context, code, reason string) error {
	now := time.Now()
	_, err := r.db.NewUpdate().Model((*sessionRow)(nil)).
		Set("ended_at = ?", now).
		Set("end_reason = ?", reason).
		Where("code = ?", code).
		Exec(ctx)
	return err
}
