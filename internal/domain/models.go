package domain

import "time"

// Question models a timed MCQ question. CorrectOptions holds the indices of
// every option that counts as correct; a submission is correct when its
// chosen index is one of them.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectOptions   []int    `json:"correctOptions"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// IsCorrect reports whether the chosen option index is in the correct set.
func (q Question) IsCorrect(optionIndex int) bool {
	for _, idx := range q.CorrectOptions {
		if idx == optionIndex {
			return true
		}
	}
	return false
}

// Quiz is the immutable unit the session engine runs. It is produced
// externally (markdown compiler, seed data) and never mutated here.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	TotalScoreBudget int        `json:"totalScoreBudget"`
	Questions        []Question `json:"questions"`
}

// Answer is one participant's recorded answer to one question.
// First write wins; the engine never overwrites an entry.
type Answer struct {
	OptionIndex int
	Correct     bool
	Latency     time.Duration
}

// Participant is a joined player identity, stable across reconnects and
// scoped to one session. Kicked is terminal within the session.
type Participant struct {
	ID           string
	Name         string
	Answers      map[string]Answer // question id -> first recorded answer
	CorrectCount int
	Kicked       bool
	JoinedAt     time.Time
}

// AnswerRecord is the immutable fact handed to the persistence gateway at
// submission time.
type AnswerRecord struct {
	SessionCode   string
	ParticipantID string
	QuestionID    string
	QuestionIndex int
	OptionIndex   int
	Correct       bool
	Latency       time.Duration
	SubmittedAt   time.Time
}

// Standing is one participant's final result, persisted when the quiz ends.
type Standing struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	CorrectCount  int    `json:"correctCount"`
	FinalScore    int    `json:"finalScore"`
	Percentage    int    `json:"percentage"`
	Passed        bool   `json:"passed"`
}
