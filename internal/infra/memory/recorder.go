package memory

import (
	"context"
	"sync"

	"livequiz-service/internal/domain"
)

// Recorder keeps recorded session facts in memory. It backs tests and
// storage-free runs; nothing in the engine ever reads these back.
type Recorder struct {
	mu        sync.Mutex
	sessions  map[string]string            // code -> quiz id
	joins     map[string][]string          // code -> participant ids in join order
	answers   []domain.AnswerRecord
	standings map[string][]domain.Standing // code -> final standings
	closed    map[string]string            // code -> close reason
}

func NewRecorder() *Recorder {
	return &Recorder{
		sessions:  make(map[string]string),
		joins:     make(map[string][]string),
		standings: make(map[string][]domain.Standing),
		closed:    make(map[string]string),
	}
}

func (r *Recorder) SessionCreated(_ context.Context, code string, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[code] = quiz.ID
	return nil
}

func (r *Recorder) ParticipantJoined(_ context.Context, code, participantID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins[code] = append(r.joins[code], participantID)
	return nil
}

func (r *Recorder) AnswerSubmitted(_ context.Context, rec domain.AnswerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, rec)
	return nil
}

func (r *Recorder) SessionFinished(_ context.Context, code string, standings []domain.Standing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.standings[code] = standings
	return nil
}

func (r *Recorder) SessionClosed(_ context.Context, code, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[code] = reason
	return nil
}

// Answers returns a copy of every recorded answer fact.
func (r *Recorder) Answers() []domain.AnswerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AnswerRecord, len(r.answers))
	copy(out, r.answers)
	return out
}

// Standings returns the persisted final standings for a session.
func (r *Recorder) Standings(code string) []domain.Standing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Standing(nil), r.standings[code]...)
}

// CloseReason returns the recorded close reason for a session, if any.
func (r *Recorder) CloseReason(code string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reason, ok := r.closed[code]
	return reason, ok
}
