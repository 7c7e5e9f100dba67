package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session code resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a participant id is unknown to the session.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrParticipantKicked is returned when a kicked participant tries to act.
	ErrParticipantKicked = errors.New("participant was removed from session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty indicates a quiz with no questions cannot be started.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrWrongPhase rejects a command that is invalid in the session's current phase.
	ErrWrongPhase = errors.New("command not valid in current phase")
	// ErrStaleQuestion rejects an answer for a question that is no longer current.
	ErrStaleQuestion = errors.New("answer refers to a stale question")
	// ErrAlreadyAnswered rejects a duplicate answer; the first write wins.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidOption rejects an answer whose option index is out of range.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrDeadlinePassed rejects an answer that arrived after the question deadline.
	ErrDeadlinePassed = errors.New("question deadline passed")
	// ErrCodeSpaceExhausted is returned when session code allocation runs out of retries.
	ErrCodeSpaceExhausted = errors.New("session code allocation exhausted")
)
