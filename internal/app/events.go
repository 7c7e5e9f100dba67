package app

// Role identifies what a connection is allowed to see. Staff roles (host,
// presenter) receive payloads that include correct answers; participants
// never do.
type Role string

const (
	RoleHost        Role = "host"
	RolePresenter   Role = "presenter"
	RoleParticipant Role = "participant"
)

// EventType tags an outbound protocol event.
type EventType string

const (
	EventSessionCreated     EventType = "sessionCreated"
	EventJoined             EventType = "joined"
	EventParticipantJoined  EventType = "participantJoined"
	EventQuizStarted        EventType = "quizStarted"
	EventQuestionOpened     EventType = "questionOpened"
	EventAnswerAccepted     EventType = "answerAccepted"
	EventAnswerCountChanged EventType = "answerCountChanged"
	EventQuestionClosed     EventType = "questionClosed"
	EventQuizEnded          EventType = "quizEnded"
	EventParticipantKicked  EventType = "participantKicked"
	EventSessionEnded       EventType = "sessionEnded"
	EventSessionInvalid     EventType = "sessionInvalid"
)

// Event is one outbound frame. Payload is always one of the typed structs
// below; the type tag fixes the schema so a participant payload can never
// accidentally carry staff-only fields.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// SessionCreatedPayload carries the allocated code back to the host.
type SessionCreatedPayload struct {
	Code      string `json:"code"`
	QuizTitle string `json:"quizTitle"`
}

// JoinedPayload acknowledges a successful join to the joining connection.
type JoinedPayload struct {
	ParticipantID string `json:"participantId"`
	SessionCode   string `json:"sessionCode"`
	QuizTitle     string `json:"quizTitle"`
}

// ParticipantJoinedPayload announces the new roster size.
type ParticipantJoinedPayload struct {
	Count int `json:"count"`
}

type QuizStartedPayload struct {
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
}

// QuestionOpenedPayload is the participant-facing view of an open question.
// TimeLimitSeconds carries the remaining time on resync, the full limit
// otherwise. It deliberately has no field for correct options.
type QuestionOpenedPayload struct {
	QuestionID       string   `json:"questionId"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	QuestionNumber   int      `json:"questionNumber"`
	QuestionCount    int      `json:"questionCount"`
}

// StaffQuestionOpenedPayload is the host/presenter view, correct set included.
type StaffQuestionOpenedPayload struct {
	QuestionOpenedPayload
	CorrectOptions []int `json:"correctOptions"`
}

// AnswerAcceptedPayload acknowledges a recorded answer to its submitter.
// It never reveals correctness; that waits for the question to close.
type AnswerAcceptedPayload struct {
	QuestionID  string `json:"questionId"`
	OptionIndex int    `json:"optionIndex"`
}

type AnswerCountPayload struct {
	AnsweredCount     int `json:"answeredCount"`
	TotalParticipants int `json:"totalParticipants"`
}

// StaffQuestionClosedPayload carries the aggregate outcome of a question.
type StaffQuestionClosedPayload struct {
	QuestionID         string `json:"questionId"`
	CorrectOptions     []int  `json:"correctOptions"`
	OptionDistribution []int  `json:"optionDistribution"`
}

// ParticipantQuestionClosedPayload is unicast per participant; YourAnswer is
// nil when the participant never answered.
type ParticipantQuestionClosedPayload struct {
	QuestionID     string `json:"questionId"`
	CorrectOptions []int  `json:"correctOptions"`
	YourAnswer     *int   `json:"yourAnswer"`
	Correct        bool   `json:"correct"`
	RunningScore   int    `json:"runningScore"`
}

// QuizEndedPayload is unicast per participant with their final result.
type QuizEndedPayload struct {
	FinalScore       int  `json:"finalScore"`
	TotalScoreBudget int  `json:"totalScoreBudget"`
	CorrectCount     int  `json:"correctCount"`
	QuestionCount    int  `json:"questionCount"`
	Percentage       int  `json:"percentage"`
	Passed           bool `json:"passed"`
}

// StaffQuizEndedPayload is the host/presenter completion notice.
type StaffQuizEndedPayload struct {
	Title            string `json:"title"`
	QuestionCount    int    `json:"questionCount"`
	ParticipantCount int    `json:"participantCount"`
}

type ParticipantKickedPayload struct {
	ParticipantID string `json:"participantId"`
	Count         int    `json:"count"`
}

type SessionEndedPayload struct {
	Reason string `json:"reason"`
}

// SessionInvalidPayload tells a caller the code it referenced is unknown or
// destroyed. It is the protocol's only failure surface for participants.
type SessionInvalidPayload struct {
	Reason string `json:"reason"`
}
