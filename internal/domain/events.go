package domain

import "time"

// Event types sent to session rooms or to a single connection.
const (
	EventJoined            = "joined"
	EventParticipantJoined = "participant_joined"
	EventSessionStarted    = "session_started"
	EventQuestion          = "question"
	EventNextQuestion      = "next_question"
	EventAnswerSubmitted   = "answer_submitted"
	EventAnswerRevealed    = "answer_revealed"
	EventQuizCompleted     = "quiz_completed"
	EventError             = "error"
)

// Event is the outbound envelope. Timestamp is set at emission and
// serializes as RFC 3339.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an envelope with the current time.
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
}

// SessionStartedPayload announces the transition to in_progress.
type SessionStartedPayload struct {
	SessionID      string `json:"sessionId"`
	TotalQuestions int    `json:"totalQuestions"`
}

// QuestionPayload is a question as shown to players: the correct answer is
// stripped and the option order is already randomized when the question
// asks for it.
type QuestionPayload struct {
	QuestionID string       `json:"questionId"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"questionType"`
	Options    []string     `json:"options"`
	TimeLimit  float64      `json:"timeLimit"`
	Index      int          `json:"index"`
	Total      int          `json:"total"`
}

// NextQuestionPayload signals index progression before the question itself.
type NextQuestionPayload struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// AnswerSubmittedPayload acknowledges a submission to the room. It names
// who answered, never what they answered or whether it was right.
type AnswerSubmittedPayload struct {
	ParticipantID string `json:"participantId"`
	QuestionID    string `json:"questionId"`
}

// ParticipantResult is one participant's outcome for a revealed question.
type ParticipantResult struct {
	ParticipantID string  `json:"participantId"`
	IsCorrect     bool    `json:"isCorrect"`
	PointsEarned  int     `json:"pointsEarned"`
	TimeTaken     float64 `json:"timeTaken"`
}

// AnswerRevealedPayload discloses the correct answer and per-participant
// results for one question.
type AnswerRevealedPayload struct {
	QuestionID    string              `json:"questionId"`
	CorrectAnswer []string            `json:"correctAnswer"`
	Results       []ParticipantResult `json:"results"`
	Leaderboard   []LeaderboardEntry  `json:"leaderboard"`
}

// QuizCompletedPayload carries the final standings.
type QuizCompletedPayload struct {
	SessionID   string             `json:"sessionId"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ParticipantJoinedPayload announces a new player to the room.
type ParticipantJoinedPayload struct {
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
}

// JoinedPayload is the connection's private snapshot on join, enough for a
// reconnecting client to render consistent state.
type JoinedPayload struct {
	SessionID            string        `json:"sessionId"`
	ParticipantID        string        `json:"participantId"`
	Status               SessionStatus `json:"status"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	TotalQuestions       int           `json:"totalQuestions"`
}

// ErrorPayload is delivered only to the requesting connection.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
