package domain

import "time"

// QuestionType distinguishes the two supported question shapes.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

// SessionStatus is the lifecycle state of a quiz session. Transitions are
// monotonic: waiting -> in_progress -> completed, nothing else.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Question models a single quiz question. Options may be empty for
// true/false questions; CorrectAnswer is a set of option strings so
// multi-select questions compare order-independently.
type Question struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	Type             QuestionType `json:"type"`
	Options          []string     `json:"options"`
	CorrectAnswer    []string     `json:"correctAnswer"`
	TimeLimit        float64      `json:"timeLimit"` // seconds, > 0
	OrderIndex       int          `json:"orderIndex"`
	RandomizeOptions bool         `json:"randomizeOptions"`
}

// Quiz is an ordered sequence of questions. Content is immutable once a
// session referencing it is running.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// QuizSession is one live playthrough of a quiz.
type QuizSession struct {
	ID                   string
	QuizID               string
	HostUserID           string
	Status               SessionStatus
	CurrentQuestionIndex int // -1 before start
	StartedAt            *time.Time
	EndedAt              *time.Time
}

// SessionUpdate is a partial, last-write-wins update applied to a stored
// session. Nil fields are left untouched.
type SessionUpdate struct {
	Status               *SessionStatus
	CurrentQuestionIndex *int
	StartedAt            *time.Time
	EndedAt              *time.Time
}

// SessionParticipant is a joined player. TotalScore only ever increases,
// by exactly-once application of points per answered question.
type SessionParticipant struct {
	ID          string
	SessionID   string
	UserID      string
	DisplayName string
	TotalScore  int
	JoinedAt    time.Time
}

// QuizAnswer records one submitted answer. IsCorrect and PointsEarned are
// derived server-side, never trusted from the client.
type QuizAnswer struct {
	ID            string
	SessionID     string
	ParticipantID string
	QuestionID    string
	Answer        []string
	IsCorrect     bool
	TimeTaken     float64 // seconds
	PointsEarned  int
	SubmittedAt   time.Time
}

// LeaderboardEntry is a derived, read-only projection of a participant's
// standing. It is never persisted.
type LeaderboardEntry struct {
	ParticipantID  string  `json:"participantId"`
	UserID         string  `json:"userId"`
	DisplayName    string  `json:"displayName"`
	TotalScore     int     `json:"totalScore"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalAnswers   int     `json:"totalAnswers"`
	AverageTime    float64 `json:"averageTime"` // seconds, 2 dp
}
