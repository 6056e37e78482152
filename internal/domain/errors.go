package domain

import "errors"

var (
	// ErrSessionNotFound is returned when the session id resolves to nothing.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrNotHost is returned when a non-host attempts a host-only action.
	ErrNotHost = errors.New("only the host may perform this action")
	// ErrInvalidTransition rejects out-of-order lifecycle operations,
	// e.g. starting an in_progress session or advancing a waiting one.
	ErrInvalidTransition = errors.New("invalid session state for this action")
	// ErrNoQuestions rejects starting a session whose quiz is empty.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrDuplicateAnswer rejects a second submission for the same
	// (participant, question) pair.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
)

// Error kinds surfaced to clients in error events.
const (
	KindNotFound          = "not_found"
	KindUnauthorized      = "unauthorized"
	KindInvalidState      = "invalid_state"
	KindDependencyFailure = "dependency_failure"
)

// ErrorKind maps an error to its wire-level kind. Anything that is not a
// domain sentinel is treated as a collaborator failure and its detail is
// kept out of client-facing messages.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrParticipantNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotHost):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNoQuestions),
		errors.Is(err, ErrDuplicateAnswer):
		return KindInvalidState
	default:
		return KindDependencyFailure
	}
}
