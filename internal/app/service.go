package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SessionStore abstracts the record store for sessions, participants and
// answers. Updates are last-write-wins; AddScore must be atomic; a second
// InsertAnswer for the same (participant, question) pair must return
// domain.ErrDuplicateAnswer.
type SessionStore interface {
	InsertSession(ctx context.Context, session domain.QuizSession) error
	GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error)
	UpdateSession(ctx context.Context, sessionID string, update domain.SessionUpdate) error

	InsertParticipant(ctx context.Context, participant domain.SessionParticipant) error
	GetParticipantByUser(ctx context.Context, sessionID, userID string) (domain.SessionParticipant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]domain.SessionParticipant, error)
	AddScore(ctx context.Context, participantID string, delta int) error

	InsertAnswer(ctx context.Context, answer domain.QuizAnswer) error
	ListAnswers(ctx context.Context, sessionID string) ([]domain.QuizAnswer, error)
	ListQuestionAnswers(ctx context.Context, sessionID, questionID string) ([]domain.QuizAnswer, error)
}

// RoomSender delivers an event to every member of a session's room.
// Delivery is fire-and-forget from the service's perspective.
type RoomSender interface {
	ToRoom(sessionID string, event domain.Event)
}

// LifecyclePublisher pushes session lifecycle events to an external broker.
type LifecyclePublisher interface {
	Publish(eventType string, payload any) error
}

// SessionService drives quiz sessions: lifecycle transitions, answer
// collection, reveals and leaderboards. Lifecycle operations for one
// session are serialized through a per-session lock; submissions from
// different participants run in parallel.
type SessionService struct {
	store   SessionStore
	quizzes QuizRepository
	rooms   RoomSender
	events  LifecyclePublisher
	locks   *sessionLocks
}

func NewSessionService(store SessionStore, quizzes QuizRepository, rooms RoomSender, events LifecyclePublisher) *SessionService {
	return &SessionService{
		store:   store,
		quizzes: quizzes,
		rooms:   rooms,
		events:  events,
		locks:   newSessionLocks(),
	}
}

// Join registers the user as a participant, creating the session first when
// it does not exist yet and a quiz id was supplied; the creating user
// becomes the host. Joining twice with the same user is idempotent.
func (s *SessionService) Join(ctx context.Context, sessionID, quizID, userID, displayName string) (domain.JoinedPayload, error) {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.store.GetSession(ctx, sessionID)
	if err == domain.ErrSessionNotFound && quizID != "" {
		session = domain.QuizSession{
			ID:                   sessionID,
			QuizID:               quizID,
			HostUserID:           userID,
			Status:               domain.StatusWaiting,
			CurrentQuestionIndex: -1,
		}
		if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
			return domain.JoinedPayload{}, err
		}
		if err := s.store.InsertSession(ctx, session); err != nil {
			return domain.JoinedPayload{}, fmt.Errorf("create session: %w", err)
		}
		log.Printf("session %s created for quiz %s, host %s", sessionID, quizID, userID)
	} else if err != nil {
		return domain.JoinedPayload{}, err
	}

	participant, err := s.store.GetParticipantByUser(ctx, sessionID, userID)
	if err == domain.ErrParticipantNotFound {
		participant = domain.SessionParticipant{
			ID:          uuid.NewString(),
			SessionID:   sessionID,
			UserID:      userID,
			DisplayName: displayName,
			JoinedAt:    time.Now().UTC(),
		}
		if err := s.store.InsertParticipant(ctx, participant); err != nil {
			return domain.JoinedPayload{}, fmt.Errorf("insert participant: %w", err)
		}
		s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
			ParticipantID: participant.ID,
			UserID:        participant.UserID,
			DisplayName:   participant.DisplayName,
		}))
	} else if err != nil {
		return domain.JoinedPayload{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.JoinedPayload{}, err
	}
	return domain.JoinedPayload{
		SessionID:            sessionID,
		ParticipantID:        participant.ID,
		Status:               session.Status,
		CurrentQuestionIndex: session.CurrentQuestionIndex,
		TotalQuestions:       len(quiz.Questions),
	}, nil
}

// Start moves a waiting session to in_progress and broadcasts the first
// question. The state write is applied before any broadcast so a client
// reconnecting mid-broadcast sees consistent state.
func (s *SessionService) Start(ctx context.Context, sessionID, actingUserID string) error {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.hostSession(ctx, sessionID, actingUserID)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusWaiting {
		return domain.ErrInvalidTransition
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}
	if len(quiz.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	now := time.Now().UTC()
	status := domain.StatusInProgress
	index := 0
	if err := s.store.UpdateSession(ctx, sessionID, domain.SessionUpdate{
		Status:               &status,
		CurrentQuestionIndex: &index,
		StartedAt:            &now,
	}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventSessionStarted, domain.SessionStartedPayload{
		SessionID:      sessionID,
		TotalQuestions: len(quiz.Questions),
	}))
	s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventQuestion, PlayableQuestion(quiz.Questions[0], 0, len(quiz.Questions))))
	s.publish("session.started", domain.SessionStartedPayload{SessionID: sessionID, TotalQuestions: len(quiz.Questions)})
	log.Printf("session %s started with %d questions", sessionID, len(quiz.Questions))
	return nil
}

// Advance moves to the next question, or completes the session when the
// quiz is exhausted.
func (s *SessionService) Advance(ctx context.Context, sessionID, actingUserID string) error {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.hostSession(ctx, sessionID, actingUserID)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusInProgress {
		return domain.ErrInvalidTransition
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}

	next := session.CurrentQuestionIndex + 1
	if next >= len(quiz.Questions) {
		return s.completeLocked(ctx, session)
	}

	if err := s.store.UpdateSession(ctx, sessionID, domain.SessionUpdate{CurrentQuestionIndex: &next}); err != nil {
		return fmt.Errorf("advance session: %w", err)
	}
	s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventNextQuestion, domain.NextQuestionPayload{
		Index: next,
		Total: len(quiz.Questions),
	}))
	s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventQuestion, PlayableQuestion(quiz.Questions[next], next, len(quiz.Questions))))
	return nil
}

// End completes a session early. Ending an already-completed session is
// rejected so the quiz_completed broadcast is never duplicated.
func (s *SessionService) End(ctx context.Context, sessionID, actingUserID string) error {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.hostSession(ctx, sessionID, actingUserID)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusCompleted {
		return domain.ErrInvalidTransition
	}
	return s.completeLocked(ctx, session)
}

// completeLocked finishes a session. Callers hold the session lock and have
// already checked authority. A second call for an already-completed session
// is a no-op.
func (s *SessionService) completeLocked(ctx context.Context, session domain.QuizSession) error {
	if session.Status == domain.StatusCompleted {
		return nil
	}
	now := time.Now().UTC()
	status := domain.StatusCompleted
	if err := s.store.UpdateSession(ctx, session.ID, domain.SessionUpdate{
		Status:  &status,
		EndedAt: &now,
	}); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	leaderboard, err := s.leaderboard(ctx, session.ID)
	if err != nil {
		return err
	}
	payload := domain.QuizCompletedPayload{SessionID: session.ID, Leaderboard: leaderboard}
	s.rooms.ToRoom(session.ID, domain.NewEvent(domain.EventQuizCompleted, payload))
	s.publish("session.completed", payload)
	log.Printf("session %s completed, %d participants", session.ID, len(leaderboard))
	return nil
}

// Reveal discloses the correct answer and per-participant results for one
// question, together with the current leaderboard.
func (s *SessionService) Reveal(ctx context.Context, sessionID, actingUserID, questionID string) error {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	session, err := s.hostSession(ctx, sessionID, actingUserID)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}
	question, err := findQuestion(quiz, questionID)
	if err != nil {
		return err
	}

	answers, err := s.store.ListQuestionAnswers(ctx, sessionID, questionID)
	if err != nil {
		return fmt.Errorf("list question answers: %w", err)
	}
	results := make([]domain.ParticipantResult, 0, len(answers))
	for _, a := range answers {
		results = append(results, domain.ParticipantResult{
			ParticipantID: a.ParticipantID,
			IsCorrect:     a.IsCorrect,
			PointsEarned:  a.PointsEarned,
			TimeTaken:     a.TimeTaken,
		})
	}
	leaderboard, err := s.leaderboard(ctx, sessionID)
	if err != nil {
		return err
	}

	s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventAnswerRevealed, domain.AnswerRevealedPayload{
		QuestionID:    questionID,
		CorrectAnswer: question.CorrectAnswer,
		Results:       results,
		Leaderboard:   leaderboard,
	}))
	return nil
}

// Submit validates and records one answer for the participant bound to
// (sessionID, userID). Correctness is derived server-side; the room ack
// never discloses it. Duplicate submissions for the same question are
// rejected by the store.
func (s *SessionService) Submit(ctx context.Context, sessionID, userID, questionID string, answer []string, timeTaken float64) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusCompleted {
		return domain.ErrInvalidTransition
	}
	participant, err := s.store.GetParticipantByUser(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}
	question, err := findQuestion(quiz, questionID)
	if err != nil {
		return err
	}

	if timeTaken < 0 {
		timeTaken = 0
	}
	correct := answerSetsEqual(answer, question.CorrectAnswer)
	points := Score(correct, timeTaken, question.TimeLimit)

	if err := s.store.InsertAnswer(ctx, domain.QuizAnswer{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		ParticipantID: participant.ID,
		QuestionID:    questionID,
		Answer:        answer,
		IsCorrect:     correct,
		TimeTaken:     timeTaken,
		PointsEarned:  points,
		SubmittedAt:   time.Now().UTC(),
	}); err != nil {
		if err == domain.ErrDuplicateAnswer {
			return err
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	if correct && points > 0 {
		if err := s.store.AddScore(ctx, participant.ID, points); err != nil {
			return fmt.Errorf("add score: %w", err)
		}
	}

	s.rooms.ToRoom(sessionID, domain.NewEvent(domain.EventAnswerSubmitted, domain.AnswerSubmittedPayload{
		ParticipantID: participant.ID,
		QuestionID:    questionID,
	}))
	return nil
}

// hostSession loads a session and enforces host authority.
func (s *SessionService) hostSession(ctx context.Context, sessionID, actingUserID string) (domain.QuizSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if session.HostUserID != actingUserID {
		return domain.QuizSession{}, domain.ErrNotHost
	}
	return session, nil
}

func (s *SessionService) leaderboard(ctx context.Context, sessionID string) ([]domain.LeaderboardEntry, error) {
	participants, err := s.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	answers, err := s.store.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return Leaderboard(participants, answers), nil
}

func (s *SessionService) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(eventType, payload); err != nil {
		log.Printf("publish %s: %v", eventType, err)
	}
}

func findQuestion(quiz domain.Quiz, questionID string) (domain.Question, error) {
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}
