package memory

import (
	"context"
	"sort"
	"sync"

	"livequiz-service/internal/domain"
)

// Store is an in-memory implementation of app.SessionStore, used by unit
// tests and by the demo server when Postgres is not configured. All methods
// share one mutex, which also makes AddScore atomic.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]domain.QuizSession
	participants map[string]domain.SessionParticipant
	answers      map[string]domain.QuizAnswer
	answerKeys   map[string]struct{} // participantID + "\x00" + questionID
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[string]domain.QuizSession),
		participants: make(map[string]domain.SessionParticipant),
		answers:      make(map[string]domain.QuizAnswer),
		answerKeys:   make(map[string]struct{}),
	}
}

func (s *Store) InsertSession(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) UpdateSession(_ context.Context, sessionID string, update domain.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if update.Status != nil {
		session.Status = *update.Status
	}
	if update.CurrentQuestionIndex != nil {
		session.CurrentQuestionIndex = *update.CurrentQuestionIndex
	}
	if update.StartedAt != nil {
		session.StartedAt = update.StartedAt
	}
	if update.EndedAt != nil {
		session.EndedAt = update.EndedAt
	}
	s.sessions[sessionID] = session
	return nil
}

func (s *Store) InsertParticipant(_ context.Context, participant domain.SessionParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[participant.ID] = participant
	return nil
}

func (s *Store) GetParticipantByUser(_ context.Context, sessionID, userID string) (domain.SessionParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.SessionID == sessionID && p.UserID == userID {
			return p, nil
		}
	}
	return domain.SessionParticipant{}, domain.ErrParticipantNotFound
}

func (s *Store) ListParticipants(_ context.Context, sessionID string) ([]domain.SessionParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SessionParticipant
	for _, p := range s.participants {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *Store) AddScore(_ context.Context, participantID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	p.TotalScore += delta
	s.participants[participantID] = p
	return nil
}

func (s *Store) InsertAnswer(_ context.Context, answer domain.QuizAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answer.ParticipantID + "\x00" + answer.QuestionID
	if _, ok := s.answerKeys[key]; ok {
		return domain.ErrDuplicateAnswer
	}
	s.answerKeys[key] = struct{}{}
	s.answers[answer.ID] = answer
	return nil
}

func (s *Store) ListAnswers(_ context.Context, sessionID string) ([]domain.QuizAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizAnswer
	for _, a := range s.answers {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (s *Store) ListQuestionAnswers(_ context.Context, sessionID, questionID string) ([]domain.QuizAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizAnswer
	for _, a := range s.answers {
		if a.SessionID == sessionID && a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func sortAnswers(answers []domain.QuizAnswer) {
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].SubmittedAt.Before(answers[j].SubmittedAt)
	})
}
