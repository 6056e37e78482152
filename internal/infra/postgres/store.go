package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"livequiz-service/internal/domain"
)

const uniqueViolation = "23505"

// Store implements app.SessionStore on Postgres. Score increments are a
// single UPDATE so they are atomic; the (participant_id, question_id)
// unique index enforces the one-answer-per-question rule.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertSession(ctx context.Context, session domain.QuizSession) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, quiz_id, host_user_id, status, current_question_index, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.QuizID, session.HostUserID, string(session.Status),
		session.CurrentQuestionIndex, session.StartedAt, session.EndedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	var session domain.QuizSession
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, host_user_id, status, current_question_index, started_at, ended_at
		 FROM sessions WHERE id=$1`, sessionID).
		Scan(&session.ID, &session.QuizID, &session.HostUserID, &status,
			&session.CurrentQuestionIndex, &session.StartedAt, &session.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("get session: %w", err)
	}
	session.Status = domain.SessionStatus(status)
	return session, nil
}

func (s *Store) UpdateSession(ctx context.Context, sessionID string, update domain.SessionUpdate) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+"=$"+strconv.Itoa(len(args)))
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.CurrentQuestionIndex != nil {
		add("current_question_index", *update.CurrentQuestionIndex)
	}
	if update.StartedAt != nil {
		add("started_at", *update.StartedAt)
	}
	if update.EndedAt != nil {
		add("ended_at", *update.EndedAt)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, sessionID)
	query := "UPDATE sessions SET " + strings.Join(sets, ", ") + " WHERE id=$" + strconv.Itoa(len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) InsertParticipant(ctx context.Context, participant domain.SessionParticipant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (id, session_id, user_id, display_name, total_score, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		participant.ID, participant.SessionID, participant.UserID,
		participant.DisplayName, participant.TotalScore, participant.JoinedAt)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipantByUser(ctx context.Context, sessionID, userID string) (domain.SessionParticipant, error) {
	var p domain.SessionParticipant
	err := s.pool.QueryRow(ctx,
		`SELECT id, session_id, user_id, display_name, total_score, joined_at
		 FROM participants WHERE session_id=$1 AND user_id=$2`, sessionID, userID).
		Scan(&p.ID, &p.SessionID, &p.UserID, &p.DisplayName, &p.TotalScore, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionParticipant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.SessionParticipant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]domain.SessionParticipant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, user_id, display_name, total_score, joined_at
		 FROM participants WHERE session_id=$1 ORDER BY joined_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionParticipant
	for rows.Next() {
		var p domain.SessionParticipant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.DisplayName, &p.TotalScore, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AddScore(ctx context.Context, participantID string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET total_score = total_score + $1 WHERE id=$2`, delta, participantID)
	if err != nil {
		return fmt.Errorf("add score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *Store) InsertAnswer(ctx context.Context, answer domain.QuizAnswer) error {
	selected, err := json.Marshal(answer.Answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO answers (id, session_id, participant_id, question_id, answer, is_correct, time_taken, points_earned, submitted_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)`,
		answer.ID, answer.SessionID, answer.ParticipantID, answer.QuestionID,
		string(selected), answer.IsCorrect, answer.TimeTaken, answer.PointsEarned, answer.SubmittedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateAnswer
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, sessionID string) ([]domain.QuizAnswer, error) {
	return s.listAnswers(ctx,
		`SELECT id, session_id, participant_id, question_id, answer, is_correct, time_taken, points_earned, submitted_at
		 FROM answers WHERE session_id=$1 ORDER BY submitted_at`, sessionID)
}

func (s *Store) ListQuestionAnswers(ctx context.Context, sessionID, questionID string) ([]domain.QuizAnswer, error) {
	return s.listAnswers(ctx,
		`SELECT id, session_id, participant_id, question_id, answer, is_correct, time_taken, points_earned, submitted_at
		 FROM answers WHERE session_id=$1 AND question_id=$2 ORDER BY submitted_at`, sessionID, questionID)
}

func (s *Store) listAnswers(ctx context.Context, query string, args ...any) ([]domain.QuizAnswer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizAnswer
	for rows.Next() {
		var a domain.QuizAnswer
		var selected []byte
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ParticipantID, &a.QuestionID, &selected,
			&a.IsCorrect, &a.TimeTaken, &a.PointsEarned, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if err := json.Unmarshal(selected, &a.Answer); err != nil {
			return nil, fmt.Errorf("unmarshal answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
