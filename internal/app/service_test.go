package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

// captureRooms records every room broadcast for assertions.
type captureRooms struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *captureRooms) ToRoom(_ string, event domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureRooms) ofType(eventType string) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Test",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "Which planets are gas giants?",
				Type:          domain.MultipleChoice,
				Options:       []string{"Jupiter", "Mars", "Saturn", "Venus"},
				CorrectAnswer: []string{"Jupiter", "Saturn"},
				TimeLimit:     20,
				OrderIndex:    0,
			},
			{
				ID:            "q2",
				Text:          "The Moon orbits the Earth.",
				Type:          domain.TrueFalse,
				Options:       []string{"true", "false"},
				CorrectAnswer: []string{"true"},
				TimeLimit:     10,
				OrderIndex:    1,
			},
		},
	}
}

func newFixture(t *testing.T, quizzes map[string]domain.Quiz) (*app.SessionService, *memory.Store, *captureRooms) {
	t.Helper()
	store := memory.NewStore()
	rooms := &captureRooms{}
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), 5*time.Minute)
	return app.NewSessionService(store, repo, rooms, nil), store, rooms
}

func joinAll(t *testing.T, service *app.SessionService, sessionID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := service.Join(ctx, sessionID, "quiz-1", "host", "Host"); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if _, err := service.Join(ctx, sessionID, "", "alice", "Alice"); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	if _, err := service.Join(ctx, sessionID, "", "bob", "Bob"); err != nil {
		t.Fatalf("bob join: %v", err)
	}
}

func TestStartRejectsNonHost(t *testing.T) {
	ctx := context.Background()
	service, store, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")

	if err := service.Start(ctx, "s1", "alice"); err != domain.ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	session, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.Status != domain.StatusWaiting || session.StartedAt != nil {
		t.Fatalf("rejected start must not mutate the session: %+v", session)
	}
	if got := rooms.ofType(domain.EventSessionStarted); len(got) != 0 {
		t.Fatalf("rejected start must not broadcast, got %d events", len(got))
	}
}

func TestStartLifecycle(t *testing.T) {
	ctx := context.Background()
	service, store, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")

	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	session, _ := store.GetSession(ctx, "s1")
	if session.Status != domain.StatusInProgress || session.CurrentQuestionIndex != 0 {
		t.Fatalf("expected in_progress at index 0, got %+v", session)
	}
	if session.StartedAt == nil {
		t.Fatalf("expected startedAt set")
	}

	started := rooms.ofType(domain.EventSessionStarted)
	if len(started) != 1 {
		t.Fatalf("expected one session_started, got %d", len(started))
	}
	payload := started[0].Payload.(domain.SessionStartedPayload)
	if payload.TotalQuestions != 2 {
		t.Fatalf("expected total 2, got %d", payload.TotalQuestions)
	}
	questions := rooms.ofType(domain.EventQuestion)
	if len(questions) != 1 {
		t.Fatalf("expected first question broadcast, got %d", len(questions))
	}
	if q := questions[0].Payload.(domain.QuestionPayload); q.QuestionID != "q1" || q.Index != 0 {
		t.Fatalf("expected q1 at index 0, got %+v", q)
	}

	if err := service.Start(ctx, "s1", "host"); err != domain.ErrInvalidTransition {
		t.Fatalf("second start must be invalid, got %v", err)
	}
}

func TestStartEmptyQuiz(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newFixture(t, map[string]domain.Quiz{"quiz-1": {ID: "quiz-1"}})
	if _, err := service.Join(ctx, "s1", "quiz-1", "host", "Host"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.Start(ctx, "s1", "host"); err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestAdvanceThroughQuizAndComplete(t *testing.T) {
	ctx := context.Background()
	service, store, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")

	if err := service.Advance(ctx, "s1", "host"); err != domain.ErrInvalidTransition {
		t.Fatalf("advance before start must be invalid, got %v", err)
	}
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := service.Advance(ctx, "s1", "host"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	session, _ := store.GetSession(ctx, "s1")
	if session.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index 1, got %d", session.CurrentQuestionIndex)
	}
	next := rooms.ofType(domain.EventNextQuestion)
	if len(next) != 1 {
		t.Fatalf("expected one next_question, got %d", len(next))
	}

	// Advancing past the last question completes instead of broadcasting
	// another question.
	if err := service.Advance(ctx, "s1", "host"); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	session, _ = store.GetSession(ctx, "s1")
	if session.Status != domain.StatusCompleted || session.EndedAt == nil {
		t.Fatalf("expected completed with endedAt, got %+v", session)
	}
	if got := rooms.ofType(domain.EventQuestion); len(got) != 2 {
		t.Fatalf("expected exactly two question broadcasts, got %d", len(got))
	}
	completed := rooms.ofType(domain.EventQuizCompleted)
	if len(completed) != 1 {
		t.Fatalf("expected one quiz_completed, got %d", len(completed))
	}
	lb := completed[0].Payload.(domain.QuizCompletedPayload).Leaderboard
	if len(lb) != 3 {
		t.Fatalf("expected all participants on the final leaderboard, got %d", len(lb))
	}

	if err := service.Advance(ctx, "s1", "host"); err != domain.ErrInvalidTransition {
		t.Fatalf("advance after completion must be invalid, got %v", err)
	}
}

func TestEndIsNotDoubleBroadcast(t *testing.T) {
	ctx := context.Background()
	service, _, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")

	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.End(ctx, "s1", "host"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := service.End(ctx, "s1", "host"); err != domain.ErrInvalidTransition {
		t.Fatalf("second end must be invalid, got %v", err)
	}
	if got := rooms.ofType(domain.EventQuizCompleted); len(got) != 1 {
		t.Fatalf("expected a single quiz_completed, got %d", len(got))
	}
}

func TestSubmitScoresAndAcknowledges(t *testing.T) {
	ctx := context.Background()
	service, store, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Order-independent match: submitted in reverse of the declared set.
	if err := service.Submit(ctx, "s1", "alice", "q1", []string{"Saturn", "Jupiter"}, 10); err != nil {
		t.Fatalf("submit: %v", err)
	}
	alice, err := store.GetParticipantByUser(ctx, "s1", "alice")
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	if alice.TotalScore != 750 {
		t.Fatalf("expected 750 points at half the limit, got %d", alice.TotalScore)
	}

	acks := rooms.ofType(domain.EventAnswerSubmitted)
	if len(acks) != 1 {
		t.Fatalf("expected one ack, got %d", len(acks))
	}
	ack := acks[0].Payload.(domain.AnswerSubmittedPayload)
	if ack.ParticipantID != alice.ID || ack.QuestionID != "q1" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	if err := service.Submit(ctx, "s1", "alice", "q1", []string{"Mars"}, 1); err != domain.ErrDuplicateAnswer {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	alice, _ = store.GetParticipantByUser(ctx, "s1", "alice")
	if alice.TotalScore != 750 {
		t.Fatalf("duplicate must not change the score, got %d", alice.TotalScore)
	}
}

func TestSubmitWrongAnswer(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := service.Submit(ctx, "s1", "bob", "q1", []string{"Jupiter"}, 2); err != nil {
		t.Fatalf("submit: %v", err)
	}
	bob, _ := store.GetParticipantByUser(ctx, "s1", "bob")
	if bob.TotalScore != 0 {
		t.Fatalf("partial answer must score 0, got %d", bob.TotalScore)
	}
	answers, _ := store.ListQuestionAnswers(ctx, "s1", "q1")
	if len(answers) != 1 || answers[0].IsCorrect {
		t.Fatalf("expected one incorrect recorded answer, got %+v", answers)
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := service.Submit(ctx, "missing", "alice", "q1", []string{"true"}, 1); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := service.Submit(ctx, "s1", "stranger", "q1", []string{"true"}, 1); err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant not found, got %v", err)
	}
	if err := service.Submit(ctx, "s1", "alice", "q-missing", []string{"true"}, 1); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question not found, got %v", err)
	}

	if err := service.End(ctx, "s1", "host"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := service.Submit(ctx, "s1", "alice", "q1", []string{"true"}, 1); err != domain.ErrInvalidTransition {
		t.Fatalf("submit after completion must be invalid, got %v", err)
	}
}

func TestRevealDisclosesResults(t *testing.T) {
	ctx := context.Background()
	service, _, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.Submit(ctx, "s1", "alice", "q1", []string{"Jupiter", "Saturn"}, 4); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.Submit(ctx, "s1", "bob", "q1", []string{"Mars"}, 6); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := service.Reveal(ctx, "s1", "alice", "q1"); err != domain.ErrNotHost {
		t.Fatalf("non-host reveal must be unauthorized, got %v", err)
	}
	if err := service.Reveal(ctx, "s1", "host", "q1"); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	revealed := rooms.ofType(domain.EventAnswerRevealed)
	if len(revealed) != 1 {
		t.Fatalf("expected one reveal, got %d", len(revealed))
	}
	payload := revealed[0].Payload.(domain.AnswerRevealedPayload)
	if len(payload.CorrectAnswer) != 2 {
		t.Fatalf("expected the correct answer set, got %v", payload.CorrectAnswer)
	}
	if len(payload.Results) != 2 {
		t.Fatalf("expected two per-participant results, got %d", len(payload.Results))
	}
	if len(payload.Leaderboard) != 3 {
		t.Fatalf("expected the full leaderboard, got %d entries", len(payload.Leaderboard))
	}
}

func TestConcurrentSubmissionsDoNotLoseScore(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A straggler answer for q1 races a fresh answer for q2 from the same
	// participant; both must land in the total.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- service.Submit(ctx, "s1", "alice", "q1", []string{"Jupiter", "Saturn"}, 20)
	}()
	go func() {
		defer wg.Done()
		errs <- service.Submit(ctx, "s1", "alice", "q2", []string{"true"}, 10)
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	alice, _ := store.GetParticipantByUser(ctx, "s1", "alice")
	if alice.TotalScore != 1000 {
		t.Fatalf("expected 500+500=1000 after both submissions, got %d", alice.TotalScore)
	}
}

func TestConcurrentAdvanceIsSerialized(t *testing.T) {
	ctx := context.Background()
	service, store, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})
	joinAll(t, service, "s1")
	if err := service.Start(ctx, "s1", "host"); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = service.Advance(ctx, "s1", "host")
		}()
	}
	wg.Wait()

	session, _ := store.GetSession(ctx, "s1")
	if session.Status != domain.StatusCompleted {
		t.Fatalf("four advances over two questions must complete, got %+v", session)
	}
	if got := rooms.ofType(domain.EventQuizCompleted); len(got) != 1 {
		t.Fatalf("racing advances must not double-broadcast completion, got %d", len(got))
	}
	if got := rooms.ofType(domain.EventNextQuestion); len(got) != 1 {
		t.Fatalf("two questions allow exactly one next_question, got %d", len(got))
	}
}

func TestJoinBootstrapsSessionAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service, store, rooms := newFixture(t, map[string]domain.Quiz{"quiz-1": testQuiz()})

	joined, err := service.Join(ctx, "s1", "quiz-1", "host", "Host")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Status != domain.StatusWaiting || joined.CurrentQuestionIndex != -1 {
		t.Fatalf("fresh session must be waiting at -1, got %+v", joined)
	}
	if joined.TotalQuestions != 2 {
		t.Fatalf("expected question count in snapshot, got %d", joined.TotalQuestions)
	}
	session, _ := store.GetSession(ctx, "s1")
	if session.HostUserID != "host" {
		t.Fatalf("creator must become host, got %+v", session)
	}

	again, err := service.Join(ctx, "s1", "", "host", "Host")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.ParticipantID != joined.ParticipantID {
		t.Fatalf("rejoin must reuse the participant, got %s vs %s", again.ParticipantID, joined.ParticipantID)
	}
	if got := rooms.ofType(domain.EventParticipantJoined); len(got) != 1 {
		t.Fatalf("rejoin must not re-announce, got %d", len(got))
	}

	if _, err := service.Join(ctx, "unknown", "", "alice", "Alice"); err != domain.ErrSessionNotFound {
		t.Fatalf("joining an unknown session without a quiz must fail, got %v", err)
	}
}
