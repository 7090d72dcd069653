package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeStore struct {
	sessions map[string]*Session
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*Session)}
}

func (f *fakeStore) Create(_ context.Context, session *Session) error {
	if f.failWith != nil {
		return f.failWith
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *sess
	copied.Answers = append([]Answer(nil), sess.Answers...)
	return &copied, nil
}

func (f *fakeStore) UpdateAnswers(_ context.Context, id string, answers []Answer) error {
	sess, ok := f.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Answers = append([]Answer(nil), answers...)
	return nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id string, completedAt time.Time, eval *Evaluation) error {
	sess, ok := f.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Status = StatusCompleted
	sess.CompletedAt = &completedAt
	sess.Evaluation = eval
	return nil
}

type fakeProvider struct{}

func (fakeProvider) Generate(_ context.Context, role string) []Question {
	return []Question{
		{ID: "q1", Text: "Hi, I'm your AI interviewer for the " + role + " role. Tell me about yourself.", Category: CategoryBehavioral},
		{ID: "q2", Text: "Explain the CAP theorem in your own words.", Category: CategoryTechnical},
	}
}

type fakeEvaluator struct {
	calls int
	eval  Evaluation
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ *Session) Evaluation {
	f.calls++
	return f.eval
}

func newTestManager(store SessionStore) (*Manager, *fakeEvaluator) {
	evaluator := &fakeEvaluator{eval: Evaluation{
		Scores:  Scores{Technical: 7, ProblemSolving: 6, Communication: 8},
		Summary: "ok",
	}}
	m := NewManager(fakeProvider{}, evaluator, store, zap.NewNop())
	return m, evaluator
}

func validSubmission() AnswerSubmission {
	return AnswerSubmission{
		QuestionID:   "q1",
		QuestionText: "Tell me about yourself.",
		ResponseText: "I am a student who enjoys backend work.",
	}
}

func TestStartCreatesActiveSession(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(store)

	session, err := m.Start(context.Background(), "SDE Intern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if session.Status != StatusActive {
		t.Fatalf("expected active status, got %q", session.Status)
	}
	if len(session.Questions) != 2 {
		t.Fatalf("expected provider questions, got %d", len(session.Questions))
	}
	if len(session.Answers) != 0 {
		t.Fatalf("expected no answers, got %d", len(session.Answers))
	}

	if _, ok := store.sessions[session.ID]; !ok {
		t.Fatal("session was not persisted")
	}
}

func TestStartSurfacesStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("store unreachable")
	m, _ := newTestManager(store)

	if _, err := m.Start(context.Background(), "SDE Intern"); err == nil {
		t.Fatal("expected store failure to surface")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AnswerSubmission)
	}{
		{name: "empty responseText", mutate: func(s *AnswerSubmission) { s.ResponseText = "" }},
		{name: "missing questionId", mutate: func(s *AnswerSubmission) { s.QuestionID = " " }},
		{name: "missing questionText", mutate: func(s *AnswerSubmission) { s.QuestionText = "" }},
		{name: "bad startedAt", mutate: func(s *AnswerSubmission) { s.StartedAt = "yesterday" }},
		{name: "bad answeredAt", mutate: func(s *AnswerSubmission) { s.AnsweredAt = "2026-13-01" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			m, _ := newTestManager(store)

			session, err := m.Start(context.Background(), "SDE Intern")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sub := validSubmission()
			tc.mutate(&sub)

			err = m.SubmitAnswer(context.Background(), session.ID, sub)

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}

			if got := len(store.sessions[session.ID].Answers); got != 0 {
				t.Fatalf("answers must not be mutated, got %d", got)
			}
		})
	}
}

func TestSubmitAnswerUnknownSession(t *testing.T) {
	m, _ := newTestManager(newFakeStore())

	err := m.SubmitAnswer(context.Background(), "missing", validSubmission())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitAnswerAfterCompletion(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(store)

	session, err := m.Start(context.Background(), "SDE Intern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Complete(context.Background(), session.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = m.SubmitAnswer(context.Background(), session.ID, validSubmission())
	if !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}

	if got := len(store.sessions[session.ID].Answers); got != 0 {
		t.Fatalf("answers must not be mutated after completion, got %d", got)
	}
}

func TestSubmitAnswerParsesTimestamps(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(store)

	session, err := m.Start(context.Background(), "SDE Intern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := validSubmission()
	sub.StartedAt = "2026-08-30T10:00:00Z"
	sub.AnsweredAt = "2026-08-30T10:01:30Z"

	if err := m.SubmitAnswer(context.Background(), session.ID, sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.sessions[session.ID].Answers[0]
	if stored.StartedAt == nil || stored.AnsweredAt == nil {
		t.Fatal("expected both timestamps to be recorded")
	}
	if stored.AnsweredAt.Sub(*stored.StartedAt) != 90*time.Second {
		t.Fatalf("unexpected timestamps: %v -> %v", stored.StartedAt, stored.AnsweredAt)
	}
}

func TestSubmitAnswerReplacesResubmission(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(store)

	session, err := m.Start(context.Background(), "SDE Intern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := validSubmission()
	if err := m.SubmitAnswer(context.Background(), session.ID, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := validSubmission()
	second.ResponseText = "Actually, let me rephrase my introduction."
	if err := m.SubmitAnswer(context.Background(), session.ID, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answers := store.sessions[session.ID].Answers
	if len(answers) != 1 {
		t.Fatalf("expected one answer per question, got %d", len(answers))
	}
	if answers[0].ResponseText != second.ResponseText {
		t.Fatalf("expected last write to win, got %q", answers[0].ResponseText)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	store := newFakeStore()
	m, evaluator := newTestManager(store)

	session, err := m.Start(context.Background(), "SDE Intern")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := m.Complete(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	completedAt := *store.sessions[session.ID].CompletedAt

	second, err := m.Complete(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evaluator.calls != 1 {
		t.Fatalf("expected a single evaluation, got %d", evaluator.calls)
	}
	if first.Scores != second.Scores {
		t.Fatalf("expected identical evaluations: %+v vs %+v", first.Scores, second.Scores)
	}
	if !store.sessions[session.ID].CompletedAt.Equal(completedAt) {
		t.Fatal("completedAt must not change on repeat completion")
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	m, _ := newTestManager(newFakeStore())

	if _, err := m.Complete(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	m, _ := newTestManager(newFakeStore())

	if _, err := m.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
