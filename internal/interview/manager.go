package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the session state machine. It coordinates question generation,
// answer collection and completion against an injected store. It assumes at
// most one in-flight request per session; concurrent writes to the same
// session race under last-write-wins semantics at the store layer.
type Manager struct {
	provider  QuestionProvider
	evaluator Evaluator
	store     SessionStore
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewManager(provider QuestionProvider, evaluator Evaluator, store SessionStore, logger *zap.Logger) *Manager {
	return &Manager{
		provider:  provider,
		evaluator: evaluator,
		store:     store,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// AnswerSubmission is the raw answer payload as received from a client.
// Timestamps are optional RFC 3339 strings.
type AnswerSubmission struct {
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	ResponseText string `json:"responseText"`
	StartedAt    string `json:"startedAt,omitempty"`
	AnsweredAt   string `json:"answeredAt,omitempty"`
}

// Start creates a new active session for the given role and persists it.
// Question generation never fails; only a store failure surfaces.
func (m *Manager) Start(ctx context.Context, role string) (*Session, error) {
	questions := m.provider.Generate(ctx, role)

	session := &Session{
		ID:        m.newID(),
		Role:      role,
		Questions: questions,
		Answers:   []Answer{},
		Status:    StatusActive,
		CreatedAt: m.now(),
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("role", role),
		zap.Int("questions", len(questions)),
	)

	return session, nil
}

// SubmitAnswer validates and records an answer on an active session.
// Resubmitting an answer for the same questionId replaces the previous one
// (last-write-wins); the original append-only behavior silently ignored
// resubmissions at evaluation time.
func (m *Manager) SubmitAnswer(ctx context.Context, sessionID string, sub AnswerSubmission) error {
	answer, err := parseSubmission(sub)
	if err != nil {
		return err
	}

	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Completed() {
		return ErrSessionCompleted
	}

	replaced := false
	for i := range session.Answers {
		if session.Answers[i].QuestionID == answer.QuestionID {
			session.Answers[i] = answer
			replaced = true
			break
		}
	}
	if !replaced {
		session.Answers = append(session.Answers, answer)
	}

	if err := m.store.UpdateAnswers(ctx, sessionID, session.Answers); err != nil {
		return fmt.Errorf("persist answers: %w", err)
	}

	m.logger.Info("answer recorded",
		zap.String("session_id", sessionID),
		zap.String("question_id", answer.QuestionID),
		zap.Bool("replaced", replaced),
		zap.Int("answers", len(session.Answers)),
	)

	return nil
}

// Complete finalizes the session and returns its evaluation. Completing an
// already-completed session is idempotent: the stored evaluation is returned
// without re-invoking the evaluator or touching completedAt.
func (m *Manager) Complete(ctx context.Context, sessionID string) (*Evaluation, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Completed() && session.Evaluation != nil {
		m.logger.Info("returning stored evaluation", zap.String("session_id", sessionID))
		return session.Evaluation, nil
	}

	eval := m.evaluator.Evaluate(ctx, session)
	completedAt := m.now()

	if err := m.store.MarkCompleted(ctx, sessionID, completedAt, &eval); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	m.logger.Info("session completed",
		zap.String("session_id", sessionID),
		zap.Int("technical", eval.Scores.Technical),
		zap.Int("problem_solving", eval.Scores.ProblemSolving),
		zap.Int("communication", eval.Scores.Communication),
	)

	return &eval, nil
}

// Get returns the stored session record.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	return m.store.Get(ctx, sessionID)
}

func parseSubmission(sub AnswerSubmission) (Answer, error) {
	if strings.TrimSpace(sub.QuestionID) == "" {
		return Answer{}, validationErrorf("questionId is required")
	}
	if strings.TrimSpace(sub.QuestionText) == "" {
		return Answer{}, validationErrorf("questionText is required")
	}
	if sub.ResponseText == "" {
		return Answer{}, validationErrorf("responseText must not be empty")
	}

	answer := Answer{
		QuestionID:   sub.QuestionID,
		QuestionText: sub.QuestionText,
		ResponseText: sub.ResponseText,
	}

	startedAt, err := parseOptionalTime("startedAt", sub.StartedAt)
	if err != nil {
		return Answer{}, err
	}
	answeredAt, err := parseOptionalTime("answeredAt", sub.AnsweredAt)
	if err != nil {
		return Answer{}, err
	}
	answer.StartedAt = startedAt
	answer.AnsweredAt = answeredAt

	return answer, nil
}

func parseOptionalTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, validationErrorf("%s must be an RFC 3339 timestamp", field)
	}
	return &t, nil
}
