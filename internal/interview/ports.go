package interview

import (
	"context"
	"time"
)

// QuestionProvider produces the fixed question script for a role. A provider
// must always return a usable script; backend failures are absorbed
// internally so that session start is never blocked.
type QuestionProvider interface {
	Generate(ctx context.Context, role string) []Question
}

// Evaluator turns a finished session into a scored assessment. Implementations
// must always return a well-formed result, degrading to heuristics when the
// generative backend is unusable.
type Evaluator interface {
	Evaluate(ctx context.Context, session *Session) Evaluation
}

// SessionStore is the persistence capability for session records. The manager
// operates unchanged against a durable or a volatile implementation; the
// backend is selected once at process start.
//
// Get must return ErrSessionNotFound for unknown identifiers. Writes are
// last-write-wins; no version check is performed.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	UpdateAnswers(ctx context.Context, id string, answers []Answer) error
	MarkCompleted(ctx context.Context, id string, completedAt time.Time, eval *Evaluation) error
}
