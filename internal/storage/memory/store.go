package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spigell/ai-interviewer/internal/interview"
)

// Store is the volatile session store: a mutex-guarded map, empty at process
// start and lost on restart. Records are deep-copied on every read and write
// so callers never alias store state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*interview.Session),
	}
}

func (s *Store) Create(_ context.Context, session *interview.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return errors.New("session already exists")
	}

	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, interview.ErrSessionNotFound
	}

	return clone(sess), nil
}

func (s *Store) UpdateAnswers(_ context.Context, id string, answers []interview.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return interview.ErrSessionNotFound
	}

	sess.Answers = append([]interview.Answer(nil), answers...)
	return nil
}

func (s *Store) MarkCompleted(_ context.Context, id string, completedAt time.Time, eval *interview.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return interview.ErrSessionNotFound
	}

	sess.Status = interview.StatusCompleted
	sess.CompletedAt = &completedAt
	if eval != nil {
		copied := *eval
		sess.Evaluation = &copied
	}

	return nil
}

func clone(s *interview.Session) *interview.Session {
	copied := *s
	copied.Questions = append([]interview.Question(nil), s.Questions...)
	copied.Answers = append([]interview.Answer(nil), s.Answers...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		copied.CompletedAt = &at
	}
	if s.Evaluation != nil {
		eval := *s.Evaluation
		copied.Evaluation = &eval
	}
	return &copied
}
