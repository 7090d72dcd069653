package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spigell/ai-interviewer/internal/interview"
)

// Store provides SQLite-backed persistence for interview sessions. The
// question script, answers and evaluation are stored as JSON columns,
// mirroring the embedded-document shape of the session record.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and creates the schema if it
// doesn't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		questions TEXT NOT NULL,
		answers TEXT NOT NULL,
		status TEXT NOT NULL,
		evaluation TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Create(ctx context.Context, session *interview.Session) error {
	questions, err := json.Marshal(session.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, role, questions, answers, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Role, string(questions), string(answers), string(session.Status), session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*interview.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, role, questions, answers, status, evaluation, created_at, completed_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	var (
		sess        interview.Session
		questions   string
		answers     string
		status      string
		evaluation  sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(&sess.ID, &sess.Role, &questions, &answers, &status, &evaluation, &sess.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interview.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.Status = interview.Status(status)
	if err := json.Unmarshal([]byte(questions), &sess.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if evaluation.Valid && evaluation.String != "" {
		var eval interview.Evaluation
		if err := json.Unmarshal([]byte(evaluation.String), &eval); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
		sess.Evaluation = &eval
	}
	if completedAt.Valid {
		at := completedAt.Time
		sess.CompletedAt = &at
	}

	return &sess, nil
}

func (s *Store) UpdateAnswers(ctx context.Context, id string, answers []interview.Answer) error {
	payload, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET answers = ? WHERE id = ?`,
		string(payload), id,
	)
	if err != nil {
		return fmt.Errorf("update answers: %w", err)
	}

	return ensureFound(result)
}

func (s *Store) MarkCompleted(ctx context.Context, id string, completedAt time.Time, eval *interview.Evaluation) error {
	var evaluation sql.NullString
	if eval != nil {
		payload, err := json.Marshal(eval)
		if err != nil {
			return fmt.Errorf("marshal evaluation: %w", err)
		}
		evaluation = sql.NullString{String: string(payload), Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, completed_at = ?, evaluation = ? WHERE id = ?`,
		string(interview.StatusCompleted), completedAt, evaluation, id,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	return ensureFound(result)
}

func ensureFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return interview.ErrSessionNotFound
	}
	return nil
}
