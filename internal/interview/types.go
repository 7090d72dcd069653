package interview

import "time"

// Category classifies a question by the skill it probes.
type Category string

const (
	CategoryTechnical      Category = "technical"
	CategoryBehavioral     Category = "behavioral"
	CategoryProblemSolving Category = "problem-solving"
	CategoryCommunication  Category = "communication"
	CategorySystemDesign   Category = "system-design"
)

// Question is one entry of a session's fixed script. Immutable once the
// session is created.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Text     string   `json:"text" yaml:"text"`
	Category Category `json:"category" yaml:"category"`
}

// Answer holds the candidate's response to a single question. QuestionText is
// a denormalized copy kept for audit, so the record stays readable even if the
// script generation changes.
type Answer struct {
	QuestionID   string     `json:"questionId"`
	QuestionText string     `json:"questionText"`
	ResponseText string     `json:"responseText"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	AnsweredAt   *time.Time `json:"answeredAt,omitempty"`
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is one end-to-end interview attempt.
type Session struct {
	ID          string      `json:"sessionId"`
	Role        string      `json:"role"`
	Questions   []Question  `json:"questions"`
	Answers     []Answer    `json:"answers"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Evaluation  *Evaluation `json:"evaluation,omitempty"`
}

// Completed reports whether the session has been finalized.
func (s *Session) Completed() bool {
	return s.Status == StatusCompleted
}

// Scores are the three scored dimensions, each an integer in [0,10].
type Scores struct {
	Technical      int `json:"technical"`
	ProblemSolving int `json:"problemSolving"`
	Communication  int `json:"communication"`
}

// Feedback carries a short per-dimension remark.
type Feedback struct {
	Technical      string `json:"technical"`
	ProblemSolving string `json:"problemSolving"`
	Communication  string `json:"communication"`
}

// Evaluation is the scored assessment produced when a session completes.
type Evaluation struct {
	Scores   Scores   `json:"scores"`
	Summary  string   `json:"summary"`
	Feedback Feedback `json:"feedback"`
}
