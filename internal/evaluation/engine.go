package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/logger"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

// NoAnswerSentinel stands in for questions the candidate never answered.
const NoAnswerSentinel = "No answer provided"

const defaultMaxLogLength = 200

// QA is one question/answer pair of the transcript handed to scoring.
type QA struct {
	ID       string
	Question string
	Answer   string
}

// Engine produces a scored assessment from a completed session, preferring
// the generative backend and degrading to the local heuristic on any failure.
type Engine struct {
	generator ai.TextGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewEngine builds an Engine. generator may be nil when no backend is
// configured; every evaluation then uses the heuristic.
func NewEngine(generator ai.TextGenerator, log *zap.Logger, maxLogLength int) *Engine {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Engine{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Evaluate always returns a well-formed evaluation; any failure along the
// generative path is absorbed by the heuristic.
func (e *Engine) Evaluate(ctx context.Context, session *interview.Session) interview.Evaluation {
	pairs := Pairs(session)

	eval, err := e.fromBackend(ctx, session, pairs)
	if err != nil {
		e.logger.Warn("using heuristic evaluation",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return Heuristic(pairs)
	}

	return *eval
}

// Pairs builds the transcript in question order. Questions without a matching
// answer carry the sentinel text.
func Pairs(session *interview.Session) []QA {
	pairs := make([]QA, 0, len(session.Questions))
	for _, q := range session.Questions {
		answer := NoAnswerSentinel
		for _, a := range session.Answers {
			if a.QuestionID == q.ID {
				answer = a.ResponseText
				break
			}
		}
		pairs = append(pairs, QA{ID: q.ID, Question: q.Text, Answer: answer})
	}
	return pairs
}

func (e *Engine) fromBackend(ctx context.Context, session *interview.Session, pairs []QA) (*interview.Evaluation, error) {
	if e.generator == nil {
		return nil, errors.New("no generative backend configured")
	}

	prompt := buildPrompt(session.Role, pairs)

	e.logger.Debug("evaluation request",
		zap.String("session_id", session.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("evaluation response",
		zap.String("session_id", session.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseEvaluation(raw)
}

func buildPrompt(role string, pairs []QA) string {
	var qa strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			qa.WriteString("\n\n")
		}
		qa.WriteString(fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, pair.Question, i+1, pair.Answer))
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{ROLE}}", role)
	prompt = strings.ReplaceAll(prompt, "{{QA}}", qa.String())
	return prompt
}

type rawEvaluation struct {
	Scores   map[string]any `mapstructure:"scores"`
	Summary  string         `mapstructure:"summary"`
	Feedback struct {
		Technical      string `mapstructure:"technical"`
		ProblemSolving string `mapstructure:"problemSolving"`
		Communication  string `mapstructure:"communication"`
	} `mapstructure:"feedback"`
}

func parseEvaluation(raw string) (*interview.Evaluation, error) {
	cleaned, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse evaluation response: %w", err)
	}

	for _, key := range []string{"scores", "summary", "feedback"} {
		if _, ok := data[key]; !ok {
			return nil, fmt.Errorf("evaluation response is missing %q", key)
		}
	}

	var parsed rawEvaluation
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &parsed,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build evaluation decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode evaluation response: %w", err)
	}

	eval := &interview.Evaluation{
		Scores: interview.Scores{
			Technical:      repairScore(parsed.Scores["technical"]),
			ProblemSolving: repairScore(parsed.Scores["problemSolving"]),
			Communication:  repairScore(parsed.Scores["communication"]),
		},
		Summary: parsed.Summary,
		Feedback: interview.Feedback{
			Technical:      parsed.Feedback.Technical,
			ProblemSolving: parsed.Feedback.ProblemSolving,
			Communication:  parsed.Feedback.Communication,
		},
	}

	return eval, nil
}

func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no JSON object found in response")
	}
	return raw[start : end+1], nil
}

// repairScore coerces an arbitrary score value to an integer in [0,10].
// Missing or non-numeric values default toward 5 before the clamp.
func repairScore(v any) int {
	f := coerceFloat(v)
	if math.IsNaN(f) {
		f = 5
	}
	return clamp(0, 10, int(math.Round(f)))
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func clamp(low, high, v int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Heuristic is the deterministic rule-based evaluation. It is a pure function
// of the transcript: identical pairs always produce identical output.
func Heuristic(pairs []QA) interview.Evaluation {
	questionCount := len(pairs)

	totalAnswers := 0
	totalWords := 0
	hasStructure := false
	for _, pair := range pairs {
		if pair.Answer != "" && pair.Answer != NoAnswerSentinel {
			totalAnswers++
		}
		totalWords += len(strings.Fields(pair.Answer))
		if strings.ContainsAny(pair.Answer, ".,") {
			hasStructure = true
		}
	}

	completionRate := 0.0
	avgLength := 0.0
	if questionCount > 0 {
		completionRate = float64(totalAnswers) / float64(questionCount)
		avgLength = float64(totalWords) / float64(questionCount)
	}

	structureBonus := 1.0
	if hasStructure {
		structureBonus = 3.0
	}

	technical := clamp(1, 10, int(math.Round(3+completionRate*5+avgLength/20)))
	problemSolving := clamp(1, 10, int(math.Round(2+completionRate*6+avgLength/25)))
	communication := clamp(1, 10, int(math.Round(3+completionRate*4+structureBonus)))

	depth := "moderate"
	if avgLength < 15 {
		depth = "brief"
	} else if avgLength > 40 {
		depth = "detailed"
	}

	strength := "Developing"
	if technical >= 7 {
		strength = "Strong"
	}

	technicalFeedback := "Demonstrate deeper CS fundamentals knowledge."
	if float64(totalAnswers) < float64(questionCount)*0.5 {
		technicalFeedback = "Provide more complete responses to technical questions."
	}

	problemSolvingFeedback := "Structure your solutions with clear steps."
	if avgLength < 20 {
		problemSolvingFeedback = "Elaborate on your problem-solving approach with more detail."
	}

	communicationFeedback := "Use better sentence structure and organization in responses."
	if hasStructure {
		communicationFeedback = "Good communication structure. Practice explaining complex concepts simply."
	}

	return interview.Evaluation{
		Scores: interview.Scores{
			Technical:      technical,
			ProblemSolving: problemSolving,
			Communication:  communication,
		},
		Summary: fmt.Sprintf("Candidate provided %d/%d responses with %s explanations. %s technical foundation observed.",
			totalAnswers, questionCount, depth, strength),
		Feedback: interview.Feedback{
			Technical:      technicalFeedback,
			ProblemSolving: problemSolvingFeedback,
			Communication:  communicationFeedback,
		},
	}
}
