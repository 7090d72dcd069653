package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed prompt.md
var promptTemplate string

//go:embed fallback.yaml
var fallbackYAML string

// Count is the fixed length of every interview script.
const Count = 6

const (
	defaultMaxLogLength = 200
	minQuestionLength   = 10
)

// Provider produces the ordered question script for a role, preferring the
// generative backend and degrading to the static bank on any failure.
type Provider struct {
	generator ai.TextGenerator
	logger    *zap.Logger
	maxLogLen int

	seed func() int
	now  func() time.Time
}

// NewProvider builds a Provider. generator may be nil when no backend is
// configured; every call then serves the static bank.
func NewProvider(generator ai.TextGenerator, log *zap.Logger, maxLogLength int) *Provider {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Provider{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
		seed:      func() int { return rand.IntN(10000) },
		now:       time.Now,
	}
}

// GreetingPrefix is the fragment question 1 must open with.
func GreetingPrefix(role string) string {
	return fmt.Sprintf("Hi, I'm your AI interviewer for the %s role", role)
}

// Greeting is the canonical full text of question 1.
func Greeting(role string) string {
	return fmt.Sprintf("Hi, I'm your AI interviewer for the %s role. Please tell me about yourself, your background, and why you are interested in this position.", role)
}

// Generate returns exactly Count questions for the role. It never fails:
// backend errors, malformed output and validation failures all route to the
// static fallback bank. There are no retries against the backend.
func (p *Provider) Generate(ctx context.Context, role string) []interview.Question {
	generated, err := p.fromBackend(ctx, role)
	if err != nil {
		p.logger.Warn("using static question bank",
			zap.String("role", role),
			zap.Error(err),
		)
		return Fallback(role)
	}

	return generated
}

func (p *Provider) fromBackend(ctx context.Context, role string) ([]interview.Question, error) {
	if p.generator == nil {
		return nil, errors.New("no generative backend configured")
	}

	prompt := p.buildPrompt(role)

	p.logger.Debug("question generation request",
		zap.String("role", role),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, p.maxLogLen)),
	)

	raw, err := p.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("question generation response",
		zap.String("role", role),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, p.maxLogLen)),
	)

	return parseQuestions(raw, role)
}

func (p *Provider) buildPrompt(role string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{ROLE}}", role)
	prompt = strings.ReplaceAll(prompt, "{{SEED}}", strconv.Itoa(p.seed()))
	prompt = strings.ReplaceAll(prompt, "{{TIMESTAMP}}", strconv.FormatInt(p.now().UnixMilli(), 10))
	return prompt
}

func parseQuestions(raw, role string) ([]interview.Question, error) {
	cleaned, err := extractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var parsed []interview.Question
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parse questions response: %w", err)
	}

	if len(parsed) != Count {
		return nil, fmt.Errorf("expected %d questions, got %d", Count, len(parsed))
	}

	for i, q := range parsed {
		if q.ID == "" || q.Category == "" {
			return nil, fmt.Errorf("question %d is missing id or category", i+1)
		}
		if utf8.RuneCountInString(q.Text) <= minQuestionLength {
			return nil, fmt.Errorf("question %d text is too short", i+1)
		}
	}

	// The model occasionally drops the mandated greeting. Correct rather
	// than discard an otherwise valid script.
	if !strings.HasPrefix(parsed[0].Text, GreetingPrefix(role)) {
		parsed[0].Text = Greeting(role)
		parsed[0].Category = interview.CategoryBehavioral
	}

	return parsed, nil
}

func extractJSONArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no JSON array found in response")
	}
	return raw[start : end+1], nil
}

// Fallback returns the static question bank with question 1 rewritten to
// greet the candidate for the given role.
func Fallback(role string) []interview.Question {
	bank := make([]interview.Question, len(fallbackBank))
	copy(bank, fallbackBank)
	bank[0].Text = Greeting(role)
	return bank
}

var fallbackBank = mustLoadFallback()

func mustLoadFallback() []interview.Question {
	var bank []interview.Question
	if err := yaml.Unmarshal([]byte(fallbackYAML), &bank); err != nil {
		panic(fmt.Sprintf("embedded fallback bank is invalid: %v", err))
	}
	if len(bank) != Count {
		panic(fmt.Sprintf("embedded fallback bank must hold %d questions, has %d", Count, len(bank)))
	}
	return bank
}
