package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spigell/ai-interviewer/internal/evaluation"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/questions"
	"github.com/spigell/ai-interviewer/internal/storage/memory"
	"go.uber.org/zap"
)

// newTestHandler wires the real pipeline without a generative backend, so
// question generation and evaluation run on their local fallbacks.
func newTestHandler() http.Handler {
	log := zap.NewNop()
	provider := questions.NewProvider(nil, log, 0)
	engine := evaluation.NewEngine(nil, log, 0)
	manager := interview.NewManager(provider, engine, memory.NewStore(), log)

	return New(manager, log, Options{
		DefaultRole:  "SDE Intern",
		ClientOrigin: "http://localhost:5173",
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}

	return rec, decoded
}

func startSession(t *testing.T, handler http.Handler, body any) (string, []interview.Question) {
	t.Helper()

	rec, resp := doJSON(t, handler, http.MethodPost, "/api/interview/session/start", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sessionID string
	if err := json.Unmarshal(resp["sessionId"], &sessionID); err != nil || sessionID == "" {
		t.Fatalf("start: missing sessionId in %s", rec.Body.String())
	}

	var qs []interview.Question
	if err := json.Unmarshal(resp["questions"], &qs); err != nil {
		t.Fatalf("start: decode questions: %v", err)
	}

	return sessionID, qs
}

func TestHealth(t *testing.T) {
	handler := newTestHandler()

	rec, resp := doJSON(t, handler, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if string(resp["ok"]) != "true" {
		t.Fatalf("unexpected health body: %s", rec.Body.String())
	}
}

func TestStartDefaultsRole(t *testing.T) {
	handler := newTestHandler()

	_, qs := startSession(t, handler, nil)

	if len(qs) != questions.Count {
		t.Fatalf("expected %d questions, got %d", questions.Count, len(qs))
	}
	if qs[0].Text != questions.Greeting("SDE Intern") {
		t.Fatalf("unexpected first question: %q", qs[0].Text)
	}
}

func TestStartCustomRole(t *testing.T) {
	handler := newTestHandler()

	_, qs := startSession(t, handler, map[string]string{"role": "Data Engineer"})

	if qs[0].Text != questions.Greeting("Data Engineer") {
		t.Fatalf("greeting not rewritten for role: %q", qs[0].Text)
	}
}

func TestAnswerValidation(t *testing.T) {
	handler := newTestHandler()
	sessionID, qs := startSession(t, handler, nil)

	rec, _ := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/api/interview/session/%s/answer", sessionID),
		map[string]string{"questionId": qs[0].ID, "questionText": qs[0].Text, "responseText": ""},
	)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty responseText, got %d", rec.Code)
	}

	// No answer must have been appended.
	rec, resp := doJSON(t, handler, http.MethodGet, "/api/interview/session/"+sessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var answers []interview.Answer
	if err := json.Unmarshal(resp["answers"], &answers); err != nil {
		t.Fatalf("decode answers: %v", err)
	}
	if len(answers) != 0 {
		t.Fatalf("expected no answers, got %d", len(answers))
	}
}

func TestAnswerUnknownSession(t *testing.T) {
	handler := newTestHandler()

	rec, _ := doJSON(t, handler, http.MethodPost,
		"/api/interview/session/missing/answer",
		map[string]string{"questionId": "q1", "questionText": "q", "responseText": "a"},
	)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetUnknownSession(t *testing.T) {
	handler := newTestHandler()

	rec, _ := doJSON(t, handler, http.MethodGet, "/api/interview/session/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	handler := newTestHandler()

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/interview/session/missing/complete", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFullInterviewScenario(t *testing.T) {
	handler := newTestHandler()
	sessionID, qs := startSession(t, handler, nil)

	// 12 words per answer, contains commas and periods: completionRate=1.0,
	// avgLength=12, hasStructure=true.
	answerText := "I would build it with a queue, a cache, and careful retries."

	for _, q := range qs {
		rec, resp := doJSON(t, handler, http.MethodPost,
			fmt.Sprintf("/api/interview/session/%s/answer", sessionID),
			map[string]string{"questionId": q.ID, "questionText": q.Text, "responseText": answerText},
		)
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %s: expected 200, got %d: %s", q.ID, rec.Code, rec.Body.String())
		}
		if string(resp["ok"]) != "true" {
			t.Fatalf("answer %s: unexpected body: %s", q.ID, rec.Body.String())
		}
	}

	rec, resp := doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/api/interview/session/%s/complete", sessionID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var eval interview.Evaluation
	if err := json.Unmarshal(resp["evaluation"], &eval); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}

	want := interview.Scores{Technical: 9, ProblemSolving: 8, Communication: 10}
	if eval.Scores != want {
		t.Fatalf("expected heuristic scores %+v, got %+v", want, eval.Scores)
	}
	if eval.Summary != "Candidate provided 6/6 responses with brief explanations. Strong technical foundation observed." {
		t.Fatalf("unexpected summary: %q", eval.Summary)
	}

	// The completed record carries status, completedAt and the evaluation.
	rec, resp = doJSON(t, handler, http.MethodGet, "/api/interview/session/"+sessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var status string
	if err := json.Unmarshal(resp["status"], &status); err != nil || status != "completed" {
		t.Fatalf("expected completed status, got %s", rec.Body.String())
	}
	if _, ok := resp["evaluation"]; !ok {
		t.Fatalf("expected stored evaluation in %s", rec.Body.String())
	}

	// Mutating a completed session is rejected.
	rec, _ = doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/api/interview/session/%s/answer", sessionID),
		map[string]string{"questionId": qs[0].ID, "questionText": qs[0].Text, "responseText": "late"},
	)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 after completion, got %d", rec.Code)
	}

	// Completing again returns the stored evaluation.
	rec, resp = doJSON(t, handler, http.MethodPost,
		fmt.Sprintf("/api/interview/session/%s/complete", sessionID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat complete: expected 200, got %d", rec.Code)
	}
	var repeat interview.Evaluation
	if err := json.Unmarshal(resp["evaluation"], &repeat); err != nil {
		t.Fatalf("decode repeat evaluation: %v", err)
	}
	if repeat.Scores != eval.Scores {
		t.Fatalf("repeat completion changed scores: %+v vs %+v", repeat.Scores, eval.Scores)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodOptions, "/api/interview/session/start", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %q", got)
	}
}
