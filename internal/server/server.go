package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/spigell/ai-interviewer/internal/interview"
	"go.uber.org/zap"
)

// Express-style 1 MiB request body limit.
const maxBodyBytes = 1 << 20

// Server is the HTTP adapter in front of the session lifecycle manager.
type Server struct {
	manager     *interview.Manager
	defaultRole string
	logger      *zap.Logger
}

// Options configure the HTTP surface.
type Options struct {
	// DefaultRole is used when a start request carries no role.
	DefaultRole string
	// ClientOrigin is the allowed cross-origin caller.
	ClientOrigin string
}

// New builds the full HTTP handler: routes plus logging and CORS middleware.
func New(manager *interview.Manager, logger *zap.Logger, opts Options) http.Handler {
	s := &Server{
		manager:     manager,
		defaultRole: opts.DefaultRole,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/interview/session/start", s.handleStart)
	mux.HandleFunc("POST /api/interview/session/{sessionId}/answer", s.handleAnswer)
	mux.HandleFunc("GET /api/interview/session/{sessionId}", s.handleGetSession)
	mux.HandleFunc("POST /api/interview/session/{sessionId}/complete", s.handleComplete)

	return chainMiddlewares(mux,
		withCORS(opts.ClientOrigin),
		withLogging(logger),
	)
}

type startRequest struct {
	Role string `json:"role"`
}

type startResponse struct {
	SessionID string               `json:"sessionId"`
	Role      string               `json:"role"`
	Questions []interview.Question `json:"questions"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type completeResponse struct {
	Evaluation *interview.Evaluation `json:"evaluation"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	// The start body is optional; an empty or absent body means default role.
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		badRequest(w, "invalid JSON body")
		return
	}

	role := req.Role
	if role == "" {
		role = s.defaultRole
	}

	session, err := s.manager.Start(r.Context(), role)
	if err != nil {
		s.logger.Error("failed to start session", zap.Error(err))
		internalError(w, "Failed to start session")
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		SessionID: session.ID,
		Role:      session.Role,
		Questions: session.Questions,
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	var sub interview.AnswerSubmission
	if err := decodeBody(w, r, &sub); err != nil {
		badRequest(w, "Invalid answer payload")
		return
	}

	if err := s.manager.SubmitAnswer(r.Context(), sessionID, sub); err != nil {
		s.writeDomainError(w, err, "Failed to submit answer")
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	session, err := s.manager.Get(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, err, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")

	eval, err := s.manager.Complete(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, err, "Failed to complete session")
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{Evaluation: eval})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	var vErr *interview.ValidationError

	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
	case errors.Is(err, interview.ErrSessionCompleted):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Session completed"})
	case errors.As(err, &vErr):
		badRequest(w, vErr.Reason)
	default:
		s.logger.Error(fallbackMsg, zap.Error(err))
		internalError(w, fallbackMsg)
	}
}

var errEmptyBody = errors.New("empty body")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}
