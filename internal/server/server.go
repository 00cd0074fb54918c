// Package server exposes the interview and evaluation flows over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/evaluation"
	"github.com/prep-piper/interviewer/internal/interview"
	"github.com/prep-piper/interviewer/internal/logger"
	"github.com/prep-piper/interviewer/internal/session"
	"github.com/prep-piper/interviewer/internal/transcript"
)

const maxBodyBytes = 1 << 20

// Config for the HTTP API handler.
type Config struct {
	Orchestrator   *interview.Orchestrator
	Pipeline       *evaluation.Pipeline
	TranscriptsDir string
	Logger         *zap.Logger
}

type handler struct {
	orch   *interview.Orchestrator
	eval   *evaluation.Pipeline
	dir    string
	logger *zap.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

type startRequest struct {
	TechStack string `json:"tech_stack"`
	Position  string `json:"position"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type answerResponse struct {
	Message       string `json:"message"`
	QuestionCount int    `json:"question_count"`
	IsComplete    bool   `json:"is_complete"`
}

type evaluateRequest struct {
	Path string `json:"path"`
}

// New returns an HTTP handler exposing the interviewer API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("evaluation pipeline is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TranscriptsDir == "" {
		cfg.TranscriptsDir = "interviews"
	}

	h := &handler{
		orch:   cfg.Orchestrator,
		eval:   cfg.Pipeline,
		dir:    cfg.TranscriptsDir,
		logger: cfg.Logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.requestLogger)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.startInterview)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/answers", h.processAnswer)
			r.Get("/summary", h.summary)
			r.Post("/end", h.endInterview)
			r.Post("/save", h.saveTranscript)
		})
		r.Post("/evaluations", h.evaluate)
	})

	return router, nil
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
		)
	})
}

func (h *handler) startInterview(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, opening, err := h.orch.StartInterview(r.Context(), req.TechStack, req.Position)
	if err != nil {
		h.logger.Error("starting interview", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start interview")
		return
	}

	writeJSON(w, http.StatusCreated, startResponse{SessionID: id, Message: opening})
}

func (h *handler) processAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	message, s := h.orch.Answer(r.Context(), id, req.Answer)

	resp := answerResponse{Message: message}
	switch {
	case s != nil:
		resp.QuestionCount = s.QuestionCount
		resp.IsComplete = s.IsComplete
	case message == interview.MsgSessionNotFound:
		writeJSON(w, http.StatusNotFound, resp)
		return
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessionExists(w, r, id) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": h.orch.Summary(r.Context(), id)})
}

func (h *handler) endInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessionExists(w, r, id) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": h.orch.EndInterview(r.Context(), id)})
}

func (h *handler) saveTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.orch.Session(r.Context(), id)
	if err != nil {
		h.lookupError(w, id, err)
		return
	}

	path, err := transcript.Save(h.dir, transcript.FromSession(s))
	if err != nil {
		h.logger.Error("saving transcript", zap.String(logger.FieldSessionID, id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save transcript")
		return
	}

	h.logger.Info("transcript saved", zap.String(logger.FieldSessionID, id), zap.String("path", path))
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (h *handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	path, ok := h.resolveTranscript(req.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "path must name a transcript inside the transcripts directory")
		return
	}

	t, err := h.eval.Load(path)
	switch {
	case errors.Is(err, transcript.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, transcript.ErrMalformed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Error("loading transcript", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load transcript")
		return
	}

	writeJSON(w, http.StatusOK, h.eval.Evaluate(r.Context(), t))
}

// resolveTranscript maps a request path onto a file under the transcripts
// directory. Bare names are taken relative to it.
func (h *handler) resolveTranscript(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	root, err := filepath.Abs(h.dir)
	if err != nil {
		return "", false
	}
	path := raw
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(root, rel), true
}

func (h *handler) sessionExists(w http.ResponseWriter, r *http.Request, id string) bool {
	if _, err := h.orch.Session(r.Context(), id); err != nil {
		h.lookupError(w, id, err)
		return false
	}
	return true
}

func (h *handler) lookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, interview.MsgSummaryNotFound)
		return
	}
	h.logger.Error("loading session", zap.String(logger.FieldSessionID, id), zap.Error(err))
	writeError(w, http.StatusInternalServerError, interview.MsgInternalError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return true
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
