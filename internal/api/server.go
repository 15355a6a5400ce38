// Package api serves assessment sessions over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/advice"
	"github.com/sells-group/diabetes-risk/internal/sessions"
	"github.com/sells-group/diabetes-risk/internal/workflow"
)

// Server routes HTTP requests to sessions held in a registry.
type Server struct {
	registry *sessions.Registry
	narrator advice.Narrator
	origins  []string
}

// NewServer creates a Server. A nil narrator serves the static plan text.
func NewServer(reg *sessions.Registry, narrator advice.Narrator, origins []string) *Server {
	if narrator == nil {
		narrator = advice.Static{}
	}
	return &Server{registry: reg, narrator: narrator, origins: origins}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/sessions", s.createSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/", s.getSession)
		r.Delete("/", s.deleteSession)
		r.Patch("/draft", s.updateDraft)
		r.Post("/reset", s.reset)
		r.Post("/submit", s.submit)
		r.Get("/result", s.result)
		r.Post("/record", s.record)
		r.Get("/recommendations", s.recommendations)
		r.Get("/history", s.history)
		r.Delete("/history", s.clearHistory)
		r.Get("/history/trend", s.historyTrend)
		r.Get("/history/export", s.exportHistory)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

type errorBody struct {
	Error   string                `json:"error"`
	Missing []string              `json:"missing,omitempty"`
	Invalid []workflow.FieldError `json:"invalid,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeWorkflowError maps workflow errors to status codes.
func writeWorkflowError(w http.ResponseWriter, err error) {
	var verr *workflow.ValidationError
	var perr *workflow.PersistenceError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "validation failed",
			Missing: verr.Missing,
			Invalid: verr.Invalid,
		})
	case errors.Is(err, workflow.ErrNoResult):
		writeError(w, http.StatusConflict, "no result yet, submit the assessment first")
	case errors.Is(err, workflow.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrClearNotConfirmed):
		writeError(w, http.StatusBadRequest, "clearing history requires confirm=true")
	case errors.As(err, &perr):
		zap.L().Error("api: history unavailable", zap.String("op", perr.Op), zap.Error(perr.Err))
		writeError(w, http.StatusServiceUnavailable, "history store unavailable")
	default:
		zap.L().Error("api: unexpected error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
