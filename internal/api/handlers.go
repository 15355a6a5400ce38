package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/diabetes-risk/internal/advice"
	"github.com/sells-group/diabetes-risk/internal/export"
	"github.com/sells-group/diabetes-risk/internal/model"
	"github.com/sells-group/diabetes-risk/internal/trend"
	"github.com/sells-group/diabetes-risk/internal/workflow"
)

type ctxKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, ok := s.registry.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func session(r *http.Request) *workflow.Session {
	return r.Context().Value(ctxKey{}).(*workflow.Session)
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	_, sess := s.registry.Create()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session(r).Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.registry.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateDraft(w http.ResponseWriter, r *http.Request) {
	var raw model.RawInput
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := session(r)
	sess.Update(raw)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type resultResponse struct {
	model.AssessmentResult
	Summary    string `json:"summary"`
	Disclaimer string `json:"disclaimer"`
}

func newResultResponse(res model.AssessmentResult) resultResponse {
	return resultResponse{
		AssessmentResult: res,
		Summary:          advice.Summary(res.Tier),
		Disclaimer:       advice.Disclaimer,
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	res, err := session(r).Submit(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(res))
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	res, err := session(r).Result()
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(res))
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) {
	added, err := session(r).Record(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"recorded": added})
}

type recommendationsResponse struct {
	Plan      advice.Plan `json:"plan"`
	Narrative string      `json:"narrative"`
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	plan, err := session(r).Recommendations()
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{
		Plan:      plan,
		Narrative: advice.Narrate(r.Context(), s.narrator, plan),
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	recs, err := session(r).History(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	if recs == nil {
		recs = []model.AssessmentRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := session(r).ClearHistory(r.Context(), confirmed); err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type trendResponse struct {
	trend.Summary
	Sparkline string `json:"sparkline"`
}

func (s *Server) historyTrend(w http.ResponseWriter, r *http.Request) {
	recs, err := session(r).History(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trendResponse{
		Summary:   trend.Summarize(recs),
		Sparkline: trend.Sparkline(recs),
	})
}

func (s *Server) exportHistory(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := session(r).History(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, recs); err != nil {
		writeWorkflowError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="assessment_history.`+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
