// Package api provides HTTP handlers for StudyPipe endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BTreeMap/StudyPipe/internal/models"
)

// createGuideHandler handles POST /create_guide.
func (s *Server) createGuideHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.createGuideHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.StudyGuideRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	guide := s.assistant.StudyGuide(r.Context(), req.Topic, req.Level, req.FocusAreas)
	slog.Info("Server.createGuideHandler: study guide returned", "topic_len", len(req.Topic), "response_len", len(guide))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"guide": guide}))
}

// generateQuestionsHandler handles POST /generate_questions.
func (s *Server) generateQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.generateQuestionsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.PracticeQuestionsRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	questions := s.assistant.PracticeQuestions(r.Context(), req.Topic, req.NumQuestions, req.QuestionTypes)
	slog.Info("Server.generateQuestionsHandler: questions returned", "num_questions", req.NumQuestions, "types", len(req.QuestionTypes), "response_len", len(questions))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"questions": questions}))
}

// explainTopicHandler handles POST /explain_topic.
func (s *Server) explainTopicHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.explainTopicHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.ExplainTopicRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	explanation := s.assistant.Explanation(r.Context(), req.Topic, req.DifficultyLevel)
	slog.Info("Server.explainTopicHandler: explanation returned", "difficulty_level", req.DifficultyLevel, "response_len", len(explanation))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"explanation": explanation}))
}

// summarizeTextHandler handles POST /summarize_text.
func (s *Server) summarizeTextHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.summarizeTextHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.SummarizeTextRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	summary := s.assistant.Summary(r.Context(), req.Text, req.SummaryType)
	slog.Info("Server.summarizeTextHandler: summary returned", "text_len", len(req.Text), "response_len", len(summary))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"summary": summary}))
}

// generateAssignmentHandler handles POST /generate_assignment.
func (s *Server) generateAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.generateAssignmentHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.AssignmentRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	assignment := s.assistant.Assignment(r.Context(), req.AssignmentName, req.Details, req.OutputFormat, req.WordCount, req.ReferenceContent)
	slog.Info("Server.generateAssignmentHandler: assignment returned", "output_format", req.OutputFormat, "response_len", len(assignment))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"assignment": assignment}))
}

// historyHandler returns recent generations (GET /history?limit=N).
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.historyHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			slog.Warn("Server.historyHandler: invalid limit", "limit", raw)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	gens, err := s.history.ListGenerations(limit)
	if err != nil {
		slog.Error("Server.historyHandler: failed to fetch generations", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch history"))
		return
	}
	if gens == nil {
		gens = []models.Generation{}
	}
	slog.Debug("Server.historyHandler: generations fetched", "count", len(gens))
	writeJSONResponse(w, http.StatusOK, models.Success(gens))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultHealthCheckTimeout)
	defer cancel()

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.history.Ping(ctx); err != nil {
		slog.Warn("Health check: history store ping failed", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "History store unavailable"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}
