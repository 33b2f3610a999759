package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/internal/analysis"
	"github.com/complyaudit/compliance-analyzer/internal/storage"
	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// AnalysisRequest starts a run over a document/regulation pair
type AnalysisRequest struct {
	DocumentID   string `json:"document_id"`
	RegulationID string `json:"regulation_id"`
}

// AnalysisResponse is the API view of one run
type AnalysisResponse struct {
	ID           string              `json:"id"`
	DocumentID   string              `json:"document_id"`
	RegulationID string              `json:"regulation_id"`
	Status       string              `json:"status"`
	Error        string              `json:"error,omitempty"`
	Statistics   analysis.Statistics `json:"statistics"`
	CreatedAt    time.Time           `json:"created_at"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}

func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	regulationID, err := uuid.Parse(req.RegulationID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid regulation id")
		return
	}

	document, err := s.documents.GetByID(r.Context(), documentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	if document == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if document.Status != storage.DocumentStatusReady {
		respondError(w, http.StatusConflict, "document is not ready for analysis")
		return
	}

	run := analysis.NewRun(documentID, regulationID)
	if err := s.runs.SaveRun(r.Context(), run); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create analysis run")
		return
	}

	s.startRun(run)

	respondJSON(w, http.StatusAccepted, AnalysisResponse{
		ID:           run.ID.String(),
		DocumentID:   run.DocumentID.String(),
		RegulationID: run.RegulationID.String(),
		Status:       string(run.Status),
		CreatedAt:    run.CreatedAt,
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	record, ok := s.fetchRun(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, AnalysisResponse{
		ID:           record.ID.String(),
		DocumentID:   record.DocumentID.String(),
		RegulationID: record.RegulationID.String(),
		Status:       string(record.Status),
		Error:        record.Error,
		Statistics:   record.Statistics,
		CreatedAt:    record.CreatedAt,
		StartedAt:    record.StartedAt,
		CompletedAt:  record.CompletedAt,
	})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	record, ok := s.fetchRun(w, r)
	if !ok {
		return
	}

	results, err := s.runs.GetResults(r.Context(), record.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": record.ID.String(),
		"results":     results,
		"total":       len(results),
	})
}

// GapsResponse lists findings with per-severity counts. An optional
// ?severity= filter narrows the list; the counts always cover the full
// finding set.
type GapsResponse struct {
	AnalysisID string              `json:"analysis_id"`
	Gaps       []models.GapFinding `json:"gaps"`
	Counts     map[string]int      `json:"counts"`
	Total      int                 `json:"total"`
}

func (s *Server) handleGetGaps(w http.ResponseWriter, r *http.Request) {
	record, ok := s.fetchRun(w, r)
	if !ok {
		return
	}

	findings, err := s.runs.GetFindings(r.Context(), record.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch gaps")
		return
	}

	counts := map[string]int{}
	for _, f := range findings {
		counts[string(f.Severity)]++
	}

	filtered := findings
	if sev := strings.ToUpper(r.URL.Query().Get("severity")); sev != "" {
		filtered = nil
		for _, f := range findings {
			if string(f.Severity) == sev {
				filtered = append(filtered, f)
			}
		}
	}

	respondJSON(w, http.StatusOK, GapsResponse{
		AnalysisID: record.ID.String(),
		Gaps:       filtered,
		Counts:     counts,
		Total:      len(findings),
	})
}

func (s *Server) handleGetQuestions(w http.ResponseWriter, r *http.Request) {
	record, ok := s.fetchRun(w, r)
	if !ok {
		return
	}

	questions, err := s.runs.GetQuestions(r.Context(), record.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch questions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": record.ID.String(),
		"questions":   questions,
		"total":       len(questions),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	record, ok := s.fetchRun(w, r)
	if !ok {
		return
	}

	report, err := s.runs.GetReport(r.Context(), record.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch report")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "report not available")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": record.ID.String(),
		"report":      report,
	})
}

// fetchRun resolves the {analysisID} URL parameter to a stored run,
// writing the error response itself when resolution fails.
func (s *Server) fetchRun(w http.ResponseWriter, r *http.Request) (*storage.RunRecord, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "analysisID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid analysis id")
		return nil, false
	}

	record, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch analysis")
		return nil, false
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "analysis not found")
		return nil, false
	}

	return record, true
}
