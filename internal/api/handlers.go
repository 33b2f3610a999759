package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/internal/ingestion"
	"github.com/complyaudit/compliance-analyzer/internal/storage"
)

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DocumentResponse is the API view of an ingested document
type DocumentResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	ParagraphCount int    `json:"paragraph_count"`
}

func documentResponse(d *storage.Document) DocumentResponse {
	return DocumentResponse{
		ID:             d.ID.String(),
		Name:           d.Name,
		Status:         d.Status,
		ParagraphCount: d.ParagraphCount,
	}
}

// Document handlers
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Text == "" {
		respondError(w, http.StatusBadRequest, "name and text are required")
		return
	}

	document, err := s.ingest.Ingest(r.Context(), req.Name, req.Text)
	if err != nil {
		if errors.Is(err, ingestion.ErrNoParagraphs) {
			respondError(w, http.StatusUnprocessableEntity, "no valid paragraphs extracted")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to ingest document")
		return
	}

	respondJSON(w, http.StatusCreated, documentResponse(document))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := s.documents.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	out := make([]DocumentResponse, len(documents))
	for i, d := range documents {
		out[i] = documentResponse(d)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	document, err := s.documents.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	if document == nil {
		respondError(w, http.StatusNotFound, "document not found")
		return
	}

	respondJSON(w, http.StatusOK, documentResponse(document))
}

// Regulation handlers
func (s *Server) handleIngestRegulation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Clauses []ingestion.ClauseInput `json:"clauses"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, c := range req.Clauses {
		if c.ClauseID == "" || c.Text == "" {
			respondError(w, http.StatusBadRequest, "every clause needs clause_id and text")
			return
		}
	}

	regulationID, err := s.ingest.IngestClauses(r.Context(), req.Clauses)
	if err != nil {
		if errors.Is(err, ingestion.ErrNoClauses) {
			respondError(w, http.StatusBadRequest, "clauses are required")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to ingest regulation")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"regulation_id": regulationID.String(),
		"clause_count":  len(req.Clauses),
	})
}
