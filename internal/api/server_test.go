package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/complyaudit/compliance-analyzer/internal/analysis"
	"github.com/complyaudit/compliance-analyzer/internal/classifier"
	"github.com/complyaudit/compliance-analyzer/internal/ingestion"
	"github.com/complyaudit/compliance-analyzer/internal/similarity"
	"github.com/complyaudit/compliance-analyzer/internal/storage"
	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

// stubProvider answers a fixed vector for every non-blank text.
type stubProvider struct{}

func (stubProvider) Embed(ctx context.Context, text string) []float32 {
	return []float32{1, 0}
}

func (stubProvider) EmbedBatch(ctx context.Context, texts []string) map[string][]float32 {
	out := make(map[string][]float32, len(texts))
	for _, t := range texts {
		out[t] = []float32{1, 0}
	}
	return out
}

func (stubProvider) ModelName() string { return "stub" }

type memDocuments struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*storage.Document
}

func newMemDocuments() *memDocuments {
	return &memDocuments{byID: make(map[uuid.UUID]*storage.Document)}
}

func (m *memDocuments) Create(ctx context.Context, d *storage.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDocuments) GetByID(ctx context.Context, id uuid.UUID) (*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memDocuments) List(ctx context.Context) ([]*storage.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Document
	for _, d := range m.byID {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDocuments) UpdateStatus(ctx context.Context, id uuid.UUID, status string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		d.Status = status
		d.ParagraphCount = count
	}
	return nil
}

func (m *memDocuments) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type memParagraphs struct {
	mu    sync.Mutex
	byDoc map[uuid.UUID][]*storage.Paragraph
	next  int64
}

func newMemParagraphs() *memParagraphs {
	return &memParagraphs{byDoc: make(map[uuid.UUID][]*storage.Paragraph)}
}

func (m *memParagraphs) CreateBatch(ctx context.Context, ps []*storage.Paragraph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.next++
		p.ID = m.next
		m.byDoc[p.DocumentID] = append(m.byDoc[p.DocumentID], p)
	}
	return nil
}

func (m *memParagraphs) GetByDocumentID(ctx context.Context, id uuid.UUID) ([]*storage.Paragraph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byDoc[id], nil
}

func (m *memParagraphs) LoadParagraphs(ctx context.Context, id uuid.UUID) ([]models.Paragraph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Paragraph
	for _, p := range m.byDoc[id] {
		out = append(out, models.Paragraph{
			ID:        p.ID,
			Text:      p.Text,
			Section:   p.Section,
			Order:     p.Position,
			Embedding: p.Embedding.Slice(),
		})
	}
	return out, nil
}

func (m *memParagraphs) DeleteByDocumentID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byDoc, id)
	return nil
}

type memClauses struct {
	mu    sync.Mutex
	byReg map[uuid.UUID][]*storage.Clause
}

func newMemClauses() *memClauses {
	return &memClauses{byReg: make(map[uuid.UUID][]*storage.Clause)}
}

func (m *memClauses) CreateBatch(ctx context.Context, cs []*storage.Clause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		m.byReg[c.RegulationID] = append(m.byReg[c.RegulationID], c)
	}
	return nil
}

func (m *memClauses) GetByRegulationID(ctx context.Context, id uuid.UUID) ([]*storage.Clause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byReg[id], nil
}

func (m *memClauses) LoadClauses(ctx context.Context, id uuid.UUID) ([]models.Clause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Clause
	for _, c := range m.byReg[id] {
		out = append(out, models.Clause{
			ClauseID:  c.ClauseID,
			Title:     c.Title,
			Text:      c.Text,
			Mandatory: c.Mandatory,
			Embedding: c.Embedding.Slice(),
		})
	}
	return out, nil
}

func (m *memClauses) DeleteByRegulationID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byReg, id)
	return nil
}

type memRuns struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*storage.RunRecord
	findings map[uuid.UUID][]models.GapFinding
}

func newMemRuns() *memRuns {
	return &memRuns{
		records:  make(map[uuid.UUID]*storage.RunRecord),
		findings: make(map[uuid.UUID][]models.GapFinding),
	}
}

func (m *memRuns) SaveRun(ctx context.Context, run *analysis.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[run.ID] = &storage.RunRecord{
		ID:           run.ID,
		DocumentID:   run.DocumentID,
		RegulationID: run.RegulationID,
		Status:       run.Status,
		Error:        run.Error,
		Statistics:   run.Statistics,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
	return nil
}

func (m *memRuns) SaveResults(ctx context.Context, runID uuid.UUID, results []models.ClauseMatchResult) error {
	return nil
}

func (m *memRuns) SaveFindings(ctx context.Context, runID uuid.UUID, findings []models.GapFinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings[runID] = findings
	return nil
}

func (m *memRuns) SaveQuestions(ctx context.Context, runID uuid.UUID, qs []models.AuditorQuestion) error {
	return nil
}

func (m *memRuns) SaveReport(ctx context.Context, runID uuid.UUID, report models.DecisionReport) error {
	return nil
}

func (m *memRuns) GetRun(ctx context.Context, id uuid.UUID) (*storage.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memRuns) GetResults(ctx context.Context, runID uuid.UUID) ([]models.ClauseMatchResult, error) {
	return nil, nil
}

func (m *memRuns) GetFindings(ctx context.Context, runID uuid.UUID) ([]models.GapFinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findings[runID], nil
}

func (m *memRuns) GetQuestions(ctx context.Context, runID uuid.UUID) ([]models.AuditorQuestion, error) {
	return nil, nil
}

func (m *memRuns) GetReport(ctx context.Context, runID uuid.UUID) (*models.DecisionReport, error) {
	return nil, nil
}

type testEnv struct {
	server    *Server
	documents *memDocuments
	runs      *memRuns
}

func newTestEnv() *testEnv {
	documents := newMemDocuments()
	paragraphs := newMemParagraphs()
	clauses := newMemClauses()
	runs := newMemRuns()

	ingest := ingestion.NewService(stubProvider{}, documents, paragraphs, clauses)
	pipeline := analysis.NewOrchestrator(clauses, paragraphs, runs, similarity.NewEngine(0.30, 1), classifier.New(nil))

	return &testEnv{
		server:    NewServer(documents, runs, ingest, pipeline),
		documents: documents,
		runs:      runs,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleIngestDocument(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "POST", "/api/v1/documents", map[string]string{
		"name": "moe.txt",
		"text": "1.1 Scope\nThis exposition covers all base maintenance activity performed by the organization.",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != storage.DocumentStatusReady {
		t.Errorf("expected READY, got %q", resp.Status)
	}
	if resp.ParagraphCount != 1 {
		t.Errorf("expected 1 paragraph, got %d", resp.ParagraphCount)
	}
}

func TestHandleIngestDocument_MissingFields(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "POST", "/api/v1/documents", map[string]string{"name": "moe.txt"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleIngestDocument_NoParagraphs(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "POST", "/api/v1/documents", map[string]string{
		"name": "empty.txt",
		"text": "short",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestHandleIngestRegulation(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "POST", "/api/v1/regulations", map[string]any{
		"clauses": []map[string]any{
			{"clause_id": "145.A.30", "title": "Personnel", "text": "The organization shall appoint an accountable manager.", "mandatory": true},
		},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RegulationID string `json:"regulation_id"`
		ClauseCount  int    `json:"clause_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := uuid.Parse(resp.RegulationID); err != nil {
		t.Errorf("expected valid regulation id, got %q", resp.RegulationID)
	}
	if resp.ClauseCount != 1 {
		t.Errorf("expected 1 clause, got %d", resp.ClauseCount)
	}
}

func TestHandleStartAnalysis_DocumentNotFound(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "POST", "/api/v1/analyses", AnalysisRequest{
		DocumentID:   uuid.New().String(),
		RegulationID: uuid.New().String(),
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleStartAnalysis_DocumentNotReady(t *testing.T) {
	env := newTestEnv()

	doc := &storage.Document{ID: uuid.New(), Name: "moe.txt", Status: storage.DocumentStatusProcessing}
	env.documents.Create(context.Background(), doc)

	rec := env.do(t, "POST", "/api/v1/analyses", AnalysisRequest{
		DocumentID:   doc.ID.String(),
		RegulationID: uuid.New().String(),
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestHandleStartAnalysis_Accepted(t *testing.T) {
	env := newTestEnv()

	doc := &storage.Document{ID: uuid.New(), Name: "moe.txt", Status: storage.DocumentStatusReady, ParagraphCount: 3}
	env.documents.Create(context.Background(), doc)

	rec := env.do(t, "POST", "/api/v1/analyses", AnalysisRequest{
		DocumentID:   doc.ID.String(),
		RegulationID: uuid.New().String(),
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AnalysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(analysis.StatusPending) {
		t.Errorf("expected PENDING, got %q", resp.Status)
	}

	runID, err := uuid.Parse(resp.ID)
	if err != nil {
		t.Fatalf("expected valid run id, got %q", resp.ID)
	}

	// The pending run is persisted before the response is written.
	record, _ := env.runs.GetRun(context.Background(), runID)
	if record == nil {
		t.Error("expected pending run persisted")
	}
}

func TestHandleGetAnalysis_NotFound(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, "GET", "/api/v1/analyses/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleGetGaps_SeverityFilter(t *testing.T) {
	env := newTestEnv()

	run := analysis.NewRun(uuid.New(), uuid.New())
	env.runs.SaveRun(context.Background(), run)
	env.runs.SaveFindings(context.Background(), run.ID, []models.GapFinding{
		{ClauseID: "C1", Severity: models.SeverityCritical},
		{ClauseID: "C2", Severity: models.SeverityMajor},
		{ClauseID: "C3", Severity: models.SeverityMajor},
	})

	rec := env.do(t, "GET", "/api/v1/analyses/"+run.ID.String()+"/gaps?severity=major", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp GapsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Gaps) != 2 {
		t.Errorf("expected 2 MAJOR gaps, got %d", len(resp.Gaps))
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if resp.Counts["CRITICAL"] != 1 || resp.Counts["MAJOR"] != 2 {
		t.Errorf("unexpected counts %v", resp.Counts)
	}
}
