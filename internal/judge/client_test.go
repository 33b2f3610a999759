package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// geminiStub returns a generateContent response whose candidate text is
// the given payload.
func geminiStub(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("expected api key header")
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("expected JSON response mime type, got %q", req.GenerationConfig.ResponseMIMEType)
		}

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": payload}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func batchItem(id string) BatchItem {
	return BatchItem{
		RequirementID:   id,
		RequirementText: "the organization shall document its procedures",
		Candidates: []CandidateParagraph{
			{ParagraphID: 1, Text: "procedures are documented in chapter 2", SimilarityScore: 0.55},
		},
	}
}

func judgementJSON(id, status string) string {
	return fmt.Sprintf(`{"requirement_id":%q,"compliance_status":%q,"justification":"ok","evidence":[{"moe_paragraph_id":1,"relevant_excerpt":"chapter 2","similarity_score":0.55}]}`, id, status)
}

func TestJudgeBatch_ParsesValidResponse(t *testing.T) {
	payload := "[" + judgementJSON("C1", "full") + "," + judgementJSON("C2", "partial") + "]"
	server := geminiStub(t, payload)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	out, err := client.JudgeBatch(context.Background(), []BatchItem{batchItem("C1"), batchItem("C2")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 judgements, got %d", len(out))
	}
	if out["C1"].ComplianceStatus != "full" {
		t.Errorf("expected full for C1, got %q", out["C1"].ComplianceStatus)
	}
	if out["C2"].Score() != 0.5 {
		t.Errorf("expected partial score 0.5, got %f", out["C2"].Score())
	}
}

func TestJudgeBatch_DropsHallucinatedIDs(t *testing.T) {
	payload := "[" + judgementJSON("C1", "full") + "," + judgementJSON("INVENTED", "full") + "]"
	server := geminiStub(t, payload)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	out, err := client.JudgeBatch(context.Background(), []BatchItem{batchItem("C1")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 judgement, got %d", len(out))
	}
	if _, ok := out["INVENTED"]; ok {
		t.Error("hallucinated requirement id must be dropped")
	}
}

func TestJudgeBatch_DropsInvalidStatus(t *testing.T) {
	payload := "[" + judgementJSON("C1", "maybe") + "]"
	server := geminiStub(t, payload)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	out, err := client.JudgeBatch(context.Background(), []BatchItem{batchItem("C1")})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out) != 0 {
		t.Errorf("invalid compliance status must be dropped, got %d judgements", len(out))
	}
}

func TestJudgeBatch_MalformedResponse(t *testing.T) {
	server := geminiStub(t, `{"items": "echoed input"}`)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.JudgeBatch(context.Background(), []BatchItem{batchItem("C1")})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestJudgeBatch_StripsCodeFences(t *testing.T) {
	payload := "```json\n[" + judgementJSON("C1", "full") + "]\n```"
	server := geminiStub(t, payload)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	out, err := client.JudgeBatch(context.Background(), []BatchItem{batchItem("C1")})
	if err != nil {
		t.Fatalf("expected fenced payload to parse, got %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 judgement, got %d", len(out))
	}
}

func TestJudgeBatch_TooLarge(t *testing.T) {
	client := NewClient("test-key")

	items := make([]BatchItem, MaxBatchItems+1)
	for i := range items {
		items[i] = batchItem(fmt.Sprintf("C%d", i))
	}

	_, err := client.JudgeBatch(context.Background(), items)
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("expected ErrBatchTooLarge, got %v", err)
	}
}

func TestJudgeBatch_EmptyInput(t *testing.T) {
	client := NewClient("test-key")

	out, err := client.JudgeBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty map, got %d entries", len(out))
	}
}

func TestJudgeBatch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	_, err := client.JudgeBatch(context.Background(), []BatchItem{batchItem("C1")})
	if err == nil {
		t.Error("expected error on HTTP 503")
	}
}

func TestJudgeSingle_PinsRequirementID(t *testing.T) {
	// The model echoes a wrong id; the client must pin the requested one.
	server := geminiStub(t, judgementJSON("WRONG", "partial"))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	j, err := client.JudgeSingle(context.Background(), batchItem("C7"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if j.RequirementID != "C7" {
		t.Errorf("expected pinned id C7, got %q", j.RequirementID)
	}
	if j.Score() != 0.5 {
		t.Errorf("expected score 0.5, got %f", j.Score())
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"surrounded", "The result is [{\"a\":1}] as requested", `[{"a":1}]`},
		{"object", `{"a":1}`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
