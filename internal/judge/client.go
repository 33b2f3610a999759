package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/complyaudit/compliance-analyzer/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"

	// MaxBatchItems is the contract limit for one batch call.
	MaxBatchItems = 5

	defaultSingleTimeout = 30 * time.Second
	defaultBatchTimeout  = 60 * time.Second

	// maxTextLength caps requirement and paragraph text in the prompt
	// payload to keep token usage bounded.
	maxTextLength = 400
)

// Client calls the Gemini generateContent API with a JSON response schema
// and validates the returned judgements structurally before use.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	model         string
	singleTimeout time.Duration
	batchTimeout  time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithModel sets the generation model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeouts sets the single-call and batch-call timeouts.
func WithTimeouts(single, batch time.Duration) ClientOption {
	return func(c *Client) {
		c.singleTimeout = single
		c.batchTimeout = batch
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new judge client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{},
		baseURL:       defaultBaseURL,
		apiKey:        apiKey,
		model:         defaultModel,
		singleTimeout: defaultSingleTimeout,
		batchTimeout:  defaultBatchTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// JudgeBatch submits a batch of requirements and returns validated
// judgements keyed by requirement id. On any failure the whole batch is
// reported failed; callers degrade the affected clauses to their
// similarity-only results.
func (c *Client) JudgeBatch(ctx context.Context, items []BatchItem) (map[string]models.Judgement, error) {
	if len(items) == 0 {
		return map[string]models.Judgement{}, nil
	}
	if len(items) > MaxBatchItems {
		return nil, ErrBatchTooLarge
	}

	ctx, cancel := context.WithTimeout(ctx, c.batchTimeout)
	defer cancel()

	prompt, err := buildBatchPrompt(items)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	start := time.Now()
	raw, err := c.generate(ctx, prompt, batchResponseSchema())
	if err != nil {
		return nil, err
	}
	log.Printf("judge: batch of %d adjudicated in %s", len(items), time.Since(start).Round(time.Millisecond))

	judgements, err := decodeJudgements(raw)
	if err != nil {
		return nil, err
	}

	validIDs := make(map[string]bool, len(items))
	for _, item := range items {
		validIDs[item.RequirementID] = true
	}

	out := make(map[string]models.Judgement, len(judgements))
	for _, j := range judgements {
		if err := validateJudgement(j); err != nil {
			log.Printf("judge: dropping invalid judgement for %q: %v", j.RequirementID, err)
			continue
		}
		// Ids the model invented are treated as hallucination.
		if !validIDs[j.RequirementID] {
			log.Printf("judge: dropping judgement for unknown requirement %q", j.RequirementID)
			continue
		}
		out[j.RequirementID] = j
	}

	return out, nil
}

// JudgeSingle adjudicates one requirement under the single-call timeout.
func (c *Client) JudgeSingle(ctx context.Context, item BatchItem) (*models.Judgement, error) {
	ctx, cancel := context.WithTimeout(ctx, c.singleTimeout)
	defer cancel()

	prompt, err := buildSinglePrompt(item)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	raw, err := c.generate(ctx, prompt, singleResponseSchema())
	if err != nil {
		return nil, err
	}

	var j models.Judgement
	if err := json.Unmarshal([]byte(extractJSON(raw)), &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// The model occasionally echoes a wrong id on single calls; pin it.
	j.RequirementID = item.RequirementID

	if err := validateJudgement(j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &j, nil
}

func buildBatchPrompt(items []BatchItem) (string, error) {
	type candidatePayload struct {
		ParagraphID int64   `json:"paragraph_id"`
		Text        string  `json:"text"`
		Score       float64 `json:"score"`
	}
	type itemPayload struct {
		ID         string             `json:"id"`
		Text       string             `json:"text"`
		Candidates []candidatePayload `json:"candidates"`
	}

	payload := struct {
		Items []itemPayload `json:"items"`
	}{}

	for _, item := range items {
		ip := itemPayload{
			ID:   item.RequirementID,
			Text: limitText(item.RequirementText),
		}
		for _, cand := range item.Candidates {
			ip.Candidates = append(ip.Candidates, candidatePayload{
				ParagraphID: cand.ParagraphID,
				Text:        limitText(cand.Text),
				Score:       cand.SimilarityScore,
			})
		}
		payload.Items = append(payload.Items, ip)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Regulatory compliance evaluation.

INPUT:
%s

For EACH item:
- Output ONE compliance result object.
- requirement_id MUST equal item.id

CRITICAL:
- Output MUST be a JSON ARRAY: [ {...}, ... ]
- evidence MUST be an array of objects
- DO NOT return {"items": ...}
- DO NOT echo input
`, string(body)), nil
}

func buildSinglePrompt(item BatchItem) (string, error) {
	type candidatePayload struct {
		ParagraphID     int64   `json:"paragraph_id"`
		Text            string  `json:"text"`
		SimilarityScore float64 `json:"similarity_score"`
	}

	payload := struct {
		Requirement struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"requirement"`
		Candidates []candidatePayload `json:"candidates"`
	}{}
	payload.Requirement.ID = item.RequirementID
	payload.Requirement.Text = limitText(item.RequirementText)
	for _, cand := range item.Candidates {
		payload.Candidates = append(payload.Candidates, candidatePayload{
			ParagraphID:     cand.ParagraphID,
			Text:            limitText(cand.Text),
			SimilarityScore: cand.SimilarityScore,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Regulatory compliance evaluation.

INPUT:
%s

RULE:
Output ONE compliance result object matching the schema.
requirement_id MUST equal requirement.id
`, string(body)), nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
	Temperature      float64        `json:"temperature"`
	CandidateCount   int            `json:"candidateCount"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// generate performs one generateContent call and returns the raw text of
// the first candidate.
func (c *Client) generate(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
			Temperature:      0.0,
			CandidateCount:   1,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if gr.Error.Message != "" {
		return "", fmt.Errorf("API error: %s", gr.Error.Message)
	}

	var sb strings.Builder
	for _, cand := range gr.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
	}

	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return sb.String(), nil
}

func limitText(t string) string {
	t = strings.TrimSpace(t)
	if len(t) > maxTextLength {
		return t[:maxTextLength] + "..."
	}
	return t
}
