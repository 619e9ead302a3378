package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/utils"
)

// The workflow engine lives outside this codebase; these are the literal
// fallback endpoints it is reachable at during local development.
const (
	defaultSimilarityURL = "http://localhost:5678/webhook/c8d7e45a-188b-4aa8-8b20-3ed1ec4bad4f"
	defaultMergeURL      = "http://localhost:5678/webhook/4d26e1c1-e04e-4929-8806-77eb25fef8c0"
	defaultSaveURL       = "http://localhost:5678/webhook/3148e0b0-2a54-480e-8bfd-451a4143b334"
)

// Document is an optional file attached to a similarity request. Content is
// streamed through to the workflow untouched.
type Document struct {
	Name    string
	Content io.Reader
}

type SimilarityRequest struct {
	FullText           string
	SelectedCategories []string
	Document           *Document
}

type MergeRequest struct {
	Candidate Candidate
	InputText string
}

type SaveRequest struct {
	FullText   string
	Categories []string
}

// Client talks to the three workflow webhooks. Similarity responses are
// normalized here so callers only ever see candidates or a typed error.
type Client interface {
	FindSimilar(ctx context.Context, req SimilarityRequest) ([]Candidate, error)
	Merge(ctx context.Context, req MergeRequest) error
	Save(ctx context.Context, req SaveRequest) error
}

type client struct {
	log           *logger.Logger
	similarityURL string
	mergeURL      string
	saveURL       string
	httpClient    *http.Client
}

func NewClient(log *logger.Logger) Client {
	timeoutSec := utils.GetEnvAsInt("VOC_WORKFLOW_TIMEOUT_SECONDS", 60, log)
	return &client{
		log:           log.With("service", "WorkflowClient"),
		similarityURL: utils.GetEnv("VOC_WORKFLOW_URL", defaultSimilarityURL, log),
		mergeURL:      utils.GetEnv("VOC_MERGE_WEBHOOK_URL", defaultMergeURL, log),
		saveURL:       utils.GetEnv("VOC_SAVE_WEBHOOK_URL", defaultSaveURL, log),
		httpClient:    &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type webhookHTTPError struct {
	StatusCode int
	Body       string
}

func (e *webhookHTTPError) Error() string {
	return fmt.Sprintf("webhook http %d: %s", e.StatusCode, e.Body)
}

func (c *client) FindSimilar(ctx context.Context, req SimilarityRequest) ([]Candidate, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("full_text", req.FullText); err != nil {
		return nil, fmt.Errorf("write full_text field: %w", err)
	}
	if len(req.SelectedCategories) > 0 {
		encoded, err := json.Marshal(req.SelectedCategories)
		if err != nil {
			return nil, fmt.Errorf("encode selected_categories: %w", err)
		}
		if err := form.WriteField("selected_categories", string(encoded)); err != nil {
			return nil, fmt.Errorf("write selected_categories field: %w", err)
		}
	}
	if req.Document != nil {
		part, err := form.CreateFormFile("full_document", req.Document.Name)
		if err != nil {
			return nil, fmt.Errorf("create full_document part: %w", err)
		}
		if _, err := io.Copy(part, req.Document.Content); err != nil {
			return nil, fmt.Errorf("copy full_document: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.similarityURL, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The workflow reports its own failures inside the body (message
	// field), so the body is normalized regardless of status code.
	cands, err := Normalize(body)
	if err != nil {
		c.log.Warn("Similarity response not usable", "status", resp.StatusCode, "error", err)
		return nil, err
	}
	c.log.Debug("Similarity candidates received", "count", len(cands))
	return cands, nil
}

type mergePayload struct {
	PageContent string   `json:"pageContent"`
	Categories  string   `json:"categories"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	VectorUUID  string   `json:"vector_uuid,omitempty"`
	HasParent   *int64   `json:"has_parent"`
	TextUUID    string   `json:"text_uuid,omitempty"`
	InputText   string   `json:"input_text"`
}

func (c *client) Merge(ctx context.Context, req MergeRequest) error {
	payload := mergePayload{
		PageContent: req.Candidate.PageContent,
		Categories:  req.Candidate.Categories,
		CreatedAt:   req.Candidate.CreatedAt,
		Score:       req.Candidate.Score,
		VectorUUID:  req.Candidate.VectorUUID,
		HasParent:   req.Candidate.HasParent,
		TextUUID:    req.Candidate.TextUUID,
		InputText:   req.InputText,
	}
	if err := c.postJSON(ctx, c.mergeURL, payload); err != nil {
		return err
	}
	c.log.Info("Merge accepted by workflow", "vector_uuid", req.Candidate.VectorUUID)
	return nil
}

type savePayload struct {
	FullText   string  `json:"full_text"`
	Categories *string `json:"categories"`
}

func (c *client) Save(ctx context.Context, req SaveRequest) error {
	payload := savePayload{FullText: req.FullText}
	if len(req.Categories) > 0 {
		joined := strings.Join(req.Categories, ", ")
		payload.Categories = &joined
	}
	if err := c.postJSON(ctx, c.saveURL, payload); err != nil {
		return err
	}
	c.log.Info("Save accepted by workflow")
	return nil
}

func (c *client) postJSON(ctx context.Context, url string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &webhookHTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var ack interface{}
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("decode webhook acknowledgement: %w", err)
	}
	return nil
}
