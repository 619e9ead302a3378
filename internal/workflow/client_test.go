package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func TestFindSimilarSendsMultipartFields(t *testing.T) {
	var gotFullText, gotCategories, gotFileName, gotFileBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotFullText = r.FormValue("full_text")
		gotCategories = r.FormValue("selected_categories")
		if file, header, err := r.FormFile("full_document"); err == nil {
			gotFileName = header.Filename
			raw, _ := io.ReadAll(file)
			gotFileBody = string(raw)
			file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"full_text":"match","uuid":"v-1"}]`)
	}))
	defer srv.Close()

	t.Setenv("VOC_WORKFLOW_URL", srv.URL)
	c := NewClient(testLogger(t))

	cands, err := c.FindSimilar(context.Background(), SimilarityRequest{
		FullText:           "new idea text",
		SelectedCategories: []string{"XR2", "Analytics"},
		Document:           &Document{Name: "notes.txt", Content: strings.NewReader("attachment body")},
	})
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(cands) != 1 || cands[0].PageContent != "match" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}

	if gotFullText != "new idea text" {
		t.Fatalf("full_text field: %q", gotFullText)
	}
	var cats []string
	if err := json.Unmarshal([]byte(gotCategories), &cats); err != nil || len(cats) != 2 {
		t.Fatalf("selected_categories should be a JSON array: %q (%v)", gotCategories, err)
	}
	if gotFileName != "notes.txt" || gotFileBody != "attachment body" {
		t.Fatalf("full_document not forwarded: name=%q body=%q", gotFileName, gotFileBody)
	}
}

func TestFindSimilarOmitsOptionalParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, ok := r.MultipartForm.Value["selected_categories"]; ok {
			t.Errorf("selected_categories must be omitted when no categories chosen")
		}
		if _, _, err := r.FormFile("full_document"); err == nil {
			t.Errorf("full_document must be omitted when no file attached")
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	t.Setenv("VOC_WORKFLOW_URL", srv.URL)
	c := NewClient(testLogger(t))

	cands, err := c.FindSimilar(context.Background(), SimilarityRequest{FullText: "bare"})
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
}

func TestFindSimilarSurfacesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// n8n reports failures in-band with a 200.
		io.WriteString(w, `{"message":"Workflow could not be started"}`)
	}))
	defer srv.Close()

	t.Setenv("VOC_WORKFLOW_URL", srv.URL)
	c := NewClient(testLogger(t))

	_, err := c.FindSimilar(context.Background(), SimilarityRequest{FullText: "x"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestMergeSendsCandidateAndInput(t *testing.T) {
	var got map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode merge payload: %v", err)
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	t.Setenv("VOC_MERGE_WEBHOOK_URL", srv.URL)
	c := NewClient(testLogger(t))

	score := 87.0
	err := c.Merge(context.Background(), MergeRequest{
		Candidate: Candidate{
			PageContent: "existing idea",
			Categories:  "XR2",
			CreatedAt:   "2024-04-01T00:00:00Z",
			Score:       &score,
			VectorUUID:  "v-7",
			HasParent:   i64(7),
		},
		InputText: "the new submission",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if got["pageContent"] != "existing idea" || got["input_text"] != "the new submission" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got["has_parent"] != float64(7) {
		t.Fatalf("has_parent: %v", got["has_parent"])
	}
	if got["vector_uuid"] != "v-7" || got["score"] != 87.0 {
		t.Fatalf("candidate identity missing: %+v", got)
	}
}

func TestMergeWithoutGroupSendsNull(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	t.Setenv("VOC_MERGE_WEBHOOK_URL", srv.URL)
	c := NewClient(testLogger(t))

	if err := c.Merge(context.Background(), MergeRequest{Candidate: Candidate{PageContent: "p"}}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	v, present := got["has_parent"]
	if !present || v != nil {
		t.Fatalf("has_parent should be an explicit null, got %v (present=%v)", v, present)
	}
}

func TestSaveJoinsCategories(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	t.Setenv("VOC_SAVE_WEBHOOK_URL", srv.URL)
	c := NewClient(testLogger(t))

	if err := c.Save(context.Background(), SaveRequest{
		FullText:   "brand new idea",
		Categories: []string{"Analytics", "Data"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got["full_text"] != "brand new idea" {
		t.Fatalf("full_text: %v", got["full_text"])
	}
	if got["categories"] != "Analytics, Data" {
		t.Fatalf("categories should be comma-joined: %v", got["categories"])
	}
}

func TestSaveWithoutCategoriesSendsNull(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	t.Setenv("VOC_SAVE_WEBHOOK_URL", srv.URL)
	c := NewClient(testLogger(t))

	if err := c.Save(context.Background(), SaveRequest{FullText: "plain"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, present := got["categories"]
	if !present || v != nil {
		t.Fatalf("categories should be an explicit null, got %v (present=%v)", v, present)
	}
}

func TestWebhookFailureStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Setenv("VOC_MERGE_WEBHOOK_URL", srv.URL)
	t.Setenv("VOC_SAVE_WEBHOOK_URL", srv.URL)
	c := NewClient(testLogger(t))

	if err := c.Merge(context.Background(), MergeRequest{Candidate: Candidate{PageContent: "p"}}); err == nil {
		t.Fatal("Merge should fail on a non-2xx status")
	}
	if err := c.Save(context.Background(), SaveRequest{FullText: "p"}); err == nil {
		t.Fatal("Save should fail on a non-2xx status")
	}
}
