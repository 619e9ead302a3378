package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Candidate is a similarity match in the common shape every workflow
// response variant is normalized into.
type Candidate struct {
	PageContent string   `json:"pageContent"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	VectorUUID  string   `json:"vector_uuid,omitempty"`
	TextUUID    string   `json:"text_uuid,omitempty"`
	Categories  string   `json:"categories,omitempty"`
	HasParent   *int64   `json:"has_parent,omitempty"`
}

// UpstreamError is the workflow rejecting a request, detected by the shape
// of the response (a string message field). Callers surface a generic
// user-facing text instead of Message.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("workflow rejected request: %s", e.Message)
}

// RawResponseError carries a response body that matched no known shape.
type RawResponseError struct {
	Body string
}

func (e *RawResponseError) Error() string {
	return fmt.Sprintf("unrecognized workflow response: %s", e.Body)
}

// Normalize turns a workflow response body into candidates. Accepted shapes,
// in dispatch order: a JSON string wrapping any of the others, an object with
// a string message field (upstream failure), a bare array, an object with an
// array-valued property, and a single match object.
func Normalize(body []byte) ([]Candidate, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &RawResponseError{Body: string(body)}
	}

	// A stringified JSON payload gets one more parse attempt.
	if s, ok := data.(string); ok {
		var inner interface{}
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return nil, &RawResponseError{Body: s}
		}
		data = inner
	}

	if obj, ok := data.(map[string]interface{}); ok {
		if msg, ok := obj["message"].(string); ok {
			return nil, &UpstreamError{Message: msg}
		}
	}

	if arr, ok := data.([]interface{}); ok {
		return normalizeAll(arr), nil
	}

	if obj, ok := data.(map[string]interface{}); ok {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := obj[k].([]interface{}); ok {
				return normalizeAll(arr), nil
			}
		}

		if looksLikeMatch(obj) {
			return []Candidate{normalizeRecord(obj)}, nil
		}
	}

	raw, _ := json.Marshal(data)
	return nil, &RawResponseError{Body: string(raw)}
}

func looksLikeMatch(obj map[string]interface{}) bool {
	for _, key := range []string{"document", "pageContent", "metadata", "score"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func normalizeAll(items []interface{}) []Candidate {
	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]interface{})
		out = append(out, normalizeRecord(obj))
	}
	return out
}

func normalizeRecord(r map[string]interface{}) Candidate {
	c := Candidate{}
	if r == nil {
		return c
	}
	c.PageContent, _ = r["full_text"].(string)
	c.Categories, _ = r["categories"].(string)
	c.CreatedAt, _ = r["created_at"].(string)
	c.VectorUUID, _ = r["uuid"].(string)
	if pct, ok := r["percentage"].(float64); ok {
		c.Score = &pct
	}
	if hp, ok := r["has_parent"].(float64); ok {
		v := int64(hp)
		c.HasParent = &v
	}
	return c
}

// DedupeByGroup keeps only the newest candidate per group key, preserving
// the order groups first appeared in. Candidates without a group key share
// one "no parent" bucket, matching the store-side reduction.
func DedupeByGroup(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	index := make(map[string]int, len(cands))

	for _, c := range cands {
		key := "no-parent"
		if c.HasParent != nil {
			key = strconv.FormatInt(*c.HasParent, 10)
		}
		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, c)
			continue
		}
		if candidateTime(c).After(candidateTime(out[at])) {
			out[at] = c
		}
	}
	return out
}

var candidateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func candidateTime(c Candidate) time.Time {
	for _, layout := range candidateTimeLayouts {
		if t, err := time.Parse(layout, c.CreatedAt); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}
