package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var groqFieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	// BaseURL overrides https://<project>.api.sanity.io.
	BaseURL string
}

// SanityStore talks to the Sanity HTTP API. Transactions map one-to-one onto
// a single mutate request, which the API applies atomically.
type SanityStore struct {
	baseURL    string
	dataset    string
	token      string
	httpClient *http.Client
}

func NewSanityStore(cfg SanityConfig) (*SanityStore, error) {
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("sanity dataset is required")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("sanity project id is required")
		}
		base = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	version := strings.TrimPrefix(cfg.APIVersion, "v")
	if version == "" {
		version = "2023-10-01"
	}

	return &SanityStore{
		baseURL: fmt.Sprintf("%s/v%s", base, version),
		dataset: cfg.Dataset,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (s *SanityStore) Get(ctx context.Context, id string) (Document, error) {
	endpoint := fmt.Sprintf("%s/data/doc/%s/%s", s.baseURL, s.dataset, url.PathEscape(id))

	var resp struct {
		Documents []json.RawMessage `json:"documents"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Documents) == 0 {
		return nil, ErrNotFound
	}
	return decodeDocument(resp.Documents[0])
}

func (s *SanityStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SanityStore) ListByType(ctx context.Context, docType string) ([]Document, error) {
	var raw []json.RawMessage
	if err := s.query(ctx, `*[_type == $type] | order(_id asc)`, map[string]interface{}{"type": docType}, &raw); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(raw))
	for _, r := range raw {
		doc, err := decodeDocument(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", docType, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *SanityStore) ListIDs(ctx context.Context, docType, field string, value interface{}) ([]string, error) {
	if !groqFieldPattern.MatchString(field) {
		return nil, fmt.Errorf("invalid field name %q", field)
	}
	groq := fmt.Sprintf(`*[_type == $type && %s == $value] | order(_id asc)._id`, field)

	var ids []string
	if err := s.query(ctx, groq, map[string]interface{}{"type": docType, "value": value}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SanityStore) Commit(ctx context.Context, tx *Transaction) error {
	for _, m := range tx.Mutations {
		if err := m.validate(); err != nil {
			return &StoreError{StatusCode: http.StatusBadRequest, Message: err.Error()}
		}
	}

	payload := struct {
		Mutations     []Mutation `json:"mutations"`
		TransactionID string     `json:"transactionId,omitempty"`
	}{
		Mutations:     tx.Mutations,
		TransactionID: tx.ID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &StoreError{StatusCode: http.StatusBadRequest, Message: "failed to marshal mutations", Err: err}
	}

	endpoint := fmt.Sprintf("%s/data/mutate/%s?returnIds=true&visibility=sync", s.baseURL, s.dataset)
	return s.do(ctx, http.MethodPost, endpoint, body, nil)
}

func (s *SanityStore) Close(ctx context.Context) error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *SanityStore) query(ctx context.Context, groq string, params map[string]interface{}, out interface{}) error {
	q := url.Values{}
	q.Set("query", groq)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode query param %s: %w", name, err)
		}
		q.Set("$"+name, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/data/query/%s?%s", s.baseURL, s.dataset, q.Encode())

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

func (s *SanityStore) do(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &StoreError{StatusCode: http.StatusBadGateway, Message: "sanity request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &StoreError{StatusCode: http.StatusBadGateway, Message: "failed to read sanity response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StoreError{StatusCode: resp.StatusCode, Message: sanityErrorMessage(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode sanity response: %w", err)
	}
	return nil
}

func sanityErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Description string `json:"description"`
			Type        string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Description != "" {
			return parsed.Error.Description
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return msg
}
