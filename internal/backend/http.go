package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/models"
)

// ActionMergeOrUpload inserts a document or merges it into an existing one.
const ActionMergeOrUpload = "mergeOrUpload"

// HTTPOptions configures an HTTPBackend.
type HTTPOptions struct {
	Endpoint   string
	Index      string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
	Client     *http.Client
	Logger     *zap.Logger
}

// HTTPBackend posts batches to the docs/index endpoint of an Azure AI Search
// compatible service.
type HTTPBackend struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPBackend validates opts and returns a backend for opts.Index.
func NewHTTPBackend(opts HTTPOptions) (*HTTPBackend, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("search endpoint is required")
	}
	if opts.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "2023-11-01"
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	u := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s",
		strings.TrimRight(opts.Endpoint, "/"), url.PathEscape(opts.Index), url.QueryEscape(opts.APIVersion))
	return &HTTPBackend{url: u, apiKey: opts.APIKey, client: client, logger: logger}, nil
}

type indexResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
		StatusCode   int    `json:"statusCode"`
	} `json:"value"`
}

// UploadBatch sends every record with the mergeOrUpload action. 200 and 207
// responses carry per-document results; any other status fails the batch.
func (h *HTTPBackend) UploadBatch(ctx context.Context, records []models.Record) ([]models.UploadResult, error) {
	body, err := encodeBatch(records)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload batch: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("search service returned status %d: %s", resp.StatusCode, snippet(data))
	}

	var parsed indexResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	results := make([]models.UploadResult, 0, len(parsed.Value))
	for _, v := range parsed.Value {
		r := models.UploadResult{Key: v.Key, Succeeded: v.Status}
		if !v.Status {
			r.Error = v.ErrorMessage
			if r.Error == "" {
				r.Error = fmt.Sprintf("rejected with status %d", v.StatusCode)
			}
			h.logger.Debug("document rejected", zap.String("key", v.Key), zap.Int("status", v.StatusCode), zap.String("error", v.ErrorMessage))
		}
		results = append(results, r)
	}
	return results, nil
}

// encodeBatch marshals each record and adds the @search.action field.
func encodeBatch(records []models.Record) ([]byte, error) {
	docs := make([]map[string]json.RawMessage, len(records))
	action, _ := json.Marshal(ActionMergeOrUpload)
	for i, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.Key(), err)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.Key(), err)
		}
		doc["@search.action"] = action
		docs[i] = doc
	}
	body, err := json.Marshal(map[string]any{"value": docs})
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return body, nil
}

func snippet(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Close releases idle connections.
func (h *HTTPBackend) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
