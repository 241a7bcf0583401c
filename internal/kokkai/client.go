// Package kokkai fetches speech records from the National Diet Library's
// minutes search API.
package kokkai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

// DefaultBaseURL is the speech search endpoint.
const DefaultBaseURL = "https://kokkai.ndl.go.jp/api/speech"

// MaxPageSize is the largest maximumRecords the API accepts with speech text.
const MaxPageSize = 100

// Window is an inclusive date range, YYYY-MM-DD on both ends.
type Window struct {
	From  string
	Until string
}

// Page is one page of search results.
type Page struct {
	Records            []normalize.SourceRecord
	Total              int
	NextRecordPosition int
}

// Client queries the speech API.
type Client struct {
	baseURL   string
	pageSize  int
	userAgent string
	client    *http.Client
}

// NewClient creates a client. A zero page size or timeout uses the defaults.
func NewClient(baseURL string, pageSize int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		pageSize:  pageSize,
		userAgent: "kokkaisync/1.0 (+https://github.com/TobiSchelling/kokkaisync)",
		client:    &http.Client{Timeout: timeout},
	}
}

// FetchPage requests one page starting at the 1-based record position.
func (c *Client) FetchPage(ctx context.Context, w Window, start int) (*Page, error) {
	params := url.Values{
		"from":           {w.From},
		"until":          {w.Until},
		"maximumRecords": {strconv.Itoa(c.pageSize)},
		"startRecord":    {strconv.Itoa(start)},
		"recordPacking":  {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building speech request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading speech API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech API HTTP %d: %s", resp.StatusCode, apiMessage(body))
	}

	return decodePage(body, start)
}

type apiResponse struct {
	NumberOfRecords    json.Number     `json:"numberOfRecords"`
	NumberOfReturn     json.Number     `json:"numberOfReturn"`
	NextRecordPosition json.Number     `json:"nextRecordPosition"`
	SpeechRecord       json.RawMessage `json:"speechRecord"`
	Message            string          `json:"message"`
	Details            []string        `json:"details"`
}

func decodePage(body []byte, start int) (*Page, error) {
	var result apiResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding speech API response: %w", err)
	}
	if result.Message != "" {
		return nil, fmt.Errorf("speech API error: %s %v", result.Message, result.Details)
	}

	records, err := decodeRecords(result.SpeechRecord)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	if n, err := result.NumberOfRecords.Int64(); err == nil {
		page.Total = int(n)
	}
	if n, err := result.NextRecordPosition.Int64(); err == nil {
		page.NextRecordPosition = int(n)
	}
	for i, fields := range records {
		page.Records = append(page.Records, normalize.SourceRecord{Fields: fields, Line: start + i})
	}
	return page, nil
}

// decodeRecords accepts speechRecord as a list or, for single hits, as a
// bare object.
func decodeRecords(raw json.RawMessage) ([]map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if raw[0] == '{' {
		var one map[string]any
		if err := dec.Decode(&one); err != nil {
			return nil, fmt.Errorf("decoding speech record: %w", err)
		}
		return []map[string]any{one}, nil
	}

	var many []map[string]any
	if err := dec.Decode(&many); err != nil {
		return nil, fmt.Errorf("decoding speech records: %w", err)
	}
	return many, nil
}

func apiMessage(body []byte) string {
	var result apiResponse
	if err := json.Unmarshal(body, &result); err == nil && result.Message != "" {
		return result.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
