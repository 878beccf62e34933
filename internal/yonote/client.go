// Package yonote fetches deadline records from the Yonote CSV export
// API. The export is the reliable way to read "people" columns, which
// the JSON document API mangles.
package yonote

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultBaseURL = "https://app.yonote.ru"

var ErrMissingCredentials = errors.New("yonote: api key and database id are required")

// Record is a deadline row as exported from Yonote. The export carries
// no stable row identifier, so the title is the sync identity.
type Record struct {
	Title       string
	Description string
	DueAt       *time.Time
	Assignees   []string
}

// AssigneeResolver extracts assignee identifiers from a CSV row. The
// export has no fixed schema for people columns, so the guessing lives
// behind this interface and nothing downstream depends on how it
// guesses. A nil result means "no assignee information".
type AssigneeResolver interface {
	Assignees(headers, record []string) []string
}

// Client talks to the Yonote CSV export endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	databaseID string
	httpClient *http.Client
	resolver   AssigneeResolver
}

// New creates a Client. baseURL may be empty to use the public API.
func New(baseURL, apiKey, databaseID string) (*Client, error) {
	if apiKey == "" || databaseID == "" {
		return nil, ErrMissingCredentials
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		databaseID: databaseID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		resolver:   HeuristicResolver{},
	}, nil
}

// FetchRecords downloads and parses the full deadline database.
// Transient HTTP failures are retried with exponential backoff.
func (c *Client) FetchRecords(ctx context.Context) ([]Record, error) {
	var raw string
	op := func() error {
		var err error
		raw, err = c.fetchCSV(ctx)
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return c.parseCSV(raw)
}

func (c *Client) fetchCSV(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("databaseId", c.databaseID)
	q.Set("token", c.apiKey)
	exportURL := c.baseURL + "/api/database.export_csv?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("yonote: export failed: %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	return string(body), nil
}

// Column header keywords. The export is localized, so both Russian and
// English variants are matched.
var (
	titleKeywords = []string{"название", "задача", "title", "name", "task"}
	dateKeywords  = []string{"дата", "срок", "дедлайн", "date", "due", "deadline"}
	descrKeywords = []string{"опис", "коммент", "description", "notes"}
)

func (c *Client) parseCSV(content string) ([]Record, error) {
	// The export starts with a UTF-8 BOM.
	content = strings.TrimPrefix(content, "\uFEFF")
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(content))
	r.Comma = ';'
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("yonote: read headers: %w", err)
	}

	titleIdx := findColumn(headers, titleKeywords)
	dateIdx := findColumn(headers, dateKeywords)
	descrIdx := findColumn(headers, descrKeywords)
	if titleIdx < 0 {
		// No recognizable title column means the export is not a
		// deadline database; first column is the best guess.
		titleIdx = 0
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("yonote: line %d: %w", line, err)
		}

		title := strings.TrimSpace(field(row, titleIdx))
		if title == "" {
			continue
		}

		rec := Record{
			Title:       title,
			Description: strings.TrimSpace(field(row, descrIdx)),
			Assignees:   c.resolver.Assignees(headers, row),
		}
		if due := parseDate(field(row, dateIdx)); due != nil {
			rec.DueAt = due
		}
		records = append(records, rec)
	}
	return records, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func findColumn(headers, keywords []string) int {
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return -1
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// HeuristicResolver guesses assignee columns by header keywords and
// splits their values on commas.
type HeuristicResolver struct{}

var peopleKeywords = []string{
	"исполнител", "ответствен", "студент", "участник",
	"assignee", "people", "person", "owner", "member", "user",
}

func (HeuristicResolver) Assignees(headers, record []string) []string {
	var out []string
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		matched := false
		for _, kw := range peopleKeywords {
			if strings.Contains(h, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, part := range strings.Split(field(record, i), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
