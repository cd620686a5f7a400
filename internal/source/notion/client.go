// Package notion queries a Notion database and decodes its pages into records.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dudenheryana1994/deliverable-approval-submitted/internal/record"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"
	maxPageSize    = 100
)

var ErrUnauthorized = errors.New("notion: unauthorized")

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("notion: http %d", e.Status)
	}
	return fmt.Sprintf("notion: http %d: %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Config struct {
	BaseURL    string
	Version    string
	APIKey     string
	DatabaseID string

	PageSize int
	// MaxPages caps pagination; 0 means unlimited.
	MaxPages int
	// Filter and Sorts are forwarded verbatim in the query body when set.
	Filter json.RawMessage
	Sorts  json.RawMessage

	Timeout time.Duration
}

type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("notion api key is empty")
	}
	if strings.TrimSpace(cfg.DatabaseID) == "" {
		return nil, errors.New("notion database id is empty")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

type queryRequest struct {
	PageSize    int             `json:"page_size,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
}

type queryResponse struct {
	Results    []record.Record `json:"results"`
	HasMore    bool            `json:"has_more"`
	NextCursor *string         `json:"next_cursor"`
}

// Fetch returns every record of the database in the order Notion returns them.
func (c *Client) Fetch(ctx context.Context) ([]record.Record, error) {
	var (
		out    []record.Record
		cursor string
	)
	for page := 1; ; page++ {
		resp, err := c.query(ctx, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)
		c.log.Debug("notion page fetched",
			logx.Int("page", page),
			logx.Int("results", len(resp.Results)),
			logx.Bool("has_more", resp.HasMore),
		)

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		if c.cfg.MaxPages > 0 && page >= c.cfg.MaxPages {
			c.log.Warn("notion pagination capped", logx.Int("max_pages", c.cfg.MaxPages))
			break
		}
		cursor = *resp.NextCursor
	}
	return out, nil
}

func (c *Client) query(ctx context.Context, cursor string) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{
		PageSize:    c.cfg.PageSize,
		StartCursor: cursor,
		Filter:      c.cfg.Filter,
		Sorts:       c.cfg.Sorts,
	})
	if err != nil {
		return nil, err
	}

	url := c.cfg.BaseURL + "/v1/databases/" + strings.TrimSpace(c.cfg.DatabaseID) + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.cfg.Version)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(b, &apiErr)
		return nil, &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("notion: decode query response: %w", err)
	}
	return &out, nil
}
