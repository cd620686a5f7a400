package notion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

func newTestClient(t *testing.T, url string, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{BaseURL: url, APIKey: "secret", DatabaseID: "db-1"}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchPaginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/databases/db-1/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != DefaultVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["filter"]; !ok {
			t.Errorf("filter not forwarded: %v", body)
		}

		switch calls.Add(1) {
		case 1:
			if _, ok := body["start_cursor"]; ok {
				t.Errorf("first page sent a cursor: %v", body)
			}
			_, _ = w.Write([]byte(`{"results":[{"id":"p1","properties":{}},{"id":"p2","properties":{}}],"has_more":true,"next_cursor":"c2"}`))
		default:
			if body["start_cursor"] != "c2" {
				t.Errorf("start_cursor = %v, want c2", body["start_cursor"])
			}
			_, _ = w.Write([]byte(`{"results":[{"id":"p3","properties":{}}],"has_more":false,"next_cursor":null}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.Filter = json.RawMessage(`{"property":"Status","status":{"equals":"Submitted"}}`)
	})
	recs, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) != 3 || recs[0].ID != "p1" || recs[2].ID != "p3" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchMaxPages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"id":"p"}],"has_more":true,"next_cursor":"more"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) { cfg.MaxPages = 2 })
	recs, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) != 2 || calls.Load() != 2 {
		t.Fatalf("records = %d calls = %d, want 2/2", len(recs), calls.Load())
	}
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.Fetch(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != "unauthorized" || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("errors.Is(err, ErrUnauthorized) = false")
	}
}

func TestFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{DatabaseID: "db"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := New(Config{APIKey: "k"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing database id")
	}
	c, err := New(Config{APIKey: "k", DatabaseID: "db", PageSize: 500}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if c.cfg.PageSize != maxPageSize || c.cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("defaults not applied: %+v", c.cfg)
	}
}
