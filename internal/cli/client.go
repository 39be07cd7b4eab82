package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperjump/gatherings/internal/importer"
	"github.com/hyperjump/gatherings/internal/models"
	"github.com/hyperjump/gatherings/internal/query"
)

// Client calls a running gatherings server. Commands use it so they do not open the database
// while the server holds it.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Ping reports whether the server answers its health check.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Search runs a search on the server.
func (c *Client) Search(ctx context.Context, kind query.EntityKind, r *models.SearchRequest) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search/"+url.PathEscape(string(kind)), r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Explain fetches the SQL a search compiles to.
func (c *Client) Explain(ctx context.Context, kind query.EntityKind, r *models.SearchRequest) (*models.ExplainResponse, error) {
	v := url.Values{}
	v.Set("q", r.Query)
	if r.Order != "" {
		v.Set("order", r.Order)
	}
	if r.Limit != nil {
		v.Set("limit", fmt.Sprint(*r.Limit))
	}
	if r.Wifi {
		v.Set("wifi", "true")
	}
	if r.IncludeClosed {
		v.Set("include_closed", "true")
	}
	if r.SkipOld {
		v.Set("skip_old", "true")
	}
	var out models.ExplainResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/explain/"+url.PathEscape(string(kind))+"?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches record counts and configuration.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportFile asks the server to import the seed file at path. The path is read by the server.
func (c *Client) ImportFile(ctx context.Context, path string) (*importer.Result, error) {
	var out importer.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/sources", map[string]string{"path": path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
