// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notion queries the assistant backend's Notion workspace
// collaborator. Pagination is driven entirely by the backend through opaque
// cursors; this client only passes them back unmodified.
package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// =============================================================================
// TYPES
// =============================================================================

// richText is the fragment shape Notion uses for titles.
type richText struct {
	PlainText string `json:"plain_text"`
}

// Page is one workspace page.
type Page struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Properties struct {
		Title struct {
			Title []richText `json:"title"`
		} `json:"title"`
	} `json:"properties"`
}

// Title returns the page title as a plain string.
func (p Page) Title() string {
	s := ""
	for _, t := range p.Properties.Title.Title {
		s += t.PlainText
	}
	return s
}

// Database is one workspace database.
type Database struct {
	ID       string     `json:"id"`
	URL      string     `json:"url"`
	TitleRaw []richText `json:"title"`
}

// Title returns the database title as a plain string.
func (d Database) Title() string {
	s := ""
	for _, t := range d.TitleRaw {
		s += t.PlainText
	}
	return s
}

// listEnvelope wraps paginated list responses. NextCursor is opaque; an
// empty cursor means the listing is complete.
type listEnvelope struct {
	Results    json.RawMessage `json:"results"`
	NextCursor string          `json:"next_cursor"`
	HasMore    bool            `json:"has_more"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client fetches Notion workspace content from the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Notion client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(ctx context.Context, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/notion?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notion request failed: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode notion response: %w", err)
	}
	return nil
}

// Pages lists workspace pages. Pass the cursor from a previous call to
// continue a listing; pass "" to start one. The returned cursor is "" when
// there are no more pages.
func (c *Client) Pages(ctx context.Context, cursor string) ([]Page, string, error) {
	q := url.Values{}
	q.Set("type", "pages")
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var env listEnvelope
	if err := c.get(ctx, q, &env); err != nil {
		return nil, "", err
	}

	var pages []Page
	if err := json.Unmarshal(env.Results, &pages); err != nil {
		return nil, "", fmt.Errorf("failed to decode pages: %w", err)
	}
	if !env.HasMore {
		return pages, "", nil
	}
	return pages, env.NextCursor, nil
}

// Databases lists workspace databases, with the same cursor contract as
// Pages.
func (c *Client) Databases(ctx context.Context, cursor string) ([]Database, string, error) {
	q := url.Values{}
	q.Set("type", "databases")
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var env listEnvelope
	if err := c.get(ctx, q, &env); err != nil {
		return nil, "", err
	}

	var dbs []Database
	if err := json.Unmarshal(env.Results, &dbs); err != nil {
		return nil, "", fmt.Errorf("failed to decode databases: %w", err)
	}
	if !env.HasMore {
		return dbs, "", nil
	}
	return dbs, env.NextCursor, nil
}

// PageByID fetches one page.
func (c *Client) PageByID(ctx context.Context, pageID string) (*Page, error) {
	q := url.Values{}
	q.Set("pageId", pageID)

	var page Page
	if err := c.get(ctx, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
