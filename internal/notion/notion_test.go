// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notion

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Pages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notion" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "pages" {
			t.Errorf("type = %q", got)
		}
		io.WriteString(w, `{
			"results": [
				{"id": "p1", "url": "https://notion.so/p1",
				 "properties": {"title": {"title": [{"plain_text": "Weekly "}, {"plain_text": "Notes"}]}}}
			],
			"next_cursor": "abc123",
			"has_more": true
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	pages, cursor, err := client.Pages(context.Background(), "")
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	if pages[0].Title() != "Weekly Notes" {
		t.Errorf("title = %q", pages[0].Title())
	}
	if cursor != "abc123" {
		t.Errorf("cursor = %q, must be passed through opaquely", cursor)
	}
}

func TestClient_Pages_CursorPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cursor"); got != "abc123" {
			t.Errorf("cursor = %q, want abc123", got)
		}
		io.WriteString(w, `{"results": [], "next_cursor": null, "has_more": false}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, cursor, err := client.Pages(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if cursor != "" {
		t.Errorf("cursor = %q, want empty at end of listing", cursor)
	}
}

func TestClient_Databases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "databases" {
			t.Errorf("type = %q", got)
		}
		io.WriteString(w, `{
			"results": [{"id": "d1", "url": "https://notion.so/d1", "title": [{"plain_text": "Tasks"}]}],
			"has_more": false
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	dbs, _, err := client.Databases(context.Background(), "")
	if err != nil {
		t.Fatalf("Databases() error = %v", err)
	}
	if len(dbs) != 1 || dbs[0].Title() != "Tasks" {
		t.Errorf("dbs = %+v", dbs)
	}
}

func TestClient_PageByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pageId"); got != "p42" {
			t.Errorf("pageId = %q", got)
		}
		io.WriteString(w, `{"id": "p42", "url": "https://notion.so/p42",
			"properties": {"title": {"title": [{"plain_text": "Journal"}]}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	page, err := client.PageByID(context.Background(), "p42")
	if err != nil {
		t.Fatalf("PageByID() error = %v", err)
	}
	if page.Title() != "Journal" {
		t.Errorf("title = %q", page.Title())
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, _, err := client.Pages(context.Background(), ""); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
