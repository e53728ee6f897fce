// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package calendar talks to the assistant backend's calendar collaborator:
// day lookups plus create and delete of individual entries.
package calendar

import (
	"bytes"
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

// Event is one calendar entry as the backend reports it. Time may be a
// single "HH:MM" or a range; Location may be empty.
type Event struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Duration    int    `json:"duration"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client fetches calendar events from the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a calendar client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// EventsForDate returns the events on one day.
func (c *Client) EventsForDate(ctx context.Context, day time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("date", day.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/calendar/events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar request failed: %s", resp.Status)
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return body.Events, nil
}

// EventsToday returns the events for the current day.
func (c *Client) EventsToday(ctx context.Context) ([]Event, error) {
	return c.EventsForDate(ctx, time.Now())
}

// CreateEvent adds an entry to the calendar. The backend assigns the ID;
// the stored event comes back in the response.
func (c *Client) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/calendar/events", bytes.NewReader(payload))
	if err != nil {
		return Event{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Event{}, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Event{}, fmt.Errorf("calendar request failed: %s", resp.Status)
	}

	var created Event
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return created, nil
}

// DeleteEvent removes one calendar entry by ID.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("event id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/calendar/events/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("no event with id %q", id)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("calendar request failed: %s", resp.Status)
	}
	return nil
}
