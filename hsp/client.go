// Package hsp fetches and parses Historic Service Performance
// service-details records used to enrich saved predictions with
// actual arrival times.
package hsp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const defaultTimeout = 20 * time.Second

// Client is an HTTP client for the HSP service-details endpoint,
// mirroring the teacher's context-scoped net/http style rather than
// pulling in a REST client library (see DESIGN.md).
type Client struct {
	url      string
	username string
	password string
	http     *http.Client
}

func NewClient(url, username, password string) *Client {
	return &Client{
		url:      url,
		username: username,
		password: password,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

// GetServiceDetails fetches the raw service-details payload for rid.
// Any transport failure, non-200 status, or invalid JSON body is
// reported as ok=false rather than an error, matching the source's
// "log and return None" behavior — HSP lookups are best-effort
// enrichment, not something worth failing the caller over.
func (c *Client) GetServiceDetails(ctx context.Context, rid string) (map[string]any, bool) {
	body, err := json.Marshal(map[string]string{"rid": rid})
	if err != nil {
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false
	}
	return payload, true
}
