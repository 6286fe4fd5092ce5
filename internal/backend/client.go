/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"structsketch/internal/domain"
	"structsketch/internal/model"
)

// ErrNotFound is returned when the server has no system under the requested name.
var ErrNotFound = errors.New("system not found")

// StatusError is a non-2xx answer from the systems API.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Status, strings.TrimSpace(e.Body))
}

// Client talks to the named-systems API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: u.Path, Status: resp.StatusCode, Body: string(b)}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func systemPath(name string) string { return "/api/systems/" + url.PathEscape(name) }

// Summary is the listing projection of a stored system.
type Summary struct {
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Members   int       `json:"members"`
	Version   int64     `json:"version"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListSystems returns the systems stored on the server, most recently updated first.
func (c *Client) ListSystems(ctx context.Context) ([]Summary, error) {
	var list []Summary
	if err := c.doJSON(ctx, http.MethodGet, "/api/systems", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetSystem fetches and validates the system stored under name.
func (c *Client) GetSystem(ctx context.Context, name string) (domain.Snapshot, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, systemPath(name), nil, &raw); err != nil {
		return domain.Snapshot{}, err
	}
	return model.DecodeSnapshot(raw)
}

// SaveSystem stores snap under name, replacing any previous version.
func (c *Client) SaveSystem(ctx context.Context, name string, snap domain.Snapshot) (Summary, error) {
	var sum Summary
	err := c.doJSON(ctx, http.MethodPut, systemPath(name), snap, &sum)
	return sum, err
}

// DeleteSystem removes the system stored under name.
func (c *Client) DeleteSystem(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, systemPath(name), nil, nil)
}

// IssueToken asks the server for a bearer token for subject.
func (c *Client) IssueToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}
