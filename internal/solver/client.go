/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package solver talks to the external analysis service.
package solver

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
	"structsketch/internal/schema"
)

// maxResponse bounds how much of a response body is read.
const maxResponse = 64 << 20

// Paths are the endpoint paths relative to the base URL.
type Paths struct {
	Kinematics string `yaml:"kinematics"`
	Solution   string `yaml:"solution"`
	Simplify   string `yaml:"simplify"`
	Dynamic    string `yaml:"dynamic"`
}

func DefaultPaths() Paths {
	return Paths{Kinematics: "/kinematics", Solution: "/solution", Simplify: "/simplify", Dynamic: "/dynamic"}
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("solver %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("solver %s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), msg)
}

// ErrDynamicFailed is returned when the service reports success=false.
var ErrDynamicFailed = errors.New("dynamic analysis failed")

// Client posts snapshots to the analysis service.
type Client struct {
	BaseURL string
	Token   string // bearer token, optional
	Paths   Paths
	client  *http.Client
}

// NewClient creates a client. A zero timeout means 60 seconds.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Paths:   DefaultPaths(),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Method: http.MethodPost, Path: u.Path, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func decode[T any](data []byte, what string) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return &v, nil
}

// Kinematics asks whether the structure is a mechanism and for its modes.
func (c *Client) Kinematics(ctx context.Context, snap domain.Snapshot) (*domain.KinematicResult, error) {
	data, err := c.postJSON(ctx, c.Paths.Kinematics, snap)
	if err != nil {
		return nil, err
	}
	return decode[domain.KinematicResult](data, "kinematic result")
}

// Solve runs the static FEM analysis.
func (c *Client) Solve(ctx context.Context, snap domain.Snapshot) (*domain.StaticResult, error) {
	data, err := c.postJSON(ctx, c.Paths.Solution, snap)
	if err != nil {
		return nil, err
	}
	return decode[domain.StaticResult](data, "static result")
}

// Dynamic runs the eigen and time history analysis. Missing parameters are
// filled with defaults.
func (c *Client) Dynamic(ctx context.Context, snap domain.Snapshot) (*domain.DynamicResult, error) {
	if snap.Meta.Dynamic == nil {
		p := domain.DefaultDynamicParams()
		snap.Meta.Dynamic = &p
	}
	data, err := c.postJSON(ctx, c.Paths.Dynamic, snap)
	if err != nil {
		return nil, err
	}
	res, err := decode[domain.DynamicResult](data, "dynamic result")
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s", ErrDynamicFailed, res.Message)
	}
	return res, nil
}

// Simplify returns the reduced system proposed by the service. The reply is
// validated like any imported document.
func (c *Client) Simplify(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	data, err := c.postJSON(ctx, c.Paths.Simplify, snap)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := schema.ValidateSnapshot(data); err != nil {
		return domain.Snapshot{}, fmt.Errorf("simplified system: %w", err)
	}
	out, err := decode[domain.Snapshot](data, "simplified system")
	if err != nil {
		return domain.Snapshot{}, err
	}
	if out.Meta.GridSize == 0 {
		out.Meta = snap.Meta
	}
	return *out, nil
}
