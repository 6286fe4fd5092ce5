/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage events (analysis runs,
// tool usage, model size buckets) and optional crash reports.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "structsketch/internal/log"
	"structsketch/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
//   - SSK_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
//   - SSK_TELEMETRY_URL: URL to POST JSON events to
//   - SSK_CRASH_UPLOAD_URL: URL to POST crash reports to
//   - SSK_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
//   - SSK_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without URLs events are dropped, even if opt-in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("SSK_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("SSK_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SSK_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SSK_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("SSK_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is a minimal async sender; it drops events silently on errors.
// The queue is bounded so callers on the UI goroutine never block.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}
	wg     sync.WaitGroup
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

func def() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// NewDefault installs a default client built from cfg, closing the previous one.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether telemetry is opted in and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports the state of the default client.
func Enabled() bool { return def().Enabled() }

// Event queues a small JSON event if enabled. props must not carry model contents.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case c.q <- payload:
		c.wg.Add(1)
	default:
	}
}

// Event using the default client.
func Event(name string, props map[string]any) { def().Event(name, props) }

// Analysis records one solver round trip. Only the kind, duration and outcome leave the machine.
func (c *Client) Analysis(kind string, took time.Duration, err error) {
	c.Event("analysis", map[string]any{
		"kind":   kind,
		"ms":     took.Milliseconds(),
		"ok":     err == nil,
		"failed": err != nil && err != context.Canceled,
	})
}

// Analysis using the default client.
func Analysis(kind string, took time.Duration, err error) { def().Analysis(kind, took, err) }

// ModelSize reports bucketed entity counts, e.g. on save.
func (c *Client) ModelSize(nodes, members int) {
	c.Event("model_size", map[string]any{"nodes": bucket(nodes), "members": bucket(members)})
}

func bucket(n int) string {
	switch {
	case n == 0:
		return "0"
	case n <= 10:
		return "1-10"
	case n <= 100:
		return "11-100"
	default:
		return "100+"
	}
}

// Flush waits until queued events were sent, ctx ends or one second passes.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(time.Second):
	}
}

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(item))
			c.wg.Done()
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a serialized crash report to the crash URL if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b)
	}()
}

// UploadCrash using the default client.
func UploadCrash(report []byte) { def().UploadCrash(report) }
