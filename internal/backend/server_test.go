/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"structsketch/internal/domain"
	"structsketch/internal/model"
	"structsketch/internal/vector"
)

func sampleSnapshot() domain.Snapshot {
	s := model.New(1)
	a := s.AddNode(vector.Pt{X: 0, Y: 0}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 4, Y: 3}, "", 0, nil)
	s.AddMember(a, b, domain.Truss, nil)
	return s.ExportSnapshot()
}

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(NewServer(NewMemStore(), "test-secret").Handler())
	t.Cleanup(srv.Close)
	anon := NewClient(srv.URL+"/", "", time.Second)
	tok, err := anon.IssueToken(context.Background(), "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return srv, NewClient(srv.URL, tok, time.Second)
}

func TestClientServerSystemsCRUD(t *testing.T) {
	ctx := context.Background()
	_, c := newTestServer(t)
	snap := sampleSnapshot()

	sum, err := c.SaveSystem(ctx, "frame one", snap)
	if err != nil {
		t.Fatalf("SaveSystem: %v", err)
	}
	if sum.Name != "frame one" || sum.Nodes != 2 || sum.Members != 1 || sum.Version != 1 || sum.UpdatedBy != "alice" {
		t.Fatalf("summary = %+v", sum)
	}
	if sum, _ = c.SaveSystem(ctx, "frame one", snap); sum.Version != 2 {
		t.Fatalf("second save version = %d", sum.Version)
	}

	list, err := c.ListSystems(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSystems = %v, %v", list, err)
	}
	got, err := c.GetSystem(ctx, "frame one")
	if err != nil {
		t.Fatalf("GetSystem: %v", err)
	}
	if len(got.Members) != 1 || got.Members[0].Kind != domain.Truss {
		t.Fatalf("got = %+v", got)
	}

	if err := c.DeleteSystem(ctx, "frame one"); err != nil {
		t.Fatalf("DeleteSystem: %v", err)
	}
	if _, err := c.GetSystem(ctx, "frame one"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSystem after delete err = %v", err)
	}
	if err := c.DeleteSystem(ctx, "frame one"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteSystem missing err = %v", err)
	}
}

func TestServerRejectsInvalidSystem(t *testing.T) {
	srv, c := newTestServer(t)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/systems/bad", strings.NewReader(`{"nodes":"x"}`))
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestServerAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := NewClient(srv.URL, "", time.Second).ListSystems(ctx)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Fatalf("missing token err = %v", err)
	}
	forged, _ := signToken("other-secret", "mallory", time.Now().Add(time.Hour))
	if _, err := NewClient(srv.URL, forged, time.Second).ListSystems(ctx); !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Fatalf("forged token err = %v", err)
	}
	expired, _ := signToken("test-secret", "bob", time.Now().Add(-time.Minute))
	if _, err := NewClient(srv.URL, expired, time.Second).ListSystems(ctx); !errors.As(err, &se) {
		t.Fatalf("expired token err = %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	tok, err := signToken("k", "", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	sub, err := verifyToken("k", tok)
	if err != nil || sub != "dev" {
		t.Fatalf("verifyToken = %q, %v", sub, err)
	}
	for _, bad := range []string{"", "abc", "a.b", tok + "x"} {
		if _, err := verifyToken("k", bad); err == nil {
			t.Fatalf("verifyToken(%q) should fail", bad)
		}
	}
}

func TestHealthVersionAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", p, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", p)
		}
		if p == "/version" && !strings.HasPrefix(string(body), "structsketch-server ") {
			t.Fatalf("version body = %q", body)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("migrations/0002_systems_updated_idx.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("nounderscore.sql"); err == nil {
		t.Fatalf("expected error")
	}
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil || len(entries) < 2 {
		t.Fatalf("embedded migrations = %v, %v", entries, err)
	}
}
