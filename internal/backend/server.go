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
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"structsketch/internal/domain"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
	"structsketch/internal/version"
)

// SystemStore is the persistence behind the systems API.
type SystemStore interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Summary, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name, subject string, snap domain.Snapshot) (Summary, error)
	Delete(ctx context.Context, name string) error
}

const devSecret = "dev-secret-change-me"

// Server serves the named-systems API over a SystemStore.
type Server struct {
	store  SystemStore
	secret string
	log    *slog.Logger
}

// NewServer builds a server. An empty secret falls back to an insecure development key.
func NewServer(store SystemStore, secret string) *Server {
	l := applog.WithComponent("backend")
	if secret == "" {
		secret = devSecret
		l.Warn("SSK_AUTH_SECRET not set; using insecure dev secret")
	}
	return &Server{store: store, secret: secret, log: l}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("structsketch-server " + version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.issueToken)
	mux.HandleFunc("GET /api/systems", s.withAuth(s.listSystems))
	mux.HandleFunc("GET /api/systems/{name}", s.withAuth(s.getSystem))
	mux.HandleFunc("PUT /api/systems/{name}", s.withAuth(s.putSystem))
	mux.HandleFunc("DELETE /api/systems/{name}", s.withAuth(s.deleteSystem))
	return s.withRequestID(mux)
}

// Start opens the database from cfg and serves until ctx is cancelled.
func Start(ctx context.Context, cfg Config) error {
	db, err := OpenDB(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer db.Close()
	srv := &http.Server{Addr: cfg.Addr, Handler: NewServer(PGStore{DB: db}, cfg.Secret).Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	applog.WithComponent("backend").Info("server listening", slog.String("addr", cfg.Addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) listSystems(w http.ResponseWriter, r *http.Request, _ string) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getSystem(w http.ResponseWriter, r *http.Request, _ string) {
	data, err := s.store.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) putSystem(w http.ResponseWriter, r *http.Request, subject string) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("system name is required"))
		return
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := model.DecodeSnapshot(b)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	sum, err := s.store.Put(r.Context(), name, subject, snap)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.InfoContext(applog.WithSystem(r.Context(), name), "system saved", slog.String("by", subject), slog.Int64("version", sum.Version))
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) deleteSystem(w http.ResponseWriter, r *http.Request, _ string) {
	if err := s.store.Delete(r.Context(), r.PathValue("name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			var b [8]byte
			_, _ = rand.Read(b[:])
			id = hex.EncodeToString(b[:])
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(applog.WithRequestID(r.Context(), id)))
	})
}

// --- Helpers: auth and JSON ---

type tokenClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"` // unix seconds
}

func signToken(secret, subject string, exp time.Time) (string, error) {
	b, err := json.Marshal(tokenClaims{Sub: subject, Exp: exp.Unix()})
	if err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(b)
	return base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func verifyToken(secret, token string) (string, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", fmt.Errorf("invalid token format")
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid token payload")
	}
	sigB, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", fmt.Errorf("invalid token signature")
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payloadB)
	if !hmac.Equal(h.Sum(nil), sigB) {
		return "", fmt.Errorf("bad signature")
	}
	var claims tokenClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil {
		return "", fmt.Errorf("bad claims")
	}
	if claims.Exp < time.Now().Unix() {
		return "", fmt.Errorf("token expired")
	}
	if claims.Sub == "" {
		claims.Sub = "dev"
	}
	return claims.Sub, nil
}

func (s *Server) withAuth(next func(w http.ResponseWriter, r *http.Request, subject string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "bearer "
		if !strings.HasPrefix(strings.ToLower(auth), prefix) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("missing bearer token"))
			return
		}
		sub, err := verifyToken(s.secret, strings.TrimSpace(auth[len(prefix):]))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("invalid token"))
			return
		}
		next(w, r, sub)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// MemStore is an in-process SystemStore, used by `structsketch serve --memory` and tests.
type MemStore struct {
	mu      sync.Mutex
	systems map[string]memEntry
}

type memEntry struct {
	sum  Summary
	data []byte
}

func NewMemStore() *MemStore { return &MemStore{systems: map[string]memEntry{}} }

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) List(context.Context) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]Summary, 0, len(m.systems))
	for _, e := range m.systems {
		list = append(list, e.sum)
	}
	sortSummaries(list)
	return list, nil
}

func (m *MemStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.systems[name]
	if !ok {
		return nil, ErrNotFound
	}
	return e.data, nil
}

func (m *MemStore) Put(_ context.Context, name, subject string, snap domain.Snapshot) (Summary, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return Summary{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := Summary{Name: name, Nodes: len(snap.Nodes), Members: len(snap.Members), Version: 1, UpdatedBy: subject, UpdatedAt: time.Now().UTC()}
	if prev, ok := m.systems[name]; ok {
		sum.Version = prev.sum.Version + 1
	}
	m.systems[name] = memEntry{sum: sum, data: data}
	return sum, nil
}

func (m *MemStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.systems[name]; !ok {
		return ErrNotFound
	}
	delete(m.systems, name)
	return nil
}

// sortSummaries orders most recently updated first, then by name.
func sortSummaries(list []Summary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].Name < list[j].Name
	})
}
