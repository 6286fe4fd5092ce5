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
	"database/sql"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

// openPGForTest connects to SSK_PG_DSN and applies migrations; without it the test is skipped.
func openPGForTest(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("SSK_PG_DSN")
	if dsn == "" {
		t.Skip("SSK_PG_DSN not set")
	}
	db, err := OpenDB(context.Background(), dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestE2E_PGStoreThroughHTTP(t *testing.T) {
	db := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// migrations are idempotent
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	name := "e2e-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM systems WHERE name = $1`, name) })

	srv := httptest.NewServer(NewServer(PGStore{DB: db}, "e2e").Handler())
	defer srv.Close()
	tok, err := NewClient(srv.URL, "", 5*time.Second).IssueToken(ctx, "e2e", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	c := NewClient(srv.URL, tok, 5*time.Second)

	if _, err := c.SaveSystem(ctx, name, sampleSnapshot()); err != nil {
		t.Fatalf("SaveSystem: %v", err)
	}
	sum, err := c.SaveSystem(ctx, name, sampleSnapshot())
	if err != nil || sum.Version != 2 {
		t.Fatalf("second save = %+v, %v", sum, err)
	}
	got, err := c.GetSystem(ctx, name)
	if err != nil || len(got.Nodes) != 2 {
		t.Fatalf("GetSystem = %+v, %v", got, err)
	}
	if err := c.DeleteSystem(ctx, name); err != nil {
		t.Fatalf("DeleteSystem: %v", err)
	}
	if _, err := c.GetSystem(ctx, name); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete err = %v", err)
	}
}
