/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"structsketch/internal/domain"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
	"structsketch/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the library schema. Bump it and add a step to runMigrations
// for breaking changes.
const schemaVersion = 3

// ErrNotFound is returned when a named system does not exist.
var ErrNotFound = errors.New("system not found")

// Entry summarizes a stored system.
type Entry struct {
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Members   int       `json:"members"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Library is a SQLite-backed collection of named systems.
type Library struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// OpenLibrary creates or opens the library at path, enables WAL and migrates the schema.
func OpenLibrary(ctx context.Context, path string) (*Library, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "library_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("library path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("library ready")
	return &Library{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

// Path returns the database file path.
func (lib *Library) Path() string { return lib.path }

// Close releases the database.
func (lib *Library) Close() error { return lib.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS systems (
			name       TEXT PRIMARY KEY,
			data       TEXT    NOT NULL,
			nodes      INTEGER NOT NULL DEFAULT 0,
			members    INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh databases start at 1 and migrate forward like existing ones
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema steps up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_systems_updated ON systems(updated_at);`}
		case 3:
			stmts = []string{
				`CREATE TABLE IF NOT EXISTS revisions (
					id       INTEGER PRIMARY KEY,
					name     TEXT    NOT NULL,
					saved_at TEXT    NOT NULL,
					data     TEXT    NOT NULL,
					nodes    INTEGER NOT NULL DEFAULT 0,
					members  INTEGER NOT NULL DEFAULT 0
				);`,
				`CREATE INDEX IF NOT EXISTS idx_revisions_name ON revisions(name, id);`,
				`CREATE TABLE IF NOT EXISTS thumbnails (
					name        TEXT    NOT NULL,
					w           INTEGER NOT NULL,
					h           INTEGER NOT NULL,
					png         BLOB    NOT NULL,
					size        INTEGER NOT NULL DEFAULT 0,
					updated_at  TEXT    NOT NULL,
					last_access TEXT,
					PRIMARY KEY (name, w, h)
				);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (lib *Library) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := lib.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// Save inserts or replaces the system stored under name. A replaced version is
// kept as a revision; at most KeepRevisions are retained per name.
func (lib *Library) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("system name is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal system: %w", err)
	}
	tx, err := lib.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save system %q: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, archiveRevisionSQL, name); err != nil {
		return fmt.Errorf("keep revision of %q: %w", name, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO systems (name, data, nodes, members, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data=excluded.data, nodes=excluded.nodes, members=excluded.members, updated_at=excluded.updated_at`,
		name, string(data), len(snap.Nodes), len(snap.Members), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save system %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, pruneRevisionsSQL, name, name, KeepRevisions); err != nil {
		return fmt.Errorf("prune revisions of %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM thumbnails WHERE name=?`, name); err != nil {
		return fmt.Errorf("drop thumbnails of %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save system %q: %w", name, err)
	}
	lib.log.Debug("system saved", slog.String("name", name), slog.Int("nodes", len(snap.Nodes)))
	return nil
}

// Load returns the validated system stored under name.
func (lib *Library) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	var data string
	err := lib.db.QueryRowContext(ctx, `SELECT data FROM systems WHERE name=?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load system %q: %w", name, err)
	}
	return model.DecodeSnapshot([]byte(data))
}

// List returns the stored systems whose name starts with prefix, sorted by name.
func (lib *Library) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := lib.db.QueryContext(ctx, `SELECT name, nodes, members, updated_at FROM systems WHERE name LIKE ? ESCAPE '\' ORDER BY name`, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Name, &e.Nodes, &e.Members, &ts); err != nil {
			return nil, fmt.Errorf("scan system: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

// Delete removes a named system and its thumbnails. Revisions stay restorable.
func (lib *Library) Delete(ctx context.Context, name string) error {
	res, err := lib.db.ExecContext(ctx, `DELETE FROM systems WHERE name=?`, name)
	if err != nil {
		return fmt.Errorf("delete system %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if _, err := lib.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE name=?`, name); err != nil {
		return fmt.Errorf("drop thumbnails of %q: %w", name, err)
	}
	return nil
}

// Check runs SQLite's quick_check and reports corruption as an error.
func (lib *Library) Check(ctx context.Context) error {
	var res string
	if err := lib.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&res); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(res), "ok") {
		return fmt.Errorf("library corrupt: %s", res)
	}
	return nil
}
