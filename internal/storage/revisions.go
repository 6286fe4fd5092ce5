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
	"errors"
	"fmt"
	"time"

	"structsketch/internal/domain"
	"structsketch/internal/model"
)

// KeepRevisions is the number of replaced versions kept per system name.
const KeepRevisions = 20

// language=SQL
// dialect=SQLite
const archiveRevisionSQL = `INSERT INTO revisions(name, saved_at, data, nodes, members)
	SELECT name, updated_at, data, nodes, members FROM systems WHERE name = ?`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT id, saved_at, nodes, members FROM revisions WHERE name = ? ORDER BY id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE name = ? AND id NOT IN (
	SELECT id FROM revisions WHERE name = ? ORDER BY id DESC LIMIT ?
)`

// Revision is a replaced version of a named system.
type Revision struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	SavedAt time.Time `json:"savedAt"`
	Nodes   int       `json:"nodes"`
	Members int       `json:"members"`
}

// Revisions returns up to limit revisions of name, newest first.
func (lib *Library) Revisions(ctx context.Context, name string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = KeepRevisions
	}
	rows, err := lib.db.QueryContext(ctx, listRevisionsSQL, name, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions of %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		r := Revision{Name: name}
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Nodes, &r.Members); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.SavedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadRevision returns the validated system of a revision of name.
func (lib *Library) LoadRevision(ctx context.Context, name string, id int64) (domain.Snapshot, error) {
	var data string
	err := lib.db.QueryRowContext(ctx, `SELECT data FROM revisions WHERE id = ? AND name = ?`, id, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("%q revision %d: %w", name, id, ErrNotFound)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load revision %d: %w", id, err)
	}
	return model.DecodeSnapshot([]byte(data))
}

// Restore makes a revision the current version of name. The version it
// replaces becomes a revision itself.
func (lib *Library) Restore(ctx context.Context, name string, id int64) error {
	snap, err := lib.LoadRevision(ctx, name, id)
	if err != nil {
		return err
	}
	return lib.Save(ctx, name, snap)
}

// PruneRevisions keeps at most keepLast revisions of name and returns how many were removed.
func (lib *Library) PruneRevisions(ctx context.Context, name string, keepLast int) (int64, error) {
	if keepLast < 0 {
		return 0, nil
	}
	res, err := lib.db.ExecContext(ctx, pruneRevisionsSQL, name, name, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune revisions of %q: %w", name, err)
	}
	return res.RowsAffected()
}
