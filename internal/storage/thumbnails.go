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
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvThumbnailsMaxBytes caps the total size of cached thumbnails.
const EnvThumbnailsMaxBytes = "SSK_THUMBNAILS_MAX_BYTES"

const defaultThumbnailsMaxBytes = 64 << 20

// accessLayout is fixed width so last_access sorts chronologically as text.
const accessLayout = "2006-01-02T15:04:05.000000000Z"

// Thumbnail returns the cached PNG of name at w×h and marks it used. A missing
// entry is nil without error.
func (lib *Library) Thumbnail(ctx context.Context, name string, w, h int) ([]byte, error) {
	var blob []byte
	err := lib.db.QueryRowContext(ctx, `SELECT png FROM thumbnails WHERE name=? AND w=? AND h=?`, name, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumbnail: %w", err)
	}
	now := time.Now().UTC().Format(accessLayout)
	_, _ = lib.db.ExecContext(ctx, `UPDATE thumbnails SET last_access=? WHERE name=? AND w=? AND h=?`, now, name, w, h)
	return blob, nil
}

// PutThumbnail stores a PNG for name at w×h and evicts least recently used
// thumbnails beyond the size cap.
func (lib *Library) PutThumbnail(ctx context.Context, name string, w, h int, png []byte) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid thumbnail size %dx%d", w, h)
	}
	if len(png) == 0 {
		return errors.New("empty thumbnail")
	}
	now := time.Now().UTC().Format(accessLayout)
	_, err := lib.db.ExecContext(ctx, `INSERT INTO thumbnails(name, w, h, png, size, updated_at, last_access)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, w, h) DO UPDATE SET png=excluded.png, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		name, w, h, png, len(png), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumbnail: %w", err)
	}
	return lib.EvictThumbnails(ctx, MaxThumbnailBytesFromEnv())
}

// ThumbnailOrCreate returns the cached thumbnail or renders, stores and returns a new one.
func (lib *Library) ThumbnailOrCreate(ctx context.Context, name string, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := lib.Thumbnail(ctx, name, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if err := lib.PutThumbnail(ctx, name, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictThumbnails deletes least recently used thumbnails until their total size is <= capBytes.
func (lib *Library) EvictThumbnails(ctx context.Context, capBytes int64) error {
	if capBytes <= 0 {
		return nil
	}
	total, err := lib.ThumbnailBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := lib.db.QueryContext(ctx, `SELECT rowid, size FROM thumbnails ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		total -= sz
		if total <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the cursor must be closed before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbnails WHERE rowid IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := lib.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict thumbnails: %w", err)
	}
	return nil
}

// ThumbnailBytes returns the total size of cached thumbnails.
func (lib *Library) ThumbnailBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := lib.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbnails`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum thumbnail size: %w", err)
	}
	return total, nil
}

// MaxThumbnailBytesFromEnv reads SSK_THUMBNAILS_MAX_BYTES, defaulting to 64MB.
func MaxThumbnailBytesFromEnv() int64 {
	v := os.Getenv(EnvThumbnailsMaxBytes)
	if v == "" {
		return defaultThumbnailsMaxBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultThumbnailsMaxBytes
	}
	return n
}
