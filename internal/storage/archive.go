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
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	applog "structsketch/internal/log"
	"structsketch/internal/model"
)

const archiveManifest = "structsketch.manifest.json"

// ExportArchive writes every library system whose name starts with prefix into a zip
// at dest, one JSON document per system. It returns the number of systems written.
func ExportArchive(ctx context.Context, lib *Library, prefix, dest string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "archive_export").With(slog.String("zip", dest))
	if strings.TrimSpace(dest) == "" {
		return 0, errors.New("destination is required")
	}
	entries, err := lib.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	zf, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		snap, err := lib.Load(ctx, e.Name)
		if err != nil {
			_ = zw.Close()
			return len(names), err
		}
		w, err := zw.Create(archiveEntryName(e.Name))
		if err != nil {
			_ = zw.Close()
			return len(names), fmt.Errorf("zip entry: %w", err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			_ = zw.Close()
			return len(names), fmt.Errorf("write %q: %w", e.Name, err)
		}
		names = append(names, e.Name)
	}
	mw, err := zw.Create(archiveManifest)
	if err != nil {
		_ = zw.Close()
		return len(names), fmt.Errorf("zip manifest: %w", err)
	}
	if err := json.NewEncoder(mw).Encode(map[string]any{"systems": names}); err != nil {
		_ = zw.Close()
		return len(names), err
	}
	if err := zw.Close(); err != nil {
		return len(names), fmt.Errorf("build zip: %w", err)
	}
	l.Info("archive exported", slog.Int("systems", len(names)))
	return len(names), nil
}

// ImportArchive loads every system document in the zip into lib. Existing names are
// skipped unless overwrite is set. Entries that fail validation are skipped and logged.
func ImportArchive(ctx context.Context, lib *Library, src string, overwrite bool) (int, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "archive_import").With(slog.String("zip", src))
	r, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	imported := 0
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		name, ok := systemNameFromEntry(f.Name)
		if !ok || f.FileInfo().IsDir() {
			continue
		}
		if !overwrite {
			if _, err := lib.Load(ctx, name); err == nil {
				l.Warn("skip existing system", slog.String("name", name))
				continue
			}
		}
		data, err := readZipFile(f)
		if err != nil {
			return imported, err
		}
		snap, err := model.DecodeSnapshot(data)
		if err != nil {
			l.Warn("skip invalid system", slog.String("entry", f.Name), slog.Any("err", err))
			continue
		}
		if err := lib.Save(ctx, name, snap); err != nil {
			return imported, err
		}
		imported++
	}
	l.Info("archive imported", slog.Int("systems", imported))
	return imported, nil
}

func archiveEntryName(name string) string {
	return "systems/" + strings.ReplaceAll(name, "/", "_") + FileExt
}

// systemNameFromEntry rejects entries outside systems/ and any path traversal.
func systemNameFromEntry(entry string) (string, bool) {
	clean := path.Clean(entry)
	if !strings.HasPrefix(clean, "systems/") || !strings.HasSuffix(clean, FileExt) {
		return "", false
	}
	base := strings.TrimSuffix(strings.TrimPrefix(clean, "systems/"), FileExt)
	if base == "" || strings.Contains(base, "/") || strings.Contains(base, "..") {
		return "", false
	}
	return base, true
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	// systems are small; cap reads to guard against zip bombs
	return io.ReadAll(io.LimitReader(rc, 32<<20))
}
