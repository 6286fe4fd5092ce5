/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := OpenLibrary(context.Background(), filepath.Join(t.TempDir(), "lib", "systems.db"))
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func TestLibrarySaveLoadListDelete(t *testing.T) {
	ctx := context.Background()
	lib := openTestLibrary(t)
	snap := sampleSnapshot(t)

	for _, name := range []string{"frame/portal", "frame/gable", "truss_a"} {
		if err := lib.Save(ctx, name, snap); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}
	// overwrite keeps a single row
	if err := lib.Save(ctx, "truss_a", snap); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	all, err := lib.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("List all = %v, %v", all, err)
	}
	if all[0].Name != "frame/gable" || all[0].Nodes != 2 || all[0].Members != 1 {
		t.Fatalf("first entry = %+v", all[0])
	}
	frames, _ := lib.List(ctx, "frame/")
	if len(frames) != 2 {
		t.Fatalf("prefix list = %v", frames)
	}
	// underscore is literal, not a LIKE wildcard
	if got, _ := lib.List(ctx, "truss_"); len(got) != 1 {
		t.Fatalf("escaped prefix list = %v", got)
	}
	if got, _ := lib.List(ctx, "trussXa"); len(got) != 0 {
		t.Fatalf("wildcard leaked: %v", got)
	}

	got, err := lib.Load(ctx, "frame/portal")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Loads) != 1 || got.Loads[0].Ratio != 0.5 {
		t.Fatalf("loaded = %+v", got)
	}

	if err := lib.Delete(ctx, "frame/portal"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := lib.Load(ctx, "frame/portal"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete err = %v", err)
	}
	if err := lib.Delete(ctx, "frame/portal"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete err = %v", err)
	}
	if err := lib.Save(ctx, "  ", snap); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestLibraryMigratesAndChecks(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "systems.db")
	lib, err := OpenLibrary(ctx, path)
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	v, err := lib.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d, %v", v, err)
	}
	if err := lib.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
	_ = lib.Close()

	// reopening an existing file is idempotent
	lib2, err := OpenLibrary(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer lib2.Close()
	if v, _ := lib2.SchemaVersion(ctx); v != schemaVersion {
		t.Fatalf("schema version after reopen = %d", v)
	}
}
