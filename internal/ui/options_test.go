/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"structsketch/internal/storage"
)

func TestLibraryThumbnailRendersAndCaches(t *testing.T) {
	ctx := context.Background()
	lib, err := storage.OpenLibrary(ctx, filepath.Join(t.TempDir(), "systems.db"))
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	defer lib.Close()
	snap, _, _ := beam(t)
	if err := lib.Save(ctx, "beam", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := LibraryThumbnail(ctx, lib, "beam")
	if err != nil {
		t.Fatalf("LibraryThumbnail: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("thumbnail is not a PNG")
	}
	cached, err := lib.Thumbnail(ctx, "beam", ThumbnailSize, ThumbnailSize*3/4)
	if err != nil || !bytes.Equal(cached, b) {
		t.Fatalf("thumbnail not cached: %v", err)
	}
	if _, err := LibraryThumbnail(ctx, lib, "missing"); err == nil {
		t.Fatalf("expected error for unknown system")
	}
}
