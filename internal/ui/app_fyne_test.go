//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI pieces. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"structsketch/internal/tools"
)

func TestSketchCanvas_ResizeUpdatesViewport(t *testing.T) {
	test.NewApp()
	c := newSketchCanvas(&editor{}, 1, 20)
	c.Resize(fyne.NewSize(1000, 500))
	v := c.View()
	if v.Size.W != 1000 || v.Size.H != 500 {
		t.Fatalf("viewport size = %+v", v.Size)
	}
	if got := v.Scale(); got != 50 {
		t.Fatalf("scale = %v, want 50 px/m", got)
	}
}

func TestSketchCanvas_ScrollZooms(t *testing.T) {
	test.NewApp()
	c := newSketchCanvas(&editor{}, 1, 20)
	c.Resize(fyne.NewSize(800, 600))
	before := c.View().CellsAcross
	c.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 10}})
	if after := c.View().CellsAcross; after >= before {
		t.Fatalf("scrolling up should zoom in: %v -> %v", before, after)
	}
	for i := 0; i < 200; i++ {
		c.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DY: 10}})
	}
	if got := c.View().CellsAcross; got < 2 {
		t.Fatalf("zoom not clamped: %v", got)
	}
}

func TestRecentSystems(t *testing.T) {
	a := test.NewApp()
	prefs := a.Preferences()
	dir := t.TempDir()
	first := filepath.Join(dir, "a.ssk.json")
	second := filepath.Join(dir, "b.ssk.json")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	addRecentSystem(prefs, first)
	addRecentSystem(prefs, second)
	addRecentSystem(prefs, first)
	got := loadRecentSystems(prefs)
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("recent = %v", got)
	}
	if err := os.Remove(second); err != nil {
		t.Fatal(err)
	}
	if got := loadRecentSystems(prefs); len(got) != 1 {
		t.Fatalf("missing files should be filtered: %v", got)
	}
}

func TestToolLabel(t *testing.T) {
	if got := toolLabel(tools.Support{Symbol: tools.SymRotationalSpring}); got != "support: rotational spring" {
		t.Fatalf("label = %q", got)
	}
	if got := toolLabel(tools.Select{}); got != "select" {
		t.Fatalf("label = %q", got)
	}
}
