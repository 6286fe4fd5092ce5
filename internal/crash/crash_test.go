/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"structsketch/internal/domain"
	"structsketch/internal/model"
	"structsketch/internal/vector"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport("", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "StructSketch Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("report content unexpected: %s", s)
	}
}

type panicky struct{}

func (panicky) ExportSnapshot() domain.Snapshot { panic("broken store") }

func TestAutosaveSurvivesPanickingSource(t *testing.T) {
	if _, err := autosave(t.TempDir(), panicky{}); err == nil {
		t.Fatalf("expected error from panicking source")
	}
}

// TestRecoverWritesReportAndAutosave checks that Recover writes both files and
// exits with code 2 through the injected exitFn.
func TestRecoverWritesReportAndAutosave(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	store := model.New(1)
	store.AddNode(vector.Pt{X: 1, Y: 2}, "", 0, nil)

	func() {
		defer Recover(dir, store)
		panic("boom")
	}()

	var report, save string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(dir, f.Name())
		case strings.HasPrefix(f.Name(), "autosave-crash-"):
			save = filepath.Join(dir, f.Name())
		}
	}
	if report == "" || save == "" {
		t.Fatalf("expected report and autosave, got %v", files)
	}
	b, _ := os.ReadFile(report)
	if !strings.Contains(string(b), "Panic: boom") {
		t.Fatalf("report does not contain panic: %s", b)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if called {
		t.Fatalf("exit called without panic")
	}
}
