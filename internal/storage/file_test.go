/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"structsketch/internal/domain"
	"structsketch/internal/model"
	"structsketch/internal/vector"
)

// sampleSnapshot is a pinned-roller beam with a midspan point load.
func sampleSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	s := model.New(1)
	pin := domain.Support{Axial: domain.FixedChannel(), Transverse: domain.FixedChannel()}
	roller := domain.Support{Transverse: domain.FixedChannel()}
	a := s.AddNode(vector.Pt{X: 0, Y: 0}, "pinned", 0, &pin)
	b := s.AddNode(vector.Pt{X: 6, Y: 0}, "roller", 0, &roller)
	m, ok := s.AddMember(a, b, domain.Beam, nil)
	if !ok {
		t.Fatalf("AddMember failed")
	}
	if _, ok := s.AddLoad(model.MemberLoad(m, domain.PointLoad, 10, 0.5, 90)); !ok {
		t.Fatalf("AddLoad failed")
	}
	s.SetName("beam")
	return s.ExportSnapshot()
}

func TestSaveFileAndOpenFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beam"+FileExt)
	snap := sampleSnapshot(t)
	if err := SaveFile(path, snap); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if f.Recovered {
		t.Fatalf("unexpected recovery from backup")
	}
	if !reflect.DeepEqual(f.Snapshot, snap) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", f.Snapshot, snap)
	}
	// no backup on first save
	if list, _ := Backups(path); len(list) != 0 {
		t.Fatalf("expected no backups, got %v", list)
	}
}

func TestSaveFileCreatesBackupAndOpenFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beam"+FileExt)
	snap := sampleSnapshot(t)
	if err := SaveFile(path, snap); err != nil {
		t.Fatalf("SaveFile #1: %v", err)
	}
	if err := SaveFile(path, snap); err != nil {
		t.Fatalf("SaveFile #2: %v", err)
	}
	list, err := Backups(path)
	if err != nil || len(list) != 1 {
		t.Fatalf("backups = %v, %v", list, err)
	}
	if !strings.HasPrefix(filepath.Base(list[0]), "beam"+FileExt+".") {
		t.Fatalf("backup name = %s", list[0])
	}

	// corrupt the current document
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile with backup: %v", err)
	}
	if !f.Recovered || len(f.Snapshot.Members) != 1 {
		t.Fatalf("expected recovery from backup, got %+v", f)
	}
}

func TestOpenFileRejectsInvalidWithoutBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad"+FileExt)
	if err := os.WriteFile(path, []byte(`{"nodes": "nope"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatalf("expected error for invalid document")
	}
}

func TestPruneBackupsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p"+FileExt)
	bdir := BackupsDir(path)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, stamp := range []string{"20250101-000000.000", "20250102-000000.000", "20250103-000000.000"} {
		if err := os.WriteFile(filepath.Join(bdir, "p"+FileExt+"."+stamp+".bak"), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	pruneBackups(path, 2)
	list, _ := Backups(path)
	if len(list) != 2 || !strings.Contains(list[0], "20250102") {
		t.Fatalf("after prune = %v", list)
	}
}

func TestAutosaveCrash(t *testing.T) {
	dir := t.TempDir()
	p, err := AutosaveCrash(dir, sampleSnapshot(t))
	if err != nil {
		t.Fatalf("AutosaveCrash: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(p), "autosave-crash-") {
		t.Fatalf("autosave name = %s", p)
	}
	f, err := OpenFile(p)
	if err != nil || len(f.Snapshot.Nodes) != 2 {
		t.Fatalf("autosave unreadable: %v", err)
	}
}
