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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"structsketch/internal/domain"
	"structsketch/internal/model"
)

const (
	// FileExt is the extension of a single-system document.
	FileExt        = ".ssk.json"
	BackupsDirName = "backups"
	// MaxBackups bounds the timestamped copies kept per system file.
	MaxBackups = 20
)

// SystemFile is a system document loaded from or saved to disk.
type SystemFile struct {
	Path     string
	Snapshot domain.Snapshot
	// Recovered is set when the file was unreadable and the latest backup was used.
	Recovered bool
}

// BackupsDir returns the backups directory next to path.
func BackupsDir(path string) string {
	return filepath.Join(filepath.Dir(path), BackupsDirName)
}

// SaveFile writes snap to path transactionally. A previous version of the file
// is copied to a timestamped backup first.
func SaveFile(path string, snap domain.Snapshot) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is required")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal system: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := BackupsDir(path)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if err := copyFile(path, bpath); err != nil {
			return fmt.Errorf("backup current system: %w", err)
		}
		pruneBackups(path, MaxBackups)
	}

	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp system: %w", err)
	}
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace system: %w", err)
	}
	return nil
}

// OpenFile reads and validates a system document. If the file is missing or
// invalid, the latest backup is tried before giving up.
func OpenFile(path string) (*SystemFile, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		snap, derr := model.DecodeSnapshot(b)
		if derr == nil {
			return &SystemFile{Path: path, Snapshot: snap}, nil
		}
		err = derr
	}
	snap, berr := openLatestBackup(path)
	if berr != nil {
		return nil, fmt.Errorf("open system: %w; backup attempt: %v", err, berr)
	}
	return &SystemFile{Path: path, Snapshot: snap, Recovered: true}, nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := BackupsDir(path)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// the timestamp in the name sorts lexicographically
	sort.Strings(out)
	return out, nil
}

func openLatestBackup(path string) (domain.Snapshot, error) {
	list, err := Backups(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(list) == 0 {
		return domain.Snapshot{}, errors.New("no backups found")
	}
	b, err := os.ReadFile(list[len(list)-1])
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read latest backup: %w", err)
	}
	snap, err := model.DecodeSnapshot(b)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("parse latest backup: %w", err)
	}
	return snap, nil
}

func pruneBackups(path string, keep int) {
	list, err := Backups(path)
	if err != nil || len(list) <= keep {
		return
	}
	for _, p := range list[:len(list)-keep] {
		_ = os.Remove(p)
	}
}

// AutosaveCrash writes snap into dir under a crash-stamped name and returns the path.
func AutosaveCrash(dir string, snap domain.Snapshot) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure autosave dir: %w", err)
	}
	path := filepath.Join(dir, "autosave-crash-"+time.Now().Format("20060102-150405")+FileExt)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal system: %w", err)
	}
	if err := writeFileSync(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
