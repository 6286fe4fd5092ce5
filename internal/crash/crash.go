/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns panics at process entry points into a crash report and
// an autosave of the structural system being edited.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"structsketch/internal/domain"
	applog "structsketch/internal/log"
	"structsketch/internal/storage"
	"structsketch/internal/telemetry"
	"structsketch/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Source provides the system to autosave; *model.Store satisfies it.
type Source interface {
	ExportSnapshot() domain.Snapshot
}

// Recover captures a panic, logs it with its stack, writes a report into dir
// (the temp dir when empty) and autosaves src if given. It then exits with code 2.
//
// Usage: defer crash.Recover(dir, store)
func Recover(dir string, src Source) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(dir, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if src != nil {
		if path, err := autosave(dir, src); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else {
			l.Info("autosave written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Your system was autosaved to: %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// autosave exports src, itself guarded because the panic may have left it inconsistent.
func autosave(dir string, src Source) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export during crash: %v", r)
		}
	}()
	return storage.AutosaveCrash(dir, src.ExportSnapshot())
}

func writeReport(dir string, panicVal any, stack []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "StructSketch Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	// opt-in upload; a no-op unless telemetry is configured
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
