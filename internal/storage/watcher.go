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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "structsketch/internal/log"
)

// ChangeFunc receives the re-read system after path changed on disk, or the
// error that prevented reading it.
type ChangeFunc func(path string, f *SystemFile, err error)

// Watcher re-opens system documents when they change. Events per file are debounced.
type Watcher struct {
	w        *fsnotify.Watcher
	mu       sync.Mutex
	files    map[string]ChangeFunc
	timers   map[string]*time.Timer
	debounce time.Duration
	log      *slog.Logger
}

// NewWatcher creates a watcher with the given debounce interval.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		w:        fw,
		files:    make(map[string]ChangeFunc),
		timers:   make(map[string]*time.Timer),
		debounce: debounce,
		log:      applog.WithComponent("watcher"),
	}, nil
}

// Watch registers fn for path. The parent directory is watched so that
// atomic replace-by-rename saves are seen.
func (fw *Watcher) Watch(path string, fn ChangeFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path %s: %w", path, err)
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if err := fw.w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	fw.files[abs] = fn
	return nil
}

// Run dispatches change events until ctx is done or the watcher is closed.
func (fw *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fw.changed(ev.Name)
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return nil
			}
			fw.log.Warn("watcher error", slog.Any("err", err))
		}
	}
}

func (fw *Watcher) changed(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fn, ok := fw.files[abs]
	if !ok {
		return
	}
	if t, ok := fw.timers[abs]; ok {
		t.Stop()
	}
	fw.timers[abs] = time.AfterFunc(fw.debounce, func() {
		f, err := OpenFile(abs)
		if err != nil {
			fw.log.Warn("reload failed", slog.String("path", abs), slog.Any("err", err))
		}
		fn(abs, f, err)
	})
}

// Close stops pending callbacks and releases the underlying watcher.
func (fw *Watcher) Close() error {
	fw.mu.Lock()
	for _, t := range fw.timers {
		t.Stop()
	}
	fw.timers = map[string]*time.Timer{}
	fw.mu.Unlock()
	return fw.w.Close()
}
