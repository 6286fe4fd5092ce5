/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package log configures slog for structsketch. Records go to a console
// handler (or JSON) and optionally to a rotating JSON file; every record
// carries the app name and version plus the component, operation, system and
// request attributes set by the helpers below. Levels can be raised or lowered
// per component.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"structsketch/internal/version"
)

// AppName is attached to every record.
const AppName = "structsketch"

// Options controls Init. FromEnv reads them from
//   - SSK_LOG_LEVEL=debug|info|warn|error
//   - SSK_LOG_FORMAT=console|json
//   - SSK_LOG_FILE=<path> (adds a rotating JSON file)
//   - SSK_LOG_SOURCE=true|false
//   - SSK_LOG_LEVELS=solver=debug,storage=warn (per component)
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	// Levels overrides Level for records of a component.
	Levels map[string]string
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the application logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the application logger and slog's default.
func Init(opts Options) {
	base := ParseLevel(opts.Level)
	overrides := make(map[string]slog.Level, len(opts.Levels))
	floor := base
	for comp, lv := range opts.Levels {
		l := ParseLevel(lv)
		overrides[comp] = l
		floor = min(floor, l)
	}
	ho := &slog.HandlerOptions{Level: floor, AddSource: opts.AddSource}

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(os.Stderr, ho))
	} else {
		sinks = append(sinks, newConsoleHandler(os.Stderr, floor, opts.AddSource))
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		sinks = append(sinks, slog.NewJSONHandler(w, ho))
	}

	var h slog.Handler = fanout(sinks)
	h = &enrich{next: h}
	h = &componentGate{next: h, base: base, levels: overrides}
	logger := slog.New(h).With(
		slog.String("app", AppName),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)

	mu.Lock()
	current = logger
	mu.Unlock()
	slog.SetDefault(logger)
}

// FromEnv builds Options from SSK_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("SSK_LOG_LEVEL", "info"),
		Format:    getenv("SSK_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("SSK_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("SSK_LOG_FILE"),
		Levels:    ParseLevels(os.Getenv("SSK_LOG_LEVELS")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseLevel maps debug, info, warn(ing) and error to slog levels; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevels reads "component=level" pairs separated by commas. Malformed
// pairs are skipped.
func ParseLevels(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		comp, lv, ok := strings.Cut(pair, "=")
		comp, lv = strings.TrimSpace(comp), strings.TrimSpace(lv)
		if !ok || comp == "" || lv == "" {
			continue
		}
		out[comp] = lv
	}
	return out
}

// WithComponent returns a logger tagged with a component.
func WithComponent(name string) *slog.Logger { return L().With(slog.String(componentKey, name)) }

// WithOperation tags l with an operation.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type systemKey struct{}
type requestKey struct{}

// WithSystem tags records logged with ctx with the structural system name.
func WithSystem(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, systemKey{}, name)
}

// WithRequestID tags records logged with ctx with an HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey{}, id)
}
