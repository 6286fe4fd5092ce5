/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("SSK_LOG_LEVEL", "warn")
	t.Setenv("SSK_LOG_FORMAT", "json")
	t.Setenv("SSK_LOG_SOURCE", "true")
	t.Setenv("SSK_LOG_FILE", "")
	t.Setenv("SSK_LOG_LEVELS", "solver=debug, storage = error")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if opts.Levels["solver"] != "debug" || opts.Levels["storage"] != "error" || len(opts.Levels) != 2 {
		t.Fatalf("levels = %v", opts.Levels)
	}
	if v := getenv("SSK_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestParseLevels(t *testing.T) {
	got := ParseLevels("a=debug,,b,=warn,c=")
	if len(got) != 1 || got["a"] != "debug" {
		t.Fatalf("ParseLevels = %v", got)
	}
	if ParseLevel("WARNING") != slog.LevelWarn || ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("ParseLevel mismatch")
	}
}

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String(componentKey, "solver"), slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.String("msg", "two words"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"03:04:05.000 ERR [solver] boom", " k=v", " grp.n=42", " grp.pi=3.14", ` grp.msg="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should be shown as tag only: %q", out)
	}
}

func TestComponentLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := newConsoleHandler(&buf, slog.LevelDebug, false)
	g := &componentGate{next: sink, base: slog.LevelWarn, levels: map[string]slog.Level{"solver": slog.LevelDebug}}
	root := slog.New(g)

	root.With(componentKey, "storage").Info("hidden")
	root.With(componentKey, "solver").Debug("shown")
	root.Info("hidden too")
	root.Warn("base warn")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("records below level leaked: %q", out)
	}
	if !strings.Contains(out, "[solver] shown") || !strings.Contains(out, "base warn") {
		t.Fatalf("expected records missing: %q", out)
	}
}
