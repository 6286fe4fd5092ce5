/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"errors"
	"log/slog"
)

const componentKey = "component"

// fanout sends each record to every sink.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// enrich copies the system and request id carried by the context onto the record.
type enrich struct{ next slog.Handler }

func (e *enrich) Enabled(ctx context.Context, level slog.Level) bool {
	return e.next.Enabled(ctx, level)
}

func (e *enrich) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if v, ok := ctx.Value(systemKey{}).(string); ok && v != "" {
			r.AddAttrs(slog.String("system", v))
		}
		if v, ok := ctx.Value(requestKey{}).(string); ok && v != "" {
			r.AddAttrs(slog.String("request_id", v))
		}
	}
	return e.next.Handle(ctx, r)
}

func (e *enrich) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &enrich{next: e.next.WithAttrs(attrs)}
}

func (e *enrich) WithGroup(name string) slog.Handler { return &enrich{next: e.next.WithGroup(name)} }

// componentGate applies the level of the component bound through WithAttrs,
// falling back to base.
type componentGate struct {
	next      slog.Handler
	base      slog.Level
	levels    map[string]slog.Level
	component string
}

func (g *componentGate) level() slog.Level {
	if l, ok := g.levels[g.component]; ok && g.component != "" {
		return l
	}
	return g.base
}

func (g *componentGate) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= g.level() && g.next.Enabled(ctx, level)
}

func (g *componentGate) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < g.level() {
		return nil
	}
	return g.next.Handle(ctx, r)
}

func (g *componentGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *g
	for _, a := range attrs {
		if a.Key == componentKey {
			c.component = a.Value.String()
		}
	}
	c.next = g.next.WithAttrs(attrs)
	return &c
}

func (g *componentGate) WithGroup(name string) slog.Handler {
	c := *g
	c.next = g.next.WithGroup(name)
	return &c
}
