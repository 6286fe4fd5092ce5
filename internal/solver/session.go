/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/hinge"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
)

// ErrSuperseded is returned by a run whose result was dropped because a
// newer run started.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

// Analyzer is the service contract; *Client implements it.
type Analyzer interface {
	Kinematics(ctx context.Context, snap domain.Snapshot) (*domain.KinematicResult, error)
	Solve(ctx context.Context, snap domain.Snapshot) (*domain.StaticResult, error)
	Dynamic(ctx context.Context, snap domain.Snapshot) (*domain.DynamicResult, error)
	Simplify(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error)
}

// Level of a user-facing message.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level Level, msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// Kind names the analysis a Result came from.
type Kind string

const (
	KindNone       Kind = ""
	KindKinematics Kind = "kinematics"
	KindStatic     Kind = "static"
	KindDynamic    Kind = "dynamic"
	KindSimplify   Kind = "simplify"
)

// Result is the visible analysis state. It is replaced wholesale.
type Result struct {
	Kind      Kind
	Seq       uint64
	Kinematic *domain.KinematicResult
	Static    *domain.StaticResult
	Dynamic   *domain.DynamicResult
}

// Analysis converts r into a renderer input. Kinematic results that are not
// mechanisms draw nothing.
func (r Result) Analysis(mode int) *deform.Analysis {
	switch r.Kind {
	case KindStatic:
		return &deform.Analysis{View: deform.ViewStatic, Static: r.Static}
	case KindDynamic:
		return &deform.Analysis{View: deform.ViewModal, Dynamic: r.Dynamic, Mode: mode}
	case KindKinematics:
		if r.Kinematic != nil && r.Kinematic.IsKinematic {
			return &deform.Analysis{View: deform.ViewMechanism, Kinematic: r.Kinematic, Mode: mode}
		}
	}
	return nil
}

// Session runs analyses for one model. Every run supersedes the previous one:
// its context is cancelled and its response is never applied.
type Session struct {
	api     Analyzer
	store   *model.Store
	chooser hinge.Chooser
	notify  Notifier
	log     *slog.Logger

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	running  Kind
	result   Result
	onResult []func(Result)
}

// NewSession wires a session. chooser may be nil, in which case any double
// hinge blocks static and kinematic runs. notify may be nil.
func NewSession(api Analyzer, store *model.Store, chooser hinge.Chooser, notify Notifier) *Session {
	if notify == nil {
		notify = NotifierFunc(func(Level, string) {})
	}
	return &Session{api: api, store: store, chooser: chooser, notify: notify, log: applog.WithComponent("solver")}
}

// OnResult registers fn for every applied or cleared result.
func (s *Session) OnResult(fn func(Result)) {
	s.mu.Lock()
	s.onResult = append(s.onResult, fn)
	s.mu.Unlock()
}

// Result returns the visible result.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Running returns the kind of the in-flight run, or KindNone.
func (s *Session) Running() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Clear cancels any run and drops the visible result.
func (s *Session) Clear() {
	s.mu.Lock()
	s.seq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = KindNone
	s.result = Result{}
	fns := slices.Clone(s.onResult)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(Result{})
	}
}

func (s *Session) begin(ctx context.Context, kind Kind) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = kind
	s.result = Result{}
	return ctx, s.seq
}

// finish applies r if seq is still current. On error the visible state stays
// cleared and the user is told.
func (s *Session) finish(seq uint64, r Result, err error) error {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.log.Debug("stale analysis dropped", slog.Uint64("seq", seq), slog.String("kind", string(r.Kind)))
		return ErrSuperseded
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = KindNone
	if err != nil {
		s.result = Result{}
	} else {
		r.Seq = seq
		s.result = r
	}
	applied := s.result
	fns := slices.Clone(s.onResult)
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("analysis failed", slog.String("kind", string(r.Kind)), slog.String("err", err.Error()))
		s.notify.Notify(LevelError, fmt.Sprintf("%s analysis failed: %v", r.Kind, err))
	}
	for _, fn := range fns {
		fn(applied)
	}
	return err
}

func run[T any](ctx context.Context, s *Session, kind Kind, gated bool, call func(context.Context, domain.Snapshot) (T, error), wrap func(T) Result) (T, error) {
	var zero T
	if gated {
		if err := hinge.Gate(ctx, s.store, s.chooser); err != nil {
			s.notify.Notify(LevelError, "analysis withheld: resolve double hinges first")
			return zero, err
		}
	}
	snap := s.store.ExportSnapshot()
	rctx, seq := s.begin(ctx, kind)
	s.log.Info("analysis started", slog.String("kind", string(kind)), slog.Uint64("seq", seq), slog.Int("nodes", len(snap.Nodes)))
	res, err := call(rctx, snap)
	r := Result{Kind: kind}
	if err == nil {
		r = wrap(res)
		r.Kind = kind
	}
	if ferr := s.finish(seq, r, err); ferr != nil {
		return zero, ferr
	}
	return res, nil
}

// RunKinematics checks the structure for mechanisms.
func (s *Session) RunKinematics(ctx context.Context) (*domain.KinematicResult, error) {
	res, err := run(ctx, s, KindKinematics, true, s.api.Kinematics, func(r *domain.KinematicResult) Result {
		return Result{Kinematic: r}
	})
	if err == nil {
		if res.IsKinematic {
			s.notify.Notify(LevelInfo, fmt.Sprintf("mechanism with %d degree(s) of freedom", res.DOF))
		} else {
			s.notify.Notify(LevelInfo, "structure is kinematically stable")
		}
	}
	return res, err
}

// RunStatic runs the FEM solution.
func (s *Session) RunStatic(ctx context.Context) (*domain.StaticResult, error) {
	return run(ctx, s, KindStatic, true, s.api.Solve, func(r *domain.StaticResult) Result {
		return Result{Static: r}
	})
}

// RunDynamic runs the eigen and time history analysis.
func (s *Session) RunDynamic(ctx context.Context) (*domain.DynamicResult, error) {
	return run(ctx, s, KindDynamic, false, s.api.Dynamic, func(r *domain.DynamicResult) Result {
		return Result{Dynamic: r}
	})
}

// Simplify replaces the model with the service's reduced system.
func (s *Session) Simplify(ctx context.Context) (int, error) {
	snap, err := run(ctx, s, KindSimplify, false, s.api.Simplify, func(domain.Snapshot) Result {
		return Result{}
	})
	if err != nil {
		return 0, err
	}
	dropped := s.store.ImportSnapshot(snap)
	s.notify.Notify(LevelInfo, fmt.Sprintf("system simplified to %d nodes and %d members", len(snap.Nodes), len(snap.Members)))
	return dropped, nil
}
