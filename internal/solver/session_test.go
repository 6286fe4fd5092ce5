/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package solver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"structsketch/internal/domain"
	"structsketch/internal/hinge"
	"structsketch/internal/model"
	"structsketch/internal/vector"
)

// fakeAPI answers static runs; the first call blocks until released or cancelled.
type fakeAPI struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeAPI) Solve(ctx context.Context, snap domain.Snapshot) (*domain.StaticResult, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == 1 && f.release != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.StaticResult{Displacements: map[string]domain.Vec3{"2": {float64(n), 0, 0}}}, nil
}

func (f *fakeAPI) Kinematics(context.Context, domain.Snapshot) (*domain.KinematicResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &domain.KinematicResult{IsKinematic: true, DOF: 1, Modes: []domain.KinematicMode{{}}}, nil
}

func (f *fakeAPI) Dynamic(context.Context, domain.Snapshot) (*domain.DynamicResult, error) {
	return &domain.DynamicResult{Success: true}, nil
}

func (f *fakeAPI) Simplify(_ context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	snap.Nodes = snap.Nodes[:2]
	snap.Members = snap.Members[:1]
	snap.Loads = nil
	return snap, nil
}

func beam(t *testing.T) *model.Store {
	t.Helper()
	s := model.New(1)
	a := s.AddNode(vector.Pt{}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 3}, "", 0, nil)
	c := s.AddNode(vector.Pt{X: 6}, "", 0, nil)
	s.AddMember(a, b, domain.Beam, nil)
	s.AddMember(b, c, domain.Beam, nil)
	return s
}

func TestSessionSupersedesOlderRun(t *testing.T) {
	api := &fakeAPI{release: make(chan struct{}), started: make(chan struct{})}
	sess := NewSession(api, beam(t), nil, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := sess.RunStatic(context.Background())
		firstErr <- err
	}()
	select {
	case <-api.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first run never started")
	}
	res, err := sess.RunStatic(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if err := <-firstErr; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first run err = %v, want ErrSuperseded", err)
	}
	cur := sess.Result()
	if cur.Kind != KindStatic || cur.Static != res || cur.Static.Displacements["2"][0] != 2 {
		t.Fatalf("visible result = %+v", cur)
	}
}

func TestSessionFailureClearsAndNotifies(t *testing.T) {
	api := &fakeAPI{}
	var msgs []string
	n := NotifierFunc(func(l Level, m string) {
		if l == LevelError {
			msgs = append(msgs, m)
		}
	})
	sess := NewSession(api, beam(t), nil, n)
	if _, err := sess.RunStatic(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	api.err = &HTTPError{Status: 500}
	if _, err := sess.RunStatic(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	if sess.Result().Static != nil || sess.Running() != KindNone {
		t.Fatalf("stale result kept after failure: %+v", sess.Result())
	}
	if len(msgs) != 1 {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestSessionGateWithholdsDispatch(t *testing.T) {
	s := model.New(1)
	x := s.AddNode(vector.Pt{}, "", 0, nil)
	for _, p := range []vector.Pt{{X: 1}, {X: -1}} {
		n := s.AddNode(p, "", 0, nil)
		s.AddMember(x, n, domain.Beam, &domain.Releases{Start: domain.ReleaseTriple{M: true}})
	}
	api := &fakeAPI{}
	sess := NewSession(api, s, nil, nil)
	if _, err := sess.RunKinematics(context.Background()); !errors.Is(err, hinge.ErrUnresolved) {
		t.Fatalf("err = %v, want ErrUnresolved", err)
	}
	if api.calls != 0 {
		t.Fatalf("service called despite double hinge")
	}
	sess = NewSession(api, s, hinge.FirstEnd, nil)
	if _, err := sess.RunKinematics(context.Background()); err != nil {
		t.Fatalf("run after resolve: %v", err)
	}
	if a := sess.Result().Analysis(0); a == nil || a.Kinematic == nil {
		t.Fatalf("mechanism analysis not exposed")
	}
}

func TestSessionSimplifyReplacesModel(t *testing.T) {
	s := beam(t)
	sess := NewSession(&fakeAPI{}, s, nil, nil)
	if _, err := sess.Simplify(context.Background()); err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if len(s.Nodes()) != 2 || len(s.Members()) != 1 {
		t.Fatalf("model not replaced: %d nodes %d members", len(s.Nodes()), len(s.Members()))
	}
}

func TestSessionClearNotifiesListeners(t *testing.T) {
	sess := NewSession(&fakeAPI{}, beam(t), nil, nil)
	var got []Result
	sess.OnResult(func(r Result) { got = append(got, r) })
	_, _ = sess.RunStatic(context.Background())
	sess.Clear()
	if len(got) != 2 || got[0].Kind != KindStatic || got[1].Kind != KindNone {
		t.Fatalf("listener results = %+v", got)
	}
}
