/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deform

import (
	"math"
	"testing"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

func near(a, b vector.Pt) bool { return a.Eq(b, 1e-9) }

func TestTransientZeroHistoryIsFinite(t *testing.T) {
	res := &domain.DynamicResult{TimeHistory: []domain.TimeStep{
		{Time: 0, Displacements: map[string]domain.Vec3{"1": {}, "2": {}}},
		{Time: 0.1, Displacements: map[string]domain.Vec3{"1": {}, "2": {}}},
	}}
	tr := NewTransient(res)
	s := tr.Scale(1)
	if math.IsInf(s, 0) || math.IsNaN(s) {
		t.Fatalf("scale = %v", s)
	}
	for step := 0; step < tr.Steps(); step++ {
		for id, d := range tr.At(step, 1) {
			if d.D != (vector.Pt{}) {
				t.Fatalf("step %d node %d displaced by %+v", step, id, d.D)
			}
		}
	}
}

func TestTransientNormalizesByGlobalMax(t *testing.T) {
	res := &domain.DynamicResult{TimeHistory: []domain.TimeStep{
		{Displacements: map[string]domain.Vec3{"1": {0.5, 0, 0}}},
		{Displacements: map[string]domain.Vec3{"1": {0, 2, 0}}},
	}}
	tr := NewTransient(res)
	if tr.MaxNorm() != 2 {
		t.Fatalf("max norm = %v", tr.MaxNorm())
	}
	d := tr.At(0, 1).At(1)
	if !near(d.D, vector.Pt{X: 0.25}) {
		t.Fatalf("step 0 displacement = %+v", d.D)
	}
	if got := tr.At(5, 1); len(got) != 0 {
		t.Fatalf("out of range step returned %v", got)
	}
}

func TestModalScaleAndMissingNodes(t *testing.T) {
	res := &domain.DynamicResult{NaturalFrequencies: []domain.NaturalFrequency{
		{Frequency: 2, ModeShape: map[string]domain.Vec3{"1": {1, -1, 0.1}}},
	}}
	tVis := math.Pi / 6 // sin(3t) = 1
	f := Modal(res, 0, tVis, 2)
	if !near(f.At(1).D, vector.Pt{X: 2, Y: -2}) {
		t.Fatalf("mode displacement = %+v", f.At(1).D)
	}
	if f.At(7) != (Disp{}) {
		t.Fatalf("missing node must not move")
	}
	if len(Modal(res, 3, tVis, 2)) != 0 || len(Modal(nil, 0, 0, 1)) != 0 {
		t.Fatalf("missing mode must give empty field")
	}
}

func mechanismModel() ([]domain.Node, []domain.Member) {
	nodes := []domain.Node{{ID: 1}, {ID: 2, X: 1}, {ID: 3, X: 5}, {ID: 4, X: 9}}
	members := []domain.Member{{ID: 1, Start: 1, End: 2}}
	return nodes, members
}

func TestMechanismZeroVelocityIsExactlyStatic(t *testing.T) {
	nodes, members := mechanismModel()
	nodes[0].X, nodes[0].Y = 0.1, 0.3
	mode := &domain.KinematicMode{
		Velocities:  map[string]domain.Vec2{"1": {0, 0}, "2": {0, 1}},
		RigidBodies: []domain.RigidBody{{MemberIDs: []int{1}, CenterOrVector: domain.Vec2{0.1, 0.3}, MovementType: domain.MovementRotation}},
	}
	for _, tm := range []float64{0, 0.1, 0.37, 1, 12.5, 1e6} {
		pos := Mechanism(nodes, members, mode, tm, 3)
		if pos[1] != nodes[0].Pos() {
			t.Fatalf("t=%v: static node moved to %+v", tm, pos[1])
		}
		// node 4 has no velocity entry at all
		if pos[4] != nodes[3].Pos() {
			t.Fatalf("t=%v: node without velocity moved", tm)
		}
	}
}

func TestMechanismRotationArc(t *testing.T) {
	nodes, members := mechanismModel()
	mode := &domain.KinematicMode{
		Velocities:  map[string]domain.Vec2{"2": {0, 1}},
		RigidBodies: []domain.RigidBody{{MemberIDs: []int{1}, CenterOrVector: domain.Vec2{0, 0}, MovementType: domain.MovementRotation}},
	}
	pos := Mechanism(nodes, members, mode, math.Pi/6, math.Pi/2)
	if !near(pos[2], vector.Pt{Y: 1}) {
		t.Fatalf("node 2 = %+v, want quarter turn to (0,1)", pos[2])
	}
	if r := pos[2].Len(); math.Abs(r-1) > 1e-12 {
		t.Fatalf("arc changed radius to %v", r)
	}
}

func TestMechanismTranslationFallback(t *testing.T) {
	nodes, members := mechanismModel()
	mode := &domain.KinematicMode{Velocities: map[string]domain.Vec2{"3": {2, 0}, "4": {0, 1}}}
	pos := Mechanism(nodes, members, mode, math.Pi/6, 0.5)
	if !near(pos[3], vector.Pt{X: 5.5}) {
		t.Fatalf("node 3 = %+v", pos[3])
	}
	if !near(pos[4], vector.Pt{X: 9, Y: 0.25}) {
		t.Fatalf("node 4 = %+v", pos[4])
	}
}

func TestRigidPanelSmallRotation(t *testing.T) {
	p := domain.Panel{Shape: domain.RectanglePanel, P1: vector.Pt{}, P2: vector.Pt{X: 2, Y: 2}}
	handle := vector.Pt{}
	d := Disp{D: vector.Pt{X: 0.1}, Theta: 0.01}
	pose := RigidPanel(p, handle, d)

	rx, ry := -1.0, -1.0
	wantCenter := vector.Pt{X: 1 + 0.1 - ry*0.01, Y: 1 + 0 + rx*0.01}
	if !near(pose.Center, wantCenter) {
		t.Fatalf("center = %+v, want %+v", pose.Center, wantCenter)
	}
	for i, q := range p.Corners() {
		want := wantCenter.Add(q.Sub(vector.Pt{X: 1, Y: 1}).Rotate(0.01))
		if !near(pose.Corners[i], want) {
			t.Fatalf("corner %d = %+v, want %+v", i, pose.Corners[i], want)
		}
	}
}

func TestPanelPosesWithoutHandleKeepOutline(t *testing.T) {
	p := domain.Panel{ID: 1, Shape: domain.TrianglePanel, P1: vector.Pt{}, P2: vector.Pt{X: 1, Y: 1}}
	poses := PanelPoses([]domain.Panel{p}, nil, Field{})
	if len(poses) != 1 || len(poses[0].Corners) != 3 || poses[0].Corners[1] != (vector.Pt{X: 1}) {
		t.Fatalf("poses = %+v", poses)
	}
}

func TestPlayerShortCircuits(t *testing.T) {
	p := NewPlayer()
	if p.Tick(0.016) {
		t.Fatalf("tick without analysis must report no work")
	}
	if _, ok := p.Frame(domain.Snapshot{}, 1); ok {
		t.Fatalf("frame without analysis")
	}
	p.Load(&Analysis{View: ViewStatic, Static: &domain.StaticResult{}})
	if p.Tick(0.016) {
		t.Fatalf("static view does not animate")
	}
	p.Load(&Analysis{View: ViewModal, Dynamic: &domain.DynamicResult{}})
	if !p.Tick(0.5) || p.Time() != 0.5 {
		t.Fatalf("modal view should advance, time %v", p.Time())
	}
	p.SetPaused(true)
	if !p.Paused() || p.Tick(0.5) {
		t.Fatalf("paused player advanced")
	}
	p.Clear()
	if p.Analysis() != nil || p.Time() != 0 {
		t.Fatalf("clear did not reset")
	}
}

func TestPlayerTransientStepsLoop(t *testing.T) {
	res := &domain.DynamicResult{TimeHistory: []domain.TimeStep{
		{Time: 0}, {Time: 0.01}, {Time: 0.02},
	}}
	p := NewPlayer()
	p.Load(&Analysis{View: ViewTransient, Dynamic: res})
	p.Tick(DefaultStepDuration * 4.5)
	if got := p.Step(); got != 1 {
		t.Fatalf("step = %d, want 1", got)
	}
	fr, ok := p.Frame(domain.Snapshot{Nodes: []domain.Node{{ID: 1, X: 2}}}, 1)
	if !ok || fr.Time != 0.01 || fr.Nodes[1] != (vector.Pt{X: 2}) {
		t.Fatalf("frame = %+v", fr)
	}
}
