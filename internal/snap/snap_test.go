/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"math"
	"testing"

	"structsketch/internal/domain"
	"structsketch/internal/model"
	"structsketch/internal/vector"
	"structsketch/internal/viewport"
)

// 400 px wide canvas at 1 m grid gives 20 px per meter, origin at (200,200).
func setup(t *testing.T) (*model.Store, *Resolver) {
	t.Helper()
	s := model.New(1)
	vp := viewport.New(400, 400, 1)
	return s, New(s, func() viewport.Viewport { return vp })
}

func TestResolvePointerPrefersNode(t *testing.T) {
	s, r := setup(t)
	id := s.AddNode(vector.Pt{X: 1, Y: 1}, "", 0, nil)
	res := r.ResolvePointer(vector.Pt{X: 225, Y: 175})
	if !res.IsExistingNode || res.NodeID != id {
		t.Fatalf("expected node %d, got %+v", id, res)
	}
	if res.Pos != (vector.Pt{X: 1, Y: 1}) {
		t.Fatalf("pos = %+v", res.Pos)
	}
}

func TestResolvePointerFirstMatchWins(t *testing.T) {
	s, r := setup(t)
	first := s.AddNode(vector.Pt{X: 0, Y: 0}, "", 0, nil)
	s.AddNode(vector.Pt{X: 0.5, Y: 0}, "", 0, nil)
	// (209,200) is 9 px from the first node and 1 px from the second
	res := r.ResolvePointer(vector.Pt{X: 209, Y: 200})
	if res.NodeID != first {
		t.Fatalf("tie-break picked %d, want first node %d", res.NodeID, first)
	}
}

func TestResolvePointerGridAndRaw(t *testing.T) {
	_, r := setup(t)
	res := r.ResolvePointer(vector.Pt{X: 231, Y: 189})
	if res.IsExistingNode || res.Pos != (vector.Pt{X: 2, Y: 1}) {
		t.Fatalf("grid snap = %+v", res)
	}
	r.GridSnap = false
	res = r.ResolvePointer(vector.Pt{X: 231, Y: 189})
	if math.Abs(res.Pos.X-1.55) > 1e-9 || math.Abs(res.Pos.Y-0.55) > 1e-9 {
		t.Fatalf("raw pos = %+v", res.Pos)
	}
}

func TestFindMemberAt(t *testing.T) {
	s, r := setup(t)
	a := s.AddNode(vector.Pt{X: 0, Y: 0}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 4, Y: 0}, "", 0, nil)
	id, _ := s.AddMember(a, b, domain.Beam, nil)
	if got, ok := r.FindMemberAt(vector.Pt{X: 240, Y: 205}); !ok || got != id {
		t.Fatalf("FindMemberAt = %d,%v", got, ok)
	}
	if _, ok := r.FindMemberAt(vector.Pt{X: 240, Y: 220}); ok {
		t.Fatalf("20 px away should miss")
	}
	if _, ok := r.FindMemberAt(vector.Pt{X: 300, Y: 200}); ok {
		t.Fatalf("beyond the end node should miss")
	}
}

func TestProjectRatioClamped(t *testing.T) {
	s, r := setup(t)
	a := s.AddNode(vector.Pt{X: 0, Y: 0}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 4, Y: 0}, "", 0, nil)
	id, _ := s.AddMember(a, b, domain.Beam, nil)
	cases := []struct {
		p    vector.Pt
		want float64
	}{
		{vector.Pt{X: 1, Y: 3}, 0.25},
		{vector.Pt{X: -2, Y: 0}, 0},
		{vector.Pt{X: 9, Y: 0}, 1},
	}
	for _, c := range cases {
		if got := r.ProjectRatio(id, c.p); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("ProjectRatio(%+v) = %v, want %v", c.p, got, c.want)
		}
	}
	if got := r.ProjectRatio(99, vector.Pt{}); got != 0 {
		t.Fatalf("unknown member ratio = %v", got)
	}
}
