/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package snap resolves raw pointer positions against the model.
//
// Nodes and members are scanned in store order and the first candidate within
// tolerance wins, even when a later candidate is closer. Two nodes inside the
// same snap radius therefore always resolve to the older one.
package snap

import (
	"structsketch/internal/domain"
	"structsketch/internal/vector"
	"structsketch/internal/viewport"
)

const (
	DefaultSnapRadiusPx = 12
	DefaultMemberHitPx  = 8
)

// Model is the read side of the store the resolver needs.
type Model interface {
	Nodes() []domain.Node
	Members() []domain.Member
	MemberEnds(id int) (a, b vector.Pt, ok bool)
}

// Resolution is where a pointer landed.
type Resolution struct {
	Pos            vector.Pt // world meters
	NodeID         int
	IsExistingNode bool
}

// Resolver holds the tolerances. View is read through a function so the
// resolver follows canvas resizes without being rebuilt.
type Resolver struct {
	Model        Model
	View         func() viewport.Viewport
	SnapRadiusPx float64
	MemberHitPx  float64
	GridSnap     bool
}

// New returns a resolver with default tolerances and grid snapping on.
func New(m Model, view func() viewport.Viewport) *Resolver {
	return &Resolver{Model: m, View: view, SnapRadiusPx: DefaultSnapRadiusPx, MemberHitPx: DefaultMemberHitPx, GridSnap: true}
}

// ResolvePointer maps a pixel to an existing node, a grid point or the raw
// world coordinate, in that priority.
func (r *Resolver) ResolvePointer(pixel vector.Pt) Resolution {
	v := r.View()
	for _, n := range r.Model.Nodes() {
		if v.ToPixel(n.Pos()).Dist(pixel) <= r.SnapRadiusPx {
			return Resolution{Pos: n.Pos(), NodeID: n.ID, IsExistingNode: true}
		}
	}
	w := v.ToReal(pixel)
	if r.GridSnap {
		w = v.SnapToGrid(w)
	}
	return Resolution{Pos: w}
}

// FindMemberAt returns the first member whose pixel segment passes within
// MemberHitPx of pixel.
func (r *Resolver) FindMemberAt(pixel vector.Pt) (int, bool) {
	v := r.View()
	nodes := map[int]vector.Pt{}
	for _, n := range r.Model.Nodes() {
		nodes[n.ID] = v.ToPixel(n.Pos())
	}
	for _, m := range r.Model.Members() {
		a, okA := nodes[m.Start]
		b, okB := nodes[m.End]
		if !okA || !okB {
			continue
		}
		if vector.SegmentDistance(pixel, a, b) <= r.MemberHitPx {
			return m.ID, true
		}
	}
	return 0, false
}

// ProjectRatio returns the clamped position of w along the member axis,
// 0 at the start node and 1 at the end node. Unknown members give 0.
func (r *Resolver) ProjectRatio(memberID int, w vector.Pt) float64 {
	a, b, ok := r.Model.MemberEnds(memberID)
	if !ok {
		return 0
	}
	return vector.ProjectT(w, a, b)
}

// MemberPoint returns the world point at ratio t along a member.
func (r *Resolver) MemberPoint(memberID int, t float64) (vector.Pt, bool) {
	a, b, ok := r.Model.MemberEnds(memberID)
	if !ok {
		return vector.Pt{}, false
	}
	return vector.Lerp(a, b, t), true
}
