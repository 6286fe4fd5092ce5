/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package deform

import (
	"math"
	"strconv"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// staticEps is the speed below which a node is drawn exactly in place.
const staticEps = 1e-12

// Mechanism animates one kinematic mode. Nodes on a rotating rigid body
// swing on an arc about the body's center; translating bodies and nodes
// outside any body move linearly by v·scale·amplitude·sin(3t) with
// scale = 1/max|v|. A node with |v| ≤ 1e-12 keeps its exact position.
func Mechanism(nodes []domain.Node, members []domain.Member, mode *domain.KinematicMode, animTime, amplitude float64) map[int]vector.Pt {
	out := make(map[int]vector.Pt, len(nodes))
	if mode == nil {
		for _, n := range nodes {
			out[n.ID] = n.Pos()
		}
		return out
	}
	factor := Oscillation(animTime)

	var vmax float64
	for _, v := range mode.Velocities {
		vmax = math.Max(vmax, v.Pt().Len())
	}
	scale := 0.0
	if vmax > staticEps {
		scale = 1 / vmax
	}

	bodies := bodyOfNode(members, mode.RigidBodies)
	for _, n := range nodes {
		p := n.Pos()
		v := mode.Velocities[domain.Key(n.ID)].Pt()
		speed := v.Len()
		if speed <= staticEps {
			out[n.ID] = p
			continue
		}
		if b, ok := bodies[n.ID]; ok && b.MovementType == domain.MovementRotation {
			out[n.ID] = swing(b.CenterOrVector.Pt(), p, v, amplitude*factor)
			continue
		}
		out[n.ID] = p.Add(v.Mul(scale * amplitude * factor))
	}
	return out
}

// swing rotates p about center by (|v|/r)·gain in the sense of v.
func swing(center, p, v vector.Pt, gain float64) vector.Pt {
	var dir float64
	switch c := p.Sub(center).Cross(v); {
	case c > 0:
		dir = 1
	case c < 0:
		dir = -1
	}
	m, ok := vector.Arc(center, p, v.Len(), gain, dir)
	if !ok {
		return p
	}
	return m.Apply(p)
}

// bodyOfNode assigns each node to the first rigid body listing one of its
// members.
func bodyOfNode(members []domain.Member, bodies []domain.RigidBody) map[int]domain.RigidBody {
	byID := make(map[int]domain.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	out := map[int]domain.RigidBody{}
	for _, b := range bodies {
		for _, mid := range b.MemberIDs {
			m, ok := byID[mid]
			if !ok {
				continue
			}
			for _, nid := range []int{m.Start, m.End} {
				if _, taken := out[nid]; !taken {
					out[nid] = b
				}
			}
		}
	}
	return out
}

// Mode returns mode idx of a kinematic result or nil.
func Mode(res *domain.KinematicResult, idx int) *domain.KinematicMode {
	if res == nil || idx < 0 || idx >= len(res.Modes) {
		return nil
	}
	return &res.Modes[idx]
}

// Poles returns the member poles of a mode that are finite points.
func Poles(mode *domain.KinematicMode) map[int]vector.Pt {
	out := map[int]vector.Pt{}
	if mode == nil {
		return out
	}
	for k, p := range mode.MemberPoles {
		if p == nil {
			continue
		}
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = p.Pt()
	}
	return out
}
