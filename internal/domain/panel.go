/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "structsketch/internal/vector"

// Corners returns the panel outline in world coordinates.
// Rectangles span P1/P2 and are turned by Rotation about their center; a
// triangle without a third point uses the right angle at (P2.X, P1.Y).
func (p Panel) Corners() []vector.Pt {
	var pts []vector.Pt
	switch p.Shape {
	case TrianglePanel:
		third := vector.Pt{X: p.P2.X, Y: p.P1.Y}
		if len(p.Extra) > 0 {
			third = p.Extra[0]
		}
		pts = []vector.Pt{p.P1, third, p.P2}
	case PolygonPanel:
		pts = append([]vector.Pt{p.P1, p.P2}, p.Extra...)
	default:
		pts = []vector.Pt{
			p.P1,
			{X: p.P2.X, Y: p.P1.Y},
			p.P2,
			{X: p.P1.X, Y: p.P2.Y},
		}
	}
	if p.Rotation == 0 {
		return pts
	}
	c := centroid(pts)
	m := vector.RigidMotion{Pivot: c, Angle: vector.DegToRad(p.Rotation)}
	out := make([]vector.Pt, len(pts))
	for i, q := range pts {
		out[i] = m.Apply(q)
	}
	return out
}

// Center is the vertex centroid of the outline.
func (p Panel) Center() vector.Pt { return centroid(p.Corners()) }

// ConnectedTo reports whether the panel is attached to nodeID.
func (p Panel) ConnectedTo(nodeID int) bool {
	for _, c := range p.Connections {
		if c.NodeID == nodeID {
			return true
		}
	}
	return false
}

func centroid(pts []vector.Pt) vector.Pt {
	if len(pts) == 0 {
		return vector.Pt{}
	}
	var s vector.Pt
	for _, q := range pts {
		s = s.Add(q)
	}
	return s.Mul(1 / float64(len(pts)))
}
