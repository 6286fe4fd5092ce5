/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// ProjectT returns the scalar projection of p onto segment a→b clamped to [0,1].
// A degenerate segment projects everything onto t=0.
func ProjectT(p, a, b Pt) float64 {
	d := b.Sub(a)
	lenSq := d.Dot(d)
	if lenSq == 0 {
		return 0
	}
	t := p.Sub(a).Dot(d) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t
}

// Lerp returns the point at parameter t on a→b.
func Lerp(a, b Pt, t float64) Pt { return a.Add(b.Sub(a).Mul(t)) }

// SegmentDistance returns the distance from p to the closest point on segment a→b.
func SegmentDistance(p, a, b Pt) float64 {
	return p.Dist(Lerp(a, b, ProjectT(p, a, b)))
}

// RigidMotion is a planar rigid-body displacement: rotation by Angle about
// Pivot followed by Translation. It is the single kinematics routine used
// for both mechanism arcs and rigid panel reconstruction.
type RigidMotion struct {
	Pivot       Pt
	Angle       float64 // radians, counter-clockwise in a Y-up frame
	Translation Pt
}

// Apply moves p with the motion. Points at the pivot only translate.
func (m RigidMotion) Apply(p Pt) Pt {
	off := p.Sub(m.Pivot)
	if m.Angle != 0 {
		off = off.Rotate(m.Angle)
	}
	return m.Pivot.Add(off).Add(m.Translation)
}

// Arc returns the motion that swings p about center by the angle produced by
// a tangential speed over radius |p-center|. ok is false when p coincides with
// center; callers treat that as "no motion".
func Arc(center, p Pt, speed, gain float64, direction float64) (RigidMotion, bool) {
	r := p.Sub(center).Len()
	if r < 1e-12 || math.IsNaN(r) {
		return RigidMotion{}, false
	}
	return RigidMotion{Pivot: center, Angle: (speed / r) * gain * direction}, true
}

// SmallRotationTranslation returns the translation of a body's center when a
// point at offset (rx, ry) from that center moves by d and the body turns by
// dTheta, using linearized planar kinematics.
func SmallRotationTranslation(d Pt, offset Pt, dTheta float64) Pt {
	return Pt{X: d.X - offset.Y*dTheta, Y: d.Y + offset.X*dTheta}
}
