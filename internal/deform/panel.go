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
	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// PanelPose is the displaced outline of a panel.
type PanelPose struct {
	PanelID int
	Center  vector.Pt
	Corners []vector.Pt
}

// RigidPanel places a rigid panel from the motion of one handle node.
// handle is the node's undeformed position and d its displacement and small
// rotation. The center moves by (dx − ry·dθ, dy + rx·dθ) where (rx, ry) is
// the handle's offset from the center; corners are the undeformed offsets
// turned by dθ about the new center.
func RigidPanel(p domain.Panel, handle vector.Pt, d Disp) PanelPose {
	c0 := p.Center()
	move := vector.SmallRotationTranslation(d.D, handle.Sub(c0), d.Theta)
	m := vector.RigidMotion{Pivot: c0, Angle: d.Theta, Translation: move}
	corners := p.Corners()
	out := make([]vector.Pt, len(corners))
	for i, q := range corners {
		out[i] = m.Apply(q)
	}
	return PanelPose{PanelID: p.ID, Center: m.Apply(c0), Corners: out}
}

// PanelPoses places every panel using its first connected node that exists
// as handle. Panels without a usable handle keep their outline.
func PanelPoses(panels []domain.Panel, nodes []domain.Node, f Field) []PanelPose {
	pos := make(map[int]vector.Pt, len(nodes))
	for _, n := range nodes {
		pos[n.ID] = n.Pos()
	}
	out := make([]PanelPose, 0, len(panels))
	for _, p := range panels {
		handle, d, ok := vector.Pt{}, Disp{}, false
		for _, c := range p.Connections {
			if h, found := pos[c.NodeID]; found {
				handle, d, ok = h, f.At(c.NodeID), true
				break
			}
		}
		if !ok {
			out = append(out, PanelPose{PanelID: p.ID, Center: p.Center(), Corners: p.Corners()})
			continue
		}
		out = append(out, RigidPanel(p, handle, d))
	}
	return out
}
